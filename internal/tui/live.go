package tui

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/san-kum/pendubalance/internal/sim"
)

const (
	width       = 70
	height      = 24
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

type point struct{ x, y int }

// LiveRenderer draws the pendulum as ASCII art with plain ANSI escapes,
// throttled to frameRate. It is the fallback for terminals where the
// bubbletea view is unavailable.
type LiveRenderer struct {
	w         io.Writer
	frameRate int
	scale     float64 // characters per metre
	lastFrame time.Time
	canvas    [][]rune
	trail     []point
}

// NewLiveRenderer sizes the drawing so that a fully extended pendulum of
// length reach metres fits the canvas.
func NewLiveRenderer(w io.Writer, frameRate int, reach float64) *LiveRenderer {
	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = make([]rune, width)
	}
	if frameRate <= 0 {
		frameRate = 30
	}
	scale := 10.0
	if reach > 0 {
		scale = float64(height/2-1) / reach
	}
	return &LiveRenderer{
		w:         w,
		frameRate: frameRate,
		scale:     scale,
		canvas:    canvas,
		trail:     make([]point, 0, 50),
	}
}

func (r *LiveRenderer) Running() bool { return true }

func (r *LiveRenderer) Present(f sim.Frame) {
	if time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.clear()
	r.drawDoublePendulum(f)
	r.render(f)
}

func (r *LiveRenderer) clear() {
	for y := range r.canvas {
		for x := range r.canvas[y] {
			r.canvas[y][x] = ' '
		}
	}
}

func (r *LiveRenderer) set(x, y int, c rune) {
	if x >= 0 && x < width && y >= 0 && y < height {
		r.canvas[y][x] = c
	}
}

func (r *LiveRenderer) line(x1, y1, x2, y2 int, c rune) {
	dx := abs(x2 - x1)
	dy := abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx - dy
	for {
		r.set(x1, y1, c)
		if x1 == x2 && y1 == y2 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x1 += sx
		}
		if e2 < dx {
			err += dx
			y1 += sy
		}
	}
}

// project maps pivot-frame metres to canvas cells, positive Y downward.
// Terminal cells are roughly twice as tall as wide, so x is stretched.
func (r *LiveRenderer) project(x, y float64) point {
	return point{
		x: width/2 + int(math.Round(2*x*r.scale)),
		y: height/2 + int(math.Round(y*r.scale)),
	}
}

func (r *LiveRenderer) drawDoublePendulum(f sim.Frame) {
	pivot := r.project(0, 0)
	upper := r.project(f.Upper.X, f.Upper.Y)
	lower := r.project(f.Lower.X, f.Lower.Y)

	r.trail = append(r.trail, lower)
	if len(r.trail) > 50 {
		r.trail = r.trail[1:]
	}
	for _, pt := range r.trail {
		r.set(pt.x, pt.y, '.')
	}

	r.line(pivot.x, pivot.y, upper.x, upper.y, '|')
	r.line(upper.x, upper.y, lower.x, lower.y, '|')
	r.set(pivot.x, pivot.y, '+')
	r.set(upper.x, upper.y, 'o')
	r.set(lower.x, lower.y, 'O')
}

func (r *LiveRenderer) render(f sim.Frame) {
	var b strings.Builder
	b.WriteString(clearScreen)
	b.WriteString(fmt.Sprintf("  double pendulum  t=%.2fs\n", f.Time))
	b.WriteString("  " + strings.Repeat("-", width) + "\n")

	for _, row := range r.canvas {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}

	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	b.WriteString(fmt.Sprintf("  θ1=%.2f θ2=%.2f  torque=%.2f applied=%.2f cost=%.1f\n",
		f.State.Theta1, f.State.Theta2, f.Decision.Torque, f.Decision.Applied, f.Decision.Cost))

	fmt.Fprint(r.w, b.String())
}

func (r *LiveRenderer) Start() { fmt.Fprint(r.w, hideCursor) }
func (r *LiveRenderer) Stop()  { fmt.Fprint(r.w, showCursor) }

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
