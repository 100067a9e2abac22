package viz

import (
	"math"
	"strings"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// Braille cells hold a 2x4 dot matrix:
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
const brailleBlank = 0x2800

var pixelMap = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells addressed in dots. A canvas of
// Width x Height cells has (2*Width) x (4*Height) dots.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

func (c *Canvas) DotsWide() int { return 2 * c.Width }
func (c *Canvas) DotsHigh() int { return 4 * c.Height }

// Set turns on the dot at (x, y), y growing downward. Out-of-range dots are
// ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotsWide() || y >= c.DotsHigh() {
		return
	}
	c.Grid[y/4][x/2] |= pixelMap[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is on.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x >= c.DotsWide() || y >= c.DotsHigh() {
		return false
	}
	return c.Grid[y/4][x/2]&pixelMap[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws a line using Bresenham's algorithm
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// FillDisc sets every dot within r of (cx, cy).
func (c *Canvas) FillDisc(cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r {
				c.Set(cx+dx, cy+dy)
			}
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Projection maps pivot-frame metres onto canvas dots with the pivot at the
// centre and positive Y drawn downward. Braille dots are about twice as tall
// as wide on screen, so the same dot pitch is used on both axes.
type Projection struct {
	cx, cy int
	scale  float64 // dots per metre
}

// FitPendulum returns a projection in which a pendulum of the given reach
// fits the canvas in every orientation.
func FitPendulum(c *Canvas, reach float64) Projection {
	half := math.Min(float64(c.DotsWide()), float64(c.DotsHigh()))/2 - 2
	scale := 1.0
	if reach > 0 {
		scale = half / reach
	}
	return Projection{cx: c.DotsWide() / 2, cy: c.DotsHigh() / 2, scale: scale}
}

func (p Projection) Dot(pt dynamo.Point) (int, int) {
	return p.cx + int(math.Round(pt.X*p.scale)), p.cy + int(math.Round(pt.Y*p.scale))
}

// DrawPendulum draws both links, the joints and, if given, a trail of past
// lower-joint positions.
func DrawPendulum(c *Canvas, p Projection, upper, lower dynamo.Point, trail []dynamo.Point) {
	for _, pt := range trail {
		c.Set(p.Dot(pt))
	}

	px, py := p.Dot(dynamo.Point{})
	ux, uy := p.Dot(upper)
	lx, ly := p.Dot(lower)

	c.DrawLine(px, py, ux, uy)
	c.DrawLine(ux, uy, lx, ly)
	c.FillDisc(px, py, 1)
	c.FillDisc(ux, uy, 1)
	c.FillDisc(lx, ly, 2)
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
