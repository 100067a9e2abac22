package analysis

import (
	"math"
	"strings"

	"github.com/san-kum/pendubalance/internal/dynamo"
)

// Portrait is a two-coordinate projection of a trajectory.
type Portrait struct {
	XLabel, YLabel string
	Points         []dynamo.Point
}

// NewPortrait pairs xs with ys, truncating to the shorter slice.
func NewPortrait(xLabel, yLabel string, xs, ys []float64) *Portrait {
	n := min(len(xs), len(ys))
	p := &Portrait{XLabel: xLabel, YLabel: yLabel, Points: make([]dynamo.Point, n)}
	for i := 0; i < n; i++ {
		p.Points[i] = dynamo.Point{X: xs[i], Y: ys[i]}
	}
	return p
}

// WrapAngles returns a copy of angles mapped into [-π, π].
func WrapAngles(angles []float64) []float64 {
	out := make([]float64, len(angles))
	for i, a := range angles {
		out[i] = WrapAngle(a)
	}
	return out
}

// PoincareSection records (xs, ys) each time cross passes upward through
// threshold, interpolating linearly between the bracketing samples. Jumps in
// cross larger than π are taken as angle wrap-around and skipped.
func PoincareSection(xLabel, yLabel string, cross, xs, ys []float64, threshold float64) *Portrait {
	n := min(len(cross), len(xs), len(ys))
	p := &Portrait{XLabel: xLabel, YLabel: yLabel}

	for i := 1; i < n; i++ {
		prev, curr := cross[i-1], cross[i]
		if !(prev < threshold && curr >= threshold) || curr-prev > math.Pi {
			continue
		}
		frac := (threshold - prev) / (curr - prev)
		if math.IsNaN(frac) || math.IsInf(frac, 0) {
			frac = 0.5
		}
		p.Points = append(p.Points, dynamo.Point{
			X: xs[i-1] + frac*(xs[i]-xs[i-1]),
			Y: ys[i-1] + frac*(ys[i]-ys[i-1]),
		})
	}
	return p
}

// ASCII draws the portrait on a width×height grid with 10% padding and the
// axes drawn where they cross the visible area.
func (p *Portrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := p.Points[0].X, p.Points[0].X
	minY, maxY := p.Points[0].Y, p.Points[0].Y
	for _, pt := range p.Points {
		minX, maxX = math.Min(minX, pt.X), math.Max(maxX, pt.X)
		minY, maxY = math.Min(minY, pt.Y), math.Max(maxY, pt.Y)
	}

	rangeX, rangeY := maxX-minX, maxY-minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX, rangeY = maxX-minX, maxY-minY

	col := func(x float64) int { return int((x - minX) / rangeX * float64(width-1)) }
	row := func(y float64) int { return height - 1 - int((y-minY)/rangeY*float64(height-1)) }

	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		r, c := row(pt.Y), col(pt.X)
		if r >= 0 && r < height && c >= 0 && c < width {
			grid[r][c] = '•'
		}
	}

	if minX <= 0 && maxX >= 0 {
		c := col(0)
		for r := 0; r < height; r++ {
			if c >= 0 && c < width && grid[r][c] == ' ' {
				grid[r][c] = '│'
			}
		}
	}
	if minY <= 0 && maxY >= 0 {
		r := row(0)
		for c := 0; c < width; c++ {
			if r >= 0 && r < height && grid[r][c] == ' ' {
				grid[r][c] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, line := range grid {
		sb.WriteString(string(line))
		sb.WriteRune('\n')
	}
	return sb.String()
}
