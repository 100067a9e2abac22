package export

import (
	"fmt"
	"strings"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/viz"
)

// SVGStyle sets the colours used by the SVG writers.
type SVGStyle struct {
	Background string
	Ink        string
	Accent     string
}

// StyleFromTheme reuses a terminal theme for vector output.
func StyleFromTheme(t viz.Theme) SVGStyle {
	return SVGStyle{Background: "#0a0a0a", Ink: string(t.Primary), Accent: string(t.Accent)}
}

func svgHeader(sb *strings.Builder, width, height float64, background string) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// CanvasToSVG draws every set braille dot of canvas as a circle, scale
// pixels apart.
func CanvasToSVG(canvas *viz.Canvas, scale float64, style SVGStyle) string {
	if canvas == nil {
		return ""
	}

	var sb strings.Builder
	svgHeader(&sb, float64(canvas.DotsWide())*scale, float64(canvas.DotsHigh())*scale, style.Background)
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", style.Ink)

	r := scale * 0.4
	for y := 0; y < canvas.DotsHigh(); y++ {
		for x := 0; x < canvas.DotsWide(); x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			cx := float64(x)*scale + scale/2
			cy := float64(y)*scale + scale/2
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", cx, cy, r)
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// PendulumSVG draws the pendulum at one instant as vector links on a size x
// size square, with the pivot in the centre and Y pointing down. trail holds
// earlier lower-joint positions.
func PendulumSVG(upper, lower dynamo.Point, trail []dynamo.Point, reach float64, size int, style SVGStyle) string {
	half := float64(size) / 2
	scale := 1.0
	if reach > 0 {
		scale = (half - 10) / reach
	}
	at := func(p dynamo.Point) (float64, float64) { return half + p.X*scale, half + p.Y*scale }

	var sb strings.Builder
	svgHeader(&sb, float64(size), float64(size), style.Background)

	if len(trail) > 1 {
		fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-opacity=\"0.5\" stroke-width=\"1\" d=\"", style.Accent)
		for i, p := range trail {
			x, y := at(p)
			if i == 0 {
				fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")
	}

	px, py := at(dynamo.Point{})
	ux, uy := at(upper)
	lx, ly := at(lower)
	fmt.Fprintf(&sb, "<g stroke=\"%s\" stroke-width=\"3\" stroke-linecap=\"round\">\n", style.Ink)
	fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", px, py, ux, uy)
	fmt.Fprintf(&sb, "<line x1=\"%.1f\" y1=\"%.1f\" x2=\"%.1f\" y2=\"%.1f\"/>\n", ux, uy, lx, ly)
	sb.WriteString("</g>\n")
	fmt.Fprintf(&sb, "<g fill=\"%s\">\n", style.Accent)
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"4\"/>\n", px, py)
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"6\"/>\n", ux, uy)
	fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"6\"/>\n", lx, ly)
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

// TrajectoryToSVG draws points as a single polyline fitted to width x height
// with 10% padding. Y grows upward, as on a plot.
func TrajectoryToSVG(points []dynamo.Point, width, height int, stroke string) string {
	if len(points) < 2 {
		return ""
	}

	minX, maxX := points[0].X, points[0].X
	minY, maxY := points[0].Y, points[0].Y
	for _, p := range points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	svgHeader(&sb, float64(width), float64(height), "#0a0a0a")
	fmt.Fprintf(&sb, "<path fill=\"none\" stroke=\"%s\" stroke-width=\"1.5\" d=\"", stroke)

	for i, p := range points {
		x := (p.X - minX) / rangeX * float64(width)
		y := float64(height) - (p.Y-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "M%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString("\"/>\n</svg>")
	return sb.String()
}
