package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/viz"
)

var testStyle = SVGStyle{Background: "#000000", Ink: "#00ff00", Accent: "#ff00ff"}

func TestCanvasToSVG(t *testing.T) {
	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)

	svg := CanvasToSVG(c, 2, testStyle)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.Contains(t, svg, `width="16" height="16"`)
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
	assert.Contains(t, svg, `<circle cx="1.0" cy="1.0" r="0.8"/>`)
	assert.Contains(t, svg, `<circle cx="15.0" cy="15.0" r="0.8"/>`)
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
}

func TestCanvasToSVGNil(t *testing.T) {
	assert.Empty(t, CanvasToSVG(nil, 1, testStyle))
}

func TestPendulumSVGHanging(t *testing.T) {
	upper := dynamo.Point{X: 0, Y: 1}
	lower := dynamo.Point{X: 0, Y: 2}

	svg := PendulumSVG(upper, lower, nil, 2, 220, testStyle)
	assert.Equal(t, 2, strings.Count(svg, "<line"))
	assert.Equal(t, 3, strings.Count(svg, "<circle"))
	assert.NotContains(t, svg, "<path")
	// Pivot in the centre, links below it.
	assert.Contains(t, svg, `<line x1="110.0" y1="110.0" x2="110.0" y2="160.0"/>`)
	assert.Contains(t, svg, `<line x1="110.0" y1="160.0" x2="110.0" y2="210.0"/>`)
}

func TestPendulumSVGTrail(t *testing.T) {
	trail := []dynamo.Point{{X: 0, Y: 2}, {X: 0.1, Y: 1.9}}
	svg := PendulumSVG(dynamo.Point{Y: 1}, dynamo.Point{X: 0.1, Y: 1.9}, trail, 2, 220, testStyle)
	assert.Equal(t, 1, strings.Count(svg, "<path"))
	assert.Contains(t, svg, "M110.0,210.0 L115.0,205.0")
}

func TestTrajectoryToSVG(t *testing.T) {
	assert.Empty(t, TrajectoryToSVG([]dynamo.Point{{}}, 100, 100, "#fff"))

	svg := TrajectoryToSVG([]dynamo.Point{{X: 0, Y: 0}, {X: 1, Y: 1}}, 120, 120, "#fff")
	assert.Contains(t, svg, `d="M10.0,110.0 L110.0,10.0"`)
}

func TestStyleFromTheme(t *testing.T) {
	s := StyleFromTheme(viz.ThemeCyberpunk)
	assert.Equal(t, "#00ffff", s.Ink)
	assert.Equal(t, "#ff00ff", s.Accent)
}

func TestTimePlotPNG(t *testing.T) {
	xs := []float64{0, 0.01, 0.02, 0.03}
	p, err := TimePlot("angles", "time (s)", "rad", xs,
		Series{Name: "theta1", Ys: []float64{3.14, 3.1, 3.0, 2.9}},
		Series{Name: "theta2", Ys: []float64{3.14, 3.2, 3.3, 3.4}},
	)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p, 4, 3, 72))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG\r\n\x1a\n")))
}

func TestTimePlotRejectsBadData(t *testing.T) {
	_, err := TimePlot("x", "t", "y", nil, Series{Ys: nil})
	assert.ErrorIs(t, err, ErrPlotData)

	_, err = TimePlot("x", "t", "y", []float64{0, 1})
	assert.ErrorIs(t, err, ErrPlotData)

	_, err = TimePlot("x", "t", "y", []float64{0, 1}, Series{Name: "short", Ys: []float64{1}})
	assert.ErrorIs(t, err, ErrPlotData)
}

func TestSavePNG(t *testing.T) {
	p, err := TimePlot("torque", "time (s)", "N·m", []float64{0, 1}, Series{Name: "applied", Ys: []float64{0, 10}})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "plots", "torque.png")
	require.NoError(t, SavePNG(p, 4, 3, path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())
}
