package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"
)

// DefaultDPI is the raster resolution of saved plots.
const DefaultDPI = 150

var ErrPlotData = errors.New("plot data invalid")

// Series is one named line of a time plot.
type Series struct {
	Name string
	Ys   []float64
}

// TimePlot plots each series against xs. Every series must have len(xs)
// samples.
func TimePlot(title, xlabel, ylabel string, xs []float64, series ...Series) (*plot.Plot, error) {
	if len(xs) == 0 || len(series) == 0 {
		return nil, ErrPlotData
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	p.Add(plotter.NewGrid())

	for i, s := range series {
		if len(s.Ys) != len(xs) {
			return nil, fmt.Errorf("%w: series %q has %d samples, want %d", ErrPlotData, s.Name, len(s.Ys), len(xs))
		}
		pts := make(plotter.XYs, len(xs))
		for j := range xs {
			pts[j].X = xs[j]
			pts[j].Y = s.Ys[j]
		}
		line, err := plotter.NewLine(pts)
		if err != nil {
			return nil, err
		}
		line.LineStyle.Width = vg.Points(1.5)
		line.LineStyle.Color = plotutil.Color(i)
		p.Add(line)
		if s.Name != "" {
			p.Legend.Add(s.Name, line)
		}
	}
	p.Legend.Top = true
	return p, nil
}

// WritePNG renders p at widthIn x heightIn inches.
func WritePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64, dpi int) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(dpi),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// SavePNG writes p to filename, creating its directory.
func SavePNG(p *plot.Plot, widthIn, heightIn float64, filename string) error {
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	if err := WritePNG(f, p, widthIn, heightIn, DefaultDPI); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
