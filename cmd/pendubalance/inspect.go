package main

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/pendubalance/internal/analysis"
	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/dynamo"
	"github.com/san-kum/pendubalance/internal/experiment"
	"github.com/san-kum/pendubalance/internal/export"
	"github.com/san-kum/pendubalance/internal/physics"
	"github.com/san-kum/pendubalance/internal/storage"
	"github.com/san-kum/pendubalance/internal/viz"
)

func loadRun(runID string) (*storage.RunMetadata, *storage.Trace, error) {
	st := storage.New(dataDir)
	meta, err := st.Load(runID)
	if err != nil {
		return nil, nil, err
	}
	tr, err := st.LoadTrace(runID)
	if err != nil {
		return nil, nil, err
	}
	if tr.Len() == 0 {
		return nil, nil, fmt.Errorf("run %s has no data", runID)
	}
	if meta.Config == nil {
		meta.Config = config.DefaultConfig()
	}
	return meta, tr, nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tSIM\tINTEG\tCTRL\tSTEPS\tTHETA1\tTHETA2")

	for _, run := range runs {
		integ, ctrl := "-", "-"
		if run.Config != nil {
			integ, ctrl = run.Config.Integrator, run.Config.Controller
		}
		fmt.Fprintf(w, "%s\t%s\t%.2fs\t%s\t%s\t%d\t%.4f\t%.4f\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.SimTime,
			integ,
			ctrl,
			run.Steps,
			run.Final.Theta1,
			run.Final.Theta2,
		)
	}

	return w.Flush()
}

var plotColumns = []struct{ name, caption string }{
	{"theta1", "theta1 (rad)"},
	{"theta2", "theta2 (rad)"},
	{"torque", "requested torque (N·m)"},
	{"applied", "applied torque (N·m)"},
	{"cost", "rollout cost"},
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("controller: %s\n", meta.Config.Controller)
	fmt.Printf("samples: %d\n\n", tr.Len())

	for _, c := range plotColumns {
		data, err := tr.Column(c.name)
		if err != nil {
			return err
		}
		graph := asciigraph.Plot(data,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(c.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	if pngOut == "" {
		return nil
	}
	return savePlots(tr, pngOut)
}

// savePlots writes angles.png, torque.png and cost.png into dir.
func savePlots(tr *storage.Trace, dir string) error {
	col := func(name string) []float64 {
		data, _ := tr.Column(name)
		return data
	}

	plots := []struct {
		file, title, ylabel string
		series              []export.Series
	}{
		{"angles.png", "Link angles", "rad", []export.Series{
			{Name: "theta1", Ys: col("theta1")},
			{Name: "theta2", Ys: col("theta2")},
		}},
		{"torque.png", "Lower joint torque", "N·m", []export.Series{
			{Name: "requested", Ys: col("torque")},
			{Name: "applied", Ys: col("applied")},
		}},
		{"cost.png", "Rollout cost", "cost", []export.Series{
			{Name: "cost", Ys: col("cost")},
		}},
	}

	for _, pl := range plots {
		p, err := export.TimePlot(pl.title, "time (s)", pl.ylabel, tr.Times, pl.series...)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, pl.file)
		if err := export.SavePNG(p, 8, 4, path); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", path)
	}
	return nil
}

func isAngleColumn(name string) bool {
	return strings.HasPrefix(name, "theta") && !strings.HasSuffix(name, "_dot")
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	xs, err := tr.Column(xColumn)
	if err != nil {
		return err
	}
	ys, err := tr.Column(yColumn)
	if err != nil {
		return err
	}
	if wrap && isAngleColumn(xColumn) {
		xs = analysis.WrapAngles(xs)
	}
	if wrap && isAngleColumn(yColumn) {
		ys = analysis.WrapAngles(ys)
	}

	portrait := analysis.NewPortrait(xColumn, yColumn, xs, ys)
	kind := "phase space"
	if poincare {
		theta1, _ := tr.Column("theta1")
		cross := make([]float64, len(theta1))
		for i, a := range theta1 {
			cross[i] = analysis.WrapAngle(a - math.Pi)
		}
		portrait = analysis.PoincareSection(xColumn, yColumn, cross, xs, ys, 0)
		kind = "poincaré section"
	}

	fmt.Printf("%s: %s\n", kind, meta.ID)
	fmt.Printf("x: %s, y: %s, points: %d\n\n", portrait.XLabel, portrait.YLabel, len(portrait.Points))
	if len(portrait.Points) == 0 {
		fmt.Println("no points")
		return nil
	}
	fmt.Print(portrait.ASCII(70, 20))
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	data, err := tr.Column(column)
	if err != nil {
		return err
	}
	dt := meta.Config.Loop.Dt

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("controller: %s, samples: %d, dt: %g\n\n", meta.Config.Controller, tr.Len(), dt)

	ps := analysis.PowerSpectrum(data, dt)
	if len(ps.Power) > 4 {
		graph := asciigraph.Plot(ps.Power[:len(ps.Power)/4],
			asciigraph.Height(15),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("power spectrum (%s)", column)),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	freq, power := ps.Dominant()
	fmt.Printf("dominant frequency: %.3f hz (power %.4g)\n", freq, power)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TARGET\tSETTLED\tAT\tMAX DEVIATION")
	for _, target := range []struct {
		name  string
		state dynamo.State
	}{
		{"hanging", dynamo.Hanging()},
		{"upright", dynamo.State{}},
	} {
		s := analysis.Settle(tr.Times, tr.States, target.state, settleTol, settleTol)
		at := "-"
		if s.Settled {
			at = fmt.Sprintf("%.2fs", s.Time)
		}
		fmt.Fprintf(w, "%s\t%v\t%s\t%.4f rad\n", target.name, s.Settled, at, s.MaxDeviation)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(meta.Metrics) > 0 {
		fmt.Println("\nmetrics:")
		for _, name := range sortedMetricNames(meta.Metrics) {
			fmt.Printf("  %s: %.6f\n", name, meta.Metrics[name])
		}
	}

	if lyapunov {
		integ, err := experiment.NewRegistry().GetIntegrator(meta.Config.Integrator)
		if err != nil {
			return err
		}
		horizon := math.Min(10, meta.SimTime)
		lambda := analysis.LyapunovExponent(meta.Config.Physics, integ, tr.States[0], dt, horizon, 1e-8)
		fmt.Printf("\nlargest lyapunov exponent (unforced, %.1fs): %.4f 1/s\n", horizon, lambda)
	}
	return nil
}

func sortedMetricNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.ExportJSON(os.Stdout, meta, tr)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}
	return storage.WriteCSV(os.Stdout, tr)
}

func renderRun(cmd *cobra.Command, args []string) error {
	meta, tr, err := loadRun(args[0])
	if err != nil {
		return err
	}

	step := svgStep
	if step < 0 || step >= tr.Len() {
		step = tr.Len() - 1
	}

	dp := physics.NewDoublePendulum(meta.Config.Physics)
	x := tr.States[step]
	trail := make([]dynamo.Point, 0, svgTrail)
	for i := max(0, step-svgTrail); i < step; i++ {
		trail = append(trail, dp.LowerJoint(tr.States[i]))
	}

	reach := meta.Config.Physics.L1 + meta.Config.Physics.L2
	style := export.StyleFromTheme(viz.GetTheme(theme))

	var svg string
	if braille {
		c := viz.NewCanvas(60, 24)
		viz.DrawPendulum(c, viz.FitPendulum(c, reach), dp.UpperJoint(x), dp.LowerJoint(x), trail)
		svg = export.CanvasToSVG(c, 4, style)
	} else {
		svg = export.PendulumSVG(dp.UpperJoint(x), dp.LowerJoint(x), trail, reach, 400, style)
	}

	if svgOut == "" {
		fmt.Println(svg)
		return nil
	}
	if err := os.WriteFile(svgOut, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote frame %d (t=%.2fs) to %s\n", step, tr.Times[step], svgOut)
	return nil
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tCONTROLLER\tDURATION\tDESCRIPTION")
	for _, name := range config.ListPresets() {
		cfg := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%s\t%.0fs\t%s\n", name, cfg.Controller, cfg.Loop.Duration, config.Describe(name))
	}
	return w.Flush()
}
