package tui

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/san-kum/pendubalance/internal/sim"
)

// DefaultStatusEvery is the frame count between status lines.
const DefaultStatusEvery = 100

// Console prints a status line every few frames: the time after the tick
// next to the angles read before it. It never stops the loop.
type Console struct {
	w     io.Writer
	every int
}

func NewConsole(w io.Writer, every int) *Console {
	if every <= 0 {
		every = DefaultStatusEvery
	}
	return &Console{w: w, every: every}
}

func (c *Console) Running() bool { return true }

func (c *Console) Present(f sim.Frame) {
	if f.Step%c.every != 0 {
		return
	}
	fmt.Fprintf(c.w, "Time: %.2fs | theta1: %.4f | theta2: %.4f | Torque: %.4f N·m\n",
		f.Time, f.Prev.Theta1, f.Prev.Theta2, f.Decision.Torque)
}

// Summary prints the end-of-run report.
func Summary(w io.Writer, res *sim.Result) {
	rule := strings.Repeat("=", 80)
	fmt.Fprintf(w, "\n%s\nSimulation Complete\n%s\n", rule, rule)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Simulation time:\t%.2f s\n", res.SimTime())
	fmt.Fprintf(tw, "Wall-clock time:\t%d ms\n", res.Wall.Milliseconds())
	fmt.Fprintf(tw, "Total frames:\t%d\n", res.Steps)
	fmt.Fprintf(tw, "Control ticks:\t%d\n", res.ControlTicks)
	if res.Overruns > 0 {
		fmt.Fprintf(tw, "Budget overruns:\t%d\n", res.Overruns)
	}
	if ms := res.Wall.Milliseconds(); ms > 0 {
		fmt.Fprintf(tw, "Average FPS:\t%.1f\n", float64(res.Steps)*1000/float64(ms))
	}
	tw.Flush()

	final := res.Final()
	fmt.Fprintln(w, "\nFinal State:")
	tw = tabwriter.NewWriter(w, 0, 0, 1, ' ', 0)
	fmt.Fprintf(tw, "  Upper Arm Angle (theta1):\t%.4f rad\t(%.1f deg)\n", final.Theta1, final.Theta1*180/math.Pi)
	fmt.Fprintf(tw, "  Lower Arm Angle (theta2):\t%.4f rad\t(%.1f deg)\n", final.Theta2, final.Theta2*180/math.Pi)
	tw.Flush()

	if len(res.Metrics) == 0 {
		return
	}
	fmt.Fprintln(w, "\nMetrics:")
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)

	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, name := range names {
		fmt.Fprintf(tw, "  %s\t%.6f\n", name, res.Metrics[name])
	}
	tw.Flush()
}
