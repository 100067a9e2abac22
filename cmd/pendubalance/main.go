package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	dataDir string
	verbose bool
	logFile string

	configFile string
	preset     string
	integrator string
	controller string
	overrides  []string

	dt              float64
	controlInterval float64
	duration        float64
	theta1          float64
	theta2          float64
	omega1          float64
	omega2          float64
	horizon         int
	qAngle          float64
	workers         int
	actuatorLimit   float64
	controlBudget   string

	statusEvery int
	noSave      bool
	runName     string

	frameRate int
	speed     float64
	ansi      bool
	theme     string

	xColumn   string
	yColumn   string
	wrap      bool
	poincare  bool
	column    string
	pngOut    string
	lyapunov  bool
	settleTol float64
	svgOut    string
	svgStep   int
	svgTrail  int
	braille   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "pendubalance",
		Short:         "double pendulum balanced by a sampling model predictive controller",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".pendubalance", "data directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "development logging at debug level")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a headless simulation and save it",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().IntVar(&statusEvery, "status-every", 100, "print a status line every n frames (0 disables)")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")
	runCmd.Flags().StringVar(&runName, "name", "run", "name prefix for the stored run")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "run with a live terminal view",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().IntVar(&frameRate, "fps", 30, "frame rate")
	liveCmd.Flags().Float64Var(&speed, "speed", 1, "simulated seconds per wall second (0 runs flat out)")
	liveCmd.Flags().BoolVar(&ansi, "ansi", false, "plain ANSI renderer instead of the interactive view")
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "colour theme")
	liveCmd.Flags().StringVar(&logFile, "log-file", "", "write logs to this file while the view is open")

	benchCmd := &cobra.Command{
		Use:   "bench",
		Short: "time the controller and the loop",
		Args:  cobra.NoArgs,
		RunE:  benchRun,
	}
	addConfigFlags(benchCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot angles, torque and cost of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().StringVar(&pngOut, "png", "", "also write angles.png, torque.png and cost.png into this directory")

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().StringVar(&xColumn, "x", "theta1", "column for the x-axis")
	phaseCmd.Flags().StringVar(&yColumn, "y", "theta1_dot", "column for the y-axis")
	phaseCmd.Flags().BoolVar(&wrap, "wrap", true, "wrap angle columns into [-pi, pi]")
	phaseCmd.Flags().BoolVar(&poincare, "poincare", false, "Poincaré section where theta1 crosses its rest angle upward")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "spectrum, dominant frequency and settling of a run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().StringVar(&column, "column", "theta2", "column to analyse")
	analyzeCmd.Flags().Float64Var(&settleTol, "tolerance", 0.05, "settling band for angles (rad) and rates (rad/s)")
	analyzeCmd.Flags().BoolVar(&lyapunov, "lyapunov", false, "estimate the largest Lyapunov exponent from the run's start")

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	renderCmd := &cobra.Command{
		Use:   "render [run_id]",
		Short: "render one frame of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  renderRun,
	}
	renderCmd.Flags().IntVar(&svgStep, "step", -1, "frame to render (-1 for the last)")
	renderCmd.Flags().IntVar(&svgTrail, "trail", 200, "frames of lower-joint trail")
	renderCmd.Flags().StringVarP(&svgOut, "output", "o", "", "output file (stdout if empty)")
	renderCmd.Flags().BoolVar(&braille, "braille", false, "render the braille canvas instead of vector links")
	renderCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "colour theme")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run every entry of a YAML scenario and store the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep [param] [min] [max] [steps]",
		Short: "sweep one parameter over a range",
		Args:  cobra.ExactArgs(4),
		RunE:  runSweep,
	}
	addConfigFlags(sweepCmd)

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo [trials] [perturbation]",
		Short: "run randomly perturbed starts",
		Args:  cobra.ExactArgs(2),
		RunE:  runMonteCarlo,
	}
	addConfigFlags(monteCarloCmd)
	monteCarloCmd.Flags().Int64("seed", 0, "random seed (0 draws one from the clock)")

	rootCmd.AddCommand(runCmd, liveCmd, benchCmd, listCmd, plotCmd, phaseCmd, analyzeCmd,
		exportJSONCmd, exportCSVCmd, renderCmd, presetsCmd, scenarioCmd, sweepCmd, monteCarloCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "start from a preset (see presets)")
	f.StringVar(&integrator, "integrator", "rk4", "integrator")
	f.StringVar(&controller, "controller", "mpc", "controller")
	f.StringArrayVar(&overrides, "set", nil, "override any option, e.g. --set m2=0.8 (repeatable)")

	f.Float64Var(&dt, "dt", 0.01, "physics timestep")
	f.Float64Var(&controlInterval, "control-interval", 0.01, "seconds between controller decisions")
	f.Float64Var(&duration, "time", 60, "simulated duration")
	f.Float64Var(&theta1, "theta1", 0, "initial upper-link angle")
	f.Float64Var(&theta2, "theta2", 0, "initial lower-link angle")
	f.Float64Var(&omega1, "omega1", 0, "initial upper-link angular velocity")
	f.Float64Var(&omega2, "omega2", 0, "initial lower-link angular velocity")
	f.IntVar(&horizon, "horizon", 200, "MPC rollout steps")
	f.Float64Var(&qAngle, "q-angle", 1000, "MPC angle weight")
	f.IntVar(&workers, "workers", 0, "MPC rollout goroutines (0 for GOMAXPROCS)")
	f.Float64Var(&actuatorLimit, "actuator-limit", 10, "motor torque saturation")
	f.StringVar(&controlBudget, "budget", "", "wall-clock limit per control decision, e.g. 20ms")
}

// newLogger builds a development logger with --verbose and a production
// logger at warn level otherwise. Logs go to stderr.
func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	return cfg.Build()
}
