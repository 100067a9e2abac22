package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/pendubalance/internal/config"
	"github.com/san-kum/pendubalance/internal/control"
	"github.com/san-kum/pendubalance/internal/experiment"
	"github.com/san-kum/pendubalance/internal/sim"
	"github.com/san-kum/pendubalance/internal/storage"
	"github.com/san-kum/pendubalance/internal/tui"
	"github.com/san-kum/pendubalance/internal/viz"
)

// resolveConfig layers defaults, then the preset, then the config file, then
// explicitly set flags and finally --set overrides.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if configFile != "" {
		var err error
		if cfg, err = config.LoadOver(configFile, cfg); err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}

	numeric := map[string]float64{}
	setIfChanged := func(flag, key string, v float64) {
		if flags.Changed(flag) {
			numeric[key] = v
		}
	}
	setIfChanged("dt", "dt", dt)
	setIfChanged("control-interval", "control_interval", controlInterval)
	setIfChanged("time", "duration", duration)
	setIfChanged("theta1", "theta1", theta1)
	setIfChanged("theta2", "theta2", theta2)
	setIfChanged("omega1", "theta1_dot", omega1)
	setIfChanged("omega2", "theta2_dot", omega2)
	setIfChanged("horizon", "horizon", float64(horizon))
	setIfChanged("q-angle", "q_angle", qAngle)
	setIfChanged("workers", "workers", float64(workers))
	setIfChanged("actuator-limit", "actuator_limit", actuatorLimit)
	if err := cfg.Apply(numeric); err != nil {
		return nil, err
	}

	if flags.Changed("budget") {
		budget, err := time.ParseDuration(controlBudget)
		if err != nil {
			return nil, fmt.Errorf("budget: %w", err)
		}
		cfg.Loop.ControlBudget = budget
	}

	extra, err := parseOverrides(overrides)
	if err != nil {
		return nil, err
	}
	if err := cfg.Apply(extra); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func parseOverrides(pairs []string) (map[string]float64, error) {
	out := make(map[string]float64, len(pairs))
	for _, kv := range pairs {
		key, val, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want key=value", kv)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(val), 64)
		if err != nil {
			return nil, fmt.Errorf("--set %q: %w", kv, err)
		}
		out[strings.TrimSpace(key)] = v
	}
	return out, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	exp, err := experiment.Build(cfg, logger)
	if err != nil {
		return err
	}
	if statusEvery > 0 {
		exp.Loop().SetPresenter(tui.NewConsole(os.Stdout, statusEvery))
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("Starting simulation: %s/%s, %.1fs at dt=%g\n", cfg.Integrator, cfg.Controller, cfg.Loop.Duration, cfg.Loop.Dt)
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}
	tui.Summary(os.Stdout, result)

	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(runName, cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("\nrun id: %s\n", runID)
	}

	if errors.Is(runErr, context.Canceled) {
		fmt.Println("interrupted")
		return nil
	}
	return runErr
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if logFile != "" {
		lc := zap.NewDevelopmentConfig()
		lc.OutputPaths = []string{logFile}
		lc.ErrorOutputPaths = []string{logFile}
		if logger, err = lc.Build(); err != nil {
			return err
		}
		defer logger.Sync()
	}

	exp, err := experiment.Build(cfg, logger)
	if err != nil {
		return err
	}
	reach := cfg.Physics.L1 + cfg.Physics.L2

	ctx, cancel := signalContext()
	defer cancel()

	if ansi {
		r := tui.NewLiveRenderer(os.Stdout, frameRate, reach)
		exp.Loop().SetPresenter(r)
		r.Start()
		result, err := exp.Run(ctx)
		r.Stop()
		if result != nil {
			tui.Summary(os.Stdout, result)
		}
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}

	manual, _ := exp.Controller().(*control.Manual)
	title := fmt.Sprintf("double pendulum · %s · %s", cfg.Controller, cfg.Integrator)

	var prog *tea.Program
	presenter := viz.NewPresenter(programSender{&prog}, frameRate, speed)
	model := viz.NewModel(presenter, title, reach, exp.Loop().Model().Dynamics(), manual)
	model = model.WithTheme(theme)
	prog = tea.NewProgram(model, tea.WithAltScreen())

	exp.Loop().SetPresenter(presenter)

	var result *sim.Result
	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		result, runErr = exp.Run(ctx)
		prog.Send(viz.DoneMsg{Result: result, Err: runErr})
	}()

	_, teaErr := prog.Run()
	presenter.Stop()
	cancel()
	<-done

	if teaErr != nil {
		return teaErr
	}
	if result != nil {
		tui.Summary(os.Stdout, result)
	}
	if errors.Is(runErr, context.Canceled) {
		return nil
	}
	return runErr
}

// programSender defers to the program once it exists; frames produced
// before that are dropped.
type programSender struct {
	p **tea.Program
}

func (s programSender) Send(msg tea.Msg) {
	if *s.p != nil {
		(*s.p).Send(msg)
	}
}

func benchRun(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	horizons := []int{1, 20, 50, 200}
	durations := []float64{0.5, 2}

	fmt.Printf("benchmarking %s/%s (dt=%g)\n\n", base.Integrator, base.Controller, base.Loop.Dt)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "HORIZON\tDURATION\tSTEPS\tTICKS\tWALL\tSTEPS/SEC\tMS/DECISION")

	for _, h := range horizons {
		for _, dur := range durations {
			cfg := base.Clone()
			cfg.MPC.Horizon = h
			cfg.Loop.Duration = dur

			exp, err := experiment.Build(cfg, nil)
			if err != nil {
				return err
			}

			start := time.Now()
			result, err := exp.Run(context.Background())
			if err != nil {
				return err
			}
			elapsed := time.Since(start)

			perDecision := 0.0
			if result.ControlTicks > 0 {
				perDecision = float64(elapsed.Microseconds()) / 1000 / float64(result.ControlTicks)
			}
			fmt.Fprintf(w, "%d\t%.1fs\t%d\t%d\t%v\t%.0f\t%.3f\n",
				h, dur, result.Steps, result.ControlTicks, elapsed.Round(time.Microsecond),
				float64(result.Steps)/elapsed.Seconds(), perDecision)
		}
	}

	return w.Flush()
}
