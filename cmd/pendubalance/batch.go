package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/pendubalance/internal/automation"
	"github.com/san-kum/pendubalance/internal/storage"
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %d runs\n", sc.Name, len(sc.Runs))
	outcomes, runErr := (&automation.Runner{Store: st, Logger: logger}).Run(ctx, sc)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tID\tSTEPS\tTHETA1\tTHETA2\tUPRIGHT\tSTATUS")
	for _, o := range outcomes {
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		}
		steps, th1, th2, up := 0, 0.0, 0.0, 0.0
		if o.Result != nil {
			final := o.Result.Final()
			steps, th1, th2, up = o.Result.Steps, final.Theta1, final.Theta2, o.Result.Metrics["upright"]
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%.4f\t%.4f\t%.1f%%\t%s\n", o.Name, o.RunID, steps, th1, th2, up*100, status)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runSweep(cmd *cobra.Command, args []string) error {
	lo, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("min: %w", err)
	}
	hi, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return fmt.Errorf("max: %w", err)
	}
	steps, err := strconv.Atoi(args[3])
	if err != nil {
		return fmt.Errorf("steps: %w", err)
	}

	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	sw := automation.Sweep{Param: args[0], Min: lo, Max: hi, Steps: steps}
	results, err := automation.RunSweep(ctx, base, sw, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tTHETA1\tTHETA2\tE_MIN\tE_MAX\tUPRIGHT\tSTATUS\n", sw.Param)
	for _, r := range results {
		status := "ok"
		if r.Err != nil {
			status = r.Err.Error()
		}
		fmt.Fprintf(w, "%.4g\t%.4f\t%.4f\t%.4f\t%.4f\t%.1f%%\t%s\n",
			r.Value, r.Final.Theta1, r.Final.Theta2, r.MinEnergy, r.MaxEnergy, r.Upright*100, status)
	}
	return w.Flush()
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	trials, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("trials: %w", err)
	}
	perturbation, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("perturbation: %w", err)
	}
	seed, err := cmd.Flags().GetInt64("seed")
	if err != nil {
		return err
	}

	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, cancel := signalContext()
	defer cancel()

	mc := automation.MonteCarlo{Trials: trials, Perturbation: perturbation, Seed: seed}
	results, err := automation.RunMonteCarlo(ctx, base, mc, logger)
	if err != nil {
		return err
	}

	uprightSum := 0.0
	for _, r := range results {
		uprightSum += r.Upright
	}
	stable, unstable := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d, stable: %d, diverged: %d\n", len(results), stable, unstable)
	if len(results) > 0 {
		fmt.Printf("mean upright fraction: %.1f%%\n", uprightSum/float64(len(results))*100)
	}
	return nil
}
