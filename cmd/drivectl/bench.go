package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/drivectl/internal/analysis"
	"github.com/san-kum/drivectl/internal/automation"
	"github.com/san-kum/drivectl/internal/config"
	"github.com/san-kum/drivectl/internal/experiment"
	"github.com/san-kum/drivectl/internal/optim"
	"github.com/san-kum/drivectl/internal/sim"
	"github.com/san-kum/drivectl/internal/storage"
	"github.com/san-kum/drivectl/internal/tui"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.Build(cfg, log)
	if err != nil {
		return err
	}

	if ensemble > 1 {
		return runEnsemble(cmd.Context(), exp)
	}

	fmt.Printf("running %s bench for %.1fs...\n", runLabel(), cfg.Sim.Duration)
	start := time.Now()

	result, err := exp.Run(cmd.Context())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	runID, err := st.Save(metadata(runLabel(), cfg, result), result)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.Steps)
	if cfg.Sim.Calibrate {
		fmt.Printf("gyro bias: %.4f °/s\n", result.Bias)
	}
	printMetrics(result.Metrics)
	return nil
}

func runEnsemble(ctx context.Context, exp *experiment.Experiment) error {
	fmt.Printf("running %d seeds from %d...\n", ensemble, exp.Config().Sim.Seed)
	results, err := exp.RunEnsemble(ctx, ensemble)
	if err != nil {
		return err
	}
	printMetrics(sim.MeanMetrics(results))
	return nil
}

// runLabel names a run by its config file when one was given.
func runLabel() string {
	if configFile != "" {
		return filepath.Base(configFile)
	}
	return preset
}

func metadata(label string, cfg *config.Config, result *sim.Result) storage.RunMetadata {
	return storage.RunMetadata{
		Preset:        label,
		Seed:          cfg.Sim.Seed,
		Dt:            cfg.Sim.Dt,
		Duration:      cfg.Sim.Duration,
		Integrator:    cfg.Sim.Integrator,
		TargetSpeed:   cfg.Sim.TargetSpeed,
		Profile:       cfg.Sim.Profile,
		SpeedGains:    cfg.Controller.Speed,
		HeadingGains:  cfg.Controller.Heading,
		HeadingPolicy: cfg.Controller.HeadingPolicy,
		Bias:          result.Bias,
	}
}

func printMetrics(m map[string]float64) {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Println("\nmetrics:")
	for _, name := range names {
		fmt.Printf("  %-16s %.6f\n", name, m[name])
	}
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
	fmt.Fprintln(w, "ID\tPRESET\tTIME\tDURATION\tDT\tTARGET\tSPEED_RMS\tHEADING_RMS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2fs\t%.4fs\t%.0f\t%.2f\t%.3f\n",
			run.ID,
			run.Preset,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.TargetSpeed,
			run.Metrics["speed_rms"],
			run.Metrics["heading_rms"],
		)
	}

	return w.Flush()
}

// resolveRun picks the given run id or the most recent run.
func resolveRun(st *storage.Store, args []string) (string, error) {
	if len(args) > 0 {
		return args[0], nil
	}
	return st.Latest()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("preset: %s\n", meta.Preset)
	fmt.Printf("samples: %d\n\n", len(samples))

	n := len(samples)
	target := make([]float64, n)
	left := make([]float64, n)
	right := make([]float64, n)
	heading := make([]float64, n)
	cmdL := make([]float64, n)
	cmdR := make([]float64, n)
	for i, s := range samples {
		target[i] = s.Target
		left[i] = s.Wheels.Left
		right[i] = s.Wheels.Right
		heading[i] = s.Heading
		cmdL[i] = float64(s.Command.Left)
		cmdR[i] = float64(s.Command.Right)
	}

	plots := []struct {
		series  [][]float64
		caption string
	}{
		{[][]float64{target, left, right}, "target / left / right wheel speed (counts/s)"},
		{[][]float64{heading}, "heading (deg)"},
		{[][]float64{cmdL, cmdR}, "left / right command"},
	}
	for _, p := range plots {
		graph := asciigraph.PlotMany(p.series,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.Aqua, asciigraph.Yellow),
			asciigraph.Caption(p.caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}

	if svgPath != "" {
		samples, err := st.LoadTelemetry(runID)
		if err != nil {
			return err
		}
		svg := storage.PathSVG(samples, 600, 600, "#2aa198")
		if svg == "" {
			return fmt.Errorf("run %s has no track to draw", runID)
		}
		if err := os.WriteFile(svgPath, []byte(svg), 0644); err != nil {
			return err
		}
		log.Info().Str("path", svgPath).Msg("track written")
	}

	return st.Export(os.Stdout, runID, fullExport)
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runID, err := resolveRun(st, args)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	samples, err := st.LoadTelemetry(runID)
	if err != nil {
		return err
	}
	if len(samples) < 4 {
		return fmt.Errorf("no data")
	}

	fmt.Printf("analysis: %s\n", meta.ID)
	fmt.Printf("preset: %s\n\n", meta.Preset)

	times := make([]float64, len(samples))
	heading := make([]float64, len(samples))
	mean := make([]float64, len(samples))
	for i, s := range samples {
		times[i] = s.Time
		heading[i] = s.Heading
		mean[i] = s.Wheels.Mean()
	}

	freqs, power := analysis.Spectrum(heading, meta.Dt)
	if len(power) > 1 {
		// the interesting band is well below Nyquist
		plot := power[1:]
		if len(plot) > 4 {
			plot = plot[:len(plot)/4]
		}
		graph := asciigraph.Plot(plot,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption(fmt.Sprintf("heading power spectrum, 0-%.1f hz", freqs[len(plot)])),
		)
		fmt.Println(graph)
		fmt.Println()
	}

	freq, pow := analysis.DominantFrequency(heading, meta.Dt)
	fmt.Printf("heading oscillation: %.3f hz (power %.3g)\n", freq, pow)
	if freq > 0 {
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}

	start := firstDriving(samples)
	if meta.TargetSpeed != 0 && !math.IsNaN(start) {
		info := analysis.StepResponse(times, mean, start, meta.TargetSpeed, 0.05)
		fmt.Printf("\nspeed step to %.0f counts/s:\n", meta.TargetSpeed)
		fmt.Printf("  rise time:      %.3f s\n", info.RiseTime)
		fmt.Printf("  overshoot:      %.1f %%\n", info.Overshoot)
		fmt.Printf("  steady error:   %.2f counts/s\n", info.SteadyStateError)
		if info.Settled {
			fmt.Printf("  settling time:  %.3f s\n", info.SettlingTime)
		} else {
			fmt.Println("  settling time:  not settled")
		}
	}
	return nil
}

func firstDriving(samples []storage.Sample) float64 {
	for _, s := range samples {
		if s.Target != 0 {
			return s.Time
		}
	}
	return math.NaN()
}

func tuneGains(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	var params []string
	var ranges [][]float64
	metric := tuneMetric
	switch tuneLoop {
	case "speed":
		params = []string{"kp", "ki"}
		ranges = [][]float64{linspace(0.5, 4, tuneSteps), linspace(0, 2, tuneSteps)}
		if metric == "" {
			metric = "speed_rms"
		}
	case "heading":
		params = []string{"kp", "kd"}
		ranges = [][]float64{linspace(1, 12, tuneSteps), linspace(0, 1.5, tuneSteps)}
		if metric == "" {
			metric = "heading_rms"
		}
	default:
		return fmt.Errorf("unknown loop %q (speed, heading)", tuneLoop)
	}

	build := func(p map[string]float64) (*experiment.Experiment, error) {
		c := *cfg
		if tuneLoop == "speed" {
			c.Controller.Speed.Kp = p["kp"]
			c.Controller.Speed.Ki = p["ki"]
		} else {
			c.Controller.Heading.Kp = p["kp"]
			c.Controller.Heading.Kd = p["kd"]
		}
		return experiment.Build(&c, log)
	}

	g := optim.NewGridSearch(params, ranges)
	g.SetWorkers(tuneWorkers)
	fmt.Printf("tuning %s loop over %d candidates, minimising %s...\n", tuneLoop, len(g.Candidates()), metric)

	start := time.Now()
	best, val, err := g.Search(cmd.Context(), build, metric)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", time.Since(start))
	for _, p := range params {
		fmt.Printf("  %s = %.3f\n", p, best[p])
	}
	fmt.Printf("  %s = %.6f\n", metric, val)
	return nil
}

func linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	exp, err := experiment.Build(cfg, zerolog.Nop())
	if err != nil {
		return err
	}
	// the console owns the terminal, so the bench runs without logging
	return tui.Run(exp)
}

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(dataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}

	results, runErr := automation.RunScenario(cmd.Context(), sc, log)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "\nSTEP\tRUN\tSPEED_RMS\tHEADING_RMS\tHEADING_MAX")
	for _, r := range results {
		runID, err := st.Save(metadata(r.Name, r.Config, r.Result), r.Result)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%.2f\t%.3f\t%.3f\n",
			r.Name, runID,
			r.Result.Metrics["speed_rms"],
			r.Result.Metrics["heading_rms"],
			r.Result.Metrics["heading_max"],
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return runErr
}

func runMonteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}

	mc := &automation.MonteCarloConfig{
		Base:         cfg,
		NumTrials:    mcTrials,
		Seed:         cfg.Sim.Seed,
		GainSpread:   mcGainSpread,
		MaxDrift:     mcMaxDrift,
		MaxBias:      mcMaxBias,
		HeadingLimit: mcHeadingLimit,
	}
	fmt.Printf("running %d perturbed trials of %s...\n", mc.NumTrials, runLabel())

	start := time.Now()
	results, err := automation.RunMonteCarlo(cmd.Context(), mc, log)
	if err != nil {
		return err
	}

	var worst automation.MonteCarloResult
	for _, r := range results {
		if r.Metrics["heading_max"] >= worst.Metrics["heading_max"] {
			worst = r
		}
	}

	held, lost := automation.MonteCarloStats(results)
	fmt.Printf("completed in %v\n", time.Since(start))
	fmt.Printf("held heading within %.1f°: %d/%d\n", mc.HeadingLimit, held, held+lost)
	if len(results) > 0 {
		fmt.Printf("worst trial %d: heading_max %.2f° (gains %.3f/%.3f, drift %.2f deg/m, bias %.2f °/s)\n",
			worst.TrialID, worst.Metrics["heading_max"],
			worst.LeftGain, worst.RightGain, worst.YawDrift, worst.GyroBias)
	}
	return nil
}
