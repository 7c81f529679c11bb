package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/san-kum/drivectl/internal/config"
)

var (
	dataDir    string
	configFile string
	logLevel   string
	log        zerolog.Logger

	dt          float64
	duration    float64
	speed       float64
	seed        int64
	integrator  string
	preset      string
	kp, ki, kd  float64
	hkp, hki    float64
	hkd         float64
	noCalibrate bool
	ensemble    int

	driveSpeed float64
	runFor     float64

	fullExport bool
	svgPath    string

	tuneLoop    string
	tuneMetric  string
	tuneSteps   int
	tuneWorkers int

	mcTrials       int
	mcGainSpread   float64
	mcMaxDrift     float64
	mcMaxBias      float64
	mcHeadingLimit float64
)

// main registers the drivectl commands and exits with status 1 when a
// command fails.
func main() {
	rootCmd := &cobra.Command{
		Use:           "drivectl",
		Short:         "differential-drive motion controller and bench",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return setupLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".drivectl", "data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run a closed-loop bench simulation",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	simFlags(runCmd)
	runCmd.Flags().IntVar(&ensemble, "ensemble", 0, "repeat over this many seeds and report mean metrics")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot wheel speeds, heading and commands of a run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  plotRun,
	}

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().BoolVar(&fullExport, "full", false, "include telemetry")
	exportCmd.Flags().StringVar(&svgPath, "svg", "", "also write the ground track as SVG to this path")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "heading oscillation and speed step analysis",
		Args:  cobra.MaximumNArgs(1),
		RunE:  analyzeRun,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search over speed or heading gains",
		Args:  cobra.NoArgs,
		RunE:  tuneGains,
	}
	simFlags(tuneCmd)
	tuneCmd.Flags().StringVar(&tuneLoop, "loop", "speed", "loop to tune (speed, heading)")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", "", "metric to minimise (default speed_rms or heading_rms)")
	tuneCmd.Flags().IntVar(&tuneSteps, "steps", 5, "grid points per gain")
	tuneCmd.Flags().IntVar(&tuneWorkers, "workers", 0, "concurrent runs (default NumCPU)")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list bench presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Println("presets:")
			for _, p := range config.ListPresets() {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "interactive console on the simulated bench",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	simFlags(liveCmd)

	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "run the controller on the robot until interrupted",
		Args:  cobra.NoArgs,
		RunE:  driveRobot,
	}
	driveCmd.Flags().Float64Var(&driveSpeed, "speed", 300, "target speed (counts/s)")
	driveCmd.Flags().Float64Var(&runFor, "time", 0, "stop after this many seconds (0 runs until interrupted)")
	driveCmd.Flags().StringVar(&preset, "preset", "default", "base configuration")
	driveCmd.Flags().BoolVar(&noCalibrate, "no-calibrate", false, "skip gyro calibration")

	imuCmd := &cobra.Command{
		Use:   "imu",
		Short: "stream frames from the UART gyro",
		Args:  cobra.NoArgs,
		RunE:  streamIMU,
	}
	imuCmd.Flags().Float64Var(&runFor, "time", 0, "stop after this many seconds (0 runs until interrupted)")
	imuCmd.Flags().BoolVar(&noCalibrate, "no-calibrate", false, "skip gyro calibration")

	scenarioCmd := &cobra.Command{
		Use:   "scenario <file>",
		Short: "run the bench steps of a scenario file and save each run",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "perturb wheel gains, drift and gyro bias and count held headings",
		Args:  cobra.NoArgs,
		RunE:  runMonteCarlo,
	}
	simFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&mcTrials, "trials", 50, "number of trials")
	monteCarloCmd.Flags().Float64Var(&mcGainSpread, "gain-spread", 0.1, "wheel gain spread (fraction)")
	monteCarloCmd.Flags().Float64Var(&mcMaxDrift, "max-drift", 10, "yaw drift range (deg/m)")
	monteCarloCmd.Flags().Float64Var(&mcMaxBias, "max-bias", 1, "gyro bias range (deg/s)")
	monteCarloCmd.Flags().Float64Var(&mcHeadingLimit, "limit", 5, "heading_max that still counts as held (deg)")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, exportCmd, analyzeCmd, tuneCmd, presetsCmd, liveCmd,
		scenarioCmd, monteCarloCmd, driveCmd, imuCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func simFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "control period (s)")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration (s)")
	cmd.Flags().Float64Var(&speed, "speed", config.DefaultTargetSpeed, "target speed (counts/s)")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().StringVar(&preset, "preset", "default", "bench preset")
	cmd.Flags().Float64Var(&kp, "kp", 0, "speed kp")
	cmd.Flags().Float64Var(&ki, "ki", 0, "speed ki")
	cmd.Flags().Float64Var(&kd, "kd", 0, "speed kd")
	cmd.Flags().Float64Var(&hkp, "hkp", 0, "heading kp")
	cmd.Flags().Float64Var(&hki, "hki", 0, "heading ki")
	cmd.Flags().Float64Var(&hkd, "hkd", 0, "heading kd")
	cmd.Flags().BoolVar(&noCalibrate, "no-calibrate", false, "skip gyro calibration")
}

func setupLogger() error {
	level, err := zerolog.ParseLevel(logLevel)
	if err != nil {
		return fmt.Errorf("bad --log-level: %w", err)
	}
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().Logger()
	return nil
}

// loadConfig builds the effective config: the config file if given,
// otherwise the preset, then environment overrides. With bench set, the
// simulation flags the user actually passed are applied last.
func loadConfig(cmd *cobra.Command, bench bool) (*config.Config, error) {
	var cfg *config.Config
	if configFile != "" {
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
	} else {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if bench {
		applyBenchFlags(cmd, cfg)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyBenchFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("dt") {
		cfg.Sim.Dt = dt
	}
	if flags.Changed("time") {
		cfg.Sim.Duration = duration
	}
	if flags.Changed("speed") {
		cfg.Sim.TargetSpeed = speed
		cfg.Sim.Profile = nil
	}
	if flags.Changed("seed") {
		cfg.Sim.Seed = seed
	}
	if flags.Changed("integrator") {
		cfg.Sim.Integrator = integrator
	}
	if flags.Changed("no-calibrate") {
		cfg.Sim.Calibrate = !noCalibrate
	}
	if flags.Changed("kp") {
		cfg.Controller.Speed.Kp = kp
	}
	if flags.Changed("ki") {
		cfg.Controller.Speed.Ki = ki
	}
	if flags.Changed("kd") {
		cfg.Controller.Speed.Kd = kd
	}
	if flags.Changed("hkp") {
		cfg.Controller.Heading.Kp = hkp
	}
	if flags.Changed("hki") {
		cfg.Controller.Heading.Ki = hki
	}
	if flags.Changed("hkd") {
		cfg.Controller.Heading.Kd = hkd
	}
}
