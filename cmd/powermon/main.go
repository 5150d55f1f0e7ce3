// Package main is the CLI entry point for powermon.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/eliteGoblin/focusd/power_mon/internal/config"
	"github.com/eliteGoblin/focusd/power_mon/internal/daemon"
	"github.com/eliteGoblin/focusd/power_mon/internal/domain"
	"github.com/eliteGoblin/focusd/power_mon/internal/infra"
	"github.com/eliteGoblin/focusd/power_mon/internal/policy"
	"github.com/eliteGoblin/focusd/power_mon/internal/usecase"
)

var (
	// Version info (set via ldflags)
	Version   = "0.1.0"
	Commit    = "dev"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "powermon",
	Short: "Power monitor - switches power modes based on what you are doing",
	Long: `powermon watches keyboard and mouse activity and the applications that
own visible windows, and switches the machine's power mode accordingly:
turbo for configured app combinations, high performance for heavy apps,
power saver when idle and balanced otherwise.

Changing power modes usually requires Administrator (Windows) or a
polkit-authorized user (Linux power-profiles-daemon).`,
	Version:      Version,
	SilenceUsage: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the power monitor in the foreground",
	Long: `Runs the control loop until interrupted (Ctrl+C or SIGTERM).
The power mode found at startup is restored on exit.`,
	RunE: runRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show monitor status and recent sessions",
	RunE:  runStatus,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Classify running applications once",
	Long: `Lists processes that own a visible window, which of them are heavy or
trigger turbo, and the mode the monitor would choose for an active user.
Does not change the power mode.`,
	RunE: runScan,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long:  `Prints version, commit, and build time. Use --json for machine-readable output.`,
	Run:   runVersion,
}

var (
	configPath    string
	dryRun        bool
	debugLogging  bool
	jsonOutput    bool
	sessionsLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (overrides system and user config)")
	rootCmd.PersistentFlags().BoolVar(&debugLogging, "debug", false, "Enable debug logging")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log mode changes instead of applying them")
	statusCmd.Flags().IntVar(&sessionsLimit, "sessions", 5, "Number of recent sessions to show")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(versionCmd)
}

// runtimePaths are the resolved file locations for one invocation.
type runtimePaths struct {
	LogFile     string
	ActivityLog string
	StatusFile  string
	DataDir     string
}

func resolvePaths(cfg config.Config, mode *infra.ExecModeConfig, fs domain.FileSystemManager) runtimePaths {
	pick := func(override, def string) string {
		if override != "" {
			return fs.ExpandHome(override)
		}
		return def
	}
	return runtimePaths{
		LogFile:     pick(cfg.Paths.LogFile, mode.LogFile),
		ActivityLog: pick(cfg.Paths.ActivityLog, mode.ActivityLog),
		StatusFile:  pick(cfg.Paths.StatusFile, mode.StatusFile),
		DataDir:     pick(cfg.Paths.DataDir, mode.DataDir),
	}
}

func (p runtimePaths) ensureDirs(fs domain.FileSystemManager) error {
	dirs := []string{
		p.DataDir,
		filepath.Dir(p.LogFile),
		filepath.Dir(p.ActivityLog),
		filepath.Dir(p.StatusFile),
	}
	for _, dir := range dirs {
		if err := fs.EnsureDir(dir); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(mode *infra.ExecModeConfig) (config.Config, error) {
	return config.Load(mode.SystemConfig, mode.UserConfig, configPath)
}

func powerPlans(cfg config.Config) infra.PowerPlans {
	return infra.PowerPlans{
		HighPerformance: cfg.PowerPlans.HighPerformance,
		Balanced:        cfg.PowerPlans.Balanced,
		PowerSaver:      cfg.PowerPlans.PowerSaver,
		Turbo:           cfg.PowerPlans.Turbo,
	}
}

func newClassifier(cfg config.Config, processes domain.ProcessLister, logger *zap.Logger) *usecase.Classifier {
	return usecase.NewClassifier(
		usecase.DefaultClassifierConfig(),
		processes,
		infra.NewWindowLister(logger),
		cfg.HeavySet(),
		cfg.TurboRule(),
		logger,
	)
}

func runRun(cmd *cobra.Command, args []string) error {
	execMode := infra.DetectExecMode()
	cfg, err := loadConfig(execMode)
	if err != nil {
		return err
	}

	fs := infra.NewFileSystemManager()
	paths := resolvePaths(cfg, execMode, fs)
	if err := paths.ensureDirs(fs); err != nil {
		return err
	}

	logger := createLogger(paths.LogFile, debugLogging || cfg.General.EnableDebugLogging)
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn("configuration warning", zap.String("warning", w))
	}
	logger.Info("powermon starting",
		zap.String("version", Version),
		zap.String("exec_mode", execMode.Mode.String()),
		zap.Bool("dry_run", dryRun))

	processes := infra.NewProcessLister()
	status := infra.NewStatusFile(paths.StatusFile)
	if snap, _ := status.Read(); snap != nil && snap.PID != os.Getpid() && processes.IsRunning(snap.PID) {
		return fmt.Errorf("powermon is already running (pid %d)", snap.PID)
	}

	kind := cfg.Actuator
	if dryRun {
		kind = infra.ActuatorDryRun
	}
	actuator, err := infra.NewActuator(infra.ActuatorOptions{
		Kind:         kind,
		Plans:        powerPlans(cfg),
		TurboProfile: cfg.Linux.TurboProfile,
	}, logger)
	if err != nil {
		return fmt.Errorf("no power actuator available: %w", err)
	}
	if !actuator.IsPrivileged() {
		logger.Warn("not running elevated; mode changes will fail",
			zap.String("actuator", actuator.Name()))
	}

	sources, err := infra.NewInputSources(logger)
	if err != nil {
		return fmt.Errorf("input monitoring unavailable: %w", err)
	}

	var sessions domain.SessionStore
	store, err := infra.OpenSessionStore(paths.DataDir)
	if err != nil {
		logger.Warn("session history disabled", zap.Error(err))
	} else {
		sessions = store
		defer func() { _ = store.Close() }()
	}

	controller := daemon.NewController(
		daemon.ControllerConfig{
			Interval:      cfg.CheckInterval(),
			IdleThreshold: cfg.IdleThreshold(),
			AppVersion:    Version,
		},
		usecase.NewTracker(cfg.IdleThreshold(), sources, logger),
		newClassifier(cfg, processes, logger),
		policy.NewDecider(logger),
		actuator,
		infra.NewActivityLog(paths.ActivityLog),
		status,
		sessions,
		logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runErr := controller.Run(ctx)
	if err := status.Clear(); err != nil {
		logger.Warn("failed to clear status file", zap.Error(err))
	}
	if errors.Is(runErr, daemon.ErrPrivilegeLost) {
		fmt.Fprintln(os.Stderr, "powermon stopped: run it as Administrator/root to change power modes")
	}
	return runErr
}

func runStatus(cmd *cobra.Command, args []string) error {
	execMode := infra.DetectExecMode()
	cfg, err := loadConfig(execMode)
	if err != nil {
		return err
	}
	paths := resolvePaths(cfg, execMode, infra.NewFileSystemManager())

	fmt.Printf("Execution mode: %s\n", execMode.Mode)

	snap, err := infra.NewStatusFile(paths.StatusFile).Read()
	if err != nil {
		return err
	}
	if snap == nil || !infra.NewProcessLister().IsRunning(snap.PID) {
		fmt.Println("powermon is not running")
	} else {
		fmt.Println("powermon is running")
		fmt.Printf("  PID:        %d\n", snap.PID)
		fmt.Printf("  Session:    %s\n", snap.SessionID)
		fmt.Printf("  Started:    %s\n", snap.StartedAt.Format(time.RFC3339))
		fmt.Printf("  Prior mode: %s\n", snap.PriorMode)
		fmt.Printf("  Updated:    %s ago\n", time.Since(snap.UpdatedAt).Round(time.Second))
		fmt.Printf("  Last tick:  %s\n", infra.FormatStatusLine(snap.Last))
	}

	store, err := infra.OpenSessionStore(paths.DataDir)
	if err != nil {
		fmt.Printf("\nSession history unavailable: %v\n", err)
		return nil
	}
	defer func() { _ = store.Close() }()

	recent, err := store.Recent(sessionsLimit)
	if err != nil {
		return err
	}
	if len(recent) == 0 {
		return nil
	}

	fmt.Println("\nRecent sessions:")
	for _, s := range recent {
		stopped := "did not stop cleanly"
		if s.Finished() {
			stopped = "ran " + s.StoppedAt.Sub(s.StartedAt).Round(time.Second).String()
		}
		fmt.Printf("  - %s  %s  prior=%s last=%s  (%s)\n",
			s.StartedAt.Format("2006-01-02 15:04:05"), shortID(s.ID), s.PriorMode, s.LastMode, stopped)
	}
	return nil
}

func runScan(cmd *cobra.Command, args []string) error {
	execMode := infra.DetectExecMode()
	cfg, err := loadConfig(execMode)
	if err != nil {
		return err
	}

	logger := zap.NewNop()
	if debugLogging {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()

	classifier := newClassifier(cfg, infra.NewProcessLister(), logger)
	active := classifier.ActiveProcessNames().Sorted()
	heavy := classifier.HeavyRunningNames()
	turbo, turboApps := classifier.CheckTurboCondition()

	fmt.Printf("Applications with visible windows (%d):\n", len(active))
	for _, name := range active {
		fmt.Printf("  - %s\n", name)
	}
	fmt.Printf("\nHeavy: %s\n", joinOrNone(heavy))
	fmt.Printf("Turbo: %v %s\n", turbo, joinOrNone(turboApps))
	printTurboGroups(cfg.TurboRule())

	decision := policy.Resolve(policy.Evidence{
		Turbo:     turbo,
		TurboApps: turboApps,
		Heavy:     len(heavy) > 0,
		HeavyApps: heavy,
	})
	fmt.Printf("\nMode for an active user: %s (%s)\n", decision.Mode, decision.Reason)

	if actuator, err := infra.NewActuator(infra.ActuatorOptions{
		Kind:         cfg.Actuator,
		Plans:        powerPlans(cfg),
		TurboProfile: cfg.Linux.TurboProfile,
	}, logger); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if current, err := actuator.CurrentMode(ctx); err == nil {
			fmt.Printf("Current mode (%s): %s\n", actuator.Name(), current)
		}
	}
	return nil
}

func printTurboGroups(rule policy.TurboRule) {
	if rule.Empty() {
		fmt.Println("Turbo groups: none configured")
		return
	}
	fmt.Printf("Turbo groups (%s):\n", strings.Join(rule.GroupNames(), ", "))
	for _, g := range rule.Groups() {
		fmt.Printf("  - %s: %d of %s\n", g.Name, g.MinMatches, strings.Join(g.Members.Sorted(), ", "))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func joinOrNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func createLogger(logFile string, debug bool) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{logFile, "stderr"}
	config.ErrorOutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "time"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if debug {
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}

	logger, err := config.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

type versionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"build_time"`
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(versionInfo{Version: Version, Commit: Commit, BuildTime: BuildTime})
		fmt.Println(string(out))
	} else {
		fmt.Printf("powermon %s (commit: %s, built: %s)\n",
			Version, Commit, BuildTime)
	}
}
