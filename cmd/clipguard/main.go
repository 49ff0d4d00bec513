// Package main is the CLI entry point for clipguard.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/clipguard/clipguard/internal/blocker"
	"github.com/clipguard/clipguard/internal/config"
	"github.com/clipguard/clipguard/internal/domain"
	"github.com/clipguard/clipguard/internal/infra"
	"github.com/clipguard/clipguard/internal/monitor"
	"github.com/clipguard/clipguard/internal/platform"
	"github.com/clipguard/clipguard/internal/rules"
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
	Use:   "clipguard",
	Short: "Clipboard provenance guard - warns before risky cross-app pastes",
	Long: `clipguard is a daemon that remembers which application the current
clipboard content was copied from. When you switch to an application
that a rule flags for that source, it warns you - or suppresses the
paste keystroke outright - before the content lands somewhere it
should not (the classic case: a poisoned snippet pasted into a
terminal).

Clipboard content itself is never read, stored or transmitted.`,
	Version: Version,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the guard daemon in the foreground",
	Long: `Runs the monitor loop until interrupted. Rules are reloaded live
when the settings file changes, so edits take effect without restart.`,
	RunE: runRun,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show daemon and guard status",
	RunE:  runStatus,
}

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "List the configured rules in evaluation order",
	RunE:  runRules,
}

var enableCmd = &cobra.Command{
	Use:   "enable",
	Short: "Enable the guard",
	Long:  `Enables rule evaluation. A running daemon picks the change up live.`,
	RunE:  func(cmd *cobra.Command, args []string) error { return setEnabled(true) },
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Disable the guard",
	Long: `Disables rule evaluation. The daemon keeps tracking clipboard
provenance so protection resumes seamlessly on enable.`,
	RunE: func(cmd *cobra.Command, args []string) error { return setEnabled(false) },
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent paste warnings",
	RunE:  runHistory,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run:   runVersion,
}

var (
	configPath   string
	jsonOutput   bool
	historyLimit int
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	versionCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output version info as JSON")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "Maximum number of warnings to show")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(enableCmd)
	rootCmd.AddCommand(disableCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(versionCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := createLogger(cfg.LogPath)
	defer func() { _ = logger.Sync() }()

	registry := infra.NewPidFileRegistry(cfg.DataDir)
	if err := registry.Register(os.Getpid()); err != nil {
		return err
	}
	defer func() { _ = registry.Clear() }()

	caps := platform.New(logger)
	store := rules.NewFileStore(cfg.RulesFile(), logger)

	sinks := []domain.EventSink{infra.NewLogSink(logger)}

	var journal *infra.EncryptedJournal
	if cfg.JournalEnabled() {
		key, err := infra.EnsureKey(infra.NewFileKeyProvider(cfg.DataDir))
		if err != nil {
			return fmt.Errorf("journal key: %w", err)
		}
		journal, err = infra.NewEncryptedJournal(cfg.DataDir, key)
		if err != nil {
			return fmt.Errorf("open journal: %w", err)
		}
		defer func() { _ = journal.Close() }()
		sinks = append(sinks, infra.NewJournalSink(journal, logger))
	}
	if cfg.NotificationsEnabled() {
		sinks = append(sinks, infra.NewNotifier(logger))
	}

	blk := blocker.New(caps.NewInterceptor(), logger)
	mon := monitor.New(
		monitor.Config{PollInterval: cfg.PollInterval()},
		caps,
		store,
		infra.NewMultiSink(sinks...),
		blk.Mailbox(),
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("received shutdown signal")
		cancel()
	}()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = store.Watch(ctx)
	}()
	go func() {
		defer wg.Done()
		blk.Run(ctx)
	}()

	logger.Info("clipguard started",
		zap.String("version", Version),
		zap.String("rules", store.Path()),
		zap.String("data_dir", cfg.DataDir))

	err = mon.Run(ctx)

	// The monitor stops first, then the blocker is told to tear down
	// so an armed hook never outlives its controller.
	blk.Shutdown()
	cancel()
	wg.Wait()

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry := infra.NewPidFileRegistry(cfg.DataDir)
	pid, running, err := registry.Current()
	if err != nil {
		return err
	}

	fmt.Println("=== clipguard Status ===")
	if running {
		fmt.Printf("Daemon: RUNNING (pid %d)\n", pid)
	} else {
		fmt.Println("Daemon: NOT RUNNING")
		fmt.Println("\nRun 'clipguard run' to start protection.")
	}

	store := rules.NewFileStore(cfg.RulesFile(), zap.NewNop())
	snap := store.Snapshot()
	if snap.Enabled {
		fmt.Println("Guard:  enabled")
	} else {
		fmt.Println("Guard:  disabled")
	}
	fmt.Printf("Rules:  %d configured (%s)\n", len(snap.Rules), store.Path())
	fmt.Printf("Data:   %s\n", cfg.DataDir)
	return nil
}

func runRules(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := rules.NewFileStore(cfg.RulesFile(), zap.NewNop())
	snap := store.Snapshot()

	if len(snap.Rules) == 0 {
		fmt.Println("No rules configured.")
		return nil
	}

	fmt.Println("=== Rules (first match wins) ===")
	for i, r := range snap.Rules {
		fmt.Printf("%3d. %s: %s -> %s\n", i+1, r.Action, sideString(r.From), sideString(r.To))
	}
	return nil
}

func sideString(side *domain.AppIdentity) string {
	if side == nil {
		return "any"
	}
	return side.String()
}

func setEnabled(enabled bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	store := rules.NewFileStore(cfg.RulesFile(), zap.NewNop())
	if err := store.SetEnabled(enabled); err != nil {
		return err
	}

	if enabled {
		fmt.Println("Guard enabled.")
	} else {
		fmt.Println("Guard disabled.")
	}

	registry := infra.NewPidFileRegistry(cfg.DataDir)
	if _, running, _ := registry.Current(); !running {
		fmt.Println("Note: no daemon is running; start one with 'clipguard run'.")
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if !cfg.JournalEnabled() {
		return fmt.Errorf("the warning journal is disabled in the config")
	}

	provider := infra.NewFileKeyProvider(cfg.DataDir)
	if !provider.KeyExists() {
		fmt.Println("No history yet.")
		return nil
	}
	key, err := provider.GetKey()
	if err != nil {
		return err
	}

	journal, err := infra.NewEncryptedJournal(cfg.DataDir, key)
	if err != nil {
		return err
	}
	defer func() { _ = journal.Close() }()

	records, err := journal.Recent(historyLimit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No history yet.")
		return nil
	}

	fmt.Println("=== Recent Paste Warnings ===")
	for _, rec := range records {
		verdict := "warned"
		if rec.Blocked {
			verdict = "blocked"
		} else if rec.Fallback {
			verdict = "warned (blocking unavailable)"
		}
		fmt.Printf("%s  %s -> %s  [%s]\n",
			rec.At.Format(time.DateTime),
			rec.Source.String(), rec.Destination.String(), verdict)
	}
	return nil
}

func createLogger(logPath string) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if logPath != "" {
		cfg.OutputPaths = []string{logPath}
		cfg.ErrorOutputPaths = []string{logPath}
	}
	cfg.EncoderConfig.TimeKey = "time"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		// Fallback to stderr if file logging fails
		logger, _ = zap.NewProduction()
	}
	return logger
}

func runVersion(cmd *cobra.Command, args []string) {
	if jsonOutput {
		out, _ := json.Marshal(map[string]string{
			"version":    Version,
			"commit":     Commit,
			"build_time": BuildTime,
		})
		fmt.Println(string(out))
		return
	}
	fmt.Printf("clipguard %s (commit %s, built %s)\n", Version, Commit, BuildTime)
}
