package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/marmos91/mirrord/internal/daemon"
	"github.com/marmos91/mirrord/internal/logger"
	"github.com/marmos91/mirrord/pkg/config"
	"github.com/marmos91/mirrord/pkg/engine"
	"github.com/marmos91/mirrord/pkg/mounts"
	"github.com/marmos91/mirrord/pkg/watch"
)

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	var mirrors stringList

	configPath := flag.String("config", "", "Path to config file (default: $XDG_CONFIG_HOME/mirrord/config.yaml)")
	source := flag.String("source", "", "Source directory to mirror from")
	flag.Var(&mirrors, "mirror", "Mirror volume mountpoint (repeatable)")
	logLevel := flag.String("log-level", "", "Log level (DEBUG, INFO, WARN, ERROR)")
	logFormat := flag.String("log-format", "", "Log format (text, json)")
	lifecycleType := flag.String("lifecycle", "", "Volume lifecycle watcher (poll, device)")
	metricsEnabled := flag.Bool("metrics", false, "Enable the Prometheus metrics endpoint")
	metricsListen := flag.String("metrics-listen", "", "Metrics listen address (e.g. :9090)")
	flag.Parse()

	// Load configuration from file, environment, and defaults
	cfg, err := config.Load(*configPath)
	if err != nil && !hasOverrides(*source, mirrors) {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg == nil {
		cfg = config.GetDefaultConfig()
		cfg.Source.Path = ""
		cfg.Mirrors = nil
	}

	// CLI flags take precedence over file and environment
	applyFlagOverrides(cfg, *source, mirrors, *logLevel, *logFormat, *lifecycleType, *metricsEnabled, *metricsListen)

	if err := config.Validate(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Configure logger
	logger.SetLevel(cfg.Logging.Level)
	logger.SetFormat(cfg.Logging.Format)
	if err := logger.SetOutput(cfg.Logging.Output); err != nil {
		log.Fatalf("Failed to configure log output: %v", err)
	}

	fmt.Println("mirrord - removable volume mirror daemon")
	logger.Info("Log level set to: %s", cfg.Logging.Level)
	logger.Info("Source directory: %s", cfg.Source.Path)
	for _, m := range cfg.Mirrors {
		logger.Info("Mirror volume: %s", m)
	}

	// Create cancellable context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize metrics (no-op implementations when disabled)
	metricsResult := config.InitializeMetrics(cfg)
	if metricsResult.Server != nil {
		go func() {
			if err := metricsResult.Server.Start(ctx); err != nil {
				logger.Error("Metrics server error: %v", err)
			}
		}()
	}

	// Create the sync engine
	table := mounts.NewProcTable()
	eng, err := engine.New(engine.Config{
		SourcePath: cfg.Source.Path,
		Mirrors:    cfg.Mirrors,
		Guard:      config.CreateSpaceGuard(&cfg.Sync),
		Table:      table,
		Metrics:    metricsResult.SyncMetrics,
	})
	if err != nil {
		log.Fatalf("Failed to create sync engine: %v", err)
	}

	// Bring already-mounted mirrors up to date before watching for changes
	logger.Info("Running initial sync...")
	for _, pass := range eng.InitialSync() {
		logger.Info("Initial sync of %s: %d mutations, %d failures, %d skipped",
			pass.Volume, pass.Mutations(), len(pass.Failures()), len(pass.Skipped()))
	}

	// Watch the source directory for changes
	sourceWatcher, err := watch.New(eng.Source())
	if err != nil {
		log.Fatalf("Failed to create source watcher: %v", err)
	}
	if err := sourceWatcher.Start(); err != nil {
		log.Fatalf("Failed to start source watcher: %v", err)
	}
	logger.Info("Watching source directory: %s", eng.Source())

	// Watch for volume attach/detach
	volumeWatcher, err := config.CreateLifecycleWatcher(&cfg.Lifecycle, cfg.Mirrors, table)
	if err != nil {
		log.Fatalf("Failed to create lifecycle watcher: %v", err)
	}
	if err := volumeWatcher.Start(); err != nil {
		log.Fatalf("Failed to start lifecycle watcher: %v", err)
	}
	logger.Info("Volume lifecycle watcher started (%s)", cfg.Lifecycle.Type)

	// Run the dispatch loop in background
	d := daemon.New(eng, sourceWatcher.Events(), volumeWatcher.Events())
	daemonDone := make(chan error, 1)
	go func() {
		daemonDone <- d.Run(ctx)
	}()

	// Wait for interrupt signal or daemon exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("mirrord is running. Press Ctrl+C to stop.")

	select {
	case sig := <-sigChan:
		logger.Info("Received %s, shutting down...", sig)
	case err := <-daemonDone:
		if err != nil {
			logger.Error("Daemon error: %v", err)
			os.Exit(1)
		}
		logger.Info("Daemon stopped")
		return
	}

	// Graceful shutdown: stop the watchers, then wait for the dispatch loop
	cancel()
	if err := sourceWatcher.Close(); err != nil {
		logger.Warn("Source watcher close error: %v", err)
	}
	if err := volumeWatcher.Close(); err != nil {
		logger.Warn("Lifecycle watcher close error: %v", err)
	}

	if err := <-daemonDone; err != nil {
		logger.Error("Daemon shutdown error: %v", err)
		os.Exit(1)
	}
	logger.Info("Shutdown complete")
}

// hasOverrides reports whether the CLI provides enough to run without a
// valid config file.
func hasOverrides(source string, mirrors stringList) bool {
	return source != "" && len(mirrors) > 0
}

// applyFlagOverrides layers non-empty CLI flag values over the loaded
// configuration.
func applyFlagOverrides(cfg *config.Config, source string, mirrors stringList, logLevel, logFormat, lifecycleType string, metricsEnabled bool, metricsListen string) {
	if source != "" {
		cfg.Source.Path = source
	}
	if len(mirrors) > 0 {
		cfg.Mirrors = mirrors
	}
	if logLevel != "" {
		cfg.Logging.Level = strings.ToUpper(logLevel)
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	if lifecycleType != "" {
		cfg.Lifecycle.Type = lifecycleType
	}
	if metricsEnabled {
		cfg.Metrics.Enabled = true
	}
	if metricsListen != "" {
		cfg.Metrics.Listen = metricsListen
	}
}
