package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	app "github.com/musterhq/muster/internal/app"
	"github.com/musterhq/muster/internal/config"
	session "github.com/musterhq/muster/internal/session"
	"github.com/musterhq/muster/pkg/logger"
)

const serviceMetricsInterval = 5 * time.Second

func main() {
	// Initialize logging
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		_ = logger.Sync()
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration (defaults -> optional file -> env)
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	// Create and start the core with configuration options
	svc := app.New(
		app.WithLogger(loggerInstance),
		app.WithWorkerCount(cfg.WorkerCount),
		app.WithQueueSize(cfg.EventQueueSize),
		app.WithWarningLimit(cfg.WarningLimit),
		app.WithEventLogCap(cfg.EventLogCap),
		app.WithStaleThreshold(cfg.StaleThresholdMS),
		app.WithSafeFallback(cfg.SafeFallback),
		app.WithDefaultMode(modeFromConfig(cfg.DefaultMode)),
	)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer svc.Stop()

	// Keep gauge metrics fresh while the process runs
	go startServiceMetricsUpdater(ctx, svc)

	// Wait for shutdown signal
	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down...")
}

// startServiceMetricsUpdater starts a background goroutine that refreshes
// service-level gauges.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// GetStats refreshes the session and queue gauges as a side effect
			_ = svc.GetStats()
		}
	}
}

func modeFromConfig(mode string) session.Mode {
	if mode == "async" {
		return session.ModeAsync
	}
	return session.ModeRealtime
}
