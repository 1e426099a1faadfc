// Package main implements the entry point for streamd, the streaming
// session daemon. It serves per-session SSE envelope streams with
// interrupt handling, optimistic state sync, and NATS fan-out.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/mathonsunday/agentic-ui-lab-sub001/config"
	"github.com/mathonsunday/agentic-ui-lab-sub001/events"
	"github.com/mathonsunday/agentic-ui-lab-sub001/metric"
	"github.com/mathonsunday/agentic-ui-lab-sub001/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "streamd"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("Application failed", "error", err, "exit_code", 1)
		os.Exit(1)
	}
}

func run() error {
	cliCfg := parseFlags()
	if err := validateFlags(cliCfg); err != nil {
		return fmt.Errorf("invalid flags: %w", err)
	}

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return nil
	}
	if cliCfg.ShowHelp {
		printDetailedHelp()
		return nil
	}

	cfg, err := config.Load(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyCLIOverrides(cfg, cliCfg)

	if cliCfg.Validate {
		slog.Info("Configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(logger)

	logger.Info("Starting streamd",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath,
		"listen_addr", cfg.Server.ListenAddr)

	publisher, err := setupPublisher(cfg, logger)
	if err != nil {
		return err
	}

	metrics := metric.NewRegistry()
	metrics.Core().RecordNATSStatus(cfg.NATS.URL != "")

	svc := service.New(cfg, echoSourceFactory(),
		service.WithLogger(logger),
		service.WithPublisher(publisher),
		service.WithMetrics(metrics),
	)

	return runWithSignalHandling(svc, cfg, logger)
}

// applyCLIOverrides lets flags win over file and environment values.
func applyCLIOverrides(cfg *config.Config, cliCfg *CLIConfig) {
	if cliCfg.LogLevel != "" {
		cfg.Logging.Level = cliCfg.LogLevel
	}
	if cliCfg.LogFormat != "" {
		cfg.Logging.Format = cliCfg.LogFormat
	}
	if cliCfg.ShutdownTimeout > 0 {
		cfg.Server.ShutdownTimeout = config.Duration(cliCfg.ShutdownTimeout)
	}
}

// setupPublisher connects the envelope fan-out bus. Without a configured
// NATS URL the daemon runs standalone with a noop bus.
func setupPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATS.URL == "" {
		logger.Info("No NATS URL configured, envelope fan-out disabled")
		return &events.NoopPublisher{}, nil
	}

	publisher, err := events.NewNATSPublisher(cfg.NATS.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	logger.Info("Connected to NATS", "url", cfg.NATS.URL)
	return publisher, nil
}

// runWithSignalHandling starts the service and drains it on SIGINT or
// SIGTERM.
func runWithSignalHandling(svc *service.Service, cfg *config.Config, logger *slog.Logger) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- svc.Start(signalCtx)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("service failed: %w", err)
		}
		return nil
	case <-signalCtx.Done():
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer shutdownCancel()

	if err := svc.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}

	// Collect the listener result so the goroutine does not leak.
	select {
	case <-errCh:
	case <-time.After(time.Second):
	}

	logger.Info("streamd shutdown complete")
	return nil
}
