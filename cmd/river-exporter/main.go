// Package main implements the river exporter entry point. The exporter
// polls hydrology gauging stations for their latest flow and height
// observations and republishes the readings, together with per-station
// fetch health, as Prometheus metrics.
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

	"github.com/kpouget/wunderground2prom/config"
	"github.com/kpouget/wunderground2prom/service"
)

// Build information constants
const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "river-exporter"
	envPrefix = "RIVER_EXPORTER"
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

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	slog.Info("Starting river exporter",
		"version", Version,
		"build_time", BuildTime,
		"config_path", cliCfg.ConfigPath)

	cfg, err := config.LoadRiver(cliCfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Debug && cliCfg.LogLevel != "debug" {
		slog.SetDefault(setupLogger("debug", cliCfg.LogFormat))
	}

	if cliCfg.Validate {
		slog.Info("Configuration is valid",
			"stations", len(cfg.Stations), "listen", cfg.Listen.Address())
		return nil
	}

	exporter, err := service.NewRiver(cfg, logger)
	if err != nil {
		return fmt.Errorf("create exporter: %w", err)
	}
	if err := exporter.Initialize(); err != nil {
		return fmt.Errorf("initialize exporter: %w", err)
	}

	return runWithSignalHandling(exporter, cliCfg.ShutdownTimeout)
}

// runWithSignalHandling starts the exporter and blocks until SIGINT or
// SIGTERM, then shuts down within the timeout.
func runWithSignalHandling(exporter *service.Exporter, shutdownTimeout time.Duration) error {
	signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer signalCancel()

	if err := exporter.Start(signalCtx); err != nil {
		return fmt.Errorf("start exporter: %w", err)
	}
	slog.Info("River exporter started", "address", exporter.Address())

	<-signalCtx.Done()
	slog.Info("Received shutdown signal")

	if err := exporter.Stop(shutdownTimeout); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Shutdown complete")
	return nil
}
