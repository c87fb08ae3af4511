package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ConfigPath      string
	LogLevel        string
	LogFormat       string
	Debug           bool
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	// Define flags with environment variable fallback
	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv(envPrefix+"_CONFIG", "configs/river.yaml"),
		"Path to configuration file (env: "+envPrefix+"_CONFIG)")

	flag.StringVar(&cfg.ConfigPath, "c",
		getEnv(envPrefix+"_CONFIG", "configs/river.yaml"),
		"Path to configuration file (env: "+envPrefix+"_CONFIG)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv(envPrefix+"_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: "+envPrefix+"_LOG_LEVEL)")

	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv(envPrefix+"_LOG_FORMAT", "json"),
		"Log format: json, text (env: "+envPrefix+"_LOG_FORMAT)")

	flag.BoolVar(&cfg.Debug, "debug",
		getEnvBool(envPrefix+"_DEBUG", false),
		"Enable debug logging (env: "+envPrefix+"_DEBUG)")

	flag.BoolVar(&cfg.Debug, "d",
		getEnvBool(envPrefix+"_DEBUG", false),
		"Enable debug logging (env: "+envPrefix+"_DEBUG)")

	flag.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration(envPrefix+"_SHUTDOWN_TIMEOUT", 30*time.Second),
		"Graceful shutdown timeout (env: "+envPrefix+"_SHUTDOWN_TIMEOUT)")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowVersion, "v", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	flag.BoolVar(&cfg.ShowHelp, "h", false, "Show help information")
	flag.BoolVar(&cfg.Validate, "validate", false, "Validate configuration and exit")

	flag.Usage = func() {
		printDetailedHelp()
	}

	flag.Parse()

	// Override log level if debug is set
	if cfg.Debug {
		cfg.LogLevel = "debug"
	}

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if _, err := os.Stat(cfg.ConfigPath); err != nil {
		return fmt.Errorf("config file not found: %s", cfg.ConfigPath)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	validFormats := []string{"json", "text"}
	if !contains(validFormats, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printDetailedHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - River gauging station Prometheus exporter

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Run with custom config
  %s --config=/etc/wunderground2prom/river.yaml

  # Run with debug logging
  %s --log-level=debug --log-format=text

  # Run with environment variables
  export %s_CONFIG=/etc/wunderground2prom/river.yaml
  export %s_LOG_LEVEL=debug
  %s

  # Validate configuration only
  %s --validate

Version: %s
Build: %s
`, os.Args[0], os.Args[0], envPrefix, envPrefix, os.Args[0], os.Args[0], Version, BuildTime)
}

// Environment variable helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Utility function to check if slice contains string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
