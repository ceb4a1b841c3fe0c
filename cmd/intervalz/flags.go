package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"time"
)

// CLIConfig holds command-line configuration
type CLIConfig struct {
	ScenarioPath    string
	LogLevel        string
	LogFormat       string
	MetricsAddr     string
	Once            bool
	StatsInterval   time.Duration
	ShutdownTimeout time.Duration
	ShowVersion     bool
	ShowHelp        bool
	Validate        bool
}

func parseFlags(args []string, output io.Writer) (*CLIConfig, error) {
	cfg := &CLIConfig{}
	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	fs.SetOutput(output)

	// Define flags with environment variable fallback
	fs.StringVar(&cfg.ScenarioPath, "scenario",
		getEnv("INTERVALZ_SCENARIO", "scenario.yaml"),
		"Path to scenario file (env: INTERVALZ_SCENARIO)")

	fs.StringVar(&cfg.LogLevel, "log-level",
		getEnv("INTERVALZ_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: INTERVALZ_LOG_LEVEL)")

	fs.StringVar(&cfg.LogFormat, "log-format",
		getEnv("INTERVALZ_LOG_FORMAT", "text"),
		"Log format: json, text (env: INTERVALZ_LOG_FORMAT)")

	fs.StringVar(&cfg.MetricsAddr, "metrics-addr",
		getEnv("INTERVALZ_METRICS_ADDR", ""),
		"Address serving /metrics, empty to disable (env: INTERVALZ_METRICS_ADDR)")

	fs.BoolVar(&cfg.Once, "once",
		getEnvBool("INTERVALZ_ONCE", false),
		"Run a single cycle even if the scenario repeats (env: INTERVALZ_ONCE)")

	fs.DurationVar(&cfg.StatsInterval, "stats-interval",
		getEnvDuration("INTERVALZ_STATS_INTERVAL", 10*time.Second),
		"Frame throughput log interval, 0 to disable (env: INTERVALZ_STATS_INTERVAL)")

	fs.DurationVar(&cfg.ShutdownTimeout, "shutdown-timeout",
		getEnvDuration("INTERVALZ_SHUTDOWN_TIMEOUT", 5*time.Second),
		"Metrics server shutdown timeout (env: INTERVALZ_SHUTDOWN_TIMEOUT)")

	fs.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	fs.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")
	fs.BoolVar(&cfg.Validate, "validate", false, "Validate the scenario and exit")

	fs.Usage = func() {
		printHelp(fs.Output(), fs)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if cfg.ShowHelp {
		fs.Usage()
	}
	return cfg, nil
}

func validateFlags(cfg *CLIConfig) error {
	// Skip validation for special flags
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}

	if _, err := os.Stat(cfg.ScenarioPath); err != nil {
		return fmt.Errorf("scenario file not found: %s", cfg.ScenarioPath)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, cfg.LogLevel) {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}

	if !slices.Contains([]string{"json", "text"}, cfg.LogFormat) {
		return fmt.Errorf("invalid log format: %s", cfg.LogFormat)
	}

	if cfg.StatsInterval < 0 {
		return fmt.Errorf("invalid stats interval: %s", cfg.StatsInterval)
	}

	if cfg.ShutdownTimeout <= 0 {
		return fmt.Errorf("invalid shutdown timeout: %s", cfg.ShutdownTimeout)
	}

	return nil
}

func printHelp(w io.Writer, fs *flag.FlagSet) {
	_, _ = fmt.Fprintf(w, `%s - timed interval streams

Usage: %s [options]

Snapshots are written to stdout as JSON lines, logs go to stderr.

Options:
`, appName, appName)
	fs.PrintDefaults()
	_, _ = fmt.Fprintf(w, `
Examples:
  # Play a scenario once with debug logging
  %s -scenario=highway.yaml -once -log-level=debug

  # Loop a scenario and expose metrics
  export INTERVALZ_SCENARIO=highway.yaml
  %s -metrics-addr=:9090

Version: %s
`, appName, appName, Version)
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
