// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Command driftmap analyzes IaC dependency graphs produced by the
// DriftMap scanners: traversal queries, impact analysis and blast
// radius over a scan bundle.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/DriftMapHQ/driftmap/pkg/logging"
	"github.com/DriftMapHQ/driftmap/services/depgraph/telemetry"
)

var config Config

// telemetryShutdown is set by PersistentPreRun when telemetry is
// enabled and invoked from PersistentPostRun.
var telemetryShutdown func(context.Context) error

var rootCmd = &cobra.Command{
	Use:   "driftmap",
	Short: "IaC dependency graph analysis",
	Long: `driftmap analyzes the dependency graph of a scanned IaC estate.

All commands operate on a scan bundle: a JSON file of nodes, edges and
evidence produced by the DriftMap parsers (terraform, terragrunt,
kubernetes, helm).

Examples:
  driftmap stats --bundle scan.json
  driftmap downstream aws_vpc.main --bundle scan.json --depth 3
  driftmap blast aws_security_group.web --bundle scan.json --json`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(ExitError)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml",
		"Path to the driftmap config file")
	rootCmd.PersistentFlags().StringVar(&bundlePath, "bundle", "",
		"Path to the scan bundle JSON (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false,
		"Output as JSON for scripting")

	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		cfg, err := LoadCLIConfig(configPath)
		if err != nil {
			slog.Error("loading config", "path", configPath, "error", err)
			os.Exit(ExitError)
		}
		config = cfg
		setupLogging(config)

		if config.Telemetry.Enabled {
			tcfg := telemetry.DefaultConfig()
			tcfg.ServiceName = "driftmap"
			if config.Telemetry.Environment != "" {
				tcfg.Environment = config.Telemetry.Environment
			}
			shutdown, err := telemetry.Init(cmd.Context(), tcfg)
			if err != nil {
				slog.Warn("telemetry disabled", "error", err)
			} else {
				telemetryShutdown = shutdown
			}
		}
	}

	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if telemetryShutdown != nil {
			if err := telemetryShutdown(context.Background()); err != nil {
				slog.Warn("telemetry shutdown", "error", err)
			}
		}
		if appLogger != nil {
			_ = appLogger.Close()
		}
	}
}

// appLogger is closed by PersistentPostRun once the command finishes.
var appLogger *logging.Logger

// setupLogging installs the process-wide slog default.
func setupLogging(cfg Config) {
	logger, err := logging.New(logging.Config{
		Level:   logging.ParseLevel(cfg.LogLevel),
		LogDir:  cfg.LogDir,
		Service: "driftmap",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: file logging unavailable: %v\n", err)
	}
	appLogger = logger
	slog.SetDefault(logger.Logger)
}
