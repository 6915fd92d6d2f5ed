// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/DriftMapHQ/driftmap/pkg/validation"
)

// Shared command flags.
var (
	configPath string
	bundlePath string
	jsonOutput bool
)

// maxCLIConfigSize bounds config.yaml reads.
const maxCLIConfigSize = 256 * 1024

// Config is the CLI configuration loaded from config.yaml.
type Config struct {
	// TenantID scopes all graph registrations. Default: "local".
	TenantID string `yaml:"tenant_id"`

	// Bundle is the default scan bundle path when --bundle is not given.
	Bundle string `yaml:"bundle"`

	// ScoringConfig optionally points at a scoring rules YAML; empty
	// uses the embedded defaults.
	ScoringConfig string `yaml:"scoring_config"`

	// LogLevel is one of debug, info, warn, error. Default: info.
	LogLevel string `yaml:"log_level"`

	// LogDir enables JSON file logging when set.
	LogDir string `yaml:"log_dir"`

	// Telemetry controls the OpenTelemetry bootstrap.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// TelemetryConfig is the telemetry section of config.yaml.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Environment string `yaml:"environment"`
}

// LoadCLIConfig reads config.yaml. A missing file is not an error; the
// defaults are enough for local analysis.
func LoadCLIConfig(path string) (Config, error) {
	cfg := Config{
		TenantID: "local",
		LogLevel: "info",
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(data) > maxCLIConfigSize {
		return cfg, fmt.Errorf("config %s exceeds %d bytes", path, maxCLIConfigSize)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing %s: %w", path, err)
	}
	if cfg.TenantID == "" {
		cfg.TenantID = "local"
	}
	tenant, err := validation.SanitizeTenantID(cfg.TenantID)
	if err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	cfg.TenantID = tenant
	return cfg, nil
}

// resolveBundlePath returns the bundle path from the flag, falling back
// to config.
func resolveBundlePath() (string, error) {
	if bundlePath != "" {
		return bundlePath, nil
	}
	if config.Bundle != "" {
		return config.Bundle, nil
	}
	return "", errors.New("no scan bundle: pass --bundle or set bundle in config.yaml")
}
