// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

const (
	// MaxConfigFileSize is the maximum allowed YAML config size (1MB).
	// Prevents memory issues from oversized files.
	MaxConfigFileSize = 1024 * 1024

	// MaxRules is the maximum number of rules a config may carry.
	MaxRules = 500
)

//go:embed scoring_defaults.yaml
var defaultConfigYAML []byte

// Config controls the scoring formula.
//
// All fields have sensible defaults via DefaultConfig(). Zero values in a
// loaded config are replaced with defaults before validation.
type Config struct {
	// CategoryWeights maps evidence categories to their weight in the
	// base-score mean.
	CategoryWeights map[model.EvidenceCategory]float64 `yaml:"category_weights" validate:"required,dive,gte=0,lte=1"`

	// DecayRate controls diminishing returns for corroborating evidence.
	DecayRate float64 `yaml:"decay_rate" validate:"gt=0,lte=1"`

	// MultiplierCap bounds the evidence multiplier.
	MultiplierCap float64 `yaml:"multiplier_cap" validate:"gte=1,lte=3"`

	// ExplicitBonusPerItem is added per explicit-category evidence item.
	ExplicitBonusPerItem float64 `yaml:"explicit_bonus_per_item" validate:"gte=0"`

	// ExplicitBonusCap bounds the total explicit bonus.
	ExplicitBonusCap float64 `yaml:"explicit_bonus_cap" validate:"gte=0"`

	// HeuristicPenaltyStrong applies when heuristic-only evidence has a
	// mean confidence below HeuristicPenaltyThreshold.
	HeuristicPenaltyStrong float64 `yaml:"heuristic_penalty_strong" validate:"gte=0"`

	// HeuristicPenaltyMild applies to other heuristic-only collections.
	HeuristicPenaltyMild float64 `yaml:"heuristic_penalty_mild" validate:"gte=0"`

	// HeuristicPenaltyThreshold selects strong vs mild penalty.
	HeuristicPenaltyThreshold float64 `yaml:"heuristic_penalty_threshold" validate:"gte=0,lte=100"`

	// Rules is the default rule set applied on every calculation, merged
	// with per-call custom rules.
	Rules []Rule `yaml:"rules" validate:"max=500,dive"`
}

// DefaultConfig returns the weights and constants the engine ships with.
func DefaultConfig() Config {
	return Config{
		CategoryWeights: map[model.EvidenceCategory]float64{
			model.EvidenceCategoryExplicit:   1.0,
			model.EvidenceCategorySemantic:   0.9,
			model.EvidenceCategoryStructural: 0.8,
			model.EvidenceCategoryPattern:    0.7,
			model.EvidenceCategoryHeuristic:  0.6,
		},
		DecayRate:                 0.85,
		MultiplierCap:             1.5,
		ExplicitBonusPerItem:      10,
		ExplicitBonusCap:          20,
		HeuristicPenaltyStrong:    15,
		HeuristicPenaltyMild:      5,
		HeuristicPenaltyThreshold: 50,
	}
}

// categoryWeight returns the configured weight for a category, falling
// back to the heuristic weight for unknown categories.
func (c Config) categoryWeight(cat model.EvidenceCategory) float64 {
	if w, ok := c.CategoryWeights[cat]; ok {
		return w
	}
	return c.CategoryWeights[model.EvidenceCategoryHeuristic]
}

// applyDefaults fills zero-valued fields from DefaultConfig.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if len(c.CategoryWeights) == 0 {
		c.CategoryWeights = def.CategoryWeights
	}
	if c.DecayRate == 0 {
		c.DecayRate = def.DecayRate
	}
	if c.MultiplierCap == 0 {
		c.MultiplierCap = def.MultiplierCap
	}
	if c.ExplicitBonusPerItem == 0 {
		c.ExplicitBonusPerItem = def.ExplicitBonusPerItem
	}
	if c.ExplicitBonusCap == 0 {
		c.ExplicitBonusCap = def.ExplicitBonusCap
	}
	if c.HeuristicPenaltyStrong == 0 {
		c.HeuristicPenaltyStrong = def.HeuristicPenaltyStrong
	}
	if c.HeuristicPenaltyMild == 0 {
		c.HeuristicPenaltyMild = def.HeuristicPenaltyMild
	}
	if c.HeuristicPenaltyThreshold == 0 {
		c.HeuristicPenaltyThreshold = def.HeuristicPenaltyThreshold
	}
}

// configValidator is shared across loads; validator instances cache
// struct metadata and are safe for concurrent use.
var configValidator = validator.New()

// Validate checks the config against its constraints.
func (c Config) Validate() error {
	if len(c.Rules) > MaxRules {
		return fmt.Errorf("%w: %d rules exceeds limit %d", ErrInvalidConfig, len(c.Rules), MaxRules)
	}
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// LoadConfig reads a scoring config from a YAML file.
//
// Zero-valued fields are filled from defaults, then the result is
// validated. Files over MaxConfigFileSize are rejected.
func LoadConfig(path string) (Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Config{}, fmt.Errorf("stat config: %w", err)
	}
	if info.Size() > MaxConfigFileSize {
		return Config{}, fmt.Errorf("%w: %d bytes", ErrConfigTooLarge, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

// EmbeddedDefaultConfig parses the config YAML compiled into the binary.
func EmbeddedDefaultConfig() (Config, error) {
	return parseConfig(defaultConfigYAML)
}

func parseConfig(data []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
