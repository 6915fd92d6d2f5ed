// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

// ConfidenceLevel classifies a 0-100 confidence value into five buckets.
type ConfidenceLevel string

const (
	// ConfidenceLevelCertain is assigned for values >= 95.
	ConfidenceLevelCertain ConfidenceLevel = "certain"

	// ConfidenceLevelHigh is assigned for values >= 80.
	ConfidenceLevelHigh ConfidenceLevel = "high"

	// ConfidenceLevelMedium is assigned for values >= 60.
	ConfidenceLevelMedium ConfidenceLevel = "medium"

	// ConfidenceLevelLow is assigned for values >= 40.
	ConfidenceLevelLow ConfidenceLevel = "low"

	// ConfidenceLevelUncertain is assigned for values below 40.
	ConfidenceLevelUncertain ConfidenceLevel = "uncertain"
)

// LevelForValue returns the classification bucket for a 0-100 value.
func LevelForValue(value int) ConfidenceLevel {
	switch {
	case value >= 95:
		return ConfidenceLevelCertain
	case value >= 80:
		return ConfidenceLevelHigh
	case value >= 60:
		return ConfidenceLevelMedium
	case value >= 40:
		return ConfidenceLevelLow
	default:
		return ConfidenceLevelUncertain
	}
}

// ScoreBreakdown explains how a confidence value was computed.
type ScoreBreakdown struct {
	// BaseScore is the category-weighted mean of evidence confidences.
	BaseScore float64 `json:"base_score"`

	// EvidenceMultiplier is the corroboration multiplier (1.0 - 1.5).
	EvidenceMultiplier float64 `json:"evidence_multiplier"`

	// ExplicitBonus is the bonus from explicit-category evidence (0 - 20).
	ExplicitBonus float64 `json:"explicit_bonus"`

	// PatternBonus is the diversity bonus from distinct categories and
	// types (0 - 20).
	PatternBonus float64 `json:"pattern_bonus"`

	// HeuristicPenalty is the penalty applied to heuristic-only evidence
	// (0, 5 or 15; stored as a positive number).
	HeuristicPenalty float64 `json:"heuristic_penalty"`

	// RuleAdjustment is the total contribution from matched custom rules.
	RuleAdjustment float64 `json:"rule_adjustment"`
}

// ConfidenceScore is the scoring engine's output for one evidence
// collection. It is derived and recomputable; evidence remains the
// source of truth.
type ConfidenceScore struct {
	// Value is the final clamped, rounded confidence, 0-100.
	Value int `json:"value"`

	// Level is the classification bucket for Value.
	Level ConfidenceLevel `json:"level"`

	// Breakdown explains the computation.
	Breakdown ScoreBreakdown `json:"breakdown"`

	// PositiveFactors lists human-readable reasons that raised the score.
	PositiveFactors []string `json:"positive_factors,omitempty"`

	// NegativeFactors lists human-readable reasons that lowered the score.
	NegativeFactors []string `json:"negative_factors,omitempty"`
}
