// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// Engine evaluates evidence collections into confidence scores.
//
// # Description
//
// Calculate is a pure function of (evidence, rules, config): it never
// fails and has no side effects beyond metrics. The engine's rule set can
// be swapped at runtime (see RuleWatcher); reads and swaps are guarded by
// an RWMutex so a calculation always sees a consistent rule set.
//
// # Thread Safety
//
// Safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	config Config
	rules  []Rule
}

// NewEngine creates a scoring engine with the given configuration.
//
// The config's own rule set becomes the engine's base rules. Use
// DefaultConfig() when no file-based configuration is needed.
func NewEngine(cfg Config) *Engine {
	cfg.applyDefaults()
	return &Engine{
		config: cfg,
		rules:  sortRules(cfg.Rules),
	}
}

// SetRules atomically replaces the engine's base rule set.
func (e *Engine) SetRules(rules []Rule) {
	sorted := sortRules(rules)
	e.mu.Lock()
	e.rules = sorted
	e.mu.Unlock()
}

// Rules returns a copy of the engine's current base rule set.
func (e *Engine) Rules() []Rule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// CalcOption customizes a single Calculate call.
type CalcOption func(*calcOptions)

type calcOptions struct {
	customRules []Rule
	overrides   *Config
}

// WithRules adds custom rules for this calculation only. They are
// evaluated together with the engine's base rules.
func WithRules(rules []Rule) CalcOption {
	return func(o *calcOptions) {
		o.customRules = rules
	}
}

// WithOverrides replaces the engine configuration for this calculation
// only. Zero-valued fields fall back to defaults.
func WithOverrides(cfg Config) CalcOption {
	return func(o *calcOptions) {
		cfg.applyDefaults()
		o.overrides = &cfg
	}
}

// Calculate converts an evidence collection into one confidence score.
//
// # Description
//
// The score is built from five parts:
//
//  1. Base score: mean of evidence confidences weighted by category
//     (explicit=1.0, semantic=0.9, structural=0.8, pattern=0.7,
//     heuristic=0.6 by default).
//  2. Evidence multiplier: 1 + sum(decay^i * 0.1) for i in [1, n-1],
//     capped at the configured cap. Corroboration helps with
//     diminishing returns.
//  3. Bonuses: +10 per explicit item (capped at +20); +5 for >=2 distinct
//     categories and +5 more for >=3; +5 for >=3 distinct types and +5
//     more for >=5.
//  4. Heuristic penalty: heuristic-only collections lose 15 points when
//     their mean confidence is below 50, otherwise 5.
//  5. Rules: each matching rule adds baseScore*multiplier*matchCount*0.1.
//
// Final value = clamp(base*multiplier + bonuses - penalty + rules, 0, 100),
// rounded to the nearest integer.
//
// # Inputs
//
//	evidence - The evidence collection. May be empty.
//	opts - Optional per-call rules and config overrides.
//
// # Outputs
//
//	model.ConfidenceScore - Always valid; zero evidence yields value 0,
//	level uncertain and one negative factor.
//
// # Thread Safety
//
// Safe for concurrent use.
func (e *Engine) Calculate(evidence []model.Evidence, opts ...CalcOption) model.ConfidenceScore {
	start := time.Now()

	var options calcOptions
	for _, opt := range opts {
		opt(&options)
	}

	cfg := e.snapshotConfig(options.overrides)
	rules := e.snapshotRules(options.customRules)

	score := calculate(evidence, rules, cfg)
	recordCalculation(time.Since(start), score.Value, len(evidence))
	return score
}

// snapshotConfig resolves the effective config for one calculation.
func (e *Engine) snapshotConfig(overrides *Config) Config {
	if overrides != nil {
		return *overrides
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.config
}

// snapshotRules resolves the effective rule set for one calculation.
func (e *Engine) snapshotRules(custom []Rule) []Rule {
	e.mu.RLock()
	base := e.rules
	e.mu.RUnlock()

	if len(custom) == 0 {
		return base
	}
	merged := make([]Rule, 0, len(base)+len(custom))
	merged = append(merged, base...)
	merged = append(merged, custom...)
	return sortRules(merged)
}

// calculate implements the scoring formula. Pure function.
func calculate(evidence []model.Evidence, rules []Rule, cfg Config) model.ConfidenceScore {
	if len(evidence) == 0 {
		return model.ConfidenceScore{
			Value:           0,
			Level:           model.ConfidenceLevelUncertain,
			NegativeFactors: []string{"no evidence supports this relationship"},
		}
	}

	n := len(evidence)
	var positive, negative []string

	// Base score: category-weighted mean.
	var weightedSum, rawSum float64
	explicitCount := 0
	categories := make(map[model.EvidenceCategory]struct{})
	types := make(map[model.EvidenceType]struct{})
	heuristicOnly := true

	for _, ev := range evidence {
		cat := ev.EffectiveCategory()
		weightedSum += float64(clampInt(ev.Confidence, 0, 100)) * cfg.categoryWeight(cat)
		rawSum += float64(clampInt(ev.Confidence, 0, 100))
		categories[cat] = struct{}{}
		types[ev.Type] = struct{}{}
		if cat == model.EvidenceCategoryExplicit {
			explicitCount++
		}
		if cat != model.EvidenceCategoryHeuristic {
			heuristicOnly = false
		}
	}
	base := weightedSum / float64(n)

	// Evidence multiplier: corroboration with diminishing returns.
	multiplier := 1.0
	for i := 1; i < n; i++ {
		multiplier += math.Pow(cfg.DecayRate, float64(i)) * 0.1
	}
	if multiplier > cfg.MultiplierCap {
		multiplier = cfg.MultiplierCap
	}
	if n > 1 {
		positive = append(positive, fmt.Sprintf("%d corroborating evidence items", n))
	}

	// Explicit bonus.
	explicitBonus := cfg.ExplicitBonusPerItem * float64(explicitCount)
	if explicitBonus > cfg.ExplicitBonusCap {
		explicitBonus = cfg.ExplicitBonusCap
	}
	if explicitCount > 0 {
		positive = append(positive, fmt.Sprintf("%d explicit declaration(s)", explicitCount))
	}

	// Diversity (pattern) bonus.
	patternBonus := 0.0
	if len(categories) >= 2 {
		patternBonus += 5
	}
	if len(categories) >= 3 {
		patternBonus += 5
	}
	if len(types) >= 3 {
		patternBonus += 5
	}
	if len(types) >= 5 {
		patternBonus += 5
	}
	if patternBonus > 0 {
		positive = append(positive, fmt.Sprintf("evidence spans %d categories and %d types", len(categories), len(types)))
	}

	// Heuristic-only penalty.
	penalty := 0.0
	if heuristicOnly {
		if rawSum/float64(n) < cfg.HeuristicPenaltyThreshold {
			penalty = cfg.HeuristicPenaltyStrong
			negative = append(negative, "only low-confidence heuristic evidence")
		} else {
			penalty = cfg.HeuristicPenaltyMild
			negative = append(negative, "only heuristic evidence")
		}
	}

	// Custom rules: priority-ordered, additive.
	ruleSum := 0.0
	for _, rule := range rules {
		matches := rule.matchCount(evidence)
		if matches == 0 {
			continue
		}
		contribution := rule.BaseScore * rule.Multiplier * float64(matches) * 0.1
		ruleSum += contribution
		recordRuleMatch(rule.Name, matches)
		if contribution >= 0 {
			positive = append(positive, fmt.Sprintf("rule %q matched %d item(s)", rule.Name, matches))
		} else {
			negative = append(negative, fmt.Sprintf("rule %q matched %d item(s)", rule.Name, matches))
		}
	}

	raw := base*multiplier + explicitBonus + patternBonus - penalty + ruleSum
	value := clampInt(int(math.Round(raw)), 0, 100)

	return model.ConfidenceScore{
		Value: value,
		Level: model.LevelForValue(value),
		Breakdown: model.ScoreBreakdown{
			BaseScore:          base,
			EvidenceMultiplier: multiplier,
			ExplicitBonus:      explicitBonus,
			PatternBonus:       patternBonus,
			HeuristicPenalty:   penalty,
			RuleAdjustment:     ruleSum,
		},
		PositiveFactors: positive,
		NegativeFactors: negative,
	}
}

// Merge combines scores from multiple evidence collections into one.
//
// # Description
//
// Merging is a weighted average, not a second scoring pass: each input
// value is weighted by its own evidence multiplier (a proxy for how much
// corroboration backed it), and factor lists are unioned in order with
// duplicates dropped. A single input is returned unchanged.
//
// # Inputs
//
//	scores - Scores to merge. May be empty.
//
// # Outputs
//
//	model.ConfidenceScore - The merged score; zero value for empty input.
func (e *Engine) Merge(scores []model.ConfidenceScore) model.ConfidenceScore {
	switch len(scores) {
	case 0:
		return model.ConfidenceScore{
			Value:           0,
			Level:           model.ConfidenceLevelUncertain,
			NegativeFactors: []string{"no scores to merge"},
		}
	case 1:
		return scores[0]
	}

	var weightSum, valueSum float64
	var breakdown model.ScoreBreakdown
	for _, s := range scores {
		w := s.Breakdown.EvidenceMultiplier
		if w <= 0 {
			w = 1.0
		}
		weightSum += w
		valueSum += float64(s.Value) * w

		breakdown.BaseScore += s.Breakdown.BaseScore * w
		breakdown.EvidenceMultiplier += s.Breakdown.EvidenceMultiplier * w
		breakdown.ExplicitBonus += s.Breakdown.ExplicitBonus * w
		breakdown.PatternBonus += s.Breakdown.PatternBonus * w
		breakdown.HeuristicPenalty += s.Breakdown.HeuristicPenalty * w
		breakdown.RuleAdjustment += s.Breakdown.RuleAdjustment * w
	}

	breakdown.BaseScore /= weightSum
	breakdown.EvidenceMultiplier /= weightSum
	breakdown.ExplicitBonus /= weightSum
	breakdown.PatternBonus /= weightSum
	breakdown.HeuristicPenalty /= weightSum
	breakdown.RuleAdjustment /= weightSum

	value := clampInt(int(math.Round(valueSum/weightSum)), 0, 100)

	return model.ConfidenceScore{
		Value:           value,
		Level:           model.LevelForValue(value),
		Breakdown:       breakdown,
		PositiveFactors: unionFactors(scores, func(s model.ConfidenceScore) []string { return s.PositiveFactors }),
		NegativeFactors: unionFactors(scores, func(s model.ConfidenceScore) []string { return s.NegativeFactors }),
	}
}

// LevelFor returns the classification bucket for a 0-100 value.
func (e *Engine) LevelFor(value int) model.ConfidenceLevel {
	return model.LevelForValue(value)
}

// unionFactors merges factor lists preserving first-seen order.
func unionFactors(scores []model.ConfidenceScore, pick func(model.ConfidenceScore) []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, s := range scores {
		for _, f := range pick(s) {
			if _, dup := seen[f]; dup {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
