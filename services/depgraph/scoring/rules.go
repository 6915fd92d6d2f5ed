// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package scoring

import (
	"fmt"
	"sort"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// Rule is a custom scoring rule applied on top of the base formula.
//
// Rules are evaluated in priority order (highest first). A rule matches
// every evidence item whose type is in EvidenceTypes and whose raw
// payload satisfies Conditions; each match contributes
// BaseScore * Multiplier * 0.1 to the final score.
type Rule struct {
	// Name identifies the rule in score factors and logs.
	Name string `yaml:"name" validate:"required"`

	// Priority orders rule evaluation; higher runs first.
	Priority int `yaml:"priority"`

	// EvidenceTypes lists the evidence types the rule applies to.
	EvidenceTypes []model.EvidenceType `yaml:"evidence_types" validate:"required,min=1"`

	// BaseScore is the per-match contribution before the multiplier.
	BaseScore float64 `yaml:"base_score" validate:"gte=0,lte=100"`

	// Multiplier scales the contribution.
	Multiplier float64 `yaml:"multiplier" validate:"gte=0,lte=10"`

	// Conditions are free-form key/value requirements matched against the
	// evidence raw payload. String comparison after fmt.Sprint; absent
	// keys never match.
	Conditions map[string]string `yaml:"conditions,omitempty"`
}

// appliesTo reports whether the rule matches one evidence item.
func (r Rule) appliesTo(ev model.Evidence) bool {
	typeOK := false
	for _, t := range r.EvidenceTypes {
		if ev.Type == t {
			typeOK = true
			break
		}
	}
	if !typeOK {
		return false
	}

	for key, want := range r.Conditions {
		raw, ok := ev.Raw[key]
		if !ok {
			return false
		}
		if fmt.Sprint(raw) != want {
			return false
		}
	}
	return true
}

// matchCount counts evidence items the rule applies to.
func (r Rule) matchCount(evidence []model.Evidence) int {
	count := 0
	for _, ev := range evidence {
		if r.appliesTo(ev) {
			count++
		}
	}
	return count
}

// sortRules returns rules ordered by priority descending, name ascending
// as the tie-break so evaluation order is deterministic.
func sortRules(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Priority != sorted[j].Priority {
			return sorted[i].Priority > sorted[j].Priority
		}
		return sorted[i].Name < sorted[j].Name
	})
	return sorted
}
