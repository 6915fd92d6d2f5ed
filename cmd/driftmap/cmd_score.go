// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	scoreEdgeID   string
	scoreMinLevel string
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Score edge confidence from evidence",
	Long: `Recompute confidence scores for the bundle's edges from their
recorded evidence and print the breakdown.

Without flags every edge that carries evidence is scored. Use --edge to
inspect a single edge's factor breakdown.

Examples:
  driftmap score --bundle scan.json
  driftmap score --bundle scan.json --edge "aws_instance.web->aws_vpc.main#0"
  driftmap score --bundle scan.json --min-level low`,
	Args: cobra.NoArgs,
	Run:  runScore,
}

func init() {
	scoreCmd.Flags().StringVar(&scoreEdgeID, "edge", "",
		"Score only this edge id")
	scoreCmd.Flags().StringVar(&scoreMinLevel, "min-level", "",
		"Only show edges at or below this confidence level (certain, high, medium, low, uncertain)")

	rootCmd.AddCommand(scoreCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

// scoredEdge pairs an edge with its computed score for output.
type scoredEdge struct {
	EdgeID string                `json:"edge_id"`
	FromID string                `json:"from_id"`
	ToID   string                `json:"to_id"`
	Type   model.EdgeType        `json:"type"`
	Score  model.ConfidenceScore `json:"score"`
}

func runScore(cmd *cobra.Command, args []string) {
	_, cancel, s := commandContext()
	defer cancel()

	var ceiling int
	if scoreMinLevel != "" {
		ceiling = levelCeiling(model.ConfidenceLevel(scoreMinLevel))
		if ceiling < 0 {
			fail("invalid --min-level", fmt.Errorf("unknown level %q", scoreMinLevel))
		}
	}

	var results []scoredEdge
	for _, e := range s.bundle.Edges {
		if scoreEdgeID != "" && e.ID != scoreEdgeID {
			continue
		}
		evidence := s.bundle.Evidence[e.ID]
		score := s.scorer.Calculate(evidence)
		if scoreMinLevel != "" && score.Value > ceiling {
			continue
		}
		results = append(results, scoredEdge{
			EdgeID: e.ID,
			FromID: e.FromID,
			ToID:   e.ToID,
			Type:   e.Type,
			Score:  score,
		})
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score.Value != results[j].Score.Value {
			return results[i].Score.Value < results[j].Score.Value
		}
		return results[i].EdgeID < results[j].EdgeID
	})

	if jsonOutput {
		outputJSON(results)
		return
	}

	fmt.Printf("Scored edges (%d):\n", len(results))
	for _, r := range results {
		fmt.Printf("  %3d %-9s %s -> %s (%s)\n",
			r.Score.Value, r.Score.Level, r.FromID, r.ToID, r.Type)
		if scoreEdgeID != "" {
			printBreakdown(r.Score)
		}
	}
}

// printBreakdown dumps the factor detail for a single edge.
func printBreakdown(score model.ConfidenceScore) {
	b := score.Breakdown
	fmt.Printf("    base %.1f  multiplier %.2f  explicit +%.0f  pattern +%.0f  heuristic -%.0f  rules %+.1f\n",
		b.BaseScore, b.EvidenceMultiplier, b.ExplicitBonus, b.PatternBonus, b.HeuristicPenalty, b.RuleAdjustment)
	for _, f := range score.PositiveFactors {
		fmt.Printf("    + %s\n", f)
	}
	for _, f := range score.NegativeFactors {
		fmt.Printf("    - %s\n", f)
	}
}

// levelCeiling maps a confidence level to the highest value inside it,
// so --min-level low shows everything scored low or worse. Returns -1
// for an unknown level.
func levelCeiling(level model.ConfidenceLevel) int {
	switch level {
	case model.ConfidenceLevelCertain:
		return 100
	case model.ConfidenceLevelHigh:
		return 94
	case model.ConfidenceLevelMedium:
		return 79
	case model.ConfidenceLevelLow:
		return 59
	case model.ConfidenceLevelUncertain:
		return 39
	default:
		return -1
	}
}
