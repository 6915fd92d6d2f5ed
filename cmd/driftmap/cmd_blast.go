// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DriftMapHQ/driftmap/services/depgraph/blast"
	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	blastDepth      int
	blastEdgeTypes  []string
	blastDirectOnly bool
	blastCrossRepo  bool
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

var blastCmd = &cobra.Command{
	Use:   "blast NODE [NODE...]",
	Short: "Compute the blast radius of changing one or more nodes",
	Long: `Compute the weighted blast radius of a change to the given nodes.

Each impacted node is scored by summing, over every dependency path
that reaches it, the edge-type weight of the first hop attenuated by
0.7 per further hop. Explicit depends_on edges weigh most, soft
references least. The aggregate score, impacted count and cross-repo
spread classify the change as low, medium, high or critical risk.

Examples:
  driftmap blast aws_security_group.web --bundle scan.json
  driftmap blast module.network module.dns --bundle rollup.json --cross-repo
  driftmap blast aws_vpc.main --bundle scan.json --edge-types depends_on,module_call`,
	Args: cobra.MinimumNArgs(1),
	Run:  runBlast,
}

func init() {
	blastCmd.Flags().IntVar(&blastDepth, "depth", 5,
		"Maximum hops from a source node")
	blastCmd.Flags().StringSliceVar(&blastEdgeTypes, "edge-types", nil,
		"Restrict traversal to these edge types")
	blastCmd.Flags().BoolVar(&blastDirectOnly, "direct", false,
		"Only report direct (one hop) impact")
	blastCmd.Flags().BoolVar(&blastCrossRepo, "cross-repo", false,
		"Report impact in repositories other than the sources'")

	rootCmd.AddCommand(blastCmd)
}

// =============================================================================
// COMMAND IMPLEMENTATION
// =============================================================================

func runBlast(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	edgeTypes := make([]model.EdgeType, 0, len(blastEdgeTypes))
	for _, t := range blastEdgeTypes {
		edgeTypes = append(edgeTypes, model.EdgeType(t))
	}

	query := blast.Query{
		NodeIDs:          args,
		MaxDepth:         blastDepth,
		EdgeTypes:        edgeTypes,
		IncludeIndirect:  !blastDirectOnly,
		IncludeCrossRepo: blastCrossRepo,
	}

	result, err := s.blaster.Analyze(ctx, s.tenantID, s.executionID, query)
	if err != nil {
		fail("blast radius analysis", err)
	}

	if jsonOutput {
		outputJSON(result)
		return
	}

	fmt.Printf("Blast radius of %v\n", result.SourceNodeIDs)
	fmt.Printf("Risk:          %s\n", result.RiskLevel)
	fmt.Printf("Impact score:  %.2f\n", result.ImpactScore)
	fmt.Printf("Impacted:      %d\n", result.TotalImpacted)
	if result.Truncated {
		fmt.Println("Warning: traversal truncated, impact may be undercounted")
	}

	fmt.Printf("\nDirect (%d):\n", len(result.Direct))
	for _, n := range result.Direct {
		fmt.Printf("  %7.2f  %s (%s)\n", n.Score, n.Node.ID, n.Node.Type)
	}
	if len(result.Indirect) > 0 {
		fmt.Printf("\nIndirect (%d):\n", len(result.Indirect))
		for _, n := range result.Indirect {
			fmt.Printf("  %7.2f  [depth %d] %s (%s)\n", n.Score, n.Depth, n.Node.ID, n.Node.Type)
		}
	}
	if len(result.CrossRepo) > 0 {
		fmt.Printf("\nCross-repository (%d):\n", len(result.CrossRepo))
		for _, c := range result.CrossRepo {
			repo := c.RepoName
			if repo == "" {
				repo = c.RepoID
			}
			fmt.Printf("  %7.2f  %s  [%s]\n", c.Score, c.NodeID, repo)
		}
	}
}
