// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/DriftMapHQ/driftmap/services/depgraph/graph"
)

// commandTimeout bounds a single query against a loaded bundle.
const commandTimeout = 60 * time.Second

// =============================================================================
// COMMAND FLAGS
// =============================================================================

var (
	queryDepth    int
	queryAllPaths bool
	fanThreshold  int
	failIfEmpty   bool
)

// =============================================================================
// COMMAND DEFINITIONS
// =============================================================================

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show graph statistics for a scan bundle",
	Long: `Show node and edge counts, max dependency depth, connected component
count and whether the graph contains cycles.

Examples:
  driftmap stats --bundle scan.json
  driftmap stats --bundle scan.json --json`,
	Args: cobra.NoArgs,
	Run:  runStats,
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Detect circular dependencies",
	Long: `Detect circular dependency chains in the graph.

Cycles are reported shortest first. Terraform rejects true cycles at
plan time, so a cycle here usually means an implicit reference the
parser inferred that Terraform does not see.

Examples:
  driftmap cycles --bundle scan.json
  driftmap cycles --bundle scan.json --fail-if-empty`,
	Args: cobra.NoArgs,
	Run:  runCycles,
}

var componentsCmd = &cobra.Command{
	Use:   "components",
	Short: "List connected components",
	Long: `List weakly connected components, largest first. Isolated nodes form
single-node components.

Examples:
  driftmap components --bundle scan.json --json`,
	Args: cobra.NoArgs,
	Run:  runComponents,
}

var downstreamCmd = &cobra.Command{
	Use:   "downstream NODE",
	Short: "List nodes the given node depends on",
	Long: `List every node reachable by following dependency edges from NODE,
up to --depth hops.

Examples:
  driftmap downstream aws_instance.web --bundle scan.json
  driftmap downstream module.network --bundle scan.json --depth 2`,
	Args: cobra.ExactArgs(1),
	Run:  runDownstream,
}

var upstreamCmd = &cobra.Command{
	Use:   "upstream NODE",
	Short: "List nodes that depend on the given node",
	Long: `List every node that transitively depends on NODE, up to --depth hops.

Examples:
  driftmap upstream aws_vpc.main --bundle scan.json
  driftmap upstream aws_vpc.main --bundle scan.json --depth 1`,
	Args: cobra.ExactArgs(1),
	Run:  runUpstream,
}

var pathCmd = &cobra.Command{
	Use:   "path FROM TO",
	Short: "Find dependency paths between two nodes",
	Long: `Find the shortest dependency path from FROM to TO, or all simple
paths with --all.

Examples:
  driftmap path aws_instance.web aws_vpc.main --bundle scan.json
  driftmap path module.app module.network --bundle scan.json --all`,
	Args: cobra.ExactArgs(2),
	Run:  runPath,
}

var impactCmd = &cobra.Command{
	Use:   "impact NODE",
	Short: "Analyze what breaks when a node changes",
	Long: `List the direct and transitive dependents of NODE with the depth at
which each is affected, plus the edges along which the change travels.

Examples:
  driftmap impact aws_security_group.web --bundle scan.json
  driftmap impact aws_vpc.main --bundle scan.json --depth 4 --json`,
	Args: cobra.ExactArgs(1),
	Run:  runImpact,
}

var fanoutCmd = &cobra.Command{
	Use:   "fanout",
	Short: "List nodes with many outgoing dependencies",
	Args:  cobra.NoArgs,
	Run:   runFanOut,
}

var faninCmd = &cobra.Command{
	Use:   "fanin",
	Short: "List heavily depended-on nodes",
	Long: `List nodes whose incoming edge count meets --threshold. High fan-in
nodes are the estate's load-bearing infrastructure.

Examples:
  driftmap fanin --bundle scan.json --threshold 10`,
	Args: cobra.NoArgs,
	Run:  runFanIn,
}

// =============================================================================
// COMMAND INITIALIZATION
// =============================================================================

func init() {
	downstreamCmd.Flags().IntVar(&queryDepth, "depth", 10,
		"Maximum traversal depth")
	upstreamCmd.Flags().IntVar(&queryDepth, "depth", 10,
		"Maximum traversal depth")
	impactCmd.Flags().IntVar(&queryDepth, "depth", 10,
		"Maximum traversal depth")
	pathCmd.Flags().BoolVar(&queryAllPaths, "all", false,
		"Find all simple paths, not just the shortest")
	pathCmd.Flags().IntVar(&queryDepth, "depth", 10,
		"Maximum path length for --all")
	fanoutCmd.Flags().IntVar(&fanThreshold, "threshold", 10,
		"Minimum outgoing edge count")
	faninCmd.Flags().IntVar(&fanThreshold, "threshold", 10,
		"Minimum incoming edge count")
	cyclesCmd.Flags().BoolVar(&failIfEmpty, "fail-if-empty", false,
		"Exit with code 2 when no cycles are found")

	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(cyclesCmd)
	rootCmd.AddCommand(componentsCmd)
	rootCmd.AddCommand(downstreamCmd)
	rootCmd.AddCommand(upstreamCmd)
	rootCmd.AddCommand(pathCmd)
	rootCmd.AddCommand(impactCmd)
	rootCmd.AddCommand(fanoutCmd)
	rootCmd.AddCommand(faninCmd)
}

// commandContext returns the bounded context and session every query
// command starts from.
func commandContext() (context.Context, context.CancelFunc, *session) {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	s, err := buildSession(ctx)
	if err != nil {
		cancel()
		fail("loading scan bundle", err)
	}
	return ctx, cancel, s
}

// =============================================================================
// COMMAND IMPLEMENTATIONS
// =============================================================================

func runStats(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	stats, err := s.graphs.Statistics(ctx, s.tenantID, s.executionID)
	if err != nil {
		fail("computing statistics", err)
	}

	if jsonOutput {
		outputJSON(stats)
		return
	}
	fmt.Printf("Nodes:       %d\n", stats.NodeCount)
	fmt.Printf("Edges:       %d\n", stats.EdgeCount)
	fmt.Printf("Max depth:   %d\n", stats.MaxDepth)
	fmt.Printf("Components:  %d\n", stats.ComponentCount)
	fmt.Printf("Has cycles:  %t\n", stats.HasCycles)
}

func runCycles(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	result, err := s.graphs.DetectCycles(ctx, s.tenantID, s.executionID)
	if err != nil {
		fail("detecting cycles", err)
	}

	if failIfEmpty && len(result.Cycles) == 0 {
		fmt.Println("No cycles found")
		os.Exit(ExitNoResults)
	}
	if jsonOutput {
		outputJSON(result)
		return
	}
	if len(result.Cycles) == 0 {
		fmt.Println("No cycles found")
		return
	}
	fmt.Printf("Cycles (%d):\n", len(result.Cycles))
	for _, c := range result.Cycles {
		ids := make([]string, 0, len(c.Nodes)+1)
		for _, n := range c.Nodes {
			ids = append(ids, n.ID)
		}
		ids = append(ids, c.Nodes[0].ID)
		fmt.Printf("  [%d] %s\n", c.Length, joinArrow(ids))
	}
	if result.Truncated {
		fmt.Println("  (truncated)")
	}
}

func runComponents(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	components, err := s.graphs.ConnectedComponents(ctx, s.tenantID, s.executionID)
	if err != nil {
		fail("computing components", err)
	}

	if jsonOutput {
		outputJSON(components)
		return
	}
	fmt.Printf("Components (%d):\n", len(components))
	for i, comp := range components {
		fmt.Printf("  #%d: %d nodes", i+1, len(comp))
		if len(comp) > 0 {
			fmt.Printf(" (e.g. %s)", comp[0].ID)
		}
		fmt.Println()
	}
}

func runDownstream(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	nodes, err := s.graphs.Downstream(ctx, s.tenantID, s.executionID, args[0], queryDepth)
	if err != nil {
		fail("downstream query", err)
	}

	if jsonOutput {
		outputJSON(nodes)
		return
	}
	printNodeList(fmt.Sprintf("Dependencies of %s", args[0]), nodes)
}

func runUpstream(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	nodes, err := s.graphs.Upstream(ctx, s.tenantID, s.executionID, args[0], queryDepth)
	if err != nil {
		fail("upstream query", err)
	}

	if jsonOutput {
		outputJSON(nodes)
		return
	}
	printNodeList(fmt.Sprintf("Dependents of %s", args[0]), nodes)
}

func runPath(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	if queryAllPaths {
		result, err := s.graphs.AllPaths(ctx, s.tenantID, s.executionID, args[0], args[1], queryDepth)
		if err != nil {
			fail("path query", err)
		}
		if jsonOutput {
			outputJSON(result)
			return
		}
		fmt.Printf("Paths from %s to %s (%d):\n", args[0], args[1], len(result.Paths))
		for _, p := range result.Paths {
			fmt.Printf("  [%d] %s\n", p.Length, pathString(&p))
		}
		if result.Truncated {
			fmt.Println("  (truncated)")
		}
		return
	}

	path, err := s.graphs.ShortestPath(ctx, s.tenantID, s.executionID, args[0], args[1])
	if err != nil {
		if errors.Is(err, graph.ErrNoPath) {
			fmt.Printf("No path from %s to %s\n", args[0], args[1])
			os.Exit(ExitNoResults)
		}
		fail("path query", err)
	}
	if jsonOutput {
		outputJSON(path)
		return
	}
	fmt.Printf("[%d] %s\n", path.Length, pathString(path))
}

func runImpact(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	analysis, err := s.graphs.AnalyzeImpact(ctx, s.tenantID, s.executionID, args[0], queryDepth)
	if err != nil {
		fail("impact analysis", err)
	}

	if jsonOutput {
		outputJSON(analysis)
		return
	}
	printNodeList("Directly affected", analysis.Direct)
	fmt.Printf("Transitively affected (%d):\n", len(analysis.Transitive))
	for _, t := range analysis.Transitive {
		fmt.Printf("  [depth %d] %s\n", t.Depth, nodeLine(t.Node))
	}
	fmt.Printf("Edges involved: %d\n", len(analysis.ImpactedEdges))
}

func runFanOut(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	entries, err := s.graphs.HighFanOut(ctx, s.tenantID, s.executionID, fanThreshold)
	if err != nil {
		fail("fan-out query", err)
	}
	printFanEntries("High fan-out", entries)
}

func runFanIn(cmd *cobra.Command, args []string) {
	ctx, cancel, s := commandContext()
	defer cancel()

	entries, err := s.graphs.HighFanIn(ctx, s.tenantID, s.executionID, fanThreshold)
	if err != nil {
		fail("fan-in query", err)
	}
	printFanEntries("High fan-in", entries)
}

func printFanEntries(header string, entries []graph.FanEntry) {
	if jsonOutput {
		outputJSON(entries)
		return
	}
	fmt.Printf("%s (%d):\n", header, len(entries))
	for _, e := range entries {
		fmt.Printf("  %4d  %s\n", e.Count, nodeLine(e.Node))
	}
}

func joinArrow(ids []string) string {
	out := ""
	for i, id := range ids {
		if i > 0 {
			out += " -> "
		}
		out += id
	}
	return out
}
