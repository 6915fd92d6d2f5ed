// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package graph

import (
	"context"
	"sort"
	"time"
)

// ConnectedComponents partitions the graph by undirected reachability.
//
// # Description
//
// Every node lands in exactly one component, including isolated nodes as
// singletons. Nodes within a component are ordered by (file, line);
// components are ordered by size descending, then by their first node id
// so output is deterministic.
//
// # Outputs
//
//	[][]*Node - The partition. The component sizes sum to NodeCount.
//	error - A context error when cancelled mid-walk.
func (g *Graph) ConnectedComponents(ctx context.Context) ([][]*Node, error) {
	start := time.Now()

	visited := make(map[string]struct{}, len(g.nodes))
	var components [][]*Node

	// Seed iteration in deterministic node order.
	seeds := g.Nodes()
	processed := 0

	for _, seed := range seeds {
		if _, done := visited[seed.ID]; done {
			continue
		}

		var component []*Node
		frontier := []*Node{seed}
		visited[seed.ID] = struct{}{}

		for len(frontier) > 0 {
			processed++
			if processed%contextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}

			n := frontier[len(frontier)-1]
			frontier = frontier[:len(frontier)-1]
			component = append(component, n)

			for _, e := range n.Outgoing {
				if _, seen := visited[e.ToID]; !seen {
					visited[e.ToID] = struct{}{}
					frontier = append(frontier, g.nodes[e.ToID])
				}
			}
			for _, e := range n.Incoming {
				if _, seen := visited[e.FromID]; !seen {
					visited[e.FromID] = struct{}{}
					frontier = append(frontier, g.nodes[e.FromID])
				}
			}
		}

		sortNodes(component)
		components = append(components, component)
	}

	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) > len(components[j])
		}
		return components[i][0].ID < components[j][0].ID
	})

	recordTraversal("connected_components", time.Since(start), len(components))
	return components, nil
}
