// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package rollup

import "github.com/DriftMapHQ/driftmap/services/depgraph/model"

// Unify rewrites a combined multi-repository node and edge set through
// the merge index, producing a single graph where each merged identity
// appears once.
//
// # Description
//
//	Source nodes folded into the same merged identity collapse into one
//	node carrying the merged id; the first source encountered supplies
//	name, type and location. A collapsed node's RepoID is cleared since
//	the identity spans repositories. Edges are re-pointed through the
//	index; edges that collapse into self-loops are dropped because the
//	relationship they expressed now lives inside one identity.
//
// # Inputs
//
//	idx   - merge index built from the rollup's MergedNode list.
//	nodes - concatenated nodes from every repository in the rollup.
//	edges - concatenated edges, endpoints referring to source node ids.
//
// # Outputs
//
//	Unified node and edge slices, safe to hand to graph assembly. Input
//	slices are not mutated.
func Unify(idx *MergeIndex, nodes []model.Node, edges []model.Edge) ([]model.Node, []model.Edge) {
	outNodes := make([]model.Node, 0, len(nodes))
	seen := make(map[string]struct{}, len(nodes))
	for _, n := range nodes {
		canonical := idx.Resolve(n.ID)
		if _, dup := seen[canonical]; dup {
			continue
		}
		seen[canonical] = struct{}{}
		if canonical != n.ID {
			n.ID = canonical
			n.RepoID = ""
		}
		outNodes = append(outNodes, n)
	}

	outEdges := make([]model.Edge, 0, len(edges))
	for _, e := range edges {
		from := idx.Resolve(e.FromID)
		to := idx.Resolve(e.ToID)
		if from == to {
			continue
		}
		e.FromID = from
		e.ToID = to
		outEdges = append(outEdges, e)
	}
	return outNodes, outEdges
}
