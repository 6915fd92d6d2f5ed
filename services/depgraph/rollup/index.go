// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package rollup folds per-repository node identities into merged
// cross-repository identities so blast radius analysis can follow a
// shared construct (a Terraform module, a remote state output) across
// repository boundaries.
package rollup

import (
	"errors"
	"fmt"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// Sentinel errors for merge index construction.
var (
	// ErrDuplicateMergedID is returned when two merged nodes share an id.
	ErrDuplicateMergedID = errors.New("duplicate merged node id")

	// ErrConflictingSource is returned when a source node is claimed by
	// more than one merged identity.
	ErrConflictingSource = errors.New("source node claimed by multiple merged identities")

	// ErrMalformedMergedNode is returned for structurally invalid input.
	ErrMalformedMergedNode = errors.New("malformed merged node")
)

// MinMatchConfidence is the default match confidence below which a
// merged identity is ignored rather than folded.
const MinMatchConfidence = 70

// MergeIndex resolves per-repository source node ids to their merged
// cross-repository identity.
//
// # Thread Safety
//
//	Immutable after construction; safe for concurrent reads.
type MergeIndex struct {
	byMergedID map[string]model.MergedNode
	bySourceID map[string]string // source node id -> merged id
}

// IndexOptions configures merge index construction.
type IndexOptions struct {
	// MinMatchConfidence drops merged identities matched below this
	// confidence. Default: MinMatchConfidence.
	MinMatchConfidence int
}

// IndexOption is a functional option for NewMergeIndex.
type IndexOption func(*IndexOptions)

// WithMinMatchConfidence sets the confidence floor for accepting a
// merged identity (0 accepts everything).
func WithMinMatchConfidence(min int) IndexOption {
	return func(o *IndexOptions) {
		if min >= 0 {
			o.MinMatchConfidence = min
		}
	}
}

// NewMergeIndex builds an index from rollup output. Merged nodes whose
// match confidence is below the floor are skipped; structural conflicts
// are errors because silently picking a winner would misattribute
// blast radius.
func NewMergeIndex(merged []model.MergedNode, opts ...IndexOption) (*MergeIndex, error) {
	o := IndexOptions{MinMatchConfidence: MinMatchConfidence}
	for _, opt := range opts {
		opt(&o)
	}

	idx := &MergeIndex{
		byMergedID: make(map[string]model.MergedNode, len(merged)),
		bySourceID: make(map[string]string),
	}
	for _, m := range merged {
		if m.ID == "" || len(m.SourceNodeIDs) == 0 {
			return nil, fmt.Errorf("%w: id %q with %d sources", ErrMalformedMergedNode, m.ID, len(m.SourceNodeIDs))
		}
		if len(m.SourceRepoIDs) != 0 && len(m.SourceRepoIDs) != len(m.SourceNodeIDs) {
			return nil, fmt.Errorf("%w: id %q repo list not aligned with source list", ErrMalformedMergedNode, m.ID)
		}
		if m.MatchConfidence < o.MinMatchConfidence {
			continue
		}
		if _, dup := idx.byMergedID[m.ID]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateMergedID, m.ID)
		}
		idx.byMergedID[m.ID] = m
		for _, src := range m.SourceNodeIDs {
			if prev, claimed := idx.bySourceID[src]; claimed {
				return nil, fmt.Errorf("%w: node %q claimed by %q and %q", ErrConflictingSource, src, prev, m.ID)
			}
			idx.bySourceID[src] = m.ID
		}
	}
	return idx, nil
}

// Resolve maps a source node id to its merged identity. Unmerged nodes
// resolve to themselves.
func (idx *MergeIndex) Resolve(nodeID string) string {
	if merged, ok := idx.bySourceID[nodeID]; ok {
		return merged
	}
	return nodeID
}

// Merged reports whether a node id is a known merged identity.
func (idx *MergeIndex) Merged(id string) (model.MergedNode, bool) {
	m, ok := idx.byMergedID[id]
	return m, ok
}

// SourceIDs returns the per-repository node ids folded into a merged
// identity, or nil when the id is not merged.
func (idx *MergeIndex) SourceIDs(mergedID string) []string {
	m, ok := idx.byMergedID[mergedID]
	if !ok {
		return nil
	}
	out := make([]string, len(m.SourceNodeIDs))
	copy(out, m.SourceNodeIDs)
	return out
}

// Repos returns the repositories contributing to a merged identity.
func (idx *MergeIndex) Repos(mergedID string) []string {
	m, ok := idx.byMergedID[mergedID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(m.SourceRepoIDs))
	seen := make(map[string]struct{}, len(m.SourceRepoIDs))
	for _, repo := range m.SourceRepoIDs {
		if _, dup := seen[repo]; dup {
			continue
		}
		seen[repo] = struct{}{}
		out = append(out, repo)
	}
	return out
}

// Len returns the number of merged identities in the index.
func (idx *MergeIndex) Len() int {
	return len(idx.byMergedID)
}
