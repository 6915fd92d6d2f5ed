// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import (
	"time"

	"github.com/DriftMapHQ/driftmap/services/depgraph/model"
)

// Depth and frontier bounds for blast radius traversal.
const (
	// MaxBlastDepth caps how many hops an analysis may traverse.
	MaxBlastDepth = 50

	// DefaultMaxFrontier caps the number of live traversal paths. Dense
	// graphs can otherwise explode combinatorially; when the cap trips
	// the result is marked Truncated rather than failing.
	DefaultMaxFrontier = 100_000

	// DefaultCacheTTL is how long a computed result stays fresh.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultCacheCapacity bounds the number of cached results per engine.
	DefaultCacheCapacity = 1024

	// defaultDecayFactor attenuates edge weight per hop beyond the first.
	defaultDecayFactor = 0.7
)

// RiskLevel classifies the aggregate severity of a blast radius.
type RiskLevel string

const (
	RiskCritical RiskLevel = "critical"
	RiskHigh     RiskLevel = "high"
	RiskMedium   RiskLevel = "medium"
	RiskLow      RiskLevel = "low"
)

// Query describes a blast radius request.
//
// # Description
//
//	NodeIDs are the changed source nodes; analysis fans out from all of
//	them simultaneously. MaxDepth bounds traversal in hops (the first
//	hop from a source is depth 0). EdgeTypes, when non-empty, restricts
//	traversal to those relationship kinds.
type Query struct {
	// NodeIDs are the changed nodes to analyze from. Required.
	NodeIDs []string `json:"node_ids" validate:"required,min=1,dive,required"`

	// MaxDepth bounds traversal in hops. Must be at least 1; values
	// above MaxBlastDepth are clamped.
	MaxDepth int `json:"max_depth" validate:"required,min=1"`

	// EdgeTypes optionally restricts which edge types are traversed.
	// Empty means all types.
	EdgeTypes []model.EdgeType `json:"edge_types,omitempty"`

	// IncludeIndirect controls whether nodes beyond the first hop are
	// traversed and reported. When false analysis stops after depth 0.
	IncludeIndirect bool `json:"include_indirect"`

	// IncludeCrossRepo controls whether impacted nodes in repositories
	// other than the sources' are reported separately.
	IncludeCrossRepo bool `json:"include_cross_repo"`
}

// ImpactedNode is one node reached by the analysis.
type ImpactedNode struct {
	// Node is the impacted graph node.
	Node model.Node `json:"node"`

	// Score is the summed, decayed contribution of every distinct path
	// that reached this node.
	Score float64 `json:"score"`

	// Depth is the hop count at which the node was first reached.
	Depth int `json:"depth"`

	// Path is the node id sequence of the first path that reached this
	// node, source inclusive. Populated for indirect nodes only.
	Path []string `json:"path,omitempty"`
}

// CrossRepoImpact is an impacted node owned by a repository that none
// of the source nodes belong to.
type CrossRepoImpact struct {
	// NodeID is the impacted node.
	NodeID string `json:"node_id"`

	// RepoID identifies the owning repository.
	RepoID string `json:"repo_id"`

	// RepoName is the human-readable repository name when the engine
	// has one registered, otherwise empty.
	RepoName string `json:"repo_name,omitempty"`

	// Score mirrors the node's impact score.
	Score float64 `json:"score"`
}

// Result is a completed blast radius analysis.
type Result struct {
	// ExecutionID identifies the graph the analysis ran against.
	ExecutionID string `json:"execution_id"`

	// SourceNodeIDs echoes the query's node set, sorted.
	SourceNodeIDs []string `json:"source_node_ids"`

	// Direct holds nodes reached in one hop from a source.
	Direct []ImpactedNode `json:"direct"`

	// Indirect holds nodes first reached at depth 1 or deeper.
	Indirect []ImpactedNode `json:"indirect"`

	// CrossRepo holds impacted nodes outside the source repositories.
	// Populated only when the query asked for it.
	CrossRepo []CrossRepoImpact `json:"cross_repo,omitempty"`

	// ImpactScore is the sum of every path contribution in the analysis.
	ImpactScore float64 `json:"impact_score"`

	// TotalImpacted counts distinct impacted nodes.
	TotalImpacted int `json:"total_impacted"`

	// RiskLevel classifies the aggregate severity.
	RiskLevel RiskLevel `json:"risk_level"`

	// Truncated is true when the frontier cap tripped and the result
	// may undercount impact.
	Truncated bool `json:"truncated"`

	// ComputedAt is when the analysis ran. Cached results keep the
	// original timestamp.
	ComputedAt time.Time `json:"computed_at"`
}

// Risk classification thresholds. A result is assigned the most severe
// level whose threshold any of its aggregates meets.
const (
	criticalScore     = 100.0
	criticalImpacted  = 50
	criticalCrossRepo = 10

	highScore     = 50.0
	highImpacted  = 20
	highCrossRepo = 5

	mediumScore     = 20.0
	mediumImpacted  = 5
	mediumCrossRepo = 1
)

// classifyRisk maps aggregate numbers onto a RiskLevel.
func classifyRisk(impactScore float64, totalImpacted, crossRepo int) RiskLevel {
	switch {
	case impactScore >= criticalScore || totalImpacted >= criticalImpacted || crossRepo >= criticalCrossRepo:
		return RiskCritical
	case impactScore >= highScore || totalImpacted >= highImpacted || crossRepo >= highCrossRepo:
		return RiskHigh
	case impactScore >= mediumScore || totalImpacted >= mediumImpacted || crossRepo >= mediumCrossRepo:
		return RiskMedium
	default:
		return RiskLow
	}
}
