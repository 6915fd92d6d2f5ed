// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package model defines the data contract between the format-specific
// parsers and the dependency-graph engine.
//
// Parsers (Terraform, Terragrunt, Kubernetes, Helm) emit Node, Edge and
// Evidence values per scan. The engine consumes them, assigns confidence
// via the scoring package, and assembles an immutable per-execution graph.
//
// # Ownership Model
//
// Values in this package are plain DTOs. Once handed to the engine they
// MUST NOT be mutated by the producer; the engine does not copy them.
//
// # Serialization
//
// All types carry JSON tags because parsers typically run in a separate
// process and hand results across a process boundary.
package model

// SourceLocation identifies where a construct or relationship is declared
// in the scanned repository.
type SourceLocation struct {
	// FilePath is the path of the file, relative to the repository root.
	FilePath string `json:"file_path"`

	// StartLine is the 1-based line where the construct begins.
	StartLine int `json:"start_line"`

	// EndLine is the 1-based line where the construct ends.
	EndLine int `json:"end_line,omitempty"`

	// StartColumn is the 1-based column where the construct begins.
	StartColumn int `json:"start_column,omitempty"`

	// EndColumn is the 1-based column where the construct ends.
	EndColumn int `json:"end_column,omitempty"`
}

// Node represents a single IaC construct discovered by a parser.
//
// Nodes are created once at graph assembly and are immutable thereafter.
type Node struct {
	// ID is the scan-scoped node identifier, unique within one execution.
	ID string `json:"id"`

	// OriginalID is the stable identifier of the construct across scans
	// (for Terraform, the resource address; for Kubernetes, namespace/kind/name).
	OriginalID string `json:"original_id"`

	// Type is the IaC construct kind.
	Type NodeType `json:"type"`

	// Name is the human-readable construct name.
	Name string `json:"name"`

	// RepoID identifies the repository the construct belongs to. Used by
	// cross-repository blast radius attribution.
	RepoID string `json:"repo_id,omitempty"`

	// Location is where the construct is declared.
	Location SourceLocation `json:"location"`

	// Metadata carries parser-specific attributes (provider, chart version,
	// namespace, etc.).
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Edge represents a directed dependency relationship between two nodes.
//
// Confidence is the only field that may change after graph assembly
// (a re-score from evidence); everything else is immutable.
type Edge struct {
	// ID is the edge identifier, unique within one execution.
	ID string `json:"id"`

	// FromID is the ID of the dependent (source) node.
	FromID string `json:"from_id"`

	// ToID is the ID of the dependency (target) node.
	ToID string `json:"to_id"`

	// Type is the dependency relationship kind.
	Type EdgeType `json:"type"`

	// Confidence is the detection confidence, 0-100.
	Confidence int `json:"confidence"`

	// Implicit is true when the relationship was inferred rather than
	// syntactically declared (e.g. a name match instead of depends_on).
	Implicit bool `json:"implicit"`

	// Label is an optional display label or the referenced attribute.
	Label string `json:"label,omitempty"`

	// Metadata carries parser-specific attributes.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// MergedNode represents a node identity merged across repositories.
//
// Produced by the rollup layer when the same logical construct (for
// example a shared Terraform module) appears in multiple repositories.
// Only used when blast radius analysis spans repositories.
type MergedNode struct {
	// ID is the merged identity, unique within one rollup execution.
	ID string `json:"id"`

	// SourceNodeIDs lists the per-repository node IDs folded into this
	// identity.
	SourceNodeIDs []string `json:"source_node_ids"`

	// SourceRepoIDs lists the repositories contributing a source node,
	// index-aligned with SourceNodeIDs.
	SourceRepoIDs []string `json:"source_repo_ids"`

	// MatchMethod describes how the identities were matched
	// (e.g. "module_source", "remote_state", "name_heuristic").
	MatchMethod string `json:"match_method,omitempty"`

	// MatchConfidence is the 0-100 confidence of the identity match.
	MatchConfidence int `json:"match_confidence,omitempty"`
}
