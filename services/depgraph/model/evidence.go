// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

// EvidenceCategory groups evidence types by how the relationship was
// detected. The scoring engine weights categories differently.
type EvidenceCategory string

const (
	// EvidenceCategoryExplicit covers syntactically declared relationships
	// (depends_on, module source). Highest trust.
	EvidenceCategoryExplicit EvidenceCategory = "explicit"

	// EvidenceCategorySemantic covers relationships derived from resolved
	// expressions and attribute references.
	EvidenceCategorySemantic EvidenceCategory = "semantic"

	// EvidenceCategoryStructural covers relationships implied by document
	// structure (nesting, file layout, chart hierarchy).
	EvidenceCategoryStructural EvidenceCategory = "structural"

	// EvidenceCategoryPattern covers relationships matched by known naming
	// or labeling conventions.
	EvidenceCategoryPattern EvidenceCategory = "pattern"

	// EvidenceCategoryHeuristic covers best-guess relationships (string
	// similarity, co-location). Lowest trust.
	EvidenceCategoryHeuristic EvidenceCategory = "heuristic"
)

// EvidenceType identifies the specific signal that supports an edge.
type EvidenceType string

// Explicit evidence.
const (
	EvidenceTypeDependsOnDecl    EvidenceType = "depends_on_declaration"
	EvidenceTypeModuleSource     EvidenceType = "module_source"
	EvidenceTypeProviderConfig   EvidenceType = "provider_config"
	EvidenceTypeExplicitOwnerRef EvidenceType = "explicit_owner_ref"
)

// Semantic evidence.
const (
	EvidenceTypeAttributeRef   EvidenceType = "attribute_reference"
	EvidenceTypeInterpolation  EvidenceType = "interpolation"
	EvidenceTypeVariableUsage  EvidenceType = "variable_usage"
	EvidenceTypeOutputUsage    EvidenceType = "output_usage"
	EvidenceTypeRemoteStateRef EvidenceType = "remote_state_reference"
)

// Structural evidence.
const (
	EvidenceTypeBlockNesting  EvidenceType = "block_nesting"
	EvidenceTypeFileLayout    EvidenceType = "file_layout"
	EvidenceTypeChartLineage  EvidenceType = "chart_lineage"
	EvidenceTypeNamespaceCo   EvidenceType = "namespace_colocation"
	EvidenceTypeIncludeChain  EvidenceType = "include_chain"
)

// Pattern evidence.
const (
	EvidenceTypeLabelSelector EvidenceType = "label_selector_match"
	EvidenceTypeNameConv     EvidenceType = "naming_convention"
)

// Heuristic evidence.
const (
	EvidenceTypeNameSimilarity EvidenceType = "name_similarity"
	EvidenceTypeTypeAffinity   EvidenceType = "type_affinity"
	EvidenceTypeProximity      EvidenceType = "proximity"
)

// evidenceCategories maps each evidence type to its category.
var evidenceCategories = map[EvidenceType]EvidenceCategory{
	EvidenceTypeDependsOnDecl:    EvidenceCategoryExplicit,
	EvidenceTypeModuleSource:     EvidenceCategoryExplicit,
	EvidenceTypeProviderConfig:   EvidenceCategoryExplicit,
	EvidenceTypeExplicitOwnerRef: EvidenceCategoryExplicit,
	EvidenceTypeAttributeRef:     EvidenceCategorySemantic,
	EvidenceTypeInterpolation:    EvidenceCategorySemantic,
	EvidenceTypeVariableUsage:    EvidenceCategorySemantic,
	EvidenceTypeOutputUsage:      EvidenceCategorySemantic,
	EvidenceTypeRemoteStateRef:   EvidenceCategorySemantic,
	EvidenceTypeBlockNesting:     EvidenceCategoryStructural,
	EvidenceTypeFileLayout:       EvidenceCategoryStructural,
	EvidenceTypeChartLineage:     EvidenceCategoryStructural,
	EvidenceTypeNamespaceCo:      EvidenceCategoryStructural,
	EvidenceTypeIncludeChain:     EvidenceCategoryStructural,
	EvidenceTypeLabelSelector:    EvidenceCategoryPattern,
	EvidenceTypeNameConv:         EvidenceCategoryPattern,
	EvidenceTypeNameSimilarity:   EvidenceCategoryHeuristic,
	EvidenceTypeTypeAffinity:     EvidenceCategoryHeuristic,
	EvidenceTypeProximity:        EvidenceCategoryHeuristic,
}

// Category returns the category for t, or EvidenceCategoryHeuristic when
// the type is unknown (unknown signals get the lowest trust).
func (t EvidenceType) Category() EvidenceCategory {
	if c, ok := evidenceCategories[t]; ok {
		return c
	}
	return EvidenceCategoryHeuristic
}

// Valid reports whether t is a recognized evidence type.
func (t EvidenceType) Valid() bool {
	_, ok := evidenceCategories[t]
	return ok
}

// Evidence is a unit of support for believing an edge exists.
//
// Evidence is immutable: it is produced by parsers and consumed only by
// the scoring engine. The evidence collection, not the derived score, is
// the source of truth for an edge's confidence.
type Evidence struct {
	// Type is the specific detection signal.
	Type EvidenceType `json:"type"`

	// Category is the trust bucket for Type. Producers may leave it empty,
	// in which case it is derived from Type.
	Category EvidenceCategory `json:"category,omitempty"`

	// Confidence is this item's contribution, 0-100.
	Confidence int `json:"confidence"`

	// Location is where the signal was observed.
	Location SourceLocation `json:"location"`

	// CollectionMethod names the parser pass that produced the item.
	CollectionMethod string `json:"collection_method,omitempty"`

	// Raw carries the matched payload (expression text, selector, etc.).
	Raw map[string]any `json:"raw,omitempty"`
}

// EffectiveCategory returns the item's category, deriving it from the
// evidence type when the producer left the field empty.
func (e Evidence) EffectiveCategory() EvidenceCategory {
	if e.Category != "" {
		return e.Category
	}
	return e.Type.Category()
}
