// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package blast

import "github.com/DriftMapHQ/driftmap/services/depgraph/model"

// DefaultEdgeWeight is used for edge types absent from the weight table.
const DefaultEdgeWeight = 5.0

// WeightTable maps edge types to base impact weights. Heavier weights
// mean a change propagates more strongly across that relationship.
type WeightTable map[model.EdgeType]float64

// DefaultWeights returns the standard weight table. Explicit dependency
// declarations carry the most weight, soft references the least.
func DefaultWeights() WeightTable {
	return WeightTable{
		model.EdgeTypeDependsOn:         10,
		model.EdgeTypeModuleCall:        9,
		model.EdgeTypeResourceRef:       8,
		model.EdgeTypeRemoteState:       8,
		model.EdgeTypeModuleOutput:      7,
		model.EdgeTypeOutputRef:         7,
		model.EdgeTypeDataSourceRef:     6,
		model.EdgeTypeAttributeRef:      6,
		model.EdgeTypeVariableRef:       5,
		model.EdgeTypeProvisionerRef:    5,
		model.EdgeTypeBackendRef:        5,
		model.EdgeTypeLocalRef:          4,
		model.EdgeTypeCountRef:          4,
		model.EdgeTypeForEachRef:        4,
		model.EdgeTypeProviderInherit:   4,
		model.EdgeTypeK8sOwnerRef:       8,
		model.EdgeTypeK8sSelector:       7,
		model.EdgeTypeK8sVolumeRef:      6,
		model.EdgeTypeK8sEnvRef:         6,
		model.EdgeTypeK8sIngressBackend: 6,
		model.EdgeTypeK8sServiceAccount: 5,
		model.EdgeTypeHelmSubchartDep:   7,
		model.EdgeTypeHelmValueRef:      5,
	}
}

// Weight returns the base weight for an edge type, falling back to
// DefaultEdgeWeight for unlisted types.
func (w WeightTable) Weight(t model.EdgeType) float64 {
	if v, ok := w[t]; ok {
		return v
	}
	return DefaultEdgeWeight
}
