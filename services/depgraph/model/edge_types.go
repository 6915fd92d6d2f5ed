// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

// EdgeType identifies the kind of dependency relationship an edge carries.
//
// Multiple edges of the same type between the same node pair are allowed;
// each represents a distinct reference site and contributes independently
// to blast radius scoring.
type EdgeType string

// Terraform relationship kinds.
const (
	EdgeTypeDependsOn       EdgeType = "depends_on"
	EdgeTypeModuleCall      EdgeType = "module_call"
	EdgeTypeModuleOutput    EdgeType = "module_output"
	EdgeTypeResourceRef     EdgeType = "resource_ref"
	EdgeTypeAttributeRef    EdgeType = "attribute_ref"
	EdgeTypeVariableRef     EdgeType = "variable_ref"
	EdgeTypeLocalRef        EdgeType = "local_ref"
	EdgeTypeOutputRef       EdgeType = "output_ref"
	EdgeTypeDataSourceRef   EdgeType = "data_source_ref"
	EdgeTypeProviderInherit EdgeType = "provider_inherit"
	EdgeTypeRemoteState     EdgeType = "remote_state"
	EdgeTypeCountRef        EdgeType = "count_ref"
	EdgeTypeForEachRef      EdgeType = "for_each_ref"
	EdgeTypeProvisionerRef  EdgeType = "provisioner_ref"
	EdgeTypeBackendRef      EdgeType = "backend_ref"
)

// Kubernetes relationship kinds.
const (
	EdgeTypeK8sSelector       EdgeType = "k8s_selector"
	EdgeTypeK8sVolumeRef      EdgeType = "k8s_volume_ref"
	EdgeTypeK8sEnvRef         EdgeType = "k8s_env_ref"
	EdgeTypeK8sServiceAccount EdgeType = "k8s_service_account_ref"
	EdgeTypeK8sIngressBackend EdgeType = "k8s_ingress_backend"
	EdgeTypeK8sOwnerRef       EdgeType = "k8s_owner_ref"
)

// Helm relationship kinds.
const (
	EdgeTypeHelmValueRef    EdgeType = "helm_value_ref"
	EdgeTypeHelmSubchartDep EdgeType = "helm_subchart_dep"
)

// knownEdgeTypes is the set of all recognized edge types.
var knownEdgeTypes = map[EdgeType]struct{}{
	EdgeTypeDependsOn:         {},
	EdgeTypeModuleCall:        {},
	EdgeTypeModuleOutput:      {},
	EdgeTypeResourceRef:       {},
	EdgeTypeAttributeRef:      {},
	EdgeTypeVariableRef:       {},
	EdgeTypeLocalRef:          {},
	EdgeTypeOutputRef:         {},
	EdgeTypeDataSourceRef:     {},
	EdgeTypeProviderInherit:   {},
	EdgeTypeRemoteState:       {},
	EdgeTypeCountRef:          {},
	EdgeTypeForEachRef:        {},
	EdgeTypeProvisionerRef:    {},
	EdgeTypeBackendRef:        {},
	EdgeTypeK8sSelector:       {},
	EdgeTypeK8sVolumeRef:      {},
	EdgeTypeK8sEnvRef:         {},
	EdgeTypeK8sServiceAccount: {},
	EdgeTypeK8sIngressBackend: {},
	EdgeTypeK8sOwnerRef:       {},
	EdgeTypeHelmValueRef:      {},
	EdgeTypeHelmSubchartDep:   {},
}

// Valid reports whether t is a recognized edge type.
func (t EdgeType) Valid() bool {
	_, ok := knownEdgeTypes[t]
	return ok
}

// String returns the string representation of the edge type.
func (t EdgeType) String() string {
	return string(t)
}
