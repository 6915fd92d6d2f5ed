// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package model

// NodeType identifies the kind of IaC construct a node represents.
type NodeType string

// Terraform construct kinds.
const (
	NodeTypeTerraformResource   NodeType = "terraform_resource"
	NodeTypeTerraformModule     NodeType = "terraform_module"
	NodeTypeTerraformVariable   NodeType = "terraform_variable"
	NodeTypeTerraformOutput     NodeType = "terraform_output"
	NodeTypeTerraformLocal      NodeType = "terraform_local"
	NodeTypeTerraformProvider   NodeType = "terraform_provider"
	NodeTypeTerraformDataSource NodeType = "terraform_data_source"
	NodeTypeTerraformBackend    NodeType = "terraform_backend"
	NodeTypeTerragruntConfig    NodeType = "terragrunt_config"
	NodeTypeTerragruntInclude   NodeType = "terragrunt_include"
)

// Kubernetes construct kinds.
const (
	NodeTypeK8sDeployment     NodeType = "k8s_deployment"
	NodeTypeK8sStatefulSet    NodeType = "k8s_statefulset"
	NodeTypeK8sDaemonSet      NodeType = "k8s_daemonset"
	NodeTypeK8sJob            NodeType = "k8s_job"
	NodeTypeK8sCronJob        NodeType = "k8s_cronjob"
	NodeTypeK8sService        NodeType = "k8s_service"
	NodeTypeK8sIngress        NodeType = "k8s_ingress"
	NodeTypeK8sConfigMap      NodeType = "k8s_configmap"
	NodeTypeK8sSecret         NodeType = "k8s_secret"
	NodeTypeK8sPVC            NodeType = "k8s_persistent_volume_claim"
	NodeTypeK8sNamespace      NodeType = "k8s_namespace"
	NodeTypeK8sServiceAccount NodeType = "k8s_service_account"
	NodeTypeK8sRole           NodeType = "k8s_role"
	NodeTypeK8sRoleBinding    NodeType = "k8s_role_binding"
	NodeTypeK8sHPA            NodeType = "k8s_horizontal_pod_autoscaler"
	NodeTypeK8sNetworkPolicy  NodeType = "k8s_network_policy"
)

// Helm construct kinds.
const (
	NodeTypeHelmChart    NodeType = "helm_chart"
	NodeTypeHelmRelease  NodeType = "helm_release"
	NodeTypeHelmValues   NodeType = "helm_values"
	NodeTypeHelmTemplate NodeType = "helm_template"
	NodeTypeHelmSubchart NodeType = "helm_subchart"
)

// NodeTypeUnknown is the fallback for constructs a parser could not classify.
const NodeTypeUnknown NodeType = "unknown"

// knownNodeTypes is the set of all recognized node types.
var knownNodeTypes = map[NodeType]struct{}{
	NodeTypeTerraformResource:   {},
	NodeTypeTerraformModule:     {},
	NodeTypeTerraformVariable:   {},
	NodeTypeTerraformOutput:     {},
	NodeTypeTerraformLocal:      {},
	NodeTypeTerraformProvider:   {},
	NodeTypeTerraformDataSource: {},
	NodeTypeTerraformBackend:    {},
	NodeTypeTerragruntConfig:    {},
	NodeTypeTerragruntInclude:   {},
	NodeTypeK8sDeployment:       {},
	NodeTypeK8sStatefulSet:      {},
	NodeTypeK8sDaemonSet:        {},
	NodeTypeK8sJob:              {},
	NodeTypeK8sCronJob:          {},
	NodeTypeK8sService:          {},
	NodeTypeK8sIngress:          {},
	NodeTypeK8sConfigMap:        {},
	NodeTypeK8sSecret:           {},
	NodeTypeK8sPVC:              {},
	NodeTypeK8sNamespace:        {},
	NodeTypeK8sServiceAccount:   {},
	NodeTypeK8sRole:             {},
	NodeTypeK8sRoleBinding:      {},
	NodeTypeK8sHPA:              {},
	NodeTypeK8sNetworkPolicy:    {},
	NodeTypeHelmChart:           {},
	NodeTypeHelmRelease:         {},
	NodeTypeHelmValues:          {},
	NodeTypeHelmTemplate:        {},
	NodeTypeHelmSubchart:        {},
	NodeTypeUnknown:             {},
}

// Valid reports whether t is a recognized node type.
func (t NodeType) Valid() bool {
	_, ok := knownNodeTypes[t]
	return ok
}

// String returns the string representation of the node type.
func (t NodeType) String() string {
	if t == "" {
		return string(NodeTypeUnknown)
	}
	return string(t)
}
