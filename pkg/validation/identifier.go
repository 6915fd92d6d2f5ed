// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package validation provides input validation for identifiers that end
// up in cache keys, log lines and file paths.
//
// Node, execution and tenant ids arrive from external scan bundles.
// Validating them at the boundary keeps control characters out of the
// engine's composite cache keys and prevents path traversal when an id
// is used to name an artifact on disk.
package validation

import (
	"fmt"
	"regexp"
	"strings"
)

// maxIdentifierLen bounds any single identifier.
const maxIdentifierLen = 512

// identifierPattern matches scan identifiers: Terraform addresses
// (aws_instance.web, module.net.aws_vpc.main["a"]), Kubernetes ids
// (ns/Deployment/web), UUIDs and repo slugs. Control characters and
// whitespace are excluded.
var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._/\-:#%@\[\]"]*$`)

// ValidateID validates a node, edge or execution identifier.
//
// Returns an error when the id is empty, too long, or contains
// characters outside the scan identifier alphabet.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(id) > maxIdentifierLen {
		return fmt.Errorf("identifier exceeds %d characters", maxIdentifierLen)
	}
	if !identifierPattern.MatchString(id) {
		return fmt.Errorf("invalid identifier %q", id)
	}
	return nil
}

// ValidateIDs validates a batch and reports every invalid id at once,
// so a caller fixing a bundle sees the full damage in one pass.
func ValidateIDs(ids []string) error {
	var invalid []string
	for _, id := range ids {
		if err := ValidateID(id); err != nil {
			invalid = append(invalid, id)
		}
	}
	if len(invalid) > 0 {
		return fmt.Errorf("invalid identifiers: %v", invalid)
	}
	return nil
}

// tenantPattern is stricter than identifierPattern: tenant ids name
// isolation domains and appear in metric labels.
var tenantPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9\-]{0,62}$`)

// SanitizeTenantID normalizes and validates a tenant id. Returns the
// lowercase tenant id if valid.
func SanitizeTenantID(tenantID string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(tenantID))
	if normalized == "" {
		return "", fmt.Errorf("tenant id cannot be empty")
	}
	if !tenantPattern.MatchString(normalized) {
		return "", fmt.Errorf("invalid tenant id %q (lowercase alphanumeric and hyphens, max 63 chars)", tenantID)
	}
	return normalized, nil
}
