// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/DriftMapHQ/driftmap/services/depgraph/graph"
)

// Exit codes for scripting.
const (
	ExitSuccess   = 0
	ExitError     = 1
	ExitNoResults = 2
)

// outputJSON writes v as indented JSON to stdout.
func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		outputError("encoding output", err)
		os.Exit(ExitError)
	}
}

// outputError writes a structured error line to stderr.
func outputError(msg string, err error) {
	fmt.Fprintf(os.Stderr, "Error: %s: %v\n", msg, err)
}

// fail prints the error and exits.
func fail(msg string, err error) {
	outputError(msg, err)
	os.Exit(ExitError)
}

// nodeLine formats one node for text output.
func nodeLine(n *graph.Node) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s)", n.ID, n.Type)
	if n.Location.FilePath != "" {
		fmt.Fprintf(&b, "  %s:%d", n.Location.FilePath, n.Location.StartLine)
	}
	return b.String()
}

// printNodeList writes a header and one line per node.
func printNodeList(header string, nodes []*graph.Node) {
	fmt.Printf("%s (%d):\n", header, len(nodes))
	for _, n := range nodes {
		fmt.Printf("  %s\n", nodeLine(n))
	}
}

// pathString joins a path's node ids with arrows.
func pathString(p *graph.Path) string {
	ids := make([]string, len(p.Nodes))
	for i, n := range p.Nodes {
		ids[i] = n.ID
	}
	return strings.Join(ids, " -> ")
}
