// Copyright (C) 2025 DriftMap Systems (oss@driftmap.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package scoring converts evidence collections into confidence scores.
//
// The engine is a pure evaluator: Calculate never fails and has no side
// effects. Empty input degrades to a zero score with an explanatory
// negative factor. Configuration (category weights, decay, bonuses) and
// custom rule sets are YAML-loadable and hot-reloadable.
package scoring

import "errors"

// Sentinel errors for scoring configuration.
var (
	// ErrConfigTooLarge is returned when a config or rules file exceeds
	// the size limit.
	ErrConfigTooLarge = errors.New("scoring config file too large")

	// ErrInvalidConfig is returned when configuration fails validation.
	ErrInvalidConfig = errors.New("invalid scoring config")

	// ErrWatcherClosed is returned when operating on a closed rule watcher.
	ErrWatcherClosed = errors.New("rule watcher closed")
)
