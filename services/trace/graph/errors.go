// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package graph builds end-to-end call chains over a completed store.
//
// # Lifecycle
//
// Chain construction is the second phase of an analysis run:
//  1. The analyzer fills the store with every service, class, method and
//     call edge, and links local call targets.
//  2. The registry is built from the provider classes.
//  3. Builder.Build discovers entry points and walks each one.
//
// # Traversal Guarantees
//
// Each chain has its own visited set, so no chain repeats a method. A chain
// never goes deeper than MaxLevel levels below its entry and never holds
// more than MaxLevel+1 nodes. Traversal has no cancellation; it is bounded
// by those limits alone.
//
// # Thread Safety
//
// Builder is safe for concurrent use. Chains are built in parallel against
// a store that is only read.
package graph

import "errors"

// Sentinel errors for chain building.
var (
	// ErrNilStore is returned when Build is called without a store.
	ErrNilStore = errors.New("nil store")

	// ErrNilResolver is returned when a Builder has no interface resolver.
	ErrNilResolver = errors.New("nil interface resolver")
)
