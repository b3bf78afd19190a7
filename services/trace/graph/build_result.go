// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package graph

import "github.com/AleutianAI/callchain/services/trace/model"

// BuildStats contains statistics about a chain build.
type BuildStats struct {
	// EntryPoints is the number of entry methods discovered.
	EntryPoints int

	// Chains is the number of chains that stay within one service.
	Chains int

	// CrossServiceChains is the number of chains spanning services.
	CrossServiceChains int

	// RemoteResolved is the number of remote hops resolved to a provider
	// method.
	RemoteResolved int

	// RemoteUnresolved is the number of remote edges skipped because no
	// provider or provider method was found.
	RemoteUnresolved int

	// Truncated is the number of chains that hit the level ceiling or the
	// node budget.
	Truncated int

	// LongestChain is the largest node count among all chains.
	LongestChain int

	// DurationMilli is the total build time in milliseconds.
	DurationMilli int64
}

// Total returns the number of chains built.
func (s BuildStats) Total() int {
	return s.Chains + s.CrossServiceChains
}

// merge adds the per-chain counters of other into s.
func (s *BuildStats) merge(other chainStats) {
	s.RemoteResolved += other.remoteResolved
	s.RemoteUnresolved += other.remoteUnresolved
	if other.truncated {
		s.Truncated++
	}
}

// BuildResult contains the chains of a build, in entry discovery order.
type BuildResult struct {
	Chains []*model.Chain
	Stats  BuildStats
}

// chainStats is collected privately by each traversal.
type chainStats struct {
	remoteResolved   int
	remoteUnresolved int
	truncated        bool
}
