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

import (
	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/registry"
)

// Resolver resolves a remote interface name to a provider.
//
// *registry.Registry implements Resolver.
type Resolver interface {
	Resolve(name string) (registry.Binding, bool)
	ResolveTagged(name, version, group string) (registry.Binding, bool)
}

// Entry is an externally reachable method that starts a chain.
type Entry struct {
	Method *model.Method
	Class  *model.Class

	// Route is the rendered HTTP route, e.g. "GET /api/users/{id}".
	Route string
}

// target is the method a call edge leads to, with its owners.
type target struct {
	method    *model.Method
	classID   string
	serviceID string
}
