// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"context"
	"log/slog"
	"strings"

	"github.com/AleutianAI/callchain/services/trace/ast"
	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/store"
)

// LinkStats counts the outcome of a Link pass.
type LinkStats struct {
	// Resolved is the number of local edges that received a target.
	Resolved int

	// Unresolved is the number of local edges left without a target.
	Unresolved int
}

// Linker resolves targets of local call edges by name.
//
// Resolution rules, per unresolved CallInternal edge:
//
//  1. No receiver or "this": first method of the caller's class with the
//     callee name.
//  2. Receiver is a non-remote dependency field of the caller's class: the
//     field type's simple name T (generics stripped) selects classes of the
//     same service named T or TImpl, non-interfaces first; the first method
//     with the callee name wins.
//  3. Anything else stays unresolved.
//
// A recursive call resolves to the caller itself.
type Linker struct {
	logger *slog.Logger
}

// NewLinker creates a Linker. A nil logger uses slog.Default().
func NewLinker(logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{logger: logger}
}

// Link fills TargetMethodID on the resolvable local edges of s.
//
// Must run after every class and method is in the store and before chain
// construction. Edges that already have a target are left alone.
func (l *Linker) Link(ctx context.Context, s *store.Store) LinkStats {
	var stats LinkStats

	for i, e := range s.Edges() {
		if i%1000 == 0 && ctx.Err() != nil {
			return stats
		}
		if e.Kind != model.CallInternal || e.IsResolved() {
			continue
		}

		target, ok := l.resolve(s, e)
		if !ok {
			stats.Unresolved++
			continue
		}
		e.TargetMethodID = target.ID
		stats.Resolved++
	}

	l.logger.Debug("local calls linked",
		slog.Int("resolved", stats.Resolved),
		slog.Int("unresolved", stats.Unresolved),
	)
	return stats
}

func (l *Linker) resolve(s *store.Store, e *model.CallEdge) (*model.Method, bool) {
	caller, ok := s.Method(e.SourceMethodID)
	if !ok {
		return nil, false
	}
	cls, ok := s.Class(caller.ClassID)
	if !ok {
		return nil, false
	}

	if e.Receiver == "" || e.Receiver == "this" {
		return s.FindMethod(cls.ID, e.Callee)
	}

	dep, ok := cls.Dependency(e.Receiver)
	if !ok || dep.IsRemote() {
		return nil, false
	}

	typeName := TypeSimpleName(dep.TargetType)
	if typeName == "" {
		return nil, false
	}

	var concrete, abstract []*model.Class
	for _, candidate := range s.ClassesOf(cls.ServiceID) {
		if candidate.ClassName != typeName && candidate.ClassName != typeName+"Impl" {
			continue
		}
		if candidate.Role == model.RoleInterface {
			abstract = append(abstract, candidate)
		} else {
			concrete = append(concrete, candidate)
		}
	}

	for _, candidate := range append(concrete, abstract...) {
		if m, ok := s.FindMethod(candidate.ID, e.Callee); ok {
			return m, true
		}
	}
	return nil, false
}

// TypeSimpleName strips generic arguments, array brackets and any package
// qualifier from Java type text.
//
//	TypeSimpleName("com.acme.Repo<User, Long>") == "Repo"
func TypeSimpleName(typeText string) string {
	s := strings.TrimSpace(typeText)
	if i := strings.IndexByte(s, '<'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSuffix(s, "...")
	for strings.HasSuffix(s, "[]") {
		s = strings.TrimSuffix(s, "[]")
	}
	return ast.SimpleName(strings.TrimSpace(s))
}
