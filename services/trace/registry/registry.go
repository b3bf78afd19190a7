// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package registry maps remote interface names to the provider classes that
// implement them.
//
// Providers are matched by naming convention only: a provider class named
// FooImpl in package x.impl implements interface x.Foo. The registry is an
// explicit instance built once per analysis run and handed to the chain
// builder.
package registry

import (
	"context"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/store"
)

const (
	// implSuffix is stripped from a provider class name to get the
	// interface name.
	implSuffix = "Impl"

	// implPackage is stripped from a provider package to get the
	// interface package.
	implPackage = ".impl"
)

// Binding is one provider registered for an interface key.
type Binding struct {
	// Interface is the qualified interface name derived from the provider.
	Interface string `json:"interface"`

	// ClassID is the implementing provider class.
	ClassID string `json:"classId"`

	// ClassName is the qualified name of the provider class.
	ClassName string `json:"className"`

	// ServiceID is the service that owns the provider.
	ServiceID string `json:"serviceId"`

	Version string `json:"version,omitempty"`
	Group   string `json:"group,omitempty"`
}

// Stats summarizes registry contents.
type Stats struct {
	// InterfaceKeys is the number of distinct lookup keys (qualified and
	// simple names both count).
	InterfaceKeys int `json:"interfaceKeys"`

	// Bindings is the number of registered providers.
	Bindings int `json:"bindings"`
}

// Registry resolves remote interface names to provider classes.
//
// Thread Safety: Safe for concurrent use. Resolution takes a read lock only,
// so concurrent chain builders do not contend.
type Registry struct {
	mu       sync.RWMutex
	bindings map[string][]Binding
	count    int
	logger   *slog.Logger
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger for ambiguity warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		bindings: make(map[string][]Binding),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Build registers every RemoteProvider class of s in store order and
// returns the number of providers registered.
func (r *Registry) Build(ctx context.Context, s *store.Store) int {
	_, span := startBuildSpan(ctx)
	defer span.End()

	n := 0
	for _, cls := range s.Classes() {
		if cls.Role != model.RoleRemoteProvider {
			continue
		}
		if r.Register(cls) {
			n++
		} else {
			r.logger.Debug("provider not registered, name lacks Impl suffix",
				slog.String("class", cls.QualifiedName),
			)
		}
	}

	setBuildSpanResult(span, n)
	return n
}

// Register adds cls under its derived interface names.
//
// Description:
//
//	The interface simple name is the class name without the "Impl" suffix.
//	The interface package is the class package without a trailing ".impl"
//	segment. The binding is stored under "<package>.<Interface>" and under
//	"<Interface>". Classes without the suffix are not registered.
//
// Outputs:
//   - bool: True when the class was registered.
func (r *Registry) Register(cls *model.Class) bool {
	if cls == nil {
		return false
	}
	iface, ok := strings.CutSuffix(cls.ClassName, implSuffix)
	if !ok || iface == "" {
		return false
	}

	pkg := strings.TrimSuffix(cls.PackageName, implPackage)
	qualified := iface
	if pkg != "" {
		qualified = pkg + "." + iface
	}

	b := Binding{
		Interface: qualified,
		ClassID:   cls.ID,
		ClassName: cls.QualifiedName,
		ServiceID: cls.ServiceID,
		Version:   cls.Version,
		Group:     cls.Group,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings[qualified] = append(r.bindings[qualified], b)
	if qualified != iface {
		r.bindings[iface] = append(r.bindings[iface], b)
	}
	r.count++
	return true
}

// Resolve returns the first provider registered under name.
//
// A miss returns ok=false. When several providers share the key, the first
// registered wins and a warning is logged.
func (r *Registry) Resolve(name string) (Binding, bool) {
	r.mu.RLock()
	candidates := r.bindings[name]
	r.mu.RUnlock()

	switch len(candidates) {
	case 0:
		recordResolution(outcomeMiss)
		return Binding{}, false
	case 1:
		recordResolution(outcomeHit)
		return candidates[0], true
	}

	recordResolution(outcomeAmbiguous)
	r.logger.Warn("multiple providers for interface, using first",
		slog.String("interface", name),
		slog.Int("candidates", len(candidates)),
		slog.String("chosen", candidates[0].ClassName),
	)
	return candidates[0], true
}

// ResolveTagged prefers the first provider whose version and group match.
//
// An empty requested tag matches any provider tag. Without a matching
// provider it falls back to Resolve.
func (r *Registry) ResolveTagged(name, version, group string) (Binding, bool) {
	if version == "" && group == "" {
		return r.Resolve(name)
	}

	r.mu.RLock()
	candidates := r.bindings[name]
	r.mu.RUnlock()

	for _, b := range candidates {
		if (version == "" || b.Version == version) && (group == "" || b.Group == group) {
			recordResolution(outcomeHit)
			return b, true
		}
	}
	return r.Resolve(name)
}

// Stats returns key and binding counts.
func (r *Registry) Stats() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return Stats{InterfaceKeys: len(r.bindings), Bindings: r.count}
}

// Interfaces returns all lookup keys, sorted.
func (r *Registry) Interfaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	keys := make([]string, 0, len(r.bindings))
	for k := range r.bindings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Implementations returns every provider registered under name, in
// registration order.
func (r *Registry) Implementations(name string) []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Binding, len(r.bindings[name]))
	copy(out, r.bindings[name])
	return out
}

// Clear removes every binding.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bindings = make(map[string][]Binding)
	r.count = 0
}
