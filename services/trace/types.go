// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package callchain

import (
	"strings"

	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/registry"
	"github.com/AleutianAI/callchain/services/trace/store"
)

// HealthResponse is the response for GET /v1/callchain/health.
type HealthResponse struct {
	// Status is "healthy" or "empty" when no result is loaded.
	Status  string `json:"status"`
	Version string `json:"version"`

	Counts          *store.Counts `json:"counts,omitempty"`
	CachedSnapshots int           `json:"cachedSnapshots"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// ServicesResponse is the response for GET /v1/callchain/services.
type ServicesResponse struct {
	Services []ServiceInfo `json:"services"`
}

// ServiceInfo is a service with its class count.
type ServiceInfo struct {
	*model.Service
	Classes int `json:"classCount"`
}

// ClassResponse is the response for GET /v1/callchain/classes/:id.
type ClassResponse struct {
	Class   *model.Class    `json:"class"`
	Service *model.Service  `json:"service,omitempty"`
	Methods []*model.Method `json:"methods"`
}

// MethodResponse is the response for GET /v1/callchain/methods/:id.
type MethodResponse struct {
	Method *model.Method     `json:"method"`
	Class  *model.Class      `json:"class,omitempty"`
	Calls  []*model.CallEdge `json:"calls"`
}

// ChainSummary is one row of the chain listing.
type ChainSummary struct {
	ID           string   `json:"id"`
	Route        string   `json:"httpEndpoint,omitempty"`
	EntryClass   string   `json:"entryClass"`
	EntryMethod  string   `json:"entryMethod"`
	Depth        int      `json:"maxDepth"`
	CrossService bool     `json:"crossService"`
	Services     []string `json:"involvedServices"`
}

// ChainsResponse is the response for GET /v1/callchain/chains.
type ChainsResponse struct {
	Chains []ChainSummary `json:"chains"`
	Total  int            `json:"total"`
}

// ChainStep is a chain node with names resolved.
type ChainStep struct {
	Level       int            `json:"level"`
	Kind        model.CallKind `json:"callType"`
	MethodID    string         `json:"methodId"`
	Method      string         `json:"methodName"`
	Signature   string         `json:"signature,omitempty"`
	ClassID     string         `json:"classId"`
	Class       string         `json:"className"`
	ServiceID   string         `json:"serviceId"`
	Service     string         `json:"serviceName"`
	CrossesInto bool           `json:"crossesService"`
}

// ChainDetail is the response for GET /v1/callchain/chains/:id.
type ChainDetail struct {
	ChainSummary
	Steps []ChainStep `json:"steps"`
}

// RegistryResponse is the response for GET /v1/callchain/registry.
type RegistryResponse struct {
	Stats      registry.Stats   `json:"stats"`
	Interfaces []InterfaceEntry `json:"interfaces"`
}

// InterfaceEntry lists the providers registered under one key.
type InterfaceEntry struct {
	Name      string             `json:"name"`
	Providers []registry.Binding `json:"providers"`
}

// ChainFilter selects chains from a store.
type ChainFilter struct {
	// CrossServiceOnly keeps chains that involve more than one service.
	CrossServiceOnly bool

	// Service keeps chains involving the service with this name or id.
	Service string

	// Limit caps the result. Zero means no limit.
	Limit int
}

// FilterChains returns the chains of s matching f, in store order, and the
// number of matches before the limit was applied.
func FilterChains(s *store.Store, f ChainFilter) ([]*model.Chain, int) {
	serviceID := ""
	if f.Service != "" {
		if svc, ok := s.ServiceByName(f.Service); ok {
			serviceID = svc.ID
		} else {
			serviceID = f.Service
		}
	}

	var out []*model.Chain
	total := 0
	for _, c := range s.Chains() {
		if f.CrossServiceOnly && !c.CrossService {
			continue
		}
		if serviceID != "" && !c.HasService(serviceID) {
			continue
		}
		total++
		if f.Limit > 0 && len(out) >= f.Limit {
			continue
		}
		out = append(out, c)
	}
	return out, total
}

// Summarize resolves the entry names of c.
func Summarize(s *store.Store, c *model.Chain) ChainSummary {
	sum := ChainSummary{
		ID:           c.ID,
		Route:        c.Entry.Route,
		Depth:        c.MaxDepth,
		CrossService: c.CrossService,
		Services:     serviceNames(s, c.InvolvedServices),
	}
	if cls, ok := s.Class(c.Entry.ClassID); ok {
		sum.EntryClass = cls.ClassName
	}
	if m, ok := s.Method(c.Entry.MethodID); ok {
		sum.EntryMethod = m.Name
	}
	return sum
}

// Expand resolves every node of c. A node whose service differs from its
// parent's is marked as crossing into another service.
func Expand(s *store.Store, c *model.Chain) ChainDetail {
	detail := ChainDetail{ChainSummary: Summarize(s, c), Steps: make([]ChainStep, 0, len(c.Nodes))}

	// serviceAt[level] is the service of the latest node seen at that level.
	serviceAt := make(map[int]string, len(c.Nodes))
	for _, n := range c.Nodes {
		step := ChainStep{
			Level:     n.Level,
			Kind:      n.Kind,
			MethodID:  n.MethodID,
			ClassID:   n.ClassID,
			ServiceID: n.ServiceID,
		}
		if m, ok := s.Method(n.MethodID); ok {
			step.Method = m.Name
			step.Signature = m.Signature
		}
		if cls, ok := s.Class(n.ClassID); ok {
			step.Class = cls.ClassName
		}
		if svc, ok := s.Service(n.ServiceID); ok {
			step.Service = svc.Name
		}
		if n.Level > 0 {
			parent, ok := serviceAt[n.Level-1]
			step.CrossesInto = ok && parent != n.ServiceID
		}
		serviceAt[n.Level] = n.ServiceID
		detail.Steps = append(detail.Steps, step)
	}
	return detail
}

// RegistryListing lists every registry key and its providers, sorted by key.
func RegistryListing(reg *registry.Registry) RegistryResponse {
	keys := reg.Interfaces()
	resp := RegistryResponse{Stats: reg.Stats(), Interfaces: make([]InterfaceEntry, 0, len(keys))}
	for _, k := range keys {
		resp.Interfaces = append(resp.Interfaces, InterfaceEntry{Name: k, Providers: reg.Implementations(k)})
	}
	return resp
}

func serviceNames(s *store.Store, ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if svc, ok := s.Service(id); ok {
			names = append(names, svc.Name)
		} else {
			names = append(names, id)
		}
	}
	return names
}

// parseBool accepts the usual query spellings of true.
func parseBool(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
