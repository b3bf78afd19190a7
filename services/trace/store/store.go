// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package store holds the entities of one analysis run.
//
// # Ownership Model
//
// The store keeps the pointers it is given and does not copy entities.
// Callers must not mutate an entity after adding it, with one exception:
// the local linker fills CallEdge.TargetMethodID before chains are built.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Slices returned by the list
// methods are copies of the internal lists; the entities they point to are
// shared.
package store

import (
	"sync"
	"time"

	"github.com/AleutianAI/callchain/services/trace/model"
)

// Store is an append-only indexed repository of analysis entities.
type Store struct {
	mu sync.RWMutex

	services []*model.Service
	classes  []*model.Class
	methods  []*model.Method
	edges    []*model.CallEdge
	chains   []*model.Chain

	serviceByID map[string]*model.Service
	classByID   map[string]*model.Class
	methodByID  map[string]*model.Method
	chainByID   map[string]*model.Chain

	edgesBySource    map[string][]*model.CallEdge
	methodsByClass   map[string][]*model.Method
	classesByService map[string][]*model.Class

	metadata model.Metadata
}

// New creates an empty Store.
func New() *Store {
	s := &Store{}
	s.resetServices()
	s.resetClasses()
	s.resetMethods()
	s.resetEdges()
	s.resetChains()
	s.metadata.ProjectName = model.ProjectName
	return s
}

func (s *Store) resetServices() {
	s.serviceByID = make(map[string]*model.Service)
}

func (s *Store) resetClasses() {
	s.classByID = make(map[string]*model.Class)
	s.classesByService = make(map[string][]*model.Class)
}

func (s *Store) resetMethods() {
	s.methodByID = make(map[string]*model.Method)
	s.methodsByClass = make(map[string][]*model.Method)
}

func (s *Store) resetEdges() {
	s.edgesBySource = make(map[string][]*model.CallEdge)
}

func (s *Store) resetChains() {
	s.chainByID = make(map[string]*model.Chain)
}

// =============================================================================
// INSERTS
// =============================================================================

// AddService appends a service. Nil is ignored.
func (s *Store) AddService(svc *model.Service) {
	if svc == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = append(s.services, svc)
	s.serviceByID[svc.ID] = svc
}

// AddClass appends a class. Nil is ignored.
func (s *Store) AddClass(c *model.Class) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexClass(c)
}

func (s *Store) indexClass(c *model.Class) {
	s.classes = append(s.classes, c)
	s.classByID[c.ID] = c
	s.classesByService[c.ServiceID] = append(s.classesByService[c.ServiceID], c)
}

// AddMethod appends a method. Nil is ignored.
func (s *Store) AddMethod(m *model.Method) {
	if m == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.indexMethod(m)
}

func (s *Store) indexMethod(m *model.Method) {
	s.methods = append(s.methods, m)
	s.methodByID[m.ID] = m
	s.methodsByClass[m.ClassID] = append(s.methodsByClass[m.ClassID], m)
}

// AddEdge appends a call edge. Nil is ignored.
func (s *Store) AddEdge(e *model.CallEdge) {
	if e == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = append(s.edges, e)
	s.edgesBySource[e.SourceMethodID] = append(s.edgesBySource[e.SourceMethodID], e)
}

// AddChain appends a chain. Nil is ignored.
func (s *Store) AddChain(c *model.Chain) {
	if c == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = append(s.chains, c)
	s.chainByID[c.ID] = c
}

// =============================================================================
// BULK REPLACEMENT
// =============================================================================

// SetServices replaces all services and rebuilds the service index.
func (s *Store) SetServices(services []*model.Service) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.services = nil
	s.resetServices()
	for _, svc := range services {
		if svc == nil {
			continue
		}
		s.services = append(s.services, svc)
		s.serviceByID[svc.ID] = svc
	}
}

// SetClasses replaces all classes and rebuilds the class indexes.
func (s *Store) SetClasses(classes []*model.Class) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.classes = nil
	s.resetClasses()
	for _, c := range classes {
		if c != nil {
			s.indexClass(c)
		}
	}
}

// SetMethods replaces all methods and rebuilds the method indexes.
func (s *Store) SetMethods(methods []*model.Method) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.methods = nil
	s.resetMethods()
	for _, m := range methods {
		if m != nil {
			s.indexMethod(m)
		}
	}
}

// SetEdges replaces all call edges and rebuilds the source index.
func (s *Store) SetEdges(edges []*model.CallEdge) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.edges = nil
	s.resetEdges()
	for _, e := range edges {
		if e == nil {
			continue
		}
		s.edges = append(s.edges, e)
		s.edgesBySource[e.SourceMethodID] = append(s.edgesBySource[e.SourceMethodID], e)
	}
}

// SetChains replaces all chains and rebuilds the chain index.
func (s *Store) SetChains(chains []*model.Chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chains = nil
	s.resetChains()
	for _, c := range chains {
		if c == nil {
			continue
		}
		s.chains = append(s.chains, c)
		s.chainByID[c.ID] = c
	}
}

// SetMetadata replaces the run metadata. Totals are always derived from the
// store contents on read.
func (s *Store) SetMetadata(md model.Metadata) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata = md
}

// =============================================================================
// LOOKUPS
// =============================================================================

// Service returns the service with the given id.
func (s *Store) Service(id string) (*model.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	svc, ok := s.serviceByID[id]
	return svc, ok
}

// Class returns the class with the given id.
func (s *Store) Class(id string) (*model.Class, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.classByID[id]
	return c, ok
}

// Method returns the method with the given id.
func (s *Store) Method(id string) (*model.Method, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.methodByID[id]
	return m, ok
}

// Chain returns the chain with the given id.
func (s *Store) Chain(id string) (*model.Chain, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chainByID[id]
	return c, ok
}

// ServiceByName returns the first service with the given name.
func (s *Store) ServiceByName(name string) (*model.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, svc := range s.services {
		if svc.Name == name {
			return svc, true
		}
	}
	return nil, false
}

// EdgesFrom returns the call edges whose source is methodID, in insertion
// order.
func (s *Store) EdgesFrom(methodID string) []*model.CallEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.edgesBySource[methodID])
}

// MethodsOf returns the methods of a class in insertion order.
func (s *Store) MethodsOf(classID string) []*model.Method {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.methodsByClass[classID])
}

// ClassesOf returns the classes of a service in insertion order.
func (s *Store) ClassesOf(serviceID string) []*model.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.classesByService[serviceID])
}

// FindMethod returns the first method of classID named name.
func (s *Store) FindMethod(classID, name string) (*model.Method, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.methodsByClass[classID] {
		if m.Name == name {
			return m, true
		}
	}
	return nil, false
}

// ServiceOfMethod returns the service that owns methodID.
func (s *Store) ServiceOfMethod(methodID string) (*model.Service, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.methodByID[methodID]
	if !ok {
		return nil, false
	}
	c, ok := s.classByID[m.ClassID]
	if !ok {
		return nil, false
	}
	svc, ok := s.serviceByID[c.ServiceID]
	return svc, ok
}

// =============================================================================
// LISTS
// =============================================================================

// Services returns all services in insertion order.
func (s *Store) Services() []*model.Service {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.services)
}

// Classes returns all classes in insertion order.
func (s *Store) Classes() []*model.Class {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.classes)
}

// Methods returns all methods in insertion order.
func (s *Store) Methods() []*model.Method {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.methods)
}

// Edges returns all call edges in insertion order.
func (s *Store) Edges() []*model.CallEdge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.edges)
}

// Chains returns all chains in insertion order.
func (s *Store) Chains() []*model.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneSlice(s.chains)
}

// Metadata returns the run metadata with totals taken from the store.
func (s *Store) Metadata() model.Metadata {
	s.mu.RLock()
	defer s.mu.RUnlock()
	md := s.metadata
	if md.ProjectName == "" {
		md.ProjectName = model.ProjectName
	}
	md.TotalServices = len(s.services)
	md.TotalClasses = len(s.classes)
	md.TotalMethods = len(s.methods)
	return md
}

// Stamp records the analysis time in the metadata.
func (s *Store) Stamp(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metadata.AnalysisTime = t
}

// Counts summarizes the store size.
type Counts struct {
	Services int `json:"services"`
	Classes  int `json:"classes"`
	Methods  int `json:"methods"`
	Edges    int `json:"edges"`
	Chains   int `json:"chains"`
}

// Counts returns the number of entities of each kind.
func (s *Store) Counts() Counts {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Counts{
		Services: len(s.services),
		Classes:  len(s.classes),
		Methods:  len(s.methods),
		Edges:    len(s.edges),
		Chains:   len(s.chains),
	}
}

func cloneSlice[T any](in []T) []T {
	if len(in) == 0 {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}
