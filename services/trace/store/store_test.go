// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callchain/services/trace/model"
)

func populated(t *testing.T) *Store {
	t.Helper()
	s := New()
	s.AddService(&model.Service{ID: "svc1", Name: "user-service"})
	s.AddService(&model.Service{ID: "svc2", Name: "order-service"})
	s.AddClass(&model.Class{ID: "c1", ServiceID: "svc1", ClassName: "UserController"})
	s.AddClass(&model.Class{ID: "c2", ServiceID: "svc1", ClassName: "UserService"})
	s.AddClass(&model.Class{ID: "c3", ServiceID: "svc2", ClassName: "OrderServiceImpl"})
	s.AddMethod(&model.Method{ID: "m1", ClassID: "c1", Name: "getUser"})
	s.AddMethod(&model.Method{ID: "m2", ClassID: "c2", Name: "find"})
	s.AddMethod(&model.Method{ID: "m3", ClassID: "c2", Name: "find"})
	s.AddMethod(&model.Method{ID: "m4", ClassID: "c3", Name: "create"})
	s.AddEdge(&model.CallEdge{ID: "e1", SourceMethodID: "m1", TargetMethodID: "m2"})
	s.AddEdge(&model.CallEdge{ID: "e2", SourceMethodID: "m1", TargetQualified: "OrderService.create", Kind: model.CallRemote})
	return s
}

func TestStore_Lookups(t *testing.T) {
	s := populated(t)

	svc, ok := s.Service("svc1")
	require.True(t, ok)
	assert.Equal(t, "user-service", svc.Name)

	c, ok := s.Class("c3")
	require.True(t, ok)
	assert.Equal(t, "OrderServiceImpl", c.ClassName)

	m, ok := s.Method("m4")
	require.True(t, ok)
	assert.Equal(t, "create", m.Name)

	_, ok = s.Class("nope")
	assert.False(t, ok)
	_, ok = s.Method("")
	assert.False(t, ok)
	_, ok = s.Chain("nope")
	assert.False(t, ok)
	_, ok = s.Service("nope")
	assert.False(t, ok)
}

func TestStore_SecondaryIndexes(t *testing.T) {
	s := populated(t)

	edges := s.EdgesFrom("m1")
	require.Len(t, edges, 2)
	assert.Equal(t, "e1", edges[0].ID)
	assert.Equal(t, "e2", edges[1].ID)
	assert.Empty(t, s.EdgesFrom("m4"))

	methods := s.MethodsOf("c2")
	require.Len(t, methods, 2)
	assert.Equal(t, "m2", methods[0].ID)

	assert.Len(t, s.ClassesOf("svc1"), 2)
	assert.Len(t, s.ClassesOf("svc2"), 1)
	assert.Empty(t, s.ClassesOf("svc3"))

	first, ok := s.FindMethod("c2", "find")
	require.True(t, ok)
	assert.Equal(t, "m2", first.ID)
	_, ok = s.FindMethod("c2", "missing")
	assert.False(t, ok)

	owner, ok := s.ServiceOfMethod("m4")
	require.True(t, ok)
	assert.Equal(t, "svc2", owner.ID)

	byName, ok := s.ServiceByName("order-service")
	require.True(t, ok)
	assert.Equal(t, "svc2", byName.ID)
}

func TestStore_ListsAreCopies(t *testing.T) {
	s := populated(t)
	list := s.Classes()
	list[0] = nil

	c, ok := s.Class("c1")
	require.True(t, ok)
	assert.Equal(t, c, s.Classes()[0])
}

func TestStore_SetRebuildsIndexes(t *testing.T) {
	s := populated(t)

	s.SetMethods([]*model.Method{{ID: "x1", ClassID: "c1", Name: "other"}, nil})
	_, ok := s.Method("m1")
	assert.False(t, ok)
	m, ok := s.Method("x1")
	require.True(t, ok)
	assert.Equal(t, "other", m.Name)
	assert.Len(t, s.MethodsOf("c1"), 1)
	assert.Empty(t, s.MethodsOf("c2"))

	s.SetEdges([]*model.CallEdge{{ID: "e9", SourceMethodID: "x1"}})
	assert.Empty(t, s.EdgesFrom("m1"))
	assert.Len(t, s.EdgesFrom("x1"), 1)

	s.SetClasses(nil)
	assert.Empty(t, s.Classes())
	assert.Empty(t, s.ClassesOf("svc1"))

	s.SetServices([]*model.Service{{ID: "only"}})
	assert.Len(t, s.Services(), 1)
	_, ok = s.Service("svc1")
	assert.False(t, ok)

	s.SetChains([]*model.Chain{{ID: "ch1"}})
	ch, ok := s.Chain("ch1")
	require.True(t, ok)
	assert.Equal(t, "ch1", ch.ID)
}

func TestStore_NilIgnored(t *testing.T) {
	s := New()
	s.AddService(nil)
	s.AddClass(nil)
	s.AddMethod(nil)
	s.AddEdge(nil)
	s.AddChain(nil)
	assert.Equal(t, Counts{}, s.Counts())
}

func TestStore_Metadata(t *testing.T) {
	s := populated(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	s.Stamp(now)

	md := s.Metadata()
	assert.Equal(t, model.ProjectName, md.ProjectName)
	assert.Equal(t, now, md.AnalysisTime)
	assert.Equal(t, 2, md.TotalServices)
	assert.Equal(t, 3, md.TotalClasses)
	assert.Equal(t, 4, md.TotalMethods)

	s.SetMetadata(model.Metadata{TotalServices: 99})
	md = s.Metadata()
	assert.Equal(t, 2, md.TotalServices)
	assert.Equal(t, model.ProjectName, md.ProjectName)
}

func TestStore_ConcurrentReads(t *testing.T) {
	s := populated(t)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.EdgesFrom("m1")
				s.Method("m2")
				s.Counts()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, s.Counts().Edges)
}
