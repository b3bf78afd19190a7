// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package registry

import (
	"bytes"
	"context"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/store"
)

func provider(id, svc, pkg, name string) *model.Class {
	return &model.Class{
		ID:            id,
		ServiceID:     svc,
		PackageName:   pkg,
		ClassName:     name,
		QualifiedName: pkg + "." + name,
		Role:          model.RoleRemoteProvider,
	}
}

func TestRegister_ImplConvention(t *testing.T) {
	r := New()
	require.True(t, r.Register(provider("c1", "svc2", "com.acme.user.impl", "UserServiceImpl")))

	for _, key := range []string{"com.acme.user.UserService", "UserService"} {
		b, ok := r.Resolve(key)
		require.True(t, ok, key)
		assert.Equal(t, "c1", b.ClassID)
		assert.Equal(t, "svc2", b.ServiceID)
		assert.Equal(t, "com.acme.user.UserService", b.Interface)
	}

	_, ok := r.Resolve("com.acme.user.impl.UserService")
	assert.False(t, ok)
	_, ok = r.Resolve("UserServiceImpl")
	assert.False(t, ok)
}

func TestRegister_Rejects(t *testing.T) {
	r := New()
	assert.False(t, r.Register(nil))
	assert.False(t, r.Register(provider("c1", "svc", "com.acme", "UserService")))
	assert.False(t, r.Register(provider("c2", "svc", "com.acme", "Impl")))
	assert.Equal(t, Stats{}, r.Stats())
}

func TestRegister_PackageWithoutImplSegment(t *testing.T) {
	r := New()
	require.True(t, r.Register(provider("c1", "svc", "com.acme.order", "OrderServiceImpl")))
	b, ok := r.Resolve("com.acme.order.OrderService")
	require.True(t, ok)
	assert.Equal(t, "c1", b.ClassID)
}

func TestRegister_DefaultPackage(t *testing.T) {
	r := New()
	require.True(t, r.Register(provider("c1", "svc", "", "PingImpl")))
	assert.Equal(t, Stats{InterfaceKeys: 1, Bindings: 1}, r.Stats())
	_, ok := r.Resolve("Ping")
	assert.True(t, ok)
}

func TestResolve_AmbiguousFirstWins(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	r := New(WithLogger(logger))

	r.Register(provider("first", "svcA", "com.acme.impl", "PayServiceImpl"))
	r.Register(provider("second", "svcB", "com.acme.impl", "PayServiceImpl"))

	b, ok := r.Resolve("com.acme.PayService")
	require.True(t, ok)
	assert.Equal(t, "first", b.ClassID)
	assert.Contains(t, buf.String(), "multiple providers")

	impls := r.Implementations("PayService")
	require.Len(t, impls, 2)
	assert.Equal(t, "first", impls[0].ClassID)
	assert.Equal(t, "second", impls[1].ClassID)
}

func TestResolve_Miss(t *testing.T) {
	r := New()
	b, ok := r.Resolve("com.acme.Nothing")
	assert.False(t, ok)
	assert.Equal(t, Binding{}, b)
	assert.Empty(t, r.Implementations("com.acme.Nothing"))
}

func TestResolveTagged(t *testing.T) {
	r := New()
	v1 := provider("v1", "svc", "com.acme.impl", "StockServiceImpl")
	v1.Version = "1.0"
	v1.Group = "a"
	v2 := provider("v2", "svc", "com.acme.impl", "StockServiceImpl")
	v2.Version = "2.0"
	v2.Group = "b"
	r.Register(v1)
	r.Register(v2)

	tests := []struct {
		name    string
		version string
		group   string
		want    string
	}{
		{"untagged", "", "", "v1"},
		{"version match", "2.0", "", "v2"},
		{"group match", "", "b", "v2"},
		{"both match", "1.0", "a", "v1"},
		{"mismatch falls back", "3.0", "", "v1"},
		{"partial mismatch falls back", "2.0", "a", "v1"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, ok := r.ResolveTagged("StockService", tt.version, tt.group)
			require.True(t, ok)
			assert.Equal(t, tt.want, b.ClassID)
		})
	}

	_, ok := r.ResolveTagged("Missing", "1.0", "")
	assert.False(t, ok)
}

func TestBuild_FromStore(t *testing.T) {
	s := store.New()
	s.AddClass(provider("p1", "svc2", "com.acme.user.impl", "UserServiceImpl"))
	s.AddClass(provider("p2", "svc2", "com.acme.user", "Helper"))
	plain := provider("p3", "svc2", "com.acme.user.impl", "AuditServiceImpl")
	plain.Role = model.RoleService
	s.AddClass(plain)

	r := New()
	n := r.Build(context.Background(), s)
	assert.Equal(t, 1, n)
	assert.Equal(t, Stats{InterfaceKeys: 2, Bindings: 1}, r.Stats())
	assert.Equal(t, []string{"UserService", "com.acme.user.UserService"}, r.Interfaces())

	r.Clear()
	assert.Equal(t, Stats{}, r.Stats())
	assert.Empty(t, r.Interfaces())
}

func TestRegistry_ConcurrentResolve(t *testing.T) {
	r := New()
	r.Register(provider("c1", "svc", "com.acme.impl", "FooImpl"))

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				b, ok := r.Resolve("com.acme.Foo")
				if !ok || b.ClassID != "c1" {
					t.Errorf("unexpected resolution %+v %v", b, ok)
					return
				}
			}
		}()
	}
	wg.Wait()
}
