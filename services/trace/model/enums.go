// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package model

import (
	"fmt"
)

// InjectionKind classifies how a dependency is injected into a class.
type InjectionKind int

const (
	// InjectNone means no injection marker was found.
	InjectNone InjectionKind = iota

	// InjectFramework is Spring field injection (@Autowired).
	InjectFramework

	// InjectResource is JSR-250 injection (@Resource).
	InjectResource

	// InjectStandard is JSR-330 injection (@Inject).
	InjectStandard

	// InjectConstructor is a constructor parameter.
	InjectConstructor

	// InjectRemoteReference is a remote service proxy
	// (@DubboReference, @Reference).
	InjectRemoteReference
)

var injectionKindNames = map[InjectionKind]string{
	InjectNone:            "NONE",
	InjectFramework:       "AUTOWIRED",
	InjectResource:        "RESOURCE",
	InjectStandard:        "INJECT",
	InjectConstructor:     "CONSTRUCTOR",
	InjectRemoteReference: "DUBBO_REFERENCE",
}

// String returns the wire name of the InjectionKind.
func (k InjectionKind) String() string {
	if name, ok := injectionKindNames[k]; ok {
		return name
	}
	return "NONE"
}

// MarshalText implements encoding.TextMarshaler.
func (k InjectionKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *InjectionKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(b, injectionKindNames, k, "injection kind")
}

// Scope classifies which boundary a dependency crosses.
type Scope int

const (
	// ScopeInternal stays inside the owning service.
	ScopeInternal Scope = iota

	// ScopeRemote crosses services via RPC.
	ScopeRemote

	// ScopeHTTP crosses services via HTTP.
	ScopeHTTP

	// ScopeQueue crosses services via a message queue.
	ScopeQueue
)

var scopeNames = map[Scope]string{
	ScopeInternal: "INTERNAL",
	ScopeRemote:   "RPC",
	ScopeHTTP:     "HTTP",
	ScopeQueue:    "MQ",
}

// String returns the wire name of the Scope.
func (s Scope) String() string {
	if name, ok := scopeNames[s]; ok {
		return name
	}
	return "INTERNAL"
}

// MarshalText implements encoding.TextMarshaler.
func (s Scope) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Scope) UnmarshalText(b []byte) error {
	return unmarshalEnum(b, scopeNames, s, "scope")
}

// ClassRole is the architectural role of a class.
type ClassRole int

const (
	// RolePlain is a class with no recognized stereotype.
	RolePlain ClassRole = iota
	RoleController
	RoleService
	RoleRepository
	RoleComponent
	RoleConfiguration
	RoleInterface

	// RoleRemoteProvider is a class exported as a remote service
	// (@DubboService).
	RoleRemoteProvider
)

var classRoleNames = map[ClassRole]string{
	RolePlain:          "PLAIN_CLASS",
	RoleController:     "CONTROLLER",
	RoleService:        "SERVICE",
	RoleRepository:     "REPOSITORY",
	RoleComponent:      "COMPONENT",
	RoleConfiguration:  "CONFIGURATION",
	RoleInterface:      "INTERFACE",
	RoleRemoteProvider: "DUBBO_SERVICE",
}

// String returns the wire name of the ClassRole.
func (r ClassRole) String() string {
	if name, ok := classRoleNames[r]; ok {
		return name
	}
	return "PLAIN_CLASS"
}

// MarshalText implements encoding.TextMarshaler.
func (r ClassRole) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *ClassRole) UnmarshalText(b []byte) error {
	return unmarshalEnum(b, classRoleNames, r, "class role")
}

// CallKind classifies a call edge.
type CallKind int

const (
	// CallInternal is an in-process call within one service.
	CallInternal CallKind = iota

	// CallRemote is an RPC call through a remote reference field.
	CallRemote

	// CallHTTP is an HTTP call to another service.
	CallHTTP

	// CallStatic is a static method call.
	CallStatic

	// CallConstructor is a constructor invocation.
	CallConstructor
)

var callKindNames = map[CallKind]string{
	CallInternal:    "INTERNAL_METHOD_CALL",
	CallRemote:      "RPC_METHOD_CALL",
	CallHTTP:        "HTTP_METHOD_CALL",
	CallStatic:      "STATIC_METHOD_CALL",
	CallConstructor: "CONSTRUCTOR_CALL",
}

// String returns the wire name of the CallKind.
func (k CallKind) String() string {
	if name, ok := callKindNames[k]; ok {
		return name
	}
	return "INTERNAL_METHOD_CALL"
}

// MarshalText implements encoding.TextMarshaler.
func (k CallKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *CallKind) UnmarshalText(b []byte) error {
	return unmarshalEnum(b, callKindNames, k, "call kind")
}

func unmarshalEnum[T comparable](b []byte, names map[T]string, dst *T, what string) error {
	s := string(b)
	for v, name := range names {
		if name == s {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("%w: unknown %s %q", ErrInvalidEnum, what, s)
}
