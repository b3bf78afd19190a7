// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package model defines the entities produced by a call-chain analysis run.
//
// Entities reference each other by id only. JSON field names follow the
// format consumed by existing call-chain viewers, so renaming a tag is a
// breaking change for the export format.
package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProjectName is the project name recorded in analysis metadata.
const ProjectName = "multi-service-analysis"

// NewID returns a fresh random entity id.
func NewID() string {
	return uuid.New().String()
}

// =============================================================================
// SERVICES AND CLASSES
// =============================================================================

// Service is one scanned service source tree.
//
// Immutable after creation.
type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	GroupID     string `json:"groupId"`
	ArtifactID  string `json:"artifactId"`
	Version     string `json:"version"`
	BasePackage string `json:"basePackage"`
	RootPath    string `json:"rootPath"`
}

// Class is one class or interface declaration.
type Class struct {
	ID            string       `json:"id"`
	ServiceID     string       `json:"serviceId"`
	PackageName   string       `json:"packageName"`
	ClassName     string       `json:"className"`
	QualifiedName string       `json:"qualifiedName"`
	Role          ClassRole    `json:"type"`
	Annotations   []string     `json:"annotations"`
	FilePath      string       `json:"filePath"`
	Dependencies  []Dependency `json:"dependencies"`

	// Version and Group are the remote tags declared on a provider.
	Version string `json:"version,omitempty"`
	Group   string `json:"group,omitempty"`
}

// RemoteDependencies returns the dependencies injected as remote references.
func (c *Class) RemoteDependencies() []Dependency {
	var out []Dependency
	for _, d := range c.Dependencies {
		if d.Injection == InjectRemoteReference {
			out = append(out, d)
		}
	}
	return out
}

// Dependency returns the first dependency with the given field name.
func (c *Class) Dependency(fieldName string) (Dependency, bool) {
	for _, d := range c.Dependencies {
		if d.FieldName == fieldName {
			return d, true
		}
	}
	return Dependency{}, false
}

// HasAnnotation reports whether any annotation has the given simple name.
func (c *Class) HasAnnotation(simpleName string) bool {
	return hasAnnotation(c.Annotations, simpleName)
}

// Dependency is an injected collaborator of a class.
type Dependency struct {
	FieldName  string        `json:"fieldName"`
	Injection  InjectionKind `json:"injectionType"`
	TargetType string        `json:"targetQualifiedName"`
	Scope      Scope         `json:"scope"`

	// InterfaceName is set for remote references only.
	InterfaceName string `json:"interfaceName,omitempty"`

	Version string `json:"version,omitempty"`
	Group   string `json:"group,omitempty"`
}

// IsRemote reports whether the dependency crosses services via RPC.
func (d Dependency) IsRemote() bool {
	return d.Injection == InjectRemoteReference
}

// =============================================================================
// METHODS AND CALLS
// =============================================================================

// Parameter is one method parameter.
type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Index int    `json:"index"`
}

// Method is one method declaration.
type Method struct {
	ID          string      `json:"id"`
	ClassID     string      `json:"classId"`
	Name        string      `json:"methodName"`
	Signature   string      `json:"signature"`
	ReturnType  string      `json:"returnType"`
	Parameters  []Parameter `json:"parameters"`
	Annotations []string    `json:"annotations"`
	LineStart   int         `json:"lineStart"`
	LineEnd     int         `json:"lineEnd"`
}

// HasAnnotation reports whether any annotation has the given simple name.
func (m *Method) HasAnnotation(simpleName string) bool {
	return hasAnnotation(m.Annotations, simpleName)
}

// CallEdge is one method invocation found in a method body.
//
// TargetMethodID is empty until the call is resolved. Remote edges keep
// TargetQualified as "<interface>.<method>" and are resolved during chain
// construction instead.
type CallEdge struct {
	ID              string   `json:"id"`
	SourceMethodID  string   `json:"sourceMethodId"`
	TargetMethodID  string   `json:"targetMethodId,omitempty"`
	TargetQualified string   `json:"targetQualifiedMethod,omitempty"`
	Kind            CallKind `json:"callType"`
	Line            int      `json:"sourceLineNumber"`
	Text            string   `json:"callerExpression"`
	CrossService    bool     `json:"crossService"`

	Callee   string `json:"calleeName,omitempty"`
	Receiver string `json:"receiver,omitempty"`
	Version  string `json:"version,omitempty"`
	Group    string `json:"group,omitempty"`
}

// IsResolved reports whether the edge has a local target.
func (e *CallEdge) IsResolved() bool {
	return e.TargetMethodID != ""
}

// SplitTarget splits TargetQualified at its last "." into interface and
// method names. ok is false when there is no separator.
func (e *CallEdge) SplitTarget() (iface, method string, ok bool) {
	idx := strings.LastIndex(e.TargetQualified, ".")
	if idx <= 0 || idx == len(e.TargetQualified)-1 {
		return "", "", false
	}
	return e.TargetQualified[:idx], e.TargetQualified[idx+1:], true
}

// =============================================================================
// CHAINS
// =============================================================================

// ChainNode is one step of a call chain.
type ChainNode struct {
	Level     int      `json:"level"`
	MethodID  string   `json:"methodId"`
	ClassID   string   `json:"classId"`
	ServiceID string   `json:"serviceId"`
	Kind      CallKind `json:"callType"`

	// Route is set on the entry node only, e.g. "GET /api/users/{id}".
	Route string `json:"httpEndpoint,omitempty"`
}

// Chain is an end-to-end call chain from an entry point.
type Chain struct {
	ID               string      `json:"id"`
	Entry            ChainNode   `json:"entryPoint"`
	Nodes            []ChainNode `json:"chain"`
	MaxDepth         int         `json:"maxDepth"`
	InvolvedServices []string    `json:"involvedServices"`
	CrossService     bool        `json:"crossService"`
}

// Finalize derives MaxDepth, InvolvedServices and CrossService from Nodes.
func (c *Chain) Finalize() {
	c.MaxDepth = len(c.Nodes)
	seen := make(map[string]bool, 4)
	services := make([]string, 0, 4)
	for _, n := range c.Nodes {
		if n.ServiceID == "" || seen[n.ServiceID] {
			continue
		}
		seen[n.ServiceID] = true
		services = append(services, n.ServiceID)
	}
	c.InvolvedServices = services
	c.CrossService = len(services) > 1
}

// HasService reports whether serviceID is involved in the chain.
func (c *Chain) HasService(serviceID string) bool {
	for _, s := range c.InvolvedServices {
		if s == serviceID {
			return true
		}
	}
	return false
}

// =============================================================================
// METADATA
// =============================================================================

// Metadata summarizes an analysis run.
type Metadata struct {
	AnalysisTime  time.Time `json:"analysisTime"`
	ProjectName   string    `json:"projectName"`
	TotalServices int       `json:"totalServices"`
	TotalClasses  int       `json:"totalClasses"`
	TotalMethods  int       `json:"totalMethods"`
}

// AnnotationSimpleName strips the "@" prefix, any arguments and any
// qualifier up to the last "." from raw annotation text.
//
//	AnnotationSimpleName(`@org.apache.dubbo.config.annotation.DubboService(version = "1.0")`) == "DubboService"
func AnnotationSimpleName(text string) string {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "@")
	if idx := strings.IndexByte(s, '('); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)
	if idx := strings.LastIndexByte(s, '.'); idx >= 0 {
		s = s[idx+1:]
	}
	return s
}

func hasAnnotation(annotations []string, simpleName string) bool {
	for _, a := range annotations {
		if AnnotationSimpleName(a) == simpleName {
			return true
		}
	}
	return false
}
