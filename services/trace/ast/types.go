// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"fmt"
	"regexp"
	"strings"
)

// SourceUnit is the structural view of one parsed source file.
//
// A SourceUnit carries only syntactic facts: names and raw type text as
// written. No symbol or type resolution is attempted.
type SourceUnit struct {
	// FilePath is the path that was passed to Parse.
	FilePath string `json:"file_path"`

	// Language is the parser language that produced this unit ("java").
	Language string `json:"language"`

	// Hash is the hex SHA-256 of the parsed content.
	Hash string `json:"hash"`

	// Package is the declared package name, empty for the default package.
	Package string `json:"package"`

	// Imports lists imported names as written ("com.example.Foo", "java.util.*").
	Imports []string `json:"imports,omitempty"`

	// Types lists class and interface declarations in source order,
	// nested declarations following their enclosing type.
	Types []*TypeDecl `json:"types"`

	// ParsedAtMilli is the Unix millisecond timestamp of the parse.
	ParsedAtMilli int64 `json:"parsed_at_milli"`
}

// Validate checks structural invariants of the unit.
func (u *SourceUnit) Validate() error {
	if u.FilePath == "" {
		return fmt.Errorf("%w: empty file path", ErrInvalidContent)
	}
	for i, t := range u.Types {
		if t == nil {
			return fmt.Errorf("%w: nil type declaration at index %d", ErrInvalidContent, i)
		}
		if t.Name == "" {
			return fmt.Errorf("%w: unnamed type declaration at line %d", ErrInvalidContent, t.StartLine)
		}
	}
	return nil
}

// MethodCount returns the number of methods across all types.
func (u *SourceUnit) MethodCount() int {
	n := 0
	for _, t := range u.Types {
		n += len(t.Methods)
	}
	return n
}

// Annotation is a single annotation usage.
type Annotation struct {
	// Name is the annotation name as written, possibly qualified
	// ("GetMapping", "org.apache.dubbo.config.annotation.DubboService").
	Name string `json:"name"`

	// Text is the raw annotation source including the leading '@'.
	Text string `json:"text"`
}

// SimpleName returns Name with any qualifier up to the last '.' removed.
func (a Annotation) SimpleName() string {
	return SimpleName(a.Name)
}

// Attr returns the string value of a named annotation attribute, for
// example Attr("version") on @DubboService(version = "1.0.0").
// Returns "" when the attribute is absent or not a string literal.
func (a Annotation) Attr(key string) string {
	re, err := regexp.Compile(`(?:^|[(,\s])` + regexp.QuoteMeta(key) + `\s*=\s*"([^"]*)"`)
	if err != nil {
		return ""
	}
	m := re.FindStringSubmatch(a.Text)
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// TypeDecl is a class or interface declaration.
type TypeDecl struct {
	Name         string            `json:"name"`
	IsInterface  bool              `json:"is_interface"`
	Annotations  []Annotation      `json:"annotations,omitempty"`
	Fields       []FieldDecl       `json:"fields,omitempty"`
	Constructors []ConstructorDecl `json:"constructors,omitempty"`
	Methods      []MethodDecl      `json:"methods,omitempty"`
	StartLine    int               `json:"start_line"`
	EndLine      int               `json:"end_line"`
}

// FieldDecl is one declared field variable. A declaration such as
// "private Foo a, b;" yields two FieldDecl values sharing Type and
// Annotations.
type FieldDecl struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Annotations []Annotation `json:"annotations,omitempty"`
	Line        int          `json:"line"`
}

// Param is a formal parameter of a method or constructor.
type Param struct {
	Name        string       `json:"name"`
	Type        string       `json:"type"`
	Annotations []Annotation `json:"annotations,omitempty"`
}

// ConstructorDecl is a constructor declaration.
type ConstructorDecl struct {
	Params []Param `json:"params,omitempty"`
	Line   int     `json:"line"`
}

// MethodDecl is a method declaration, with or without a body.
type MethodDecl struct {
	Name        string       `json:"name"`
	Params      []Param      `json:"params,omitempty"`
	ReturnType  string       `json:"return_type"`
	Annotations []Annotation `json:"annotations,omitempty"`
	StartLine   int          `json:"start_line"`
	EndLine     int          `json:"end_line"`

	// Calls lists method invocations in the body in pre-order.
	Calls []CallSite `json:"calls,omitempty"`
}

// Signature renders "<return> <name>(<type> <name>, ...)".
func (m MethodDecl) Signature() string {
	var sb strings.Builder
	if m.ReturnType != "" {
		sb.WriteString(m.ReturnType)
		sb.WriteByte(' ')
	}
	sb.WriteString(m.Name)
	sb.WriteByte('(')
	for i, p := range m.Params {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(p.Type)
		sb.WriteByte(' ')
		sb.WriteString(p.Name)
	}
	sb.WriteByte(')')
	return sb.String()
}

// CallSite is a method invocation found in a method body.
type CallSite struct {
	// Callee is the invoked method name.
	Callee string `json:"callee"`

	// Receiver is the receiver expression text, empty for unqualified calls.
	Receiver string `json:"receiver,omitempty"`

	// Line is the 1-indexed line of the invocation.
	Line int `json:"line"`

	// Text is the raw invocation source.
	Text string `json:"text"`
}

// SimpleName strips any qualifier up to the last '.'.
func SimpleName(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i+1:]
	}
	return name
}
