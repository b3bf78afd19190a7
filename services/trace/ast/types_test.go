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
	"errors"
	"testing"
)

func TestSimpleName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"GetMapping", "GetMapping"},
		{"org.apache.dubbo.config.annotation.DubboService", "DubboService"},
		{"", ""},
		{"trailing.", ""},
	}
	for _, tt := range tests {
		if got := SimpleName(tt.in); got != tt.want {
			t.Errorf("SimpleName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	a := Annotation{Name: "org.springframework.stereotype.Service"}
	if got := a.SimpleName(); got != "Service" {
		t.Errorf("Annotation.SimpleName() = %q, want Service", got)
	}
}

func TestMethodDecl_Signature(t *testing.T) {
	tests := []struct {
		name string
		m    MethodDecl
		want string
	}{
		{
			name: "no params",
			m:    MethodDecl{Name: "ping", ReturnType: "void"},
			want: "void ping()",
		},
		{
			name: "params",
			m: MethodDecl{
				Name:       "find",
				ReturnType: "List<User>",
				Params:     []Param{{Name: "id", Type: "Long"}, {Name: "tags", Type: "String..."}},
			},
			want: "List<User> find(Long id, String... tags)",
		},
		{
			name: "no return type",
			m:    MethodDecl{Name: "init"},
			want: "init()",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.m.Signature(); got != tt.want {
				t.Errorf("Signature() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSourceUnit_Validate(t *testing.T) {
	valid := &SourceUnit{
		FilePath: "A.java",
		Types:    []*TypeDecl{{Name: "A"}},
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate() on valid unit: %v", err)
	}

	invalid := []*SourceUnit{
		{Types: []*TypeDecl{{Name: "A"}}},
		{FilePath: "A.java", Types: []*TypeDecl{nil}},
		{FilePath: "A.java", Types: []*TypeDecl{{StartLine: 3}}},
	}
	for i, u := range invalid {
		if err := u.Validate(); !errors.Is(err, ErrInvalidContent) {
			t.Errorf("case %d: Validate() = %v, want ErrInvalidContent", i, err)
		}
	}
}

func TestSourceUnit_MethodCount(t *testing.T) {
	u := &SourceUnit{Types: []*TypeDecl{
		{Name: "A", Methods: []MethodDecl{{Name: "a"}, {Name: "b"}}},
		{Name: "B"},
		{Name: "C", Methods: []MethodDecl{{Name: "c"}}},
	}}
	if got := u.MethodCount(); got != 3 {
		t.Errorf("MethodCount() = %d, want 3", got)
	}
}

func TestParseError(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		err  *ParseError
		want string
	}{
		{NewParseErrorWithCause("A.java", 3, 7, "unexpected token", cause), "A.java:3:7: unexpected token"},
		{NewParseErrorWithCause("A.java", 3, 0, "unexpected token", nil), "A.java:3: unexpected token"},
		{NewParseErrorWithCause("A.java", 0, 0, "empty", nil), "A.java: empty"},
	}
	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
	if !errors.Is(tests[0].err, cause) {
		t.Error("ParseError should unwrap to its cause")
	}
}

func TestWrapParseError(t *testing.T) {
	if WrapParseError(nil, "A.java") != nil {
		t.Error("WrapParseError(nil) should be nil")
	}

	wrapped := WrapParseError(ErrFileTooLarge, "A.java")
	if !IsParseError(wrapped) {
		t.Fatal("expected a ParseError")
	}
	if !errors.Is(wrapped, ErrFileTooLarge) {
		t.Error("wrapped error should match its cause")
	}

	pe := NewParseErrorWithCause("B.java", 1, 1, "bad", ErrParseFailed)
	if WrapParseError(pe, "A.java") != error(pe) {
		t.Error("an existing ParseError should be returned unchanged")
	}
	if IsParseError(errors.New("plain")) {
		t.Error("plain error is not a ParseError")
	}
}
