// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


// Package export writes analysis results as JSON documents, Cypher scripts
// and directly into Neo4j.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/AleutianAI/callchain/services/trace/model"
	"github.com/AleutianAI/callchain/services/trace/store"
)

// ErrInvalidDocument indicates JSON that is not an analysis document.
var ErrInvalidDocument = errors.New("invalid analysis document")

// Document is the JSON layout of a complete analysis result.
type Document struct {
	Metadata    model.Metadata    `json:"metadata"`
	Services    []*model.Service  `json:"services"`
	Classes     []*model.Class    `json:"classes"`
	Methods     []*model.Method   `json:"methods"`
	MethodCalls []*model.CallEdge `json:"methodCalls"`
	CallChains  []*model.Chain    `json:"callChains"`
}

// NewDocument snapshots the store into a Document. Empty collections are
// encoded as [] rather than null.
func NewDocument(s *store.Store) *Document {
	return &Document{
		Metadata:    s.Metadata(),
		Services:    nonNil(s.Services()),
		Classes:     nonNil(s.Classes()),
		Methods:     nonNil(s.Methods()),
		MethodCalls: nonNil(s.Edges()),
		CallChains:  nonNil(s.Chains()),
	}
}

// Store rebuilds a store, with all indexes, from the document.
func (d *Document) Store() *store.Store {
	s := store.New()
	s.SetServices(d.Services)
	s.SetClasses(d.Classes)
	s.SetMethods(d.Methods)
	s.SetEdges(d.MethodCalls)
	s.SetChains(d.CallChains)
	s.SetMetadata(d.Metadata)
	return s
}

// Write encodes the store as a JSON document. Pretty output is indented
// with two spaces.
func Write(w io.Writer, s *store.Store, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(NewDocument(s)); err != nil {
		return fmt.Errorf("encoding analysis document: %w", err)
	}
	return nil
}

// WriteFile writes the JSON document to path, creating parent directories.
func WriteFile(path string, s *store.Store, pretty bool) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := Write(f, s, pretty); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Read decodes a JSON document into a new store.
func Read(r io.Reader) (*store.Store, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidDocument, err)
	}
	return doc.Store(), nil
}

// ReadFile decodes the JSON document at path.
func ReadFile(path string) (*store.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f)
}

func nonNil[T any](in []T) []T {
	if in == nil {
		return []T{}
	}
	return in
}
