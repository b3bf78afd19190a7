// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast turns source files into structural units for call-chain
// analysis.
//
// Parsers are syntactic only. They report declared names, annotations,
// raw type text and call expressions; resolving any of those is the job of
// the classify, registry and graph packages.
package ast

import (
	"context"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Parser defines the contract for language-specific structural parsing.
//
// Description:
//
//	Parser implementations extract package, type, field, constructor,
//	method and call-site information from a single source file.
//
// Inputs:
//
//	ctx      - Context for cancellation. Implementations check it between
//	           extraction stages.
//	content  - Raw source bytes. Must be valid UTF-8.
//	filePath - Path of the file, used for diagnostics.
//
// Outputs:
//
//	*SourceUnit - The extracted structure. Never nil on success.
//	error       - Non-nil when the file cannot be used at all. A file with
//	              syntax errors is rejected as a whole; callers skip it.
//
// Thread Safety:
//
//	Implementations must be safe for concurrent use.
type Parser interface {
	Parse(ctx context.Context, content []byte, filePath string) (*SourceUnit, error)

	// Language returns the lowercase language name ("java").
	Language() string

	// Extensions returns handled file extensions including the dot.
	Extensions() []string
}

// ParserRegistry manages parser instances by language and file extension.
//
// Thread Safety:
//
//	ParserRegistry is safe for concurrent use. Registration takes the write
//	lock, lookups take the read lock.
type ParserRegistry struct {
	mu sync.RWMutex

	byLanguage  map[string]Parser
	byExtension map[string]Parser
}

// NewParserRegistry creates an empty ParserRegistry.
func NewParserRegistry() *ParserRegistry {
	return &ParserRegistry{
		byLanguage:  make(map[string]Parser),
		byExtension: make(map[string]Parser),
	}
}

// DefaultRegistry returns a registry with the Java parser registered.
func DefaultRegistry(opts ...JavaParserOption) *ParserRegistry {
	r := NewParserRegistry()
	r.Register(NewJavaParser(opts...))
	return r
}

// Register adds a parser under its Language() and every Extensions() entry.
// Existing registrations are overwritten. A nil parser is ignored.
func (r *ParserRegistry) Register(parser Parser) {
	if parser == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.byLanguage[parser.Language()] = parser
	for _, ext := range parser.Extensions() {
		r.byExtension[ext] = parser
	}
}

// GetByLanguage returns the parser for the given language name.
func (r *ParserRegistry) GetByLanguage(language string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byLanguage[language]
	return parser, ok
}

// GetByExtension returns the parser for the given extension (".java").
func (r *ParserRegistry) GetByExtension(ext string) (Parser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	parser, ok := r.byExtension[ext]
	return parser, ok
}

// ForFile returns the parser for a file path based on its extension.
//
// Outputs:
//
//	Parser - The registered parser.
//	error  - ErrUnsupportedLanguage when no parser handles the extension.
func (r *ParserRegistry) ForFile(filePath string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filePath))
	if parser, ok := r.GetByExtension(ext); ok {
		return parser, nil
	}
	return nil, WrapParseError(ErrUnsupportedLanguage, filePath)
}

// Languages returns the sorted registered language names.
func (r *ParserRegistry) Languages() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	languages := make([]string, 0, len(r.byLanguage))
	for lang := range r.byLanguage {
		languages = append(languages, lang)
	}
	sort.Strings(languages)
	return languages
}

// Extensions returns the sorted registered file extensions.
func (r *ParserRegistry) Extensions() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	extensions := make([]string, 0, len(r.byExtension))
	for ext := range r.byExtension {
		extensions = append(extensions, ext)
	}
	sort.Strings(extensions)
	return extensions
}
