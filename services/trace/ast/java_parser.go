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
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/java"
	"go.opentelemetry.io/otel/attribute"
)

// File size constants for input validation.
const (
	// DefaultMaxFileSize is the maximum file size the parser will accept (10MB).
	DefaultMaxFileSize = 10 * 1024 * 1024

	// WarnFileSize is the threshold at which a warning is logged (1MB).
	WarnFileSize = 1 * 1024 * 1024
)

// Traversal limits for call-site extraction.
const (
	// MaxCallExpressionDepth bounds the node depth walked inside a body.
	MaxCallExpressionDepth = 256

	// MaxCallSitesPerMethod bounds the call sites recorded for one method.
	MaxCallSitesPerMethod = 5000
)

// JavaParserOption configures a JavaParser instance.
type JavaParserOption func(*JavaParser)

// WithMaxFileSize sets the maximum file size the parser will accept.
// Non-positive values are ignored.
func WithMaxFileSize(bytes int64) JavaParserOption {
	return func(p *JavaParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// JavaParser implements Parser for Java source code using tree-sitter.
//
// Description:
//
//	JavaParser extracts the package, imports, class and interface
//	declarations (including nested ones), their annotations, fields,
//	constructors and methods, and the method invocations in each method
//	body. Files with syntax errors are rejected as a whole.
//
// Thread Safety:
//
//	JavaParser instances are safe for concurrent use. Each Parse call
//	creates its own tree-sitter parser.
type JavaParser struct {
	maxFileSize int64
}

// NewJavaParser creates a JavaParser with the given options.
func NewJavaParser(opts ...JavaParserOption) *JavaParser {
	p := &JavaParser{
		maxFileSize: DefaultMaxFileSize,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Language returns "java".
func (p *JavaParser) Language() string {
	return "java"
}

// Extensions returns [".java"].
func (p *JavaParser) Extensions() []string {
	return []string{".java"}
}

// Parse extracts the structural unit of a Java source file.
//
// Description:
//
//	Validates size and encoding, parses with tree-sitter, rejects trees
//	containing ERROR or MISSING nodes, then walks the tree collecting
//	declarations and call sites.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after tree-sitter
//     and during call-site walks.
//   - content: Raw Java source bytes.
//   - filePath: Path used for diagnostics and SourceUnit.FilePath.
//
// Outputs:
//   - *SourceUnit: The extracted structure.
//   - error: ErrFileTooLarge, ErrInvalidContent, a *ParseError wrapping
//     ErrParseFailed for syntax errors, or a context error.
//
// Thread Safety: Safe for concurrent use.
func (p *JavaParser) Parse(ctx context.Context, content []byte, filePath string) (*SourceUnit, error) {
	ctx, span := startParseSpan(ctx, "java", filePath, len(content))
	defer span.End()

	start := time.Now()
	fail := func(err error) (*SourceUnit, error) {
		recordParseMetrics(ctx, "java", time.Since(start), 0, false)
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled before start: %w", err))
	}

	if int64(len(content)) > p.maxFileSize {
		return fail(NewParseErrorWithCause(filePath, 0, 0,
			fmt.Sprintf("size %d exceeds limit %d", len(content), p.maxFileSize), ErrFileTooLarge))
	}

	if len(content) > WarnFileSize {
		slog.Warn("parsing large file",
			slog.String("file", filePath),
			slog.Int("size_bytes", len(content)))
	}

	if !utf8.Valid(content) {
		return fail(NewParseErrorWithCause(filePath, 0, 0, "content is not valid UTF-8", ErrInvalidContent))
	}

	hash := sha256.Sum256(content)

	parser := sitter.NewParser()
	parser.SetLanguage(java.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		return fail(NewParseErrorWithCause(filePath, 0, 0, "tree-sitter parse failed", fmt.Errorf("%w: %v", ErrParseFailed, err)))
	}
	defer tree.Close()

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled after tree-sitter: %w", err))
	}

	root := tree.RootNode()
	if root == nil {
		return fail(NewParseErrorWithCause(filePath, 0, 0, "tree-sitter returned nil root node", ErrParseFailed))
	}

	if root.HasError() {
		line, col := 0, 0
		if bad := firstSyntaxError(root); bad != nil {
			line = int(bad.StartPoint().Row) + 1
			col = int(bad.StartPoint().Column) + 1
		}
		return fail(NewParseErrorWithCause(filePath, line, col, "source contains syntax errors", ErrParseFailed))
	}

	unit := &SourceUnit{
		FilePath:      filePath,
		Language:      "java",
		Hash:          hex.EncodeToString(hash[:]),
		ParsedAtMilli: time.Now().UnixMilli(),
		Types:         make([]*TypeDecl, 0),
	}

	w := &javaWalker{ctx: ctx, content: content, filePath: filePath}
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "package_declaration":
			unit.Package = w.packageName(child)
		case "import_declaration":
			if imp := w.importName(child); imp != "" {
				unit.Imports = append(unit.Imports, imp)
			}
		case "class_declaration", "interface_declaration":
			unit.Types = append(unit.Types, w.typeDecls(child)...)
		}
	}

	if err := unit.Validate(); err != nil {
		return fail(fmt.Errorf("result validation failed: %w", err))
	}

	if err := ctx.Err(); err != nil {
		return fail(fmt.Errorf("parse canceled after extraction: %w", err))
	}

	setParseSpanResult(span, len(unit.Types), unit.MethodCount())
	recordParseMetrics(ctx, "java", time.Since(start), len(unit.Types), true)

	return unit, nil
}

// firstSyntaxError returns the first ERROR or MISSING node in pre-order.
func firstSyntaxError(root *sitter.Node) *sitter.Node {
	stack := []*sitter.Node{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if node == nil {
			continue
		}
		if node.IsError() || node.IsMissing() {
			return node
		}
		if !node.HasError() {
			continue
		}
		for i := int(node.ChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, node.Child(i))
		}
	}
	return nil
}

// javaWalker holds per-parse state for declaration extraction.
type javaWalker struct {
	ctx      context.Context
	content  []byte
	filePath string
}

func (w *javaWalker) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(w.content[n.StartByte():n.EndByte()])
}

func (w *javaWalker) packageName(node *sitter.Node) string {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "scoped_identifier", "identifier":
			return w.text(child)
		}
	}
	return ""
}

func (w *javaWalker) importName(node *sitter.Node) string {
	raw := strings.TrimSpace(w.text(node))
	raw = strings.TrimPrefix(raw, "import")
	raw = strings.TrimSuffix(strings.TrimSpace(raw), ";")
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "static ")
	return strings.Join(strings.Fields(raw), "")
}

// typeDecls extracts a class or interface declaration followed by its
// nested class and interface declarations.
func (w *javaWalker) typeDecls(node *sitter.Node) []*TypeDecl {
	decl := &TypeDecl{
		Name:        w.text(node.ChildByFieldName("name")),
		IsInterface: node.Type() == "interface_declaration",
		Annotations: w.annotations(modifiersOf(node)),
		StartLine:   int(node.StartPoint().Row) + 1,
		EndLine:     int(node.EndPoint().Row) + 1,
	}
	out := []*TypeDecl{decl}

	body := node.ChildByFieldName("body")
	if body == nil {
		return out
	}

	var nested []*TypeDecl
	for i := 0; i < int(body.NamedChildCount()); i++ {
		member := body.NamedChild(i)
		switch member.Type() {
		case "field_declaration":
			decl.Fields = append(decl.Fields, w.fields(member)...)
		case "constructor_declaration":
			decl.Constructors = append(decl.Constructors, ConstructorDecl{
				Params: w.params(member.ChildByFieldName("parameters")),
				Line:   int(member.StartPoint().Row) + 1,
			})
		case "method_declaration":
			decl.Methods = append(decl.Methods, w.method(member))
		case "class_declaration", "interface_declaration":
			nested = append(nested, w.typeDecls(member)...)
		}
	}

	return append(out, nested...)
}

// modifiersOf returns the modifiers child of a declaration, or nil.
func modifiersOf(node *sitter.Node) *sitter.Node {
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() == "modifiers" {
			return child
		}
	}
	return nil
}

func (w *javaWalker) annotations(mods *sitter.Node) []Annotation {
	if mods == nil {
		return nil
	}
	var out []Annotation
	for i := 0; i < int(mods.NamedChildCount()); i++ {
		child := mods.NamedChild(i)
		switch child.Type() {
		case "marker_annotation", "annotation":
			out = append(out, Annotation{
				Name: w.text(child.ChildByFieldName("name")),
				Text: w.text(child),
			})
		}
	}
	return out
}

func (w *javaWalker) fields(node *sitter.Node) []FieldDecl {
	typeText := w.text(node.ChildByFieldName("type"))
	annotations := w.annotations(modifiersOf(node))

	var out []FieldDecl
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child.Type() != "variable_declarator" {
			continue
		}
		out = append(out, FieldDecl{
			Name:        w.text(child.ChildByFieldName("name")),
			Type:        typeText,
			Annotations: annotations,
			Line:        int(child.StartPoint().Row) + 1,
		})
	}
	return out
}

func (w *javaWalker) params(node *sitter.Node) []Param {
	if node == nil {
		return nil
	}
	var out []Param
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "formal_parameter":
			out = append(out, Param{
				Name:        w.text(child.ChildByFieldName("name")),
				Type:        w.text(child.ChildByFieldName("type")),
				Annotations: w.annotations(modifiersOf(child)),
			})
		case "spread_parameter":
			out = append(out, w.spreadParam(child))
		}
	}
	return out
}

// spreadParam handles varargs parameters ("String... names"), which carry
// no type/name fields in the grammar.
func (w *javaWalker) spreadParam(node *sitter.Node) Param {
	p := Param{Annotations: w.annotations(modifiersOf(node))}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		switch child.Type() {
		case "modifiers":
		case "variable_declarator":
			p.Name = w.text(child.ChildByFieldName("name"))
		default:
			if p.Type == "" {
				p.Type = w.text(child) + "..."
			}
		}
	}
	return p
}

func (w *javaWalker) method(node *sitter.Node) MethodDecl {
	m := MethodDecl{
		Name:        w.text(node.ChildByFieldName("name")),
		Params:      w.params(node.ChildByFieldName("parameters")),
		ReturnType:  w.text(node.ChildByFieldName("type")),
		Annotations: w.annotations(modifiersOf(node)),
		StartLine:   int(node.StartPoint().Row) + 1,
		EndLine:     int(node.EndPoint().Row) + 1,
	}
	if body := node.ChildByFieldName("body"); body != nil {
		m.Calls = w.callSites(body)
	}
	return m
}

// callSites walks a method body and returns its method invocations in
// pre-order, outer invocation before its receiver and arguments.
func (w *javaWalker) callSites(body *sitter.Node) []CallSite {
	if body == nil || w.ctx.Err() != nil {
		return nil
	}

	ctx, span := tracer.Start(w.ctx, "JavaParser.callSites")
	defer span.End()

	calls := make([]CallSite, 0, 8)

	type stackEntry struct {
		node  *sitter.Node
		depth int
	}
	stack := make([]stackEntry, 0, 64)
	stack = append(stack, stackEntry{node: body})

	nodeCount := 0
	for len(stack) > 0 {
		entry := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		node := entry.node
		if node == nil || entry.depth > MaxCallExpressionDepth {
			continue
		}

		nodeCount++
		if nodeCount%100 == 0 && ctx.Err() != nil {
			slog.Debug("context canceled during call extraction",
				slog.String("file", w.filePath),
				slog.Int("calls_found", len(calls)))
			return calls
		}

		if len(calls) >= MaxCallSitesPerMethod {
			slog.Warn("max call sites per method reached",
				slog.String("file", w.filePath),
				slog.Int("limit", MaxCallSitesPerMethod))
			break
		}

		if node.Type() == "method_invocation" {
			if name := node.ChildByFieldName("name"); name != nil {
				calls = append(calls, CallSite{
					Callee:   w.text(name),
					Receiver: w.text(node.ChildByFieldName("object")),
					Line:     int(node.StartPoint().Row) + 1,
					Text:     w.text(node),
				})
			}
		}

		for i := int(node.NamedChildCount()) - 1; i >= 0; i-- {
			stack = append(stack, stackEntry{node: node.NamedChild(i), depth: entry.depth + 1})
		}
	}

	span.SetAttributes(
		attribute.String("file", w.filePath),
		attribute.Int("calls_found", len(calls)),
		attribute.Int("nodes_traversed", nodeCount),
	)
	return calls
}
