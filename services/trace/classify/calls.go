// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package classify

import (
	"log/slog"
	"strings"

	"github.com/AleutianAI/callchain/services/trace/ast"
	"github.com/AleutianAI/callchain/services/trace/model"
)

// Methods builds method records and call edges for the methods of decl.
//
// Description:
//
//	A call whose receiver text exactly equals the name of a remote
//	reference field of cls becomes a cross-service CallRemote edge with
//	TargetQualified "<field type>.<callee>". Every other call is a
//	CallInternal edge left unresolved for the Linker.
//
// Inputs:
//   - cls: The class record produced by ClassifyClass for decl.
//   - decl: The parsed declaration.
//
// Outputs:
//   - []*model.Method: One per method, in declaration order.
//   - []*model.CallEdge: One per call site, method order then call order.
func (c *Classifier) Methods(cls *model.Class, decl *ast.TypeDecl) ([]*model.Method, []*model.CallEdge) {
	if cls == nil || decl == nil {
		return nil, nil
	}

	remote := make(map[string]model.Dependency)
	for _, d := range cls.Dependencies {
		if d.IsRemote() {
			if _, dup := remote[d.FieldName]; !dup {
				remote[d.FieldName] = d
			}
		}
	}

	methods := make([]*model.Method, 0, len(decl.Methods))
	var edges []*model.CallEdge

	for i := range decl.Methods {
		md := &decl.Methods[i]
		m := &model.Method{
			ID:          model.NewID(),
			ClassID:     cls.ID,
			Name:        md.Name,
			Signature:   md.Signature(),
			ReturnType:  md.ReturnType,
			Parameters:  parameters(md.Params),
			Annotations: annotationTexts(md.Annotations),
			LineStart:   md.StartLine,
			LineEnd:     md.EndLine,
		}
		methods = append(methods, m)

		for _, call := range md.Calls {
			if call.Callee == "" {
				c.logger.Debug("skipping call without callee",
					slog.String("class", cls.QualifiedName),
					slog.String("method", md.Name),
					slog.Int("line", call.Line),
				)
				continue
			}
			edges = append(edges, classifyCall(m.ID, call, remote))
		}
	}

	return methods, edges
}

func classifyCall(sourceID string, call ast.CallSite, remote map[string]model.Dependency) *model.CallEdge {
	edge := &model.CallEdge{
		ID:             model.NewID(),
		SourceMethodID: sourceID,
		Kind:           model.CallInternal,
		Line:           call.Line,
		Text:           call.Text,
		Callee:         call.Callee,
		Receiver:       call.Receiver,
	}

	if call.Receiver == "" {
		return edge
	}
	dep, ok := remote[call.Receiver]
	if !ok {
		return edge
	}

	edge.Kind = model.CallRemote
	edge.CrossService = true
	edge.TargetQualified = dep.TargetType + "." + call.Callee
	edge.Version = dep.Version
	edge.Group = dep.Group
	return edge
}

func parameters(params []ast.Param) []model.Parameter {
	out := make([]model.Parameter, 0, len(params))
	for i, p := range params {
		out = append(out, model.Parameter{Name: p.Name, Type: p.Type, Index: i})
	}
	return out
}

// =============================================================================
// ENTRY POINTS AND ROUTES
// =============================================================================

// IsEntryPoint reports whether m carries a request mapping annotation.
func IsEntryPoint(m *model.Method) bool {
	_, ok := mappingOf(m.Annotations)
	return ok
}

// Route renders the HTTP route of an entry point as "<VERB> <path>".
//
// The path is the class-level RequestMapping path followed by the method
// mapping path. Returns "" when m is not an entry point.
//
//	@RequestMapping("/api/users") + @GetMapping("/{id}") -> "GET /api/users/{id}"
func Route(m *model.Method, cls *model.Class) string {
	text, ok := mappingOf(m.Annotations)
	if !ok {
		return ""
	}

	verb := verbByMapping[model.AnnotationSimpleName(text)]
	if verb == "" {
		verb = "GET"
	}

	classPath := ""
	if cls != nil {
		for _, a := range cls.Annotations {
			if model.AnnotationSimpleName(a) == requestMapping {
				classPath = quotedPath(a)
				break
			}
		}
	}

	return verb + " " + classPath + quotedPath(text)
}

// mappingOf returns the first method annotation that is a request mapping.
func mappingOf(annotations []string) (string, bool) {
	for _, a := range annotations {
		if _, ok := verbByMapping[model.AnnotationSimpleName(a)]; ok {
			return a, true
		}
	}
	return "", false
}

// quotedPath returns the text between the first and last double quote of
// an annotation, or "" when there is no quoted text.
func quotedPath(annotation string) string {
	start := strings.IndexByte(annotation, '"')
	end := strings.LastIndexByte(annotation, '"')
	if start < 0 || end <= start {
		return ""
	}
	return annotation[start+1 : end]
}
