// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package classify turns parsed declarations into model entities.
//
// The Classifier derives a class role and injected dependencies from a
// type declaration, and method records and call edges from its methods.
// The Linker resolves local call targets once every class is in the store.
//
// Classification is purely syntactic. Annotations are matched by simple
// name against closed tables; nothing is resolved through imports.
package classify

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/AleutianAI/callchain/services/trace/ast"
	"github.com/AleutianAI/callchain/services/trace/model"
)

// ErrInvalidDecl indicates a type declaration that cannot be classified.
var ErrInvalidDecl = errors.New("invalid type declaration")

// Classifier classifies type declarations.
//
// Thread Safety: Safe for concurrent use. A Classifier holds no mutable
// state; results are returned to the caller.
type Classifier struct {
	logger *slog.Logger
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithLogger sets the logger used for dropped fields and skipped calls.
func WithLogger(l *slog.Logger) Option {
	return func(c *Classifier) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Classifier.
func New(opts ...Option) *Classifier {
	c := &Classifier{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ClassResult holds everything classified from one type declaration.
type ClassResult struct {
	Class   *model.Class
	Methods []*model.Method
	Edges   []*model.CallEdge
}

// ClassifyUnit classifies every type declaration in unit for the given
// service.
//
// Description:
//
//	Declarations that fail classification are skipped; their errors are
//	joined into the returned error while the remaining results are still
//	returned. Results keep the declaration order of the unit.
//
// Inputs:
//   - serviceID: Owning service id.
//   - unit: Parsed source file. Nil returns no results.
//
// Outputs:
//   - []ClassResult: One entry per classified declaration.
//   - error: Joined per-declaration failures, nil when all succeeded.
func (c *Classifier) ClassifyUnit(serviceID string, unit *ast.SourceUnit) ([]ClassResult, error) {
	if unit == nil {
		return nil, nil
	}

	results := make([]ClassResult, 0, len(unit.Types))
	var errs []error
	for _, decl := range unit.Types {
		cls, err := c.ClassifyClass(serviceID, unit.Package, unit.FilePath, decl)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		methods, edges := c.Methods(cls, decl)
		results = append(results, ClassResult{Class: cls, Methods: methods, Edges: edges})
	}
	return results, errors.Join(errs...)
}

// ClassifyClass builds the class record for decl, including its role and
// dependencies.
func (c *Classifier) ClassifyClass(serviceID, pkg, filePath string, decl *ast.TypeDecl) (*model.Class, error) {
	if decl == nil {
		return nil, fmt.Errorf("%s: %w: nil declaration", filePath, ErrInvalidDecl)
	}
	if decl.Name == "" {
		return nil, fmt.Errorf("%s:%d: %w: unnamed declaration", filePath, decl.StartLine, ErrInvalidDecl)
	}

	qualified := decl.Name
	if pkg != "" {
		qualified = pkg + "." + decl.Name
	}

	cls := &model.Class{
		ID:            model.NewID(),
		ServiceID:     serviceID,
		PackageName:   pkg,
		ClassName:     decl.Name,
		QualifiedName: qualified,
		Role:          Role(decl),
		Annotations:   annotationTexts(decl.Annotations),
		FilePath:      filePath,
		Dependencies:  c.Dependencies(decl),
	}

	for _, a := range decl.Annotations {
		if providerAnnotations[a.SimpleName()] {
			cls.Version = a.Attr("version")
			cls.Group = a.Attr("group")
			break
		}
	}

	return cls, nil
}

// Role derives the class role of decl.
//
// Interfaces are always RoleInterface. Otherwise the first annotation found
// in the role table wins; no match yields RolePlain.
func Role(decl *ast.TypeDecl) model.ClassRole {
	if decl.IsInterface {
		return model.RoleInterface
	}
	for _, a := range decl.Annotations {
		if role, ok := roleByAnnotation[a.SimpleName()]; ok {
			return role
		}
	}
	return model.RolePlain
}

// Dependencies extracts injected dependencies from fields and constructor
// parameters, fields first, each in declaration order.
func (c *Classifier) Dependencies(decl *ast.TypeDecl) []model.Dependency {
	deps := make([]model.Dependency, 0, len(decl.Fields))

	for _, f := range decl.Fields {
		kind, ann := injectionOf(f.Annotations)
		if kind == model.InjectNone {
			continue
		}
		if f.Name == "" || f.Type == "" {
			c.logger.Warn("dropping injected field without name or type",
				slog.String("class", decl.Name),
				slog.String("field", f.Name),
				slog.Int("line", f.Line),
			)
			continue
		}

		dep := model.Dependency{
			FieldName:  f.Name,
			Injection:  kind,
			TargetType: f.Type,
			Scope:      model.ScopeInternal,
		}
		if kind == model.InjectRemoteReference {
			dep.Scope = model.ScopeRemote
			dep.InterfaceName = f.Type
			dep.Version = ann.Attr("version")
			dep.Group = ann.Attr("group")
		}
		deps = append(deps, dep)
	}

	for _, ctor := range decl.Constructors {
		for _, p := range ctor.Params {
			if p.Name == "" || p.Type == "" {
				c.logger.Warn("dropping constructor parameter without name or type",
					slog.String("class", decl.Name),
					slog.Int("line", ctor.Line),
				)
				continue
			}
			deps = append(deps, model.Dependency{
				FieldName:  p.Name,
				Injection:  model.InjectConstructor,
				TargetType: p.Type,
				Scope:      model.ScopeInternal,
			})
		}
	}

	return deps
}

// injectionOf returns the injection kind of the first annotation found in
// the injection table, together with that annotation.
func injectionOf(annotations []ast.Annotation) (model.InjectionKind, ast.Annotation) {
	for _, a := range annotations {
		if kind, ok := injectionByAnnotation[a.SimpleName()]; ok {
			return kind, a
		}
	}
	return model.InjectNone, ast.Annotation{}
}

func annotationTexts(annotations []ast.Annotation) []string {
	out := make([]string, 0, len(annotations))
	for _, a := range annotations {
		out = append(out, a.Text)
	}
	return out
}
