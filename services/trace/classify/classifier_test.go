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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/callchain/services/trace/ast"
	"github.com/AleutianAI/callchain/services/trace/model"
)

func ann(name, text string) ast.Annotation {
	return ast.Annotation{Name: name, Text: text}
}

func controllerDecl() *ast.TypeDecl {
	return &ast.TypeDecl{
		Name: "UserController",
		Annotations: []ast.Annotation{
			ann("RestController", "@RestController"),
			ann("RequestMapping", `@RequestMapping("/api/users")`),
		},
		Fields: []ast.FieldDecl{
			{Name: "userService", Type: "UserService", Annotations: []ast.Annotation{ann("Autowired", "@Autowired")}},
			{Name: "orderService", Type: "com.acme.api.OrderService", Annotations: []ast.Annotation{
				ann("DubboReference", `@DubboReference(version = "1.0.0", group = "blue")`),
			}},
			{Name: "plain", Type: "String"},
			{Name: "audit", Type: "AuditLog", Annotations: []ast.Annotation{ann("Resource", "@Resource")}},
			{Name: "clock", Type: "Clock", Annotations: []ast.Annotation{ann("javax.inject.Inject", "@javax.inject.Inject")}},
			{Name: "legacy", Type: "LegacyService", Annotations: []ast.Annotation{ann("Reference", "@Reference")}},
			{Name: "broken", Type: "", Annotations: []ast.Annotation{ann("Autowired", "@Autowired")}},
		},
		Constructors: []ast.ConstructorDecl{
			{Line: 20},
			{Line: 22, Params: []ast.Param{{Name: "repo", Type: "UserRepository"}, {Name: "cache", Type: "Cache<String>"}}},
		},
		Methods: []ast.MethodDecl{
			{
				Name:        "getUser",
				ReturnType:  "User",
				Params:      []ast.Param{{Name: "id", Type: "Long"}},
				Annotations: []ast.Annotation{ann("GetMapping", `@GetMapping("/{id}")`)},
				StartLine:   30,
				EndLine:     35,
				Calls: []ast.CallSite{
					{Callee: "find", Receiver: "userService", Line: 31, Text: "userService.find(id)"},
					{Callee: "create", Receiver: "orderService", Line: 32, Text: "orderService.create(id)"},
					{Callee: "create", Receiver: "this.orderService", Line: 33, Text: "this.orderService.create(id)"},
					{Callee: "helper", Line: 34, Text: "helper()"},
				},
			},
			{
				Name:        "createUser",
				ReturnType:  "void",
				Annotations: []ast.Annotation{ann("PostMapping", "@PostMapping")},
			},
			{Name: "helper", ReturnType: "void"},
		},
	}
}

func TestClassifyClass_RoleAndDependencies(t *testing.T) {
	c := New()
	cls, err := c.ClassifyClass("svc1", "com.acme.web", "UserController.java", controllerDecl())
	require.NoError(t, err)

	assert.NotEmpty(t, cls.ID)
	assert.Equal(t, "svc1", cls.ServiceID)
	assert.Equal(t, "com.acme.web.UserController", cls.QualifiedName)
	assert.Equal(t, model.RoleController, cls.Role)
	assert.Equal(t, []string{"@RestController", `@RequestMapping("/api/users")`}, cls.Annotations)

	require.Len(t, cls.Dependencies, 7)
	for _, d := range cls.Dependencies {
		assert.NotEmpty(t, d.FieldName)
		_, known := map[model.InjectionKind]bool{
			model.InjectFramework: true, model.InjectResource: true, model.InjectStandard: true,
			model.InjectConstructor: true, model.InjectRemoteReference: true,
		}[d.Injection]
		assert.True(t, known, d.FieldName)
	}

	byName := map[string]model.Dependency{}
	for _, d := range cls.Dependencies {
		byName[d.FieldName] = d
	}

	assert.Equal(t, model.InjectFramework, byName["userService"].Injection)
	assert.Equal(t, model.ScopeInternal, byName["userService"].Scope)
	assert.Empty(t, byName["userService"].InterfaceName)

	remote := byName["orderService"]
	assert.Equal(t, model.InjectRemoteReference, remote.Injection)
	assert.Equal(t, model.ScopeRemote, remote.Scope)
	assert.Equal(t, "com.acme.api.OrderService", remote.InterfaceName)
	assert.Equal(t, remote.TargetType, remote.InterfaceName)
	assert.Equal(t, "1.0.0", remote.Version)
	assert.Equal(t, "blue", remote.Group)

	assert.Equal(t, model.InjectResource, byName["audit"].Injection)
	assert.Equal(t, model.InjectStandard, byName["clock"].Injection)
	assert.Equal(t, model.InjectRemoteReference, byName["legacy"].Injection)
	assert.Equal(t, model.InjectConstructor, byName["repo"].Injection)
	assert.Equal(t, "Cache<String>", byName["cache"].TargetType)

	_, hasPlain := byName["plain"]
	assert.False(t, hasPlain)
	_, hasBroken := byName["broken"]
	assert.False(t, hasBroken)
}

func TestRole(t *testing.T) {
	tests := []struct {
		name string
		decl *ast.TypeDecl
		want model.ClassRole
	}{
		{"interface wins over annotations", &ast.TypeDecl{Name: "A", IsInterface: true, Annotations: []ast.Annotation{ann("Service", "@Service")}}, model.RoleInterface},
		{"controller", &ast.TypeDecl{Name: "A", Annotations: []ast.Annotation{ann("Controller", "@Controller")}}, model.RoleController},
		{"qualified provider", &ast.TypeDecl{Name: "A", Annotations: []ast.Annotation{ann("org.apache.dubbo.config.annotation.DubboService", "@org.apache.dubbo.config.annotation.DubboService")}}, model.RoleRemoteProvider},
		{"first match wins", &ast.TypeDecl{Name: "A", Annotations: []ast.Annotation{ann("Slf4j", "@Slf4j"), ann("Repository", "@Repository"), ann("Component", "@Component")}}, model.RoleRepository},
		{"configuration", &ast.TypeDecl{Name: "A", Annotations: []ast.Annotation{ann("Configuration", "@Configuration")}}, model.RoleConfiguration},
		{"plain", &ast.TypeDecl{Name: "A", Annotations: []ast.Annotation{ann("Data", "@Data")}}, model.RolePlain},
		{"no annotations", &ast.TypeDecl{Name: "A"}, model.RolePlain},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Role(tt.decl))
		})
	}
}

func TestClassifyClass_ProviderTags(t *testing.T) {
	decl := &ast.TypeDecl{
		Name:        "OrderServiceImpl",
		Annotations: []ast.Annotation{ann("DubboService", `@DubboService(version = "2.0", group = "green")`)},
	}
	cls, err := New().ClassifyClass("svc2", "com.acme.order.impl", "OrderServiceImpl.java", decl)
	require.NoError(t, err)
	assert.Equal(t, model.RoleRemoteProvider, cls.Role)
	assert.Equal(t, "2.0", cls.Version)
	assert.Equal(t, "green", cls.Group)
}

func TestClassifyClass_Invalid(t *testing.T) {
	c := New()
	_, err := c.ClassifyClass("svc", "p", "F.java", nil)
	assert.ErrorIs(t, err, ErrInvalidDecl)

	_, err = c.ClassifyClass("svc", "p", "F.java", &ast.TypeDecl{})
	assert.ErrorIs(t, err, ErrInvalidDecl)
}

func TestClassifyClass_DefaultPackage(t *testing.T) {
	cls, err := New().ClassifyClass("svc", "", "Main.java", &ast.TypeDecl{Name: "Main"})
	require.NoError(t, err)
	assert.Equal(t, "Main", cls.QualifiedName)
	assert.Empty(t, cls.Dependencies)
}

func TestMethods_CallClassification(t *testing.T) {
	c := New()
	decl := controllerDecl()
	cls, err := c.ClassifyClass("svc1", "com.acme.web", "UserController.java", decl)
	require.NoError(t, err)

	methods, edges := c.Methods(cls, decl)
	require.Len(t, methods, 3)

	getUser := methods[0]
	assert.Equal(t, cls.ID, getUser.ClassID)
	assert.Equal(t, "getUser", getUser.Name)
	assert.Equal(t, "User getUser(Long id)", getUser.Signature)
	assert.Equal(t, []model.Parameter{{Name: "id", Type: "Long", Index: 0}}, getUser.Parameters)
	assert.Equal(t, 30, getUser.LineStart)
	assert.Equal(t, 35, getUser.LineEnd)

	require.Len(t, edges, 4)
	for _, e := range edges {
		assert.Equal(t, getUser.ID, e.SourceMethodID)
		assert.Empty(t, e.TargetMethodID)
	}

	assert.Equal(t, model.CallInternal, edges[0].Kind)
	assert.False(t, edges[0].CrossService)

	assert.Equal(t, model.CallRemote, edges[1].Kind)
	assert.True(t, edges[1].CrossService)
	assert.Equal(t, "com.acme.api.OrderService.create", edges[1].TargetQualified)
	assert.Equal(t, "1.0.0", edges[1].Version)
	assert.Equal(t, "blue", edges[1].Group)
	assert.Equal(t, 32, edges[1].Line)
	assert.Equal(t, "orderService.create(id)", edges[1].Text)

	// Receiver matching is exact text only.
	assert.Equal(t, model.CallInternal, edges[2].Kind)
	assert.Empty(t, edges[2].TargetQualified)

	assert.Equal(t, model.CallInternal, edges[3].Kind)
	assert.Equal(t, "helper", edges[3].Callee)
	assert.Empty(t, edges[3].Receiver)
}

func TestClassifyUnit(t *testing.T) {
	unit := &ast.SourceUnit{
		FilePath: "Mixed.java",
		Package:  "com.acme",
		Types: []*ast.TypeDecl{
			{Name: "First", Methods: []ast.MethodDecl{{Name: "a"}}},
			{Name: ""},
			{Name: "Second"},
		},
	}
	results, err := New().ClassifyUnit("svc", unit)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidDecl)
	require.Len(t, results, 2)
	assert.Equal(t, "com.acme.First", results[0].Class.QualifiedName)
	assert.Len(t, results[0].Methods, 1)
	assert.Equal(t, "com.acme.Second", results[1].Class.QualifiedName)

	results, err = New().ClassifyUnit("svc", nil)
	assert.NoError(t, err)
	assert.Empty(t, results)
}

func TestEntryPointAndRoute(t *testing.T) {
	cls := &model.Class{Annotations: []string{"@RestController", `@RequestMapping("/api/users")`}}
	bare := &model.Class{Annotations: []string{"@RestController"}}

	tests := []struct {
		name      string
		method    []string
		class     *model.Class
		wantEntry bool
		wantRoute string
	}{
		{"get with class prefix", []string{`@GetMapping("/{id}")`}, cls, true, "GET /api/users/{id}"},
		{"post without path", []string{"@PostMapping"}, cls, true, "POST /api/users"},
		{"put", []string{`@PutMapping("/x")`}, bare, true, "PUT /x"},
		{"delete", []string{`@DeleteMapping(value = "/d")`}, bare, true, "DELETE /d"},
		{"patch", []string{`@PatchMapping("/p")`}, bare, true, "PATCH /p"},
		{"request mapping defaults to GET", []string{`@RequestMapping("/r")`}, cls, true, "GET /api/users/r"},
		{"first mapping wins", []string{"@Override", `@PostMapping("/a")`, `@GetMapping("/b")`}, bare, true, "POST /a"},
		{"qualified mapping", []string{`@org.springframework.web.bind.annotation.GetMapping("/q")`}, bare, true, "GET /q"},
		{"not an entry", []string{"@Transactional"}, cls, false, ""},
		{"no annotations", nil, cls, false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := &model.Method{Annotations: tt.method}
			assert.Equal(t, tt.wantEntry, IsEntryPoint(m))
			assert.Equal(t, tt.wantRoute, Route(m, tt.class))
		})
	}
}

func TestQuotedPath(t *testing.T) {
	assert.Equal(t, "/a", quotedPath(`@GetMapping("/a")`))
	assert.Equal(t, "", quotedPath("@GetMapping"))
	assert.Equal(t, "", quotedPath(`@GetMapping("`))
	assert.Equal(t, `/a", produces = "json`, quotedPath(`@GetMapping(value = "/a", produces = "json")`))
}
