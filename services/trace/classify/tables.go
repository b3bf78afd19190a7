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

import "github.com/AleutianAI/callchain/services/trace/model"

// Annotation dispatch tables, keyed by annotation simple name.
var (
	// injectionByAnnotation maps field annotations to injection kinds.
	injectionByAnnotation = map[string]model.InjectionKind{
		"Autowired":      model.InjectFramework,
		"Resource":       model.InjectResource,
		"Inject":         model.InjectStandard,
		"DubboReference": model.InjectRemoteReference,
		"Reference":      model.InjectRemoteReference,
	}

	// roleByAnnotation maps class annotations to class roles.
	roleByAnnotation = map[string]model.ClassRole{
		"RestController": model.RoleController,
		"Controller":     model.RoleController,
		"Service":        model.RoleService,
		"Repository":     model.RoleRepository,
		"Component":      model.RoleComponent,
		"Configuration":  model.RoleConfiguration,
		"DubboService":   model.RoleRemoteProvider,
	}

	// verbByMapping maps request mapping annotations to HTTP verbs.
	verbByMapping = map[string]string{
		"GetMapping":     "GET",
		"PostMapping":    "POST",
		"PutMapping":     "PUT",
		"DeleteMapping":  "DELETE",
		"PatchMapping":   "PATCH",
		"RequestMapping": "GET",
	}
)

// requestMapping is the class-level mapping annotation that carries the
// route prefix.
const requestMapping = "RequestMapping"

// providerAnnotations carry remote version and group tags on a provider.
var providerAnnotations = map[string]bool{
	"DubboService": true,
	"Service":      true,
}
