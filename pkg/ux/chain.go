// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package ux

import (
	"fmt"
	"strings"
)

// ChainStep is one rendered node of a call chain.
type ChainStep struct {
	Level   int
	Service string
	Class   string
	Method  string

	// Kind is the call kind that reached this node. Empty for the entry.
	Kind string

	// Remote marks a step reached through an RPC hop into another service.
	Remote bool
}

// ChainView is a call chain prepared for display.
type ChainView struct {
	ID           string
	Route        string
	CrossService bool
	Services     []string
	Steps        []ChainStep
}

// Chain prints one chain as an indented tree.
//
// Plain output is one header line followed by one line per step:
//
//	CHAIN <id> route="GET /orders/{id}" cross_service=true services=order,user
//	0 order-service OrderController.get
//	  1 order-service OrderService.load INTERNAL_METHOD_CALL
func (p *Printer) Chain(v ChainView) {
	if p.mode == ModePlain {
		fmt.Fprintf(p.w, "CHAIN %s route=%q cross_service=%t services=%s\n",
			v.ID, v.Route, v.CrossService, strings.Join(v.Services, ","))
		for _, s := range v.Steps {
			line := fmt.Sprintf("%s%d %s %s.%s", strings.Repeat("  ", s.Level), s.Level, s.Service, s.Class, s.Method)
			if s.Kind != "" {
				line += " " + s.Kind
			}
			fmt.Fprintln(p.w, line)
		}
		return
	}

	header := Styles.Title.Render(v.Route)
	if v.Route == "" {
		header = Styles.Title.Render(v.ID)
	}
	if v.CrossService {
		header += " " + Styles.Remote.Render("cross-service")
	}
	fmt.Fprintln(p.w, header)
	fmt.Fprintln(p.w, Styles.Muted.Render("services: "+strings.Join(v.Services, ", ")))

	for _, s := range v.Steps {
		indent := strings.Repeat("   ", s.Level)
		branch := ""
		if s.Level > 0 {
			branch = Styles.Muted.Render("└─ ")
		}
		name := Styles.Bold.Render(s.Class) + "." + Styles.Highlight.Render(s.Method)
		svc := Styles.Service.Render("[" + s.Service + "]")
		line := indent + branch + name + " " + svc
		if s.Remote {
			line = indent + branch + IconRemote.Render() + " " + name + " " + svc
		}
		if s.Kind != "" {
			line += " " + Styles.Muted.Render(s.Kind)
		}
		fmt.Fprintln(p.w, line)
	}
	fmt.Fprintln(p.w)
}
