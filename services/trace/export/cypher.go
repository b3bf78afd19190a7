// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/callchain/services/trace/store"
)

var cypherEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`, "\n", `\n`, "\r", `\r`)

// quote renders s as a single-quoted Cypher string literal.
func quote(s string) string {
	return "'" + cypherEscaper.Replace(s) + "'"
}

// WriteCypher writes a Cypher import script for the store.
//
// The script creates Service, Class and Method nodes, then one CALLS
// relationship per call edge with a resolved target. Unresolved remote
// edges are omitted. Statements are separated by blank lines and each ends
// with a semicolon.
func WriteCypher(w io.Writer, s *store.Store) error {
	bw := bufio.NewWriter(w)
	p := func(format string, args ...any) {
		fmt.Fprintf(bw, format, args...)
	}

	p("// Call chain graph import script\n\n")

	p("// Services\n")
	for _, svc := range s.Services() {
		p("CREATE (:Service {id: %s, name: %s, artifactId: %s});\n",
			quote(svc.ID), quote(svc.Name), quote(svc.ArtifactID))
	}
	p("\n")

	p("// Classes\n")
	for _, cls := range s.Classes() {
		p("CREATE (:Class {id: %s, serviceId: %s, name: %s, qualifiedName: %s, type: %s});\n",
			quote(cls.ID), quote(cls.ServiceID), quote(cls.ClassName), quote(cls.QualifiedName), quote(cls.Role.String()))
	}
	p("\n")

	p("// Methods\n")
	for _, m := range s.Methods() {
		p("CREATE (:Method {id: %s, classId: %s, name: %s, signature: %s});\n",
			quote(m.ID), quote(m.ClassID), quote(m.Name), quote(m.Signature))
	}
	p("\n")

	p("// Calls\n")
	for _, e := range s.Edges() {
		target := e.TargetMethodID
		if target == "" {
			continue
		}
		p("MATCH (m1:Method {id: %s}), (m2:Method {id: %s})\nCREATE (m1)-[:CALLS {callType: %s, crossService: %t, line: %d}]->(m2);\n",
			quote(e.SourceMethodID), quote(target), quote(e.Kind.String()), e.CrossService, e.Line)
	}

	return bw.Flush()
}
