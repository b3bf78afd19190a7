// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package scanner

import (
	"encoding/xml"
	"fmt"
	"os"
	"strings"
)

// POM holds the Maven coordinates read from a pom.xml.
type POM struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
	Version    string `xml:"version"`
	Name       string `xml:"name"`
	Packaging  string `xml:"packaging"`

	Parent struct {
		GroupID    string `xml:"groupId"`
		ArtifactID string `xml:"artifactId"`
		Version    string `xml:"version"`
	} `xml:"parent"`
}

// IsAggregator reports whether the POM only aggregates modules
// (packaging "pom").
func (p *POM) IsAggregator() bool {
	return strings.EqualFold(p.Packaging, "pom")
}

// EffectiveGroupID returns the group id, inherited from the parent when
// the project does not declare one.
func (p *POM) EffectiveGroupID() string {
	if p.GroupID != "" {
		return p.GroupID
	}
	return p.Parent.GroupID
}

// EffectiveVersion returns the version, inherited from the parent when the
// project does not declare one.
func (p *POM) EffectiveVersion() string {
	if p.Version != "" {
		return p.Version
	}
	return p.Parent.Version
}

// ReadPOM parses the pom.xml at path.
func ReadPOM(path string) (*POM, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParsePOM(data)
}

// ParsePOM parses pom.xml content. Text values are trimmed.
func ParsePOM(data []byte) (*POM, error) {
	var p POM
	if err := xml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPOM, err)
	}
	p.GroupID = strings.TrimSpace(p.GroupID)
	p.ArtifactID = strings.TrimSpace(p.ArtifactID)
	p.Version = strings.TrimSpace(p.Version)
	p.Name = strings.TrimSpace(p.Name)
	p.Packaging = strings.TrimSpace(p.Packaging)
	p.Parent.GroupID = strings.TrimSpace(p.Parent.GroupID)
	p.Parent.ArtifactID = strings.TrimSpace(p.Parent.ArtifactID)
	p.Parent.Version = strings.TrimSpace(p.Parent.Version)
	return &p, nil
}
