// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package analyzer

import (
	"errors"
	"fmt"
)

// ErrNoServices indicates that none of the given paths produced a service.
var ErrNoServices = errors.New("no services to analyze")

// FileError records a source file that was skipped or only partially
// classified.
type FileError struct {
	// Path is the absolute file path.
	Path string

	// ServiceID is the owning service.
	ServiceID string

	// Err is the underlying failure.
	Err error
}

// Error formats as "path: cause".
func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error.
func (e *FileError) Unwrap() error {
	return e.Err
}
