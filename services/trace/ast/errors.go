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
	"errors"
	"fmt"
)

// Sentinel errors for parse failure conditions.
//
// Check them with errors.Is. All of them mean the file is skipped; none of
// them stop an analysis run.
var (
	// ErrUnsupportedLanguage indicates that no parser handles the file.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrParseFailed indicates that the file has syntax errors or the
	// underlying parser failed.
	ErrParseFailed = errors.New("parse failed")

	// ErrInvalidContent indicates content that cannot be processed
	// (non UTF-8, empty path, malformed result).
	ErrInvalidContent = errors.New("invalid content")

	// ErrFileTooLarge indicates the file exceeds the parser's size limit.
	ErrFileTooLarge = errors.New("file too large")
)

// ParseError provides detailed information about a parse failure.
//
// Example:
//
//	unit, err := parser.Parse(ctx, content, "UserController.java")
//	var parseErr *ParseError
//	if errors.As(err, &parseErr) {
//	    fmt.Printf("%s:%d: %s\n", parseErr.FilePath, parseErr.Line, parseErr.Message)
//	}
type ParseError struct {
	// FilePath is the file where the error occurred.
	FilePath string

	// Line is the 1-indexed line, 0 when unknown.
	Line int

	// Column is the 1-indexed column, 0 when unknown.
	Column int

	// Message describes the error.
	Message string

	// Cause is the underlying error, may be nil.
	Cause error
}

// Error formats as "file:line:col: message", omitting unknown parts.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("%s:%d:%d: %s", e.FilePath, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.FilePath, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// NewParseErrorWithCause creates a ParseError wrapping cause.
func NewParseErrorWithCause(filePath string, line, column int, message string, cause error) *ParseError {
	return &ParseError{
		FilePath: filePath,
		Line:     line,
		Column:   column,
		Message:  message,
		Cause:    cause,
	}
}

// WrapParseError wraps err with file context. ParseErrors are returned
// unchanged and nil stays nil.
func WrapParseError(err error, filePath string) error {
	if err == nil {
		return nil
	}

	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}

	return &ParseError{
		FilePath: filePath,
		Message:  err.Error(),
		Cause:    err,
	}
}

// IsParseError reports whether err is or wraps a ParseError.
func IsParseError(err error) bool {
	var parseErr *ParseError
	return errors.As(err, &parseErr)
}
