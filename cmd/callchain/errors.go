// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package main

import (
	"github.com/spf13/cobra"
)

// usageError marks errors caused by the command line itself. The usage of
// cmd is printed after the message.
type usageError struct {
	cmd *cobra.Command
	err error
}

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

func newUsageError(cmd *cobra.Command, err error) error {
	return &usageError{cmd: cmd, err: err}
}
