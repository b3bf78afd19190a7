// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.


package callchain

import "errors"

// Sentinel errors for the HTTP service.
var (
	// ErrNoResult indicates the service has no analysis result loaded yet.
	ErrNoResult = errors.New("no analysis result loaded")

	// ErrSnapshotsDisabled indicates a snapshot request on a service
	// started without a snapshot store.
	ErrSnapshotsDisabled = errors.New("snapshots are not enabled")

	// ErrNotFound indicates an unknown entity id.
	ErrNotFound = errors.New("not found")
)
