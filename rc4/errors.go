// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package rc4

import "errors"

var (
	// ErrInvalidConfiguration is returned when a key, state size, or
	// variant combination is rejected before any cipher work begins.
	ErrInvalidConfiguration = errors.New("rc4: invalid configuration")

	// ErrLengthMismatch is returned by EncryptDecrypt when the keystream
	// is shorter than the data it must cover.
	ErrLengthMismatch = errors.New("rc4: keystream shorter than data")
)
