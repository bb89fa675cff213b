// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package record

import "errors"

var (
	// ErrStorageIO wraps failures reported by the storage medium: open,
	// read, write, close, and short writes.
	ErrStorageIO = errors.New("record: storage I/O error")

	// ErrIncompatible is returned when a file is too short or its header
	// fails validation.
	ErrIncompatible = errors.New("record: incompatible format")

	// ErrPayloadTooLarge is returned by Write for payloads the size field
	// cannot describe.
	ErrPayloadTooLarge = errors.New("record: payload too large")
)
