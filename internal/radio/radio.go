// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package radio defines the in-memory settings and model structures that are
// persisted as record payloads, together with their default generators.
//
// Both structures contain only fixed-size fields and are serialized with
// encoding/binary in little-endian order, so the payload layout is stable
// across architectures.
package radio

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// Hardware dimensions.
const (
	NumSticks   = 4
	NumPots     = 3
	NumTimers   = 3
	NumChannels = 16
	NumModules  = 2

	LenModelName     = 10
	LenModelFilename = 16
	LenBitmapName    = 10
)

// Channel output range.
const (
	OutputMin int16 = -1024
	OutputMax int16 = 1024
)

// DefaultModelFilename is the model created on a freshly formatted medium.
const DefaultModelFilename = "model1.bin"

var order = binary.LittleEndian

func marshal(v any) ([]byte, error) {
	return binary.Append(nil, order, v)
}

func unmarshal(data []byte, v any) error {
	size := binary.Size(v)
	if len(data) != size {
		return fmt.Errorf("radio: payload is %d bytes, want %d", len(data), size)
	}
	_, err := binary.Decode(data, order, v)
	return err
}

// cstring returns the NUL-terminated prefix of b.
func cstring(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		return string(b[:i])
	}
	return string(b)
}

// putCString copies s into b, zero-filling the rest.
func putCString(b []byte, s string) {
	clear(b)
	copy(b, s)
}
