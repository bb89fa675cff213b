// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package record

import (
	"encoding/binary"
	"fmt"
)

// Record header constants must never change: files written by older
// firmware have to stay readable.
const (
	// HeaderSize is the fixed size of the on-storage header.
	HeaderSize = 8

	// CurrentVersion is stamped on every written record.
	CurrentVersion uint8 = 219

	// FirstSupportedVersion is the oldest version Load accepts.
	FirstSupportedVersion uint8 = 216

	// KindModel tags both the settings and model records.
	KindModel byte = 'M'

	// MaxPayload is the largest payload the 16-bit size field can describe.
	MaxPayload = 1<<16 - 1
)

var (
	// MagicCanonical is written on every record ("otx3").
	MagicCanonical = [4]byte{'o', 't', 'x', '3'}

	// MagicLegacy is accepted on read only ("o9x3").
	MagicLegacy = [4]byte{'o', '9', 'x', '3'}
)

// Header is the decoded 8-byte record header.
//
//	offset 0  magic    [4]byte
//	offset 4  version  uint8
//	offset 5  kind     uint8
//	offset 6  size     uint16 (little-endian)
type Header struct {
	Magic   [4]byte
	Version uint8
	Kind    byte
	Size    uint16
}

// NewHeader returns the header written for a payload of size bytes.
func NewHeader(kind byte, size uint16) Header {
	return Header{
		Magic:   MagicCanonical,
		Version: CurrentVersion,
		Kind:    kind,
		Size:    size,
	}
}

// Encode returns the little-endian wire form of h.
func (h Header) Encode() [HeaderSize]byte {
	var b [HeaderSize]byte
	copy(b[0:4], h.Magic[:])
	b[4] = h.Version
	b[5] = h.Kind
	binary.LittleEndian.PutUint16(b[6:8], h.Size)
	return b
}

// DecodeHeader parses the first HeaderSize bytes of b. It does not validate
// the fields; use Check for that.
func DecodeHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes is shorter than a header", ErrIncompatible, len(b))
	}
	var h Header
	copy(h.Magic[:], b[0:4])
	h.Version = b[4]
	h.Kind = b[5]
	h.Size = binary.LittleEndian.Uint16(b[6:8])
	return h, nil
}

// Check reports whether h describes a record of the given kind that this
// firmware can read.
func (h Header) Check(kind byte) error {
	if h.Magic != MagicCanonical && h.Magic != MagicLegacy {
		return fmt.Errorf("%w: bad magic %q", ErrIncompatible, h.Magic[:])
	}
	if h.Version < FirstSupportedVersion || h.Version > CurrentVersion {
		return fmt.Errorf("%w: version %d outside [%d, %d]",
			ErrIncompatible, h.Version, FirstSupportedVersion, CurrentVersion)
	}
	if h.Kind != kind {
		return fmt.Errorf("%w: kind %q, want %q", ErrIncompatible, h.Kind, kind)
	}
	return nil
}

// Legacy reports whether h carries the legacy magic.
func (h Header) Legacy() bool {
	return h.Magic == MagicLegacy
}
