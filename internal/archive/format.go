// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package archive implements the backup container: a single file holding an
// ordered list of named entries.
//
// Layout (all integers little-endian):
//
//	header     32 bytes  magic "OTXC", major, minor, header size,
//	                     entry count, directory offset, file size
//	payloads             one per entry, each starting 8-byte aligned
//	directory            per entry: offset u64, size u64, crc32 u32,
//	                     path length u16, reserved u16, path bytes,
//	                     zero padded to 8 bytes
//
// The directory order is the order entries were added.
package archive

import (
	"encoding/binary"
	"errors"
	"io/fs"
)

// Container constants must never change.
const (
	// Magic identifies a backup container.
	Magic = "OTXC"

	// CurrentMajor changes only with breaking format changes.
	CurrentMajor uint16 = 1

	// CurrentMinor may add optional fields.
	CurrentMinor uint16 = 0

	// HeaderSize is the size of the fixed header.
	HeaderSize = 32

	// MaxPathLen is the longest entry path.
	MaxPathLen = 255

	align         = 8
	dirEntryFixed = 24
	maxDirSize    = 16 << 20
)

var (
	ErrInvalidMagic     = errors.New("archive: invalid container magic")
	ErrUnsupportedMajor = errors.New("archive: unsupported container major version")
	ErrCorruptFile      = errors.New("archive: corrupt container")
	ErrEmpty            = errors.New("archive: container has no entries")
	ErrEntryNotFound    = errors.New("archive: entry not found")
	ErrChecksum         = errors.New("archive: entry checksum mismatch")
	ErrEntryTooLarge    = errors.New("archive: entry exceeds size limit")
	ErrDuplicateEntry   = errors.New("archive: duplicate entry")
	ErrInvalidPath      = errors.New("archive: invalid entry path")
	ErrFinalised        = errors.New("archive: writer already finalised")
)

// Header is the decoded container header.
type Header struct {
	Magic      [4]byte
	Major      uint16
	Minor      uint16
	HeaderSize uint32
	EntryCount uint32
	DirOffset  uint64
	FileSize   uint64
}

// Entry describes one archived file.
type Entry struct {
	Path   string `json:"path" yaml:"path"`
	Offset uint64 `json:"offset" yaml:"offset"`
	Size   uint64 `json:"size" yaml:"size"`
	CRC32  uint32 `json:"crc32" yaml:"crc32"`
}

func encodeHeader(b []byte, h Header) {
	copy(b[0:4], h.Magic[:])
	binary.LittleEndian.PutUint16(b[4:6], h.Major)
	binary.LittleEndian.PutUint16(b[6:8], h.Minor)
	binary.LittleEndian.PutUint32(b[8:12], h.HeaderSize)
	binary.LittleEndian.PutUint32(b[12:16], h.EntryCount)
	binary.LittleEndian.PutUint64(b[16:24], h.DirOffset)
	binary.LittleEndian.PutUint64(b[24:32], h.FileSize)
}

func decodeHeader(b []byte) (Header, bool) {
	if len(b) < HeaderSize {
		return Header{}, false
	}
	var h Header
	copy(h.Magic[:], b[0:4])
	h.Major = binary.LittleEndian.Uint16(b[4:6])
	h.Minor = binary.LittleEndian.Uint16(b[6:8])
	h.HeaderSize = binary.LittleEndian.Uint32(b[8:12])
	h.EntryCount = binary.LittleEndian.Uint32(b[12:16])
	h.DirOffset = binary.LittleEndian.Uint64(b[16:24])
	h.FileSize = binary.LittleEndian.Uint64(b[24:32])
	return h, true
}

// dirEntrySize returns the padded directory size of an entry with a path of
// n bytes.
func dirEntrySize(n int) int {
	return alignUp(dirEntryFixed+n, align)
}

func encodeDirEntry(e Entry) []byte {
	b := make([]byte, dirEntrySize(len(e.Path)))
	binary.LittleEndian.PutUint64(b[0:8], e.Offset)
	binary.LittleEndian.PutUint64(b[8:16], e.Size)
	binary.LittleEndian.PutUint32(b[16:20], e.CRC32)
	binary.LittleEndian.PutUint16(b[20:22], uint16(len(e.Path)))
	copy(b[dirEntryFixed:], e.Path)
	return b
}

// decodeDirEntry parses one entry from b and returns it with the number of
// bytes consumed.
func decodeDirEntry(b []byte) (Entry, int, bool) {
	if len(b) < dirEntryFixed {
		return Entry{}, 0, false
	}
	n := int(binary.LittleEndian.Uint16(b[20:22]))
	size := dirEntrySize(n)
	if n == 0 || n > MaxPathLen || len(b) < size {
		return Entry{}, 0, false
	}
	return Entry{
		Offset: binary.LittleEndian.Uint64(b[0:8]),
		Size:   binary.LittleEndian.Uint64(b[8:16]),
		CRC32:  binary.LittleEndian.Uint32(b[16:20]),
		Path:   string(b[dirEntryFixed : dirEntryFixed+n]),
	}, size, true
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}

// validPath reports whether name is a relative, slash-separated path
// without "." or ".." elements.
func validPath(name string) bool {
	return name != "." && len(name) <= MaxPathLen && fs.ValidPath(name)
}
