// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package archive

import (
	"errors"
	"fmt"
	"hash/crc32"
	"io"
)

// Reader gives random access to the entries of a validated container.
type Reader struct {
	r       io.ReaderAt
	header  Header
	entries []Entry
	index   map[string]int
}

// NewReader validates the container structure in r, which is size bytes
// long. Entry payloads are read lazily.
func NewReader(r io.ReaderAt, size int64) (*Reader, error) {
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than a header", ErrCorruptFile, size)
	}

	var raw [HeaderSize]byte
	if _, err := r.ReadAt(raw[:], 0); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	h, ok := decodeHeader(raw[:])
	if !ok {
		return nil, ErrCorruptFile
	}
	if string(h.Magic[:]) != Magic {
		return nil, ErrInvalidMagic
	}
	if h.Major != CurrentMajor {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedMajor, h.Major)
	}
	if h.HeaderSize < HeaderSize || uint64(h.HeaderSize) > uint64(size) {
		return nil, fmt.Errorf("%w: header size %d", ErrCorruptFile, h.HeaderSize)
	}
	if h.FileSize != uint64(size) {
		return nil, fmt.Errorf("%w: declared size %d, file is %d bytes", ErrCorruptFile, h.FileSize, size)
	}
	if h.EntryCount == 0 {
		return nil, ErrEmpty
	}
	if h.DirOffset < uint64(h.HeaderSize) || h.DirOffset > h.FileSize {
		return nil, fmt.Errorf("%w: directory offset %d out of range", ErrCorruptFile, h.DirOffset)
	}
	dirSize := h.FileSize - h.DirOffset
	if dirSize > maxDirSize || dirSize < uint64(h.EntryCount)*dirEntryFixed {
		return nil, fmt.Errorf("%w: directory size %d", ErrCorruptFile, dirSize)
	}

	dir := make([]byte, dirSize)
	if _, err := r.ReadAt(dir, int64(h.DirOffset)); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}

	rd := &Reader{
		r:       r,
		header:  h,
		entries: make([]Entry, 0, h.EntryCount),
		index:   make(map[string]int, h.EntryCount),
	}

	pos := 0
	prevEnd := uint64(h.HeaderSize)
	for i := 0; i < int(h.EntryCount); i++ {
		e, n, ok := decodeDirEntry(dir[pos:])
		if !ok {
			return nil, fmt.Errorf("%w: directory entry %d truncated", ErrCorruptFile, i)
		}
		pos += n

		if err := checkEntry(e, i, prevEnd, h.DirOffset); err != nil {
			return nil, err
		}
		if _, dup := rd.index[e.Path]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateEntry, e.Path)
		}
		prevEnd = e.Offset + e.Size
		rd.index[e.Path] = i
		rd.entries = append(rd.entries, e)
	}
	if pos != len(dir) {
		return nil, fmt.Errorf("%w: %d trailing directory bytes", ErrCorruptFile, len(dir)-pos)
	}

	return rd, nil
}

func checkEntry(e Entry, i int, prevEnd, dirOffset uint64) error {
	if !validPath(e.Path) {
		return fmt.Errorf("%w: entry %d: %q", ErrInvalidPath, i, e.Path)
	}
	end := e.Offset + e.Size
	if end < e.Offset {
		return fmt.Errorf("%w: entry %d offset overflow", ErrCorruptFile, i)
	}
	if e.Offset < prevEnd {
		return fmt.Errorf("%w: entry %d overlaps the previous entry or header", ErrCorruptFile, i)
	}
	if end > dirOffset {
		return fmt.Errorf("%w: entry %d overlaps the directory", ErrCorruptFile, i)
	}
	if e.Offset%align != 0 {
		return fmt.Errorf("%w: entry %d offset not %d-byte aligned", ErrCorruptFile, i, align)
	}
	return nil
}

// Header returns the container header.
func (r *Reader) Header() Header {
	return r.header
}

// Len returns the number of entries.
func (r *Reader) Len() int {
	return len(r.entries)
}

// Entries returns the directory in container order.
func (r *Reader) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Entry returns entry i.
func (r *Reader) Entry(i int) (Entry, error) {
	if i < 0 || i >= len(r.entries) {
		return Entry{}, fmt.Errorf("%w: index %d", ErrEntryNotFound, i)
	}
	return r.entries[i], nil
}

// Locate returns the index of the entry named name, or -1.
func (r *Reader) Locate(name string) int {
	if i, ok := r.index[name]; ok {
		return i
	}
	return -1
}

// ReadEntry reads and checksums entry i. Entries larger than maxSize are
// rejected before reading; maxSize <= 0 disables the limit.
func (r *Reader) ReadEntry(i int, maxSize int64) ([]byte, error) {
	e, err := r.Entry(i)
	if err != nil {
		return nil, err
	}
	if maxSize > 0 && e.Size > uint64(maxSize) {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrEntryTooLarge, e.Path, e.Size, maxSize)
	}

	buf := make([]byte, e.Size)
	if _, err := io.ReadFull(io.NewSectionReader(r.r, int64(e.Offset), int64(e.Size)), buf); err != nil {
		return nil, fmt.Errorf("archive: read %s: %w", e.Path, err)
	}
	if crc32.ChecksumIEEE(buf) != e.CRC32 {
		return nil, fmt.Errorf("%w: %s", ErrChecksum, e.Path)
	}
	return buf, nil
}
