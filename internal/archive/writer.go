// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package archive

import (
	"bytes"
	"errors"
	"fmt"
	"hash/crc32"
	"io"
	"sync"
)

const copyBufSize = 32 * 1024

// Target is the file a Writer builds the container in. storage.File and
// *os.File satisfy it.
type Target interface {
	io.Writer
	io.WriterAt
	io.Seeker
	Truncate(size int64) error
}

// Writer streams entries into a container. The header is reserved up front
// and patched by Finalise.
type Writer struct {
	mu      sync.Mutex
	f       Target
	entries []Entry
	seen    map[string]struct{}
	off     int64
	closed  bool
	copyBuf []byte
}

// NewWriter truncates f and reserves the header.
func NewWriter(f Target) (*Writer, error) {
	if f == nil {
		return nil, errors.New("archive: nil target")
	}
	if err := f.Truncate(0); err != nil {
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	w := &Writer{
		f:       f,
		seen:    make(map[string]struct{}),
		copyBuf: make([]byte, copyBufSize),
	}
	if err := w.writeZeros(HeaderSize); err != nil {
		return nil, err
	}
	return w, nil
}

// Add copies r into the container as an entry named name and returns the
// number of bytes stored.
func (w *Writer) Add(name string, r io.Reader) (int64, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return 0, ErrFinalised
	}
	if r == nil {
		return 0, errors.New("archive: nil reader")
	}
	if !validPath(name) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPath, name)
	}
	if _, ok := w.seen[name]; ok {
		return 0, fmt.Errorf("%w: %s", ErrDuplicateEntry, name)
	}

	if err := w.alignTo(align); err != nil {
		return 0, err
	}
	offset := w.off

	crc := crc32.NewIEEE()
	n, err := io.CopyBuffer(io.MultiWriter(w.f, crc), r, w.copyBuf)
	w.off += n
	if err != nil {
		return n, fmt.Errorf("archive: add %s: %w", name, err)
	}

	w.entries = append(w.entries, Entry{
		Path:   name,
		Offset: uint64(offset),
		Size:   uint64(n),
		CRC32:  crc.Sum32(),
	})
	w.seen[name] = struct{}{}
	return n, nil
}

// AddBytes stores data as an entry named name.
func (w *Writer) AddBytes(name string, data []byte) error {
	_, err := w.Add(name, bytes.NewReader(data))
	return err
}

// Count returns the number of entries added so far.
func (w *Writer) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

// Finalise writes the directory and patches the header. The writer must
// not be used afterwards. The target is not closed.
func (w *Writer) Finalise() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrFinalised
	}
	w.closed = true

	if err := w.alignTo(align); err != nil {
		return err
	}
	dirOffset := w.off

	for _, e := range w.entries {
		if err := w.write(encodeDirEntry(e)); err != nil {
			return err
		}
	}

	fileSize := w.off
	if err := w.f.Truncate(fileSize); err != nil {
		return err
	}

	h := Header{
		Major:      CurrentMajor,
		Minor:      CurrentMinor,
		HeaderSize: HeaderSize,
		EntryCount: uint32(len(w.entries)),
		DirOffset:  uint64(dirOffset),
		FileSize:   uint64(fileSize),
	}
	copy(h.Magic[:], Magic)

	var hdr [HeaderSize]byte
	encodeHeader(hdr[:], h)
	n, err := w.f.WriteAt(hdr[:], 0)
	if err != nil {
		return err
	}
	if n != HeaderSize {
		return io.ErrShortWrite
	}
	return nil
}

func (w *Writer) write(p []byte) error {
	for len(p) > 0 {
		n, err := w.f.Write(p)
		w.off += int64(n)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

func (w *Writer) writeZeros(n int) error {
	if n <= 0 {
		return nil
	}
	return w.write(make([]byte, n))
}

func (w *Writer) alignTo(a int64) error {
	pad := (a - w.off%a) % a
	return w.writeZeros(int(pad))
}
