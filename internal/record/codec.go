// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package record reads and writes single versioned records: an 8-byte header
// followed by a raw payload, one record per file.
//
// Loads copy min(declared size, len(buf)) payload bytes. A smaller payload
// from older firmware fits into a newer, larger structure and a larger one
// is cut to fit; neither case is an error.
package record

import (
	"errors"
	"fmt"
	"io"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
	"github.com/tomtom215/radiostore/internal/storage"
)

// Codec reads and writes records of one kind.
type Codec struct {
	Kind byte
}

// Default is the codec for settings and model records.
var Default = Codec{Kind: KindModel}

// Write stores payload under name using the Default codec.
func Write(vol storage.Volume, name string, payload []byte) error {
	return Default.Write(vol, name, payload)
}

// Load reads the record at name into buf using the Default codec.
func Load(vol storage.Volume, name string, buf []byte) (int, error) {
	return Default.Load(vol, name, buf)
}

// Write creates or truncates name and writes the header followed by payload.
// The file is closed on every path. A failed write may leave a partial file
// behind; callers must tolerate a corrupt record on the next load.
func (c Codec) Write(vol storage.Volume, name string, payload []byte) (err error) {
	written := 0
	defer func() { metrics.RecordCodecOp("write", written, err) }()

	if len(payload) > MaxPayload {
		return fmt.Errorf("%w: %s: %d bytes", ErrPayloadTooLarge, name, len(payload))
	}

	f, err := vol.Create(name)
	if err != nil {
		return fmt.Errorf("%w: create %s: %w", ErrStorageIO, name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("%w: close %s: %w", ErrStorageIO, name, closeErr)
		}
	}()

	hdr := NewHeader(c.Kind, uint16(len(payload))).Encode()
	if err := writeExact(f, name, hdr[:]); err != nil {
		return err
	}
	if err := writeExact(f, name, payload); err != nil {
		return err
	}
	written = HeaderSize + len(payload)

	logging.Debug().
		Str("path", name).
		Int("size", len(payload)).
		Msg("Record written")
	return nil
}

func writeExact(w io.Writer, name string, p []byte) error {
	n, err := w.Write(p)
	if err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrStorageIO, name, err)
	}
	if n != len(p) {
		return fmt.Errorf("%w: short write to %s: %d of %d bytes", ErrStorageIO, name, n, len(p))
	}
	return nil
}

// Load reads the record at name into buf and returns the number of payload
// bytes copied. buf is only modified on success, and bytes past the copied
// length are left as they were.
func (c Codec) Load(vol storage.Volume, name string, buf []byte) (n int, err error) {
	defer func() { metrics.RecordCodecOp("load", n, err) }()

	f, err := vol.Open(name)
	if err != nil {
		return 0, fmt.Errorf("%w: open %s: %w", ErrStorageIO, name, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	h, err := readHeader(f, name)
	if err != nil {
		return 0, err
	}
	if err := h.Check(c.Kind); err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}

	payload := make([]byte, min(int(h.Size), len(buf)))
	if _, err := io.ReadFull(f, payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return 0, fmt.Errorf("%w: %s: payload shorter than declared %d bytes", ErrIncompatible, name, h.Size)
		}
		return 0, fmt.Errorf("%w: read %s: %w", ErrStorageIO, name, err)
	}
	return copy(buf, payload), nil
}

// ReadHeader returns the undecorated header of name and the file size,
// without validating it.
func ReadHeader(vol storage.Volume, name string) (Header, int64, error) {
	f, err := vol.Open(name)
	if err != nil {
		return Header{}, 0, fmt.Errorf("%w: open %s: %w", ErrStorageIO, name, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	info, err := f.Stat()
	if err != nil {
		return Header{}, 0, fmt.Errorf("%w: stat %s: %w", ErrStorageIO, name, err)
	}
	h, err := readHeader(f, name)
	if err != nil {
		return Header{}, 0, err
	}
	return h, info.Size(), nil
}

func readHeader(f storage.File, name string) (Header, error) {
	info, err := f.Stat()
	if err != nil {
		return Header{}, fmt.Errorf("%w: stat %s: %w", ErrStorageIO, name, err)
	}
	if info.Size() < HeaderSize {
		return Header{}, fmt.Errorf("%w: %s: %d bytes is shorter than a header", ErrIncompatible, name, info.Size())
	}

	var raw [HeaderSize]byte
	if _, err := io.ReadFull(f, raw[:]); err != nil {
		return Header{}, fmt.Errorf("%w: read %s: %w", ErrStorageIO, name, err)
	}
	return DecodeHeader(raw[:])
}

// Validate checks that data, the full contents of a record file, carries a
// readable header of the codec's kind.
func (c Codec) Validate(data []byte) error {
	h, err := DecodeHeader(data)
	if err != nil {
		return err
	}
	return h.Check(c.Kind)
}
