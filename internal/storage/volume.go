// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package storage models the removable storage medium the transmitter keeps
// its settings, models and backups on.
//
// Paths are slash separated and relative to the volume root ("RADIO/radio.bin").
// Two implementations are provided: DirVolume maps the volume onto a host
// directory, BadgerVolume keeps every file as a key in a BadgerDB instance,
// which suits flash-backed targets where a KV store wears the medium evenly.
package storage

import (
	"errors"
	"io"
	"io/fs"
)

var (
	// ErrNotMounted is returned by every file operation on an unmounted volume.
	ErrNotMounted = errors.New("storage: volume not mounted")

	// ErrInvalidPath is returned for absolute, non-canonical or escaping paths.
	ErrInvalidPath = errors.New("storage: invalid path")
)

// File is an open file on a Volume. *os.File satisfies it.
type File interface {
	io.Reader
	io.Writer
	io.ReaderAt
	io.WriterAt
	io.Seeker
	io.Closer
	Stat() (fs.FileInfo, error)
	Truncate(size int64) error
}

// Volume is the filesystem surface the persistence and backup code needs.
type Volume interface {
	// Create creates or truncates name for reading and writing.
	// The parent directory must exist.
	Create(name string) (File, error)
	// Open opens name read-only.
	Open(name string) (File, error)
	// Remove deletes a file or an empty directory.
	Remove(name string) error
	// MkdirAll creates name and any missing parents.
	MkdirAll(name string) error
	Stat(name string) (fs.FileInfo, error)
	// ReadDir lists a directory sorted by name.
	ReadDir(name string) ([]fs.DirEntry, error)
}

// Mounter controls whether the medium is available. Restore releases and
// re-acquires the medium around extraction.
type Mounter interface {
	Mount() error
	Unmount() error
	Mounted() bool
}

// MountedVolume is a Volume that can also be mounted and unmounted.
type MountedVolume interface {
	Volume
	Mounter
}

// validPath reports whether name is a canonical relative volume path.
func validPath(name string) bool {
	return name != "." && fs.ValidPath(name)
}
