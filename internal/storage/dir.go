// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DirVolume maps a volume onto a host directory, typically the mount point
// of an SD card.
type DirVolume struct {
	root    string
	mu      sync.RWMutex
	mounted bool
}

// NewDirVolume returns an unmounted volume rooted at root.
func NewDirVolume(root string) *DirVolume {
	return &DirVolume{root: root}
}

// Root returns the host directory backing the volume.
func (v *DirVolume) Root() string {
	return v.root
}

// Mount makes the volume available, creating the root directory if needed.
func (v *DirVolume) Mount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if err := os.MkdirAll(v.root, 0o750); err != nil {
		return fmt.Errorf("storage: mount %s: %w", v.root, err)
	}
	v.mounted = true
	return nil
}

// Unmount releases the volume. Open files stay usable; new opens fail.
func (v *DirVolume) Unmount() error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if !v.mounted {
		return ErrNotMounted
	}
	v.mounted = false
	return nil
}

// Mounted reports whether the volume is mounted.
func (v *DirVolume) Mounted() bool {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.mounted
}

func (v *DirVolume) resolve(op, name string) (string, error) {
	v.mu.RLock()
	mounted := v.mounted
	v.mu.RUnlock()

	if !mounted {
		return "", &fs.PathError{Op: op, Path: name, Err: ErrNotMounted}
	}
	if !validPath(name) {
		return "", &fs.PathError{Op: op, Path: name, Err: ErrInvalidPath}
	}
	return filepath.Join(v.root, filepath.FromSlash(name)), nil
}

// Create implements Volume.
//
//nolint:gosec // G304: path is validated by resolve
func (v *DirVolume) Create(name string) (File, error) {
	p, err := v.resolve("create", name)
	if err != nil {
		return nil, err
	}
	f, err := os.OpenFile(p, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Open implements Volume.
//
//nolint:gosec // G304: path is validated by resolve
func (v *DirVolume) Open(name string) (File, error) {
	p, err := v.resolve("open", name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove implements Volume.
func (v *DirVolume) Remove(name string) error {
	p, err := v.resolve("remove", name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// MkdirAll implements Volume.
func (v *DirVolume) MkdirAll(name string) error {
	p, err := v.resolve("mkdir", name)
	if err != nil {
		return err
	}
	return os.MkdirAll(p, 0o750)
}

// Stat implements Volume.
func (v *DirVolume) Stat(name string) (fs.FileInfo, error) {
	p, err := v.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	return os.Stat(p)
}

// ReadDir implements Volume.
func (v *DirVolume) ReadDir(name string) ([]fs.DirEntry, error) {
	p, err := v.resolve("readdir", name)
	if err != nil {
		return nil, err
	}
	return os.ReadDir(p)
}
