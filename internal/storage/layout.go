// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// Fixed directory layout of a formatted medium.
const (
	RadioDir   = "RADIO"
	ModelsDir  = "MODELS"
	BackupsDir = "BACKUPS"

	SettingsPath = RadioDir + "/radio.bin"
	ManifestPath = RadioDir + "/models.txt"

	ModelExt  = ".bin"
	BackupExt = ".otx"
)

// ModelPath returns the volume path of a model record file.
func ModelPath(filename string) string {
	return path.Join(ModelsDir, filename)
}

// IsModelPath reports whether name is a record file directly inside MODELS.
func IsModelPath(name string) bool {
	dir, file := path.Split(name)
	return dir == ModelsDir+"/" && file != "" && strings.HasSuffix(file, ModelExt)
}

// EnsureDir creates dir if it does not exist.
func EnsureDir(vol Volume, dir string) error {
	info, err := vol.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return fmt.Errorf("storage: %s exists and is not a directory", dir)
		}
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return vol.MkdirAll(dir)
}

// Exists reports whether name exists on vol.
func Exists(vol Volume, name string) bool {
	_, err := vol.Stat(name)
	return err == nil
}

// WriteFile creates name with data, closing the file on every path.
func WriteFile(vol Volume, name string, data []byte) (err error) {
	f, err := vol.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := f.Close(); err == nil {
			err = closeErr
		}
	}()

	n, err := f.Write(data)
	if err != nil {
		return err
	}
	if n != len(data) {
		return fmt.Errorf("storage: short write to %s: %d of %d bytes", name, n, len(data))
	}
	return nil
}

// ReadFile reads all of name.
func ReadFile(vol Volume, name string) ([]byte, error) {
	f, err := vol.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only handle

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, info.Size())
	if _, err := io.ReadFull(f, buf); err != nil {
		return nil, err
	}
	return buf, nil
}
