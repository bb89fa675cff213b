// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/tomtom215/radiostore/internal/archive"
	"github.com/tomtom215/radiostore/internal/storage"
)

// ListBackups returns the backups in BACKUPS/, newest first. Timestamped
// names sort chronologically and a -NNN collision suffix sorts after its
// base name, so stem order is age order.
func (s *Service) ListBackups() ([]Info, error) {
	entries, err := s.deps.Volume.ReadDir(storage.BackupsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []Info{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("backup: list: %w", err)
	}

	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), storage.BackupExt) {
			continue
		}
		info := Info{Path: path.Join(storage.BackupsDir, e.Name()), Name: e.Name()}
		if fi, err := e.Info(); err == nil {
			info.Size = fi.Size()
			info.ModTime = fi.ModTime()
		}
		out = append(out, info)
	}

	sort.Slice(out, func(i, j int) bool {
		return strings.TrimSuffix(out[i].Name, storage.BackupExt) > strings.TrimSuffix(out[j].Name, storage.BackupExt)
	})
	return out, nil
}

// Inspect validates the container at name and returns its directory.
func (s *Service) Inspect(name string) (*ContainerInfo, error) {
	f, err := s.deps.Volume.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close() //nolint:errcheck // read-only handle

	fi, err := f.Stat()
	if err != nil {
		return nil, err
	}
	rd, err := archive.NewReader(f, fi.Size())
	if err != nil {
		return nil, err
	}

	h := rd.Header()
	return &ContainerInfo{
		Path:    name,
		Size:    fi.Size(),
		Major:   h.Major,
		Minor:   h.Minor,
		Entries: rd.Entries(),
	}, nil
}

// Prune deletes all but the newest keep backups and returns the removed
// paths.
func (s *Service) Prune(keep int) ([]string, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()
	return s.prune(keep)
}

func (s *Service) prune(keep int) ([]string, error) {
	if keep < 1 {
		return nil, fmt.Errorf("backup: retain count must be at least 1, got %d", keep)
	}

	backups, err := s.ListBackups()
	if err != nil {
		return nil, err
	}
	if len(backups) <= keep {
		return nil, nil
	}

	var removed []string
	var errs []error
	for _, b := range backups[keep:] {
		if err := s.deps.Volume.Remove(b.Path); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, b.Path)
	}
	return removed, errors.Join(errs...)
}
