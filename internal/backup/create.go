// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package backup

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/tomtom215/radiostore/internal/archive"
	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/radio"
	"github.com/tomtom215/radiostore/internal/storage"
)

const (
	backupPrefix     = storage.BackupsDir + "/backup"
	backupTimeLayout = "-2006-01-02-150405"
	backupLabel      = "Backup"

	// maxBackupSuffix bounds the -NNN suffixes tried for a taken name.
	maxBackupSuffix = 999
)

// ErrNoFreeBackupName is returned when every suffixed variant of the backup
// filename already exists.
var ErrNoFreeBackupName = errors.New("backup: no free backup filename")

// backupPath returns a container path for a backup started at t that does
// not exist yet. A taken name gets a -NNN suffix, which sorts after the
// unsuffixed name, so an earlier container is never overwritten.
func (s *Service) backupPath(t time.Time) (string, error) {
	stem := backupPrefix
	if s.cfg.Timestamped {
		stem += t.Format(backupTimeLayout)
	}
	name := stem + storage.BackupExt
	for i := 1; storage.Exists(s.deps.Volume, name); i++ {
		if i > maxBackupSuffix {
			return "", fmt.Errorf("%w: %s", ErrNoFreeBackupName, stem+storage.BackupExt)
		}
		name = fmt.Sprintf("%s-%03d%s", stem, i, storage.BackupExt)
	}
	return name, nil
}

// sources yields the files of a backup in container order: settings,
// manifest, then every model of idx.
func sources(idx *modelindex.Index) iter.Seq[string] {
	return func(yield func(string) bool) {
		if !yield(storage.SettingsPath) || !yield(storage.ManifestPath) {
			return
		}
		for _, m := range idx.Models() {
			if !yield(storage.ModelPath(m.Filename)) {
				return
			}
		}
	}
}

// CreateBackup writes a container of the current storage state to
// BACKUPS/. On failure no container is left behind.
func (s *Service) CreateBackup(ctx context.Context) (*BackupResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	opID := logging.NewOperationID()
	ctx = logging.ContextWithOperationID(ctx, opID)
	log := logging.Ctx(ctx)

	start := s.cfg.Clock()
	res := &BackupResult{OperationID: opID, StartedAt: start}

	fail := func(step string, err error) (*BackupResult, error) {
		err = stepErr(step, err)
		res.FailedStep = step
		res.Error = err.Error()
		res.Duration = s.cfg.Clock().Sub(start)
		res.DurationMs = res.Duration.Milliseconds()
		metrics.RecordBackup(res.Duration, res.Entries, err)
		log.Error().Err(err).Str("step", step).Msg("Backup failed")
		s.notifyBackupComplete(res)
		return res, err
	}

	// Capture current truth. A failed flush still lets the backup run on
	// whatever is on the medium.
	s.deps.Store.MutateSettings(func(g *radio.GeneralSettings) { g.UnexpectedShutdown = 0 })
	if err := s.deps.Store.FlushDirty(true); err != nil {
		log.Warn().Err(err).Msg("Flush before backup incomplete")
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", StepFlush, err))
	}

	if err := storage.EnsureDir(s.deps.Volume, storage.BackupsDir); err != nil {
		return fail(StepDirectory, err)
	}

	idx, err := modelindex.Load(s.deps.Volume)
	if err != nil {
		return fail(StepEnumerate, fmt.Errorf("%w: %w", ErrEnumeration, err))
	}
	res.Total = 2 + idx.ModelCount()

	res.Path, err = s.backupPath(start)
	if err != nil {
		return fail(StepCreate, err)
	}

	f, err := s.deps.Volume.Create(res.Path)
	if err != nil {
		res.Path = ""
		return fail(StepCreate, err)
	}
	w, err := archive.NewWriter(f)
	if err != nil {
		s.discard(f, res.Path)
		res.Path = ""
		return fail(StepCreate, err)
	}

	log.Info().Str("path", res.Path).Int("total", res.Total).Msg("Backup started")
	s.reportProgress(backupLabel, 0, res.Total)

	for src := range sources(idx) {
		s.deps.Watchdog.Kick()

		n, err := s.appendFile(w, src)
		if err != nil {
			s.discard(f, res.Path)
			res.Path = ""
			return fail(StepAppend, fmt.Errorf("%s: %w", src, err))
		}
		res.Entries = w.Count()
		res.Bytes += n
		s.reportProgress(backupLabel, res.Entries, res.Total)
	}

	if err := w.Finalise(); err != nil {
		s.discard(f, res.Path)
		res.Path = ""
		return fail(StepFinalise, err)
	}
	if err := f.Close(); err != nil {
		_ = s.deps.Volume.Remove(res.Path)
		res.Path = ""
		return fail(StepFinalise, err)
	}

	res.Success = true
	res.Duration = s.cfg.Clock().Sub(start)
	res.DurationMs = res.Duration.Milliseconds()
	metrics.RecordBackup(res.Duration, res.Entries, nil)
	log.Info().
		Str("path", res.Path).
		Int("entries", res.Entries).
		Int64("bytes", res.Bytes).
		Dur("duration", res.Duration).
		Msg("Backup completed")

	if s.cfg.Retain > 0 {
		if removed, err := s.prune(s.cfg.Retain); err != nil {
			log.Warn().Err(err).Msg("Backup retention failed")
			res.Warnings = append(res.Warnings, fmt.Sprintf("retention: %v", err))
		} else if len(removed) > 0 {
			log.Info().Strs("removed", removed).Msg("Old backups removed")
		}
	}

	s.notifyBackupComplete(res)
	return res, nil
}

func (s *Service) appendFile(w *archive.Writer, name string) (int64, error) {
	f, err := s.deps.Volume.Open(name)
	if err != nil {
		return 0, err
	}
	defer f.Close() //nolint:errcheck // read-only handle
	return w.Add(name, f)
}

// discard closes and deletes a partial container.
func (s *Service) discard(f storage.File, name string) {
	if err := f.Close(); err != nil {
		logging.Debug().Err(err).Str("path", name).Msg("Close of partial backup failed")
	}
	if err := s.deps.Volume.Remove(name); err != nil {
		logging.Warn().Err(err).Str("path", name).Msg("Partial backup not removed")
	}
}
