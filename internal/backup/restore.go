// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package backup

import (
	"context"
	"errors"
	"fmt"
	"path"

	"github.com/tomtom215/radiostore/internal/archive"
	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
	"github.com/tomtom215/radiostore/internal/record"
	"github.com/tomtom215/radiostore/internal/storage"
)

const restoreLabel = "Restore"

// Restore replaces the storage state with the contents of the container at
// name. The device is quiesced first and always resumed before Restore
// returns, whatever the outcome.
func (s *Service) Restore(ctx context.Context, name string) (*RestoreResult, error) {
	if !s.mu.TryLock() {
		return nil, ErrBusy
	}
	defer s.mu.Unlock()

	opID := logging.NewOperationID()
	ctx = logging.ContextWithOperationID(ctx, opID)
	log := logging.Ctx(ctx)

	start := s.cfg.Clock()
	res := &RestoreResult{OperationID: opID, Path: name, StartedAt: start}

	s.notifyRestoreStart(name)
	log.Info().Str("path", name).Msg("Restore started")

	// Quiesce.
	s.deps.Pulses.Pause()
	if err := s.deps.Device.Suspend(); err != nil {
		log.Warn().Err(err).Msg("Suspend before restore incomplete")
		res.Warnings = append(res.Warnings, fmt.Sprintf("suspend: %v", err))
	}

	// Resume runs on every path, after the result has been reported.
	defer s.resume(ctx, res)

	err := s.extractAll(name, res)

	res.Success = err == nil
	res.Duration = s.cfg.Clock().Sub(start)
	res.DurationMs = res.Duration.Milliseconds()
	if err != nil {
		res.Error = err.Error()
		var se *StepError
		if errors.As(err, &se) {
			res.FailedStep = se.Step
		}
		log.Error().Err(err).Int("failed", res.Failed).Int("total", res.Total).Msg("Restore failed")
	} else {
		log.Info().Int("entries", res.Restored).Dur("duration", res.Duration).Msg("Restore completed")
	}
	metrics.RecordRestore(res.Failed, err)
	s.notifyRestoreComplete(res)

	return res, err
}

// extractAll mounts storage, validates the container and extracts every
// entry. Extraction continues after a failed entry.
func (s *Service) extractAll(name string, res *RestoreResult) error {
	if err := s.deps.Mounter.Mount(); err != nil {
		return stepErr(StepMount, err)
	}

	f, err := s.deps.Volume.Open(name)
	if err != nil {
		return stepErr(StepOpen, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	info, err := f.Stat()
	if err != nil {
		return stepErr(StepOpen, err)
	}
	rd, err := archive.NewReader(f, info.Size())
	if err != nil {
		return stepErr(StepOpen, err)
	}
	for _, mandatory := range []string{storage.SettingsPath, storage.ManifestPath} {
		if rd.Locate(mandatory) < 0 {
			return stepErr(StepOpen, fmt.Errorf("%w: %s", ErrMissingEntry, mandatory))
		}
	}

	res.Total = rd.Len()
	s.deps.Watchdog.Kick()
	s.reportProgress(restoreLabel, 0, res.Total)

	for i := 0; i < rd.Len(); i++ {
		s.deps.Watchdog.Kick()

		er := s.extractEntry(rd, i)
		res.Entries = append(res.Entries, er)
		if er.Error != "" {
			res.Failed++
			logging.Warn().Str("path", er.Path).Str("error", er.Error).Msg("Entry not restored")
		} else {
			res.Restored++
		}
		s.reportProgress(restoreLabel, i+1, res.Total)
	}

	if res.Failed > 0 {
		return stepErr(StepExtract, fmt.Errorf("%w: %d of %d entries failed", ErrPartialArchive, res.Failed, res.Total))
	}
	return nil
}

// restorable reports whether an entry may be written to name.
func restorable(name string) bool {
	return name == storage.SettingsPath || name == storage.ManifestPath || storage.IsModelPath(name)
}

func (s *Service) extractEntry(rd *archive.Reader, i int) EntryResult {
	e, err := rd.Entry(i)
	if err != nil {
		return EntryResult{Index: i, Error: err.Error()}
	}
	er := EntryResult{Index: i, Path: e.Path, Size: int64(e.Size)}

	if err := s.writeEntry(rd, i, e.Path); err != nil {
		er.Error = err.Error()
	}
	return er
}

func (s *Service) writeEntry(rd *archive.Reader, i int, name string) error {
	if !restorable(name) {
		return fmt.Errorf("%w: %s", ErrUnexpectedEntry, name)
	}

	data, err := rd.ReadEntry(i, s.cfg.MaxEntrySize)
	if err != nil {
		return err
	}
	if path.Ext(name) == storage.ModelExt {
		if err := record.Default.Validate(data); err != nil {
			return err
		}
	}

	if err := storage.EnsureDir(s.deps.Volume, path.Dir(name)); err != nil {
		return err
	}
	return storage.WriteFile(s.deps.Volume, name, data)
}

// resume releases storage and restarts the device and pulses.
func (s *Service) resume(ctx context.Context, res *RestoreResult) {
	log := logging.Ctx(ctx)

	if err := s.deps.Mounter.Unmount(); err != nil && !errors.Is(err, storage.ErrNotMounted) {
		log.Warn().Err(err).Msg("Unmount after restore failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("unmount: %v", err))
	}
	if err := s.deps.Device.Resume(ctx); err != nil {
		log.Error().Err(err).Msg("Device resume after restore failed")
		res.Warnings = append(res.Warnings, fmt.Sprintf("resume: %v", err))
	}
	s.deps.Pulses.Resume()
	log.Info().Msg("Device resumed after restore")
}
