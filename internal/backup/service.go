// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

/*
service.go - Backup Service

Service runs backup and restore against one storage volume. Collaborators
are injected through Deps; optional ones default to no-ops so tests and the
CLI can run without a pulse generator or watchdog.

Thread Safety:
Backup and restore are serialized by a mutex. A second call while one is
running fails fast with ErrBusy instead of queueing behind a long restore.
*/

//nolint:staticcheck // File documentation, not package doc
package backup

import (
	"context"
	"sync"
	"time"

	"github.com/tomtom215/radiostore/internal/radio"
	"github.com/tomtom215/radiostore/internal/storage"
)

// Store is the persistence surface a backup needs.
type Store interface {
	MutateSettings(fn func(*radio.GeneralSettings))
	FlushDirty(immediate bool) error
}

// Pulses controls the real-time output generator.
type Pulses interface {
	Pause()
	Resume()
}

// Device releases and re-acquires the live state around a restore.
type Device interface {
	// Suspend flushes pending changes and releases storage.
	Suspend() error
	// Resume mounts storage and reloads settings and model.
	Resume(ctx context.Context) error
}

// Watchdog is kicked between entries of long operations.
type Watchdog interface {
	Kick()
}

// ProgressFunc receives (label, current, total) after every entry.
type ProgressFunc func(label string, current, total int)

// Deps are the collaborators of a Service. Volume, Mounter and Store are
// required.
type Deps struct {
	Volume   storage.Volume
	Mounter  storage.Mounter
	Store    Store
	Pulses   Pulses
	Device   Device
	Watchdog Watchdog
}

// Config tunes backup naming and restore limits.
type Config struct {
	// Timestamped appends -YYYY-MM-DD-HHMMSS to backup filenames.
	Timestamped bool

	// MaxEntrySize caps the size of a single restored entry.
	MaxEntrySize int64

	// Retain is the number of backups kept after a successful backup.
	// Zero keeps all.
	Retain int

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time
}

// DefaultConfig returns the daemon defaults.
func DefaultConfig() Config {
	return Config{
		Timestamped:  true,
		MaxEntrySize: 1 << 20,
	}
}

// Service runs backups and restores.
type Service struct {
	deps Deps
	cfg  Config

	mu sync.Mutex

	cbMu              sync.RWMutex
	progress          ProgressFunc
	onBackupComplete  func(*BackupResult)
	onRestoreStart    func(path string)
	onRestoreComplete func(*RestoreResult)
}

type noopPulses struct{}

func (noopPulses) Pause()  {}
func (noopPulses) Resume() {}

type noopWatchdog struct{}

func (noopWatchdog) Kick() {}

// storeDevice is the default Device: it flushes the store and toggles the
// mount, without reloading.
type storeDevice struct {
	store   Store
	mounter storage.Mounter
}

func (d storeDevice) Suspend() error {
	if err := d.store.FlushDirty(true); err != nil {
		return err
	}
	return d.mounter.Unmount()
}

func (d storeDevice) Resume(context.Context) error {
	return d.mounter.Mount()
}

// NewService returns a Service.
func NewService(deps Deps, cfg Config) *Service {
	if deps.Pulses == nil {
		deps.Pulses = noopPulses{}
	}
	if deps.Watchdog == nil {
		deps.Watchdog = noopWatchdog{}
	}
	if deps.Device == nil {
		deps.Device = storeDevice{store: deps.Store, mounter: deps.Mounter}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Service{deps: deps, cfg: cfg}
}

// SetProgress sets the progress callback.
func (s *Service) SetProgress(fn ProgressFunc) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.progress = fn
}

// SetOnBackupComplete sets a callback for finished backups, successful or not.
func (s *Service) SetOnBackupComplete(fn func(*BackupResult)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onBackupComplete = fn
}

// SetOnRestoreStart sets a callback invoked before the device is quiesced.
func (s *Service) SetOnRestoreStart(fn func(path string)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onRestoreStart = fn
}

// SetOnRestoreComplete sets a callback for finished restores. It runs before
// the device is resumed.
func (s *Service) SetOnRestoreComplete(fn func(*RestoreResult)) {
	s.cbMu.Lock()
	defer s.cbMu.Unlock()
	s.onRestoreComplete = fn
}

func (s *Service) reportProgress(label string, current, total int) {
	s.cbMu.RLock()
	fn := s.progress
	s.cbMu.RUnlock()
	if fn != nil {
		fn(label, current, total)
	}
}

func (s *Service) notifyBackupComplete(res *BackupResult) {
	s.cbMu.RLock()
	fn := s.onBackupComplete
	s.cbMu.RUnlock()
	if fn != nil {
		fn(res)
	}
}

func (s *Service) notifyRestoreStart(path string) {
	s.cbMu.RLock()
	fn := s.onRestoreStart
	s.cbMu.RUnlock()
	if fn != nil {
		fn(path)
	}
}

func (s *Service) notifyRestoreComplete(res *RestoreResult) {
	s.cbMu.RLock()
	fn := s.onRestoreComplete
	s.cbMu.RUnlock()
	if fn != nil {
		fn(res)
	}
}
