// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package device ties the persistence manager to the storage medium at
// runtime: it suspends and resumes the live state around a restore and
// flushes deferred writes in the background.
package device

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/storage"
)

// Store is the persistence surface the runtime drives.
// Satisfied by *persist.Manager.
type Store interface {
	FlushDirty(immediate bool) error
	LoadAll(ctx context.Context) error
}

// Runtime implements backup.Device for a live transmitter.
type Runtime struct {
	store     Store
	mounter   storage.Mounter
	suspended atomic.Bool
}

// NewRuntime returns a Runtime.
func NewRuntime(store Store, mounter storage.Mounter) *Runtime {
	return &Runtime{store: store, mounter: mounter}
}

// Suspend flushes pending writes and releases storage. Both steps run even
// if the flush fails; background flushing stays off until Resume.
func (r *Runtime) Suspend() error {
	r.suspended.Store(true)

	var errs []error
	if err := r.store.FlushDirty(true); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if err := r.mounter.Unmount(); err != nil && !errors.Is(err, storage.ErrNotMounted) {
		errs = append(errs, fmt.Errorf("unmount: %w", err))
	}

	err := errors.Join(errs...)
	if err != nil {
		logging.Warn().Err(err).Msg("Device suspend incomplete")
	} else {
		logging.Info().Msg("Device suspended")
	}
	return err
}

// Resume mounts storage and reloads settings and the active model.
// Background flushing is re-enabled whatever the outcome, so a failed
// reload is retried by the next flush instead of disabling it for good.
func (r *Runtime) Resume(ctx context.Context) error {
	defer r.suspended.Store(false)

	if err := r.mounter.Mount(); err != nil {
		return fmt.Errorf("mount: %w", err)
	}
	if err := r.store.LoadAll(ctx); err != nil {
		return fmt.Errorf("reload: %w", err)
	}
	logging.Ctx(ctx).Info().Msg("Device resumed")
	return nil
}

// Suspended reports whether the device is between Suspend and Resume.
func (r *Runtime) Suspended() bool {
	return r.suspended.Load()
}
