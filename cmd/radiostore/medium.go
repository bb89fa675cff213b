// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"

	"github.com/urfave/cli/v3"

	"github.com/tomtom215/radiostore/internal/backup"
	"github.com/tomtom215/radiostore/internal/config"
	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/persist"
	"github.com/tomtom215/radiostore/internal/storage"
)

// loadConfig reads the layered configuration and configures logging.
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, cli.Exit(fmt.Sprintf("error: %v", err), 1)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	return cfg, nil
}

// medium is a mounted volume with the persistence manager on top.
type medium struct {
	vol   storage.MountedVolume
	store *persist.Manager
	close func() error
}

// newVolume builds the configured, still unmounted volume.
func newVolume(cfg config.StorageConfig) (storage.MountedVolume, func() error) {
	if cfg.Driver == "badger" {
		v := storage.NewBadgerVolume(storage.BadgerOptions{
			Dir:      cfg.Root,
			InMemory: cfg.InMemory,
		})
		return v, v.Close
	}
	return storage.NewDirVolume(cfg.Root), func() error { return nil }
}

// openMedium mounts the configured volume. opts is applied on top of the
// storage settings from cfg.
func openMedium(cfg *config.Config, opts persist.Options) (*medium, error) {
	vol, closeFn := newVolume(cfg.Storage)
	if err := vol.Mount(); err != nil {
		_ = closeFn()
		return nil, fmt.Errorf("mount storage: %w", err)
	}

	opts.WriteDelay = cfg.Storage.WriteDelay
	opts.RecoverCorruptSettings = cfg.Storage.RecoverCorruptSettings

	return &medium{
		vol:   vol,
		store: persist.New(vol, opts),
		close: closeFn,
	}, nil
}

// load reads settings and the active model. A medium without a settings
// record is formatted first.
func (m *medium) load(ctx context.Context) error {
	err := m.store.LoadAll(ctx)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	logging.Ctx(ctx).Info().Msg("Blank storage, writing factory defaults")
	if err := m.store.EraseAll(false); err != nil {
		return fmt.Errorf("initialise storage: %w", err)
	}
	return m.store.LoadAll(ctx)
}

// shutdown flushes pending writes and releases the volume.
func (m *medium) shutdown() error {
	var errs []error
	if err := m.store.FlushDirty(true); err != nil {
		errs = append(errs, fmt.Errorf("flush: %w", err))
	}
	if m.vol.Mounted() {
		if err := m.vol.Unmount(); err != nil {
			errs = append(errs, fmt.Errorf("unmount: %w", err))
		}
	}
	if err := m.close(); err != nil {
		errs = append(errs, fmt.Errorf("close: %w", err))
	}
	return errors.Join(errs...)
}

func backupConfig(cfg config.BackupConfig) backup.Config {
	return backup.Config{
		Timestamped:  cfg.Timestamped,
		MaxEntrySize: cfg.MaxEntrySize,
		Retain:       cfg.Retain,
	}
}
