// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package backup creates and restores full-state backups of the transmitter
// storage.
//
// # Overview
//
// A backup is one container file (see package archive) in BACKUPS/ holding,
// in this fixed order:
//
//	0      RADIO/radio.bin    settings record
//	1      RADIO/models.txt   model manifest
//	2..N   MODELS/*.bin       every model in manifest order
//
// Empty manifest categories contribute nothing.
//
// # Backup
//
// CreateBackup clears the unexpected-shutdown flag, flushes pending changes,
// enumerates the manifest and streams every file into the container. Any
// failure removes the partial container, so a file in BACKUPS/ is always
// complete.
//
// # Restore
//
// Restore quiesces the device before touching storage:
//
//	┌──────────────┐   ┌──────────────┐   ┌──────────────┐   ┌──────────────┐
//	│ pause pulses │──▶│   suspend    │──▶│    mount     │──▶│ open + check │
//	└──────────────┘   │ flush+unmount│   └──────────────┘   └──────┬───────┘
//	                   └──────────────┘                             ▼
//	┌──────────────┐   ┌──────────────┐   ┌──────────────┐   ┌──────────────┐
//	│resume pulses │◀──│ resume device│◀──│   unmount    │◀──│extract, report│
//	└──────────────┘   │ mount+load   │   └──────────────┘   └──────────────┘
//	                   └──────────────┘
//
// Extraction continues past failed entries and reports the restore as
// failed afterwards. The bottom row always runs, whatever the outcome.
//
// # Usage
//
//	svc := backup.NewService(backup.Deps{
//	    Volume:   vol,
//	    Mounter:  vol,
//	    Store:    store,
//	    Pulses:   generator,
//	    Device:   runtime,
//	    Watchdog: dog,
//	}, backup.DefaultConfig())
//
//	res, err := svc.CreateBackup(ctx)
//	res, err := svc.Restore(ctx, "BACKUPS/backup-2026-03-01-120000.otx")
package backup
