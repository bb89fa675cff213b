// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

/*
Package api serves the local control API of radiostore.

The API is a thin layer over the persistence manager and the backup
service. It never holds state of its own.

# Routes

All JSON routes live under /api/v1 and answer with the APIResponse
envelope:

	GET  /api/v1/health              liveness, dirty bits, storage mount
	GET  /api/v1/storage/status      dirty entities, active model
	POST /api/v1/storage/flush       immediate flush of dirty entities
	POST /api/v1/storage/format      erase and re-create the layout
	GET  /api/v1/models              manifest categories with model names
	POST /api/v1/models              create the next free model
	POST /api/v1/models/select       make a model live
	GET  /api/v1/backups             backup containers, newest first
	POST /api/v1/backups             create a backup
	GET  /api/v1/backups/inspect     container directory (?path=)
	POST /api/v1/backups/restore     restore from {"path": "BACKUPS/..."}
	GET  /api/v1/ws                  progress events (websocket)
	GET  /metrics                    Prometheus exposition

Mutating routes share a stricter httprate limit, since each one writes the
storage medium.

# Errors

Errors carry a machine-readable code:

	VALIDATION_ERROR     request body failed validation (400)
	BAD_REQUEST          malformed JSON or a model filename outside MODELS (400)
	NOT_FOUND            backup or model file does not exist (404)
	CONFLICT             another backup or restore is running (409)
	STORAGE_ERROR        flush, format or model I/O failed (500)
	BACKUP_FAILED        backup aborted; data holds the BackupResult (500)
	RESTORE_INCOMPLETE   restore ran with failures; data holds the result (500)
*/
package api
