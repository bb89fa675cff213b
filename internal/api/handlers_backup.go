// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"context"
	"errors"
	"io/fs"
	"net/http"

	"github.com/tomtom215/radiostore/internal/backup"
	"github.com/tomtom215/radiostore/internal/validation"
)

// RestoreRequest is the body of POST /backups/restore.
type RestoreRequest struct {
	Path string `json:"path" validate:"required,backuppath"`
}

// InspectRequest carries the query of GET /backups/inspect.
type InspectRequest struct {
	Path string `validate:"required,backuppath"`
}

// ListBackups returns the backup containers, newest first.
func (h *Handler) ListBackups(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	backups, err := h.deps.Backups.ListBackups()
	if err != nil {
		rw.StorageError("list backups", err)
		return
	}
	if backups == nil {
		backups = []backup.Info{}
	}
	rw.Success(backups)
}

// CreateBackup writes a new container. The backup runs on a context detached
// from the request so a disconnecting client cannot leave a partial file.
func (h *Handler) CreateBackup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	res, err := h.deps.Backups.CreateBackup(context.WithoutCancel(r.Context()))
	switch {
	case errors.Is(err, backup.ErrBusy):
		rw.Conflict("A backup or restore is already running")
		return
	case err != nil:
		rw.ErrorWithData(http.StatusInternalServerError, ErrCodeBackupFailed,
			sanitizeLogValue(err.Error()), stepDetails(err), res)
		return
	}

	rw.Created(res)
}

// RestoreBackup replaces the storage contents with a container. Entry
// failures do not stop the restore; the result lists them.
func (h *Handler) RestoreBackup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req RestoreRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.Validation(verr)
		return
	}

	res, err := h.deps.Backups.Restore(context.WithoutCancel(r.Context()), req.Path)
	switch {
	case errors.Is(err, backup.ErrBusy):
		rw.Conflict("A backup or restore is already running")
		return
	case errors.Is(err, fs.ErrNotExist):
		rw.ErrorWithData(http.StatusNotFound, ErrCodeNotFound,
			"Backup "+req.Path+" does not exist", stepDetails(err), res)
		return
	case err != nil:
		rw.ErrorWithData(http.StatusInternalServerError, ErrCodeRestoreIncomplete,
			sanitizeLogValue(err.Error()), stepDetails(err), res)
		return
	}

	rw.Success(res)
}

// InspectBackup returns the directory of a container without extracting it.
func (h *Handler) InspectBackup(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	req := InspectRequest{Path: r.URL.Query().Get("path")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.Validation(verr)
		return
	}

	info, err := h.deps.Backups.Inspect(req.Path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		rw.NotFound("Backup " + req.Path + " does not exist")
		return
	case err != nil:
		rw.StorageError("inspect backup", err)
		return
	}

	rw.Success(info)
}

// stepDetails names the failed protocol step, if known.
func stepDetails(err error) any {
	var se *backup.StepError
	if errors.As(err, &se) {
		return map[string]string{"step": se.Step}
	}
	return nil
}
