// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/persist"
)

// HealthStatus is returned by GET /health.
type HealthStatus struct {
	Status  string  `json:"status"`
	Version string  `json:"version"`
	Mounted bool    `json:"mounted"`
	Dirty   string  `json:"dirty"`
	Uptime  float64 `json:"uptime_seconds"`
}

// StorageStatus is returned by GET /storage/status.
type StorageStatus struct {
	Mounted      bool   `json:"mounted"`
	Dirty        string `json:"dirty"`
	DirtyGeneral bool   `json:"dirty_general"`
	DirtyModel   bool   `json:"dirty_model"`
	CurrentModel string `json:"current_model"`
}

// FlushResult is returned by POST /storage/flush.
type FlushResult struct {
	Flushed string `json:"flushed"`
	Dirty   string `json:"dirty"`
}

func (h *Handler) mounted() bool {
	return h.deps.Mount == nil || h.deps.Mount.Mounted()
}

// Health reports liveness. Storage that is not mounted degrades the status
// but still answers 200, since pulses keep running.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	mounted := h.mounted()
	status := "healthy"
	if !mounted {
		status = "degraded"
	}

	NewResponseWriter(w, r).Success(HealthStatus{
		Status:  status,
		Version: h.deps.Version,
		Mounted: mounted,
		Dirty:   h.deps.Store.Dirty().String(),
		Uptime:  time.Since(h.startTime).Seconds(),
	})
}

// StorageStatus reports pending changes and the active model.
func (h *Handler) StorageStatus(w http.ResponseWriter, r *http.Request) {
	dirty := h.deps.Store.Dirty()
	NewResponseWriter(w, r).Success(StorageStatus{
		Mounted:      h.mounted(),
		Dirty:        dirty.String(),
		DirtyGeneral: dirty&persist.KindGeneral != 0,
		DirtyModel:   dirty&persist.KindModel != 0,
		CurrentModel: h.deps.Store.CurrentModelFilename(),
	})
}

// StorageFlush writes every dirty entity now, ignoring the write delay.
func (h *Handler) StorageFlush(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	before := h.deps.Store.Dirty()

	if err := h.deps.Store.FlushDirty(true); err != nil {
		rw.StorageError("flush", err)
		return
	}

	after := h.deps.Store.Dirty()
	flushed := before &^ after
	if flushed != 0 && h.deps.Hub != nil {
		h.deps.Hub.BroadcastStorageFlushed(flushed.String())
	}
	rw.Success(FlushResult{Flushed: flushed.String(), Dirty: after.String()})
}

// StorageFormat erases the medium and writes a fresh layout with defaults.
func (h *Handler) StorageFormat(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	if err := h.deps.Store.EraseAll(false); err != nil {
		rw.StorageError("format", err)
		return
	}

	logging.Ctx(r.Context()).Warn().Msg("Storage formatted via API")
	rw.Success(map[string]string{"current_model": h.deps.Store.CurrentModelFilename()})
}
