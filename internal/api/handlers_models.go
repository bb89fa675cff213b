// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"errors"
	"io/fs"
	"net/http"

	"github.com/tomtom215/radiostore/internal/persist"
	"github.com/tomtom215/radiostore/internal/validation"
)

// ModelEntry is one model in GET /models.
type ModelEntry struct {
	Filename string `json:"filename"`
	Name     string `json:"name,omitempty"`
	Current  bool   `json:"current"`
	Error    string `json:"error,omitempty"`
}

// CategoryEntry is one manifest category in GET /models.
type CategoryEntry struct {
	Name   string       `json:"name"`
	Models []ModelEntry `json:"models"`
}

// ModelList is returned by GET /models.
type ModelList struct {
	CurrentModel string          `json:"current_model"`
	Categories   []CategoryEntry `json:"categories"`
}

// SelectModelRequest is the body of POST /models/select.
type SelectModelRequest struct {
	Filename string `json:"filename" validate:"required,modelfile"`
}

// ListModels returns the manifest with each model's display name read from
// its record. Unreadable models are listed with the error.
func (h *Handler) ListModels(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	idx, err := h.deps.Manifest()
	if err != nil {
		rw.StorageError("read manifest", err)
		return
	}

	current := h.deps.Store.CurrentModelFilename()
	list := ModelList{CurrentModel: current, Categories: []CategoryEntry{}}
	for _, c := range idx.Categories() {
		entry := CategoryEntry{Name: c.Name, Models: make([]ModelEntry, 0, len(c.Models))}
		for _, ref := range c.Models {
			m := ModelEntry{Filename: ref.Filename, Current: ref.Filename == current}
			if md, err := h.deps.Store.ReadModel(ref.Filename); err != nil {
				m.Error = err.Error()
			} else {
				m.Name = md.Name()
			}
			entry.Models = append(entry.Models, m)
		}
		list.Categories = append(list.Categories, entry)
	}

	rw.Success(list)
}

// CreateModel creates the next free model file and makes it live.
func (h *Handler) CreateModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	filename, err := h.deps.Store.CreateModel()
	switch {
	case errors.Is(err, persist.ErrNoFreeModelSlot):
		rw.Conflict("No free model filename left")
		return
	case err != nil:
		rw.StorageError("create model", err)
		return
	}

	rw.Created(map[string]string{"filename": filename})
}

// SelectModel makes an existing model live.
func (h *Handler) SelectModel(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	var req SelectModelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rw.BadRequest("Invalid request body")
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		rw.Validation(verr)
		return
	}

	err := h.deps.Store.SelectModel(req.Filename)
	switch {
	case errors.Is(err, persist.ErrInvalidModelFilename):
		rw.BadRequest("Model filename must name a file in MODELS")
		return
	case errors.Is(err, fs.ErrNotExist):
		rw.NotFound("Model " + req.Filename + " does not exist")
		return
	case err != nil:
		rw.StorageError("select model", err)
		return
	}

	rw.Success(map[string]string{"current_model": h.deps.Store.CurrentModelFilename()})
}
