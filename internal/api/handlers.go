// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/radiostore/internal/backup"
	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/persist"
	"github.com/tomtom215/radiostore/internal/radio"
	ws "github.com/tomtom215/radiostore/internal/websocket"
)

// maxRequestBody bounds JSON request bodies.
const maxRequestBody = 4 << 10

// Store is the persistence surface of the API. Satisfied by
// *persist.Manager.
type Store interface {
	Dirty() persist.Kind
	CurrentModelFilename() string
	FlushDirty(immediate bool) error
	EraseAll(warnUser bool) error
	CreateModel() (string, error)
	SelectModel(filename string) error
	ReadModel(filename string) (radio.ModelData, error)
}

// Backups is satisfied by *backup.Service.
type Backups interface {
	CreateBackup(ctx context.Context) (*backup.BackupResult, error)
	Restore(ctx context.Context, name string) (*backup.RestoreResult, error)
	ListBackups() ([]backup.Info, error)
	Inspect(name string) (*backup.ContainerInfo, error)
}

// ManifestFunc loads the model manifest.
type ManifestFunc func() (*modelindex.Index, error)

// MountChecker reports whether storage is mounted.
type MountChecker interface {
	Mounted() bool
}

// Deps are the collaborators of a Handler. Hub may be nil, which disables
// the websocket route.
type Deps struct {
	Store    Store
	Backups  Backups
	Manifest ManifestFunc
	Mount    MountChecker
	Hub      *ws.Hub
	Version  string
}

// Handler serves the API routes.
type Handler struct {
	deps      Deps
	startTime time.Time
}

// NewHandler returns a Handler.
func NewHandler(deps Deps) *Handler {
	if deps.Version == "" {
		deps.Version = "dev"
	}
	return &Handler{deps: deps, startTime: time.Now()}
}

// decodeJSON reads a bounded JSON body into v. An empty body leaves v
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
	return json.NewDecoder(r.Body).Decode(v)
}
