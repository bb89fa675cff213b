// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package validation provides struct validation using go-playground/validator v10.
//
// A singleton validator is shared by configuration loading and the HTTP API.
// Besides the built-in tags it registers:
//
//   - backuppath: a container path directly inside BACKUPS/ ending in .otx
//   - modelfile: a bare model filename ending in .bin, at most 16 bytes
//
// # Quick Start
//
//	type RestoreRequest struct {
//	    Path string `json:"path" validate:"required,backuppath"`
//	}
//
//	if err := validation.ValidateStruct(&req); err != nil {
//	    apiErr := err.ToAPIError()
//	    respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
//	    return
//	}
//
// Errors are translated into short messages ("Path must be a backup file
// path") and can be converted to the API error envelope with ToAPIError.
package validation
