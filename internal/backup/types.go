// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package backup

import (
	"errors"
	"time"

	"github.com/tomtom215/radiostore/internal/archive"
)

var (
	// ErrEnumeration is returned when the model manifest cannot be loaded.
	// No container is created.
	ErrEnumeration = errors.New("backup: model list unavailable")

	// ErrPartialArchive is returned when one or more entries could not be
	// restored. Remaining entries were still extracted.
	ErrPartialArchive = errors.New("backup: restore incomplete")

	// ErrMissingEntry is returned when a container lacks the settings or
	// manifest entry.
	ErrMissingEntry = errors.New("backup: mandatory entry missing")

	// ErrUnexpectedEntry is returned for entries that would be extracted
	// outside the settings, manifest and model files.
	ErrUnexpectedEntry = errors.New("backup: unexpected entry path")

	// ErrBusy is returned when another backup or restore is running.
	ErrBusy = errors.New("backup: operation in progress")
)

// Step names used in results and logs.
const (
	StepFlush     = "flush"
	StepDirectory = "directory"
	StepEnumerate = "enumerate"
	StepCreate    = "create"
	StepAppend    = "append"
	StepFinalise  = "finalise"
	StepMount     = "mount"
	StepOpen      = "open"
	StepExtract   = "extract"
)

// StepError records the protocol step that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

func stepErr(step string, err error) error {
	return &StepError{Step: step, Err: err}
}

// BackupResult describes one backup run.
type BackupResult struct {
	OperationID string        `json:"operation_id"`
	Path        string        `json:"path,omitempty"`
	Success     bool          `json:"success"`
	Entries     int           `json:"entries"`
	Total       int           `json:"total"`
	Bytes       int64         `json:"bytes"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"-" yaml:"-"`
	DurationMs  int64         `json:"duration_ms" yaml:"duration_ms"`
	FailedStep  string        `json:"failed_step,omitempty"`
	Error       string        `json:"error,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// EntryResult is the outcome of extracting one container entry.
type EntryResult struct {
	Index int    `json:"index"`
	Path  string `json:"path"`
	Size  int64  `json:"size"`
	Error string `json:"error,omitempty"`
}

// RestoreResult describes one restore run.
type RestoreResult struct {
	OperationID string        `json:"operation_id"`
	Path        string        `json:"path"`
	Success     bool          `json:"success"`
	Total       int           `json:"total"`
	Restored    int           `json:"restored"`
	Failed      int           `json:"failed"`
	Entries     []EntryResult `json:"entries,omitempty"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"-" yaml:"-"`
	DurationMs  int64         `json:"duration_ms" yaml:"duration_ms"`
	FailedStep  string        `json:"failed_step,omitempty"`
	Error       string        `json:"error,omitempty"`
	Warnings    []string      `json:"warnings,omitempty"`
}

// Info describes a backup file on the medium.
type Info struct {
	Path    string    `json:"path" yaml:"path"`
	Name    string    `json:"name" yaml:"name"`
	Size    int64     `json:"size" yaml:"size"`
	ModTime time.Time `json:"mod_time,omitempty" yaml:"mod_time,omitempty"`
}

// ContainerInfo is the directory of a backup container.
type ContainerInfo struct {
	Path    string          `json:"path" yaml:"path"`
	Size    int64           `json:"size" yaml:"size"`
	Major   uint16          `json:"major" yaml:"major"`
	Minor   uint16          `json:"minor" yaml:"minor"`
	Entries []archive.Entry `json:"entries" yaml:"entries"`
}
