// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package config

import (
	"net"
	"strconv"
	"time"
)

// Config holds all radiostore configuration.
type Config struct {
	Storage    StorageConfig    `koanf:"storage"`
	Backup     BackupConfig     `koanf:"backup"`
	Pulses     PulsesConfig     `koanf:"pulses"`
	Watchdog   WatchdogConfig   `koanf:"watchdog"`
	AutoFlush  AutoFlushConfig  `koanf:"autoflush"`
	Server     ServerConfig     `koanf:"server"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// StorageConfig selects and tunes the storage medium.
type StorageConfig struct {
	// Driver is dir (a host directory) or badger (a BadgerDB key space).
	// Default: dir
	Driver string `koanf:"driver" validate:"oneof=dir badger"`

	// Root is the medium's host directory, or the badger directory.
	// Not used by an in-memory badger volume.
	Root string `koanf:"root"`

	// InMemory keeps a badger volume in memory. Only for tests and demos.
	InMemory bool `koanf:"in_memory"`

	// WriteDelay is how long non-immediate flushes wait after the first
	// unflushed change.
	// Default: 2s
	WriteDelay time.Duration `koanf:"write_delay" validate:"gte=0"`

	// RecoverCorruptSettings formats the medium instead of refusing to
	// start when the settings record is unreadable.
	RecoverCorruptSettings bool `koanf:"recover_corrupt_settings"`
}

// BackupConfig tunes backup naming, restore limits and retention.
type BackupConfig struct {
	// Timestamped appends -YYYY-MM-DD-HHMMSS to backup names.
	// Default: true
	Timestamped bool `koanf:"timestamped"`

	// MaxEntrySize caps a single restored entry.
	// Default: 1 MiB
	MaxEntrySize int64 `koanf:"max_entry_size" validate:"gt=0,lte=1073741824"`

	// Retain is how many backups are kept after each successful backup.
	// 0 keeps all.
	Retain int `koanf:"retain" validate:"gte=0,lte=1000"`
}

// PulsesConfig tunes the output generator.
type PulsesConfig struct {
	// FramePeriod is the output frame length.
	// Default: 22.5ms
	FramePeriod time.Duration `koanf:"frame_period" validate:"gt=0"`
}

// WatchdogConfig tunes the software watchdog.
type WatchdogConfig struct {
	// Timeout without a kick before an expiration is reported.
	// Default: 500ms
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// AutoFlushConfig tunes background flushing.
type AutoFlushConfig struct {
	Interval        time.Duration `koanf:"interval" validate:"gt=0"`
	BreakerFailures uint32        `koanf:"breaker_failures" validate:"gt=0,lte=1000"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout" validate:"gt=0"`
}

// ServerConfig configures the HTTP control API.
type ServerConfig struct {
	Host string `koanf:"host" validate:"required"`
	Port int    `koanf:"port" validate:"min=1,max=65535"`

	// RateLimitRequests per RateLimitWindow on mutating routes.
	RateLimitRequests int           `koanf:"rate_limit_requests" validate:"min=1,max=100000"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window" validate:"gte=1s,lte=1h"`

	// CORSOrigins allowed for browser clients. "*" allows any.
	CORSOrigins []string `koanf:"cors_origins"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout" validate:"gt=0"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// LoggingConfig configures zerolog.
type LoggingConfig struct {
	// Level is the minimum log level: trace, debug, info, warn, error.
	// Default: info
	Level string `koanf:"level" validate:"oneof=trace debug info warn error"`

	// Format is json or console.
	// Default: console
	Format string `koanf:"format" validate:"oneof=json console"`

	// Caller includes caller file and line number in logs.
	Caller bool `koanf:"caller"`
}

// SupervisorConfig tunes the suture tree. Zero values select suture's
// defaults.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold" validate:"gte=0"`
	FailureDecay     float64       `koanf:"failure_decay" validate:"gte=0"`
	FailureBackoff   time.Duration `koanf:"failure_backoff" validate:"gte=0"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout" validate:"gte=0"`
}
