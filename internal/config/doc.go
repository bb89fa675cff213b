// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

/*
Package config loads radiostore configuration with Koanf v2.

# Configuration Sources

Sources are layered, later ones winning:

 1. Defaults built into defaultConfig
 2. An optional YAML file: $RADIOSTORE_CONFIG, else the first of
    DefaultConfigPaths that exists
 3. Environment variables listed in the mapping table of envTransformFunc

Unmapped environment variables are ignored.

# Environment Variables

Storage:
  - RADIOSTORE_STORAGE_DRIVER: dir or badger (default: dir)
  - RADIOSTORE_STORAGE_ROOT: medium root directory (default: /var/lib/radiostore)
  - RADIOSTORE_STORAGE_IN_MEMORY: keep the badger volume in memory
  - RADIOSTORE_WRITE_DELAY: deferred write delay (default: 2s)
  - RADIOSTORE_RECOVER_CORRUPT_SETTINGS: format instead of failing on bad settings

Backup:
  - RADIOSTORE_BACKUP_TIMESTAMPED (default: true)
  - RADIOSTORE_BACKUP_MAX_ENTRY_SIZE (default: 1048576)
  - RADIOSTORE_BACKUP_RETAIN: backups kept after each backup, 0 keeps all

Runtime:
  - RADIOSTORE_PULSES_FRAME_PERIOD (default: 22.5ms)
  - RADIOSTORE_WATCHDOG_TIMEOUT (default: 500ms)
  - RADIOSTORE_AUTOFLUSH_INTERVAL (default: 500ms)
  - RADIOSTORE_AUTOFLUSH_BREAKER_FAILURES (default: 5)
  - RADIOSTORE_AUTOFLUSH_BREAKER_TIMEOUT (default: 30s)

HTTP Server:
  - RADIOSTORE_HTTP_HOST (default: 127.0.0.1)
  - RADIOSTORE_HTTP_PORT (default: 8750)
  - RADIOSTORE_RATE_LIMIT_REQUESTS, RADIOSTORE_RATE_LIMIT_WINDOW
  - RADIOSTORE_CORS_ORIGINS: comma separated

Logging:
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER

# Validation

Field rules are go-playground/validator tags checked through
internal/validation. Rules spanning several sections are checked in
Validate afterwards.
*/
package config
