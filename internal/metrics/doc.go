// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

/*
Package metrics exposes Prometheus instrumentation for radiostore.

Metrics are registered on the default registry at package init and served
by the API at /metrics:

	curl http://localhost:8619/metrics

# Available Metrics

Record codec:
  - radiostore_record_operations_total{op, result}
  - radiostore_record_bytes_total{op}

Persistence:
  - radiostore_flush_total{entity, result}
  - radiostore_dirty_entities

Backup and restore:
  - radiostore_backups_total{result}
  - radiostore_backup_duration_seconds
  - radiostore_backup_entries
  - radiostore_restores_total{result}
  - radiostore_restore_entry_failures_total

Real-time side:
  - radiostore_pulse_frames_total
  - radiostore_pulses_paused
  - radiostore_watchdog_expirations_total
  - radiostore_autoflush_breaker_open

HTTP:
  - radiostore_api_requests_total{method, route, status}
  - radiostore_api_request_duration_seconds{method, route}
*/
package metrics
