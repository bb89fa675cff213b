// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	resultSuccess = "success"
	resultFailure = "failure"
)

var (
	// Record codec
	RecordOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostore_record_operations_total",
			Help: "Record codec writes and loads by result",
		},
		[]string{"op", "result"},
	)

	RecordBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostore_record_bytes_total",
			Help: "Payload bytes moved by the record codec",
		},
		[]string{"op"},
	)

	// Persistence manager
	FlushTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostore_flush_total",
			Help: "Dirty entity flushes by entity and result",
		},
		[]string{"entity", "result"},
	)

	DirtyEntities = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radiostore_dirty_entities",
			Help: "Number of in-memory entities with unflushed changes",
		},
	)

	// Backup and restore
	BackupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostore_backups_total",
			Help: "Backup container creations by result",
		},
		[]string{"result"},
	)

	BackupDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "radiostore_backup_duration_seconds",
			Help:    "Wall time of a backup run",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30},
		},
	)

	BackupEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radiostore_backup_entries",
			Help: "Entries in the most recent successful backup",
		},
	)

	RestoresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostore_restores_total",
			Help: "Restore runs by result",
		},
		[]string{"result"},
	)

	RestoreEntryFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radiostore_restore_entry_failures_total",
			Help: "Container entries that could not be extracted during restore",
		},
	)

	// Real-time side
	PulseFrames = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radiostore_pulse_frames_total",
			Help: "Output frames produced by the pulse generator",
		},
	)

	PulsesPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radiostore_pulses_paused",
			Help: "1 while the pulse generator is paused",
		},
	)

	WatchdogExpirations = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "radiostore_watchdog_expirations_total",
			Help: "Times the watchdog timeout elapsed without a kick",
		},
	)

	AutoflushBreakerOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "radiostore_autoflush_breaker_open",
			Help: "1 while the autoflush circuit breaker is open",
		},
	)

	// HTTP API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "radiostore_api_requests_total",
			Help: "API requests by method, route and status code",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "radiostore_api_request_duration_seconds",
			Help:    "API request latency",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		},
		[]string{"method", "route"},
	)
)

func result(err error) string {
	if err != nil {
		return resultFailure
	}
	return resultSuccess
}

// RecordCodecOp records one record codec write or load of n payload bytes.
func RecordCodecOp(op string, n int, err error) {
	RecordOperations.WithLabelValues(op, result(err)).Inc()
	if err == nil && n > 0 {
		RecordBytes.WithLabelValues(op).Add(float64(n))
	}
}

// RecordFlush records the outcome of flushing one entity.
func RecordFlush(entity string, err error) {
	FlushTotal.WithLabelValues(entity, result(err)).Inc()
}

// SetDirtyEntities publishes the number of dirty bits currently set.
func SetDirtyEntities(n int) {
	DirtyEntities.Set(float64(n))
}

// RecordBackup records a finished backup run.
func RecordBackup(duration time.Duration, entries int, err error) {
	BackupsTotal.WithLabelValues(result(err)).Inc()
	BackupDuration.Observe(duration.Seconds())
	if err == nil {
		BackupEntries.Set(float64(entries))
	}
}

// RecordRestore records a finished restore run and its failed entry count.
func RecordRestore(failedEntries int, err error) {
	RestoresTotal.WithLabelValues(result(err)).Inc()
	if failedEntries > 0 {
		RestoreEntryFailures.Add(float64(failedEntries))
	}
}

// SetPulsesPaused tracks the pulse generator state.
func SetPulsesPaused(paused bool) {
	if paused {
		PulsesPaused.Set(1)
		return
	}
	PulsesPaused.Set(0)
}

// SetBreakerOpen tracks the autoflush breaker state.
func SetBreakerOpen(open bool) {
	if open {
		AutoflushBreakerOpen.Set(1)
		return
	}
	AutoflushBreakerOpen.Set(0)
}

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
