// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package watchdog implements a software watchdog. Long-running work kicks
// it; when the timeout elapses without a kick the expiration is counted,
// logged and passed to an optional handler.
package watchdog

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
)

// DefaultTimeout is used when New is given a non-positive timeout.
const DefaultTimeout = 500 * time.Millisecond

// minCheckInterval bounds how often Serve polls.
const minCheckInterval = 10 * time.Millisecond

// Watchdog tracks the time of the last kick.
type Watchdog struct {
	timeout time.Duration
	clock   func() time.Time

	lastKick    atomic.Int64
	expirations atomic.Uint64

	onExpire func(stale time.Duration)
}

// New returns a Watchdog that counts as kicked at creation.
func New(timeout time.Duration) *Watchdog {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	w := &Watchdog{timeout: timeout, clock: time.Now}
	w.Kick()
	return w
}

// OnExpire sets a handler called with the time since the last kick each time
// the watchdog expires. Must be set before Serve.
func (w *Watchdog) OnExpire(fn func(stale time.Duration)) {
	w.onExpire = fn
}

// Kick resets the timeout.
func (w *Watchdog) Kick() {
	w.lastKick.Store(w.clock().UnixNano())
}

// Expirations returns how many times the timeout elapsed without a kick.
func (w *Watchdog) Expirations() uint64 {
	return w.expirations.Load()
}

// Timeout returns the configured timeout.
func (w *Watchdog) Timeout() time.Duration {
	return w.timeout
}

// check records an expiration if the timeout has elapsed at now. The timer
// restarts after an expiration so a stalled caller is reported once per
// timeout, not once per poll.
func (w *Watchdog) check(now time.Time) bool {
	last := w.lastKick.Load()
	stale := now.Sub(time.Unix(0, last))
	if stale < w.timeout {
		return false
	}
	if !w.lastKick.CompareAndSwap(last, now.UnixNano()) {
		// Kicked concurrently.
		return false
	}

	w.expirations.Add(1)
	metrics.WatchdogExpirations.Inc()
	logging.Warn().Dur("stale", stale).Dur("timeout", w.timeout).Msg("Watchdog expired")
	if w.onExpire != nil {
		w.onExpire(stale)
	}
	return true
}

// Serve implements suture.Service.
func (w *Watchdog) Serve(ctx context.Context) error {
	interval := max(w.timeout/4, minCheckInterval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// A restart of the service must not report the downtime as a stall.
	w.Kick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.check(w.clock())
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (w *Watchdog) String() string {
	return "watchdog"
}
