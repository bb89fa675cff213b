// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package device

import (
	"context"
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
	"github.com/tomtom215/radiostore/internal/persist"
)

// Flusher is the store surface the AutoFlusher polls.
// Satisfied by *persist.Manager.
type Flusher interface {
	FlushDirty(immediate bool) error
	Dirty() persist.Kind
}

// Suspender reports whether background writes must stay off.
type Suspender interface {
	Suspended() bool
}

// AutoFlushConfig tunes the background flusher.
type AutoFlushConfig struct {
	// Interval between flush attempts.
	Interval time.Duration

	// BreakerFailures is the number of consecutive failed flushes that
	// opens the breaker.
	BreakerFailures uint32

	// BreakerTimeout is how long the breaker stays open before a trial
	// flush.
	BreakerTimeout time.Duration
}

// DefaultAutoFlushConfig returns the daemon defaults.
func DefaultAutoFlushConfig() AutoFlushConfig {
	return AutoFlushConfig{
		Interval:        500 * time.Millisecond,
		BreakerFailures: 5,
		BreakerTimeout:  30 * time.Second,
	}
}

// AutoFlusher runs non-immediate flushes periodically so deferred writes
// reach storage once the write delay has passed. A card that keeps failing
// trips a circuit breaker instead of being retried every interval.
type AutoFlusher struct {
	store     Flusher
	suspender Suspender
	cfg       AutoFlushConfig

	cb         *gobreaker.CircuitBreaker[struct{}]
	logLimiter *rate.Limiter

	onFlush func(flushed persist.Kind)
}

// NewAutoFlusher returns an AutoFlusher. suspender may be nil.
func NewAutoFlusher(store Flusher, suspender Suspender, cfg AutoFlushConfig) *AutoFlusher {
	def := DefaultAutoFlushConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = def.BreakerFailures
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = def.BreakerTimeout
	}

	a := &AutoFlusher{
		store:     store,
		suspender: suspender,
		cfg:       cfg,
		// One failure log per breaker timeout, with a small burst.
		logLimiter: rate.NewLimiter(rate.Every(cfg.BreakerTimeout), 3),
	}

	metrics.SetBreakerOpen(false)
	a.cb = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "autoflush",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Autoflush breaker state change")
			metrics.SetBreakerOpen(to == gobreaker.StateOpen)
		},
	})
	return a
}

// SetOnFlush sets a callback receiving the entities written by a
// background flush. Must be set before Serve.
func (a *AutoFlusher) SetOnFlush(fn func(flushed persist.Kind)) {
	a.onFlush = fn
}

// State returns the breaker state.
func (a *AutoFlusher) State() gobreaker.State {
	return a.cb.State()
}

// flushOnce attempts one non-immediate flush and returns the entities it
// wrote.
func (a *AutoFlusher) flushOnce() (persist.Kind, error) {
	if a.suspender != nil && a.suspender.Suspended() {
		return 0, nil
	}
	before := a.store.Dirty()
	if before == 0 {
		return 0, nil
	}

	_, err := a.cb.Execute(func() (struct{}, error) {
		return struct{}{}, a.store.FlushDirty(false)
	})
	flushed := before &^ a.store.Dirty()

	switch {
	case err == nil:
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		logging.Debug().Err(err).Msg("Autoflush skipped")
	default:
		if a.logLimiter.Allow() {
			logging.Warn().Err(err).Stringer("dirty", before).Msg("Autoflush failed")
		}
	}

	if flushed != 0 && a.onFlush != nil {
		a.onFlush(flushed)
	}
	return flushed, err
}

// Serve implements suture.Service.
func (a *AutoFlusher) Serve(ctx context.Context) error {
	ticker := time.NewTicker(a.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			_, _ = a.flushOnce() //nolint:errcheck // logged in flushOnce
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (a *AutoFlusher) String() string {
	return "autoflush"
}
