// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package pulses runs the real-time output generator. Each frame it computes
// the channel outputs of the active model and hands them to a sink.
//
// The generator is the only actor besides the foreground control flow that
// touches the live model. Restore pauses it so no frame is produced from a
// half-restored model.
package pulses

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
	"github.com/tomtom215/radiostore/internal/radio"
)

// DefaultFramePeriod is the PPM frame length.
const DefaultFramePeriod = 22500 * time.Microsecond

// Source supplies the model frames are computed from.
// Satisfied by *persist.Manager.
type Source interface {
	Model() radio.ModelData
}

// Kicker is kicked once per produced frame.
type Kicker interface {
	Kick()
}

// SinkFunc receives the channel outputs of one frame.
type SinkFunc func(outputs []int16)

// Generator produces output frames at a fixed period until its context is
// canceled. Pause and Resume may be called from any goroutine.
type Generator struct {
	src    Source
	period time.Duration
	kicker Kicker

	paused atomic.Bool
	frames atomic.Uint64

	mu   sync.RWMutex
	sink SinkFunc
	last []int16
}

// New returns a Generator reading from src. A non-positive period selects
// DefaultFramePeriod.
func New(src Source, period time.Duration) *Generator {
	if period <= 0 {
		period = DefaultFramePeriod
	}
	return &Generator{src: src, period: period}
}

// SetKicker sets the watchdog kicked after every frame.
func (g *Generator) SetKicker(k Kicker) {
	g.kicker = k
}

// SetSink sets the frame receiver.
func (g *Generator) SetSink(fn SinkFunc) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sink = fn
}

// Pause stops frame production. Pausing twice is a no-op.
func (g *Generator) Pause() {
	if g.paused.CompareAndSwap(false, true) {
		metrics.SetPulsesPaused(true)
		logging.Debug().Msg("Pulses paused")
	}
}

// Resume restarts frame production.
func (g *Generator) Resume() {
	if g.paused.CompareAndSwap(true, false) {
		metrics.SetPulsesPaused(false)
		logging.Debug().Msg("Pulses resumed")
	}
}

// Paused reports whether the generator is paused.
func (g *Generator) Paused() bool {
	return g.paused.Load()
}

// Frames returns the number of frames produced so far.
func (g *Generator) Frames() uint64 {
	return g.frames.Load()
}

// LastFrame returns a copy of the most recent frame, or nil.
func (g *Generator) LastFrame() []int16 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.last == nil {
		return nil
	}
	out := make([]int16, len(g.last))
	copy(out, g.last)
	return out
}

// tick produces one frame unless paused and reports whether it did.
func (g *Generator) tick() bool {
	if g.paused.Load() {
		return false
	}

	model := g.src.Model()
	outputs := model.ChannelOutputs()

	g.mu.Lock()
	g.last = outputs
	sink := g.sink
	g.mu.Unlock()

	if sink != nil {
		sink(outputs)
	}
	g.frames.Add(1)
	metrics.PulseFrames.Inc()
	if g.kicker != nil {
		g.kicker.Kick()
	}
	return true
}

// Serve implements suture.Service.
func (g *Generator) Serve(ctx context.Context) error {
	ticker := time.NewTicker(g.period)
	defer ticker.Stop()

	logging.Info().Dur("period", g.period).Msg("Pulse generator started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			g.tick()
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (g *Generator) String() string {
	return "pulse-generator"
}
