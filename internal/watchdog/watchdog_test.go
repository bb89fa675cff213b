// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package watchdog

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCheck(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	w := New(time.Second)
	w.clock = func() time.Time { return now }
	w.Kick()

	var stale time.Duration
	w.OnExpire(func(d time.Duration) { stale = d })

	if w.check(now.Add(500 * time.Millisecond)) {
		t.Error("check() expired before the timeout")
	}
	if !w.check(now.Add(1500 * time.Millisecond)) {
		t.Fatal("check() did not expire after the timeout")
	}
	if stale != 1500*time.Millisecond {
		t.Errorf("stale = %v, want 1.5s", stale)
	}
	if w.Expirations() != 1 {
		t.Errorf("Expirations() = %d, want 1", w.Expirations())
	}

	// The timer restarted at the expiration.
	if w.check(now.Add(2 * time.Second)) {
		t.Error("check() expired twice within one timeout")
	}

	now = now.Add(3 * time.Second)
	w.Kick()
	if w.check(now.Add(100 * time.Millisecond)) {
		t.Error("check() expired right after a kick")
	}
}

func TestNewDefaults(t *testing.T) {
	w := New(0)
	if w.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v, want %v", w.Timeout(), DefaultTimeout)
	}
	if w.String() != "watchdog" {
		t.Errorf("String() = %q", w.String())
	}
}

func TestServeDetectsStall(t *testing.T) {
	w := New(20 * time.Millisecond)

	expired := make(chan struct{}, 1)
	w.OnExpire(func(time.Duration) {
		select {
		case expired <- struct{}{}:
		default:
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Serve(ctx) }()

	select {
	case <-expired:
	case <-time.After(2 * time.Second):
		t.Fatal("watchdog never expired without kicks")
	}
	cancel()

	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Serve() error = %v, want context.Canceled", err)
	}
}
