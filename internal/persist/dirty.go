// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package persist

import (
	"math/bits"
	"strings"
	"time"
)

// Kind identifies a persisted entity. Kinds are bit flags and may be combined.
type Kind uint8

const (
	// KindGeneral is the radio-wide settings record.
	KindGeneral Kind = 1 << iota
	// KindModel is the active model record.
	KindModel

	kindAll = KindGeneral | KindModel
)

// flushOrder is the order dirty entities are written in.
var flushOrder = []Kind{KindGeneral, KindModel}

func (k Kind) String() string {
	if k == 0 {
		return "none"
	}
	var parts []string
	if k&KindGeneral != 0 {
		parts = append(parts, "general")
	}
	if k&KindModel != 0 {
		parts = append(parts, "model")
	}
	return strings.Join(parts, "|")
}

// DirtyMask tracks which entities have unflushed in-memory changes.
// The zero value is clean.
type DirtyMask struct {
	bits  Kind
	since time.Time
}

// Mark sets k. since records the first mark after the mask was clean.
func (d *DirtyMask) Mark(k Kind, now time.Time) {
	if d.bits == 0 {
		d.since = now
	}
	d.bits |= k & kindAll
}

// Clear unsets k.
func (d *DirtyMask) Clear(k Kind) {
	d.bits &^= k
	if d.bits == 0 {
		d.since = time.Time{}
	}
}

// Has reports whether any bit of k is set.
func (d *DirtyMask) Has(k Kind) bool {
	return d.bits&k != 0
}

// Bits returns the set bits.
func (d *DirtyMask) Bits() Kind {
	return d.bits
}

// Empty reports whether nothing is dirty.
func (d *DirtyMask) Empty() bool {
	return d.bits == 0
}

// Count returns the number of dirty entities.
func (d *DirtyMask) Count() int {
	return bits.OnesCount8(uint8(d.bits))
}

// Since returns when the mask last went from clean to dirty.
func (d *DirtyMask) Since() time.Time {
	return d.since
}
