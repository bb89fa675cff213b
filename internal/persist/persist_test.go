// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package persist

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/radio"
	"github.com/tomtom215/radiostore/internal/record"
	"github.com/tomtom215/radiostore/internal/storage"
)

// faultVolume counts file creations and fails the configured paths.
type faultVolume struct {
	storage.Volume
	creates    map[string]int
	failCreate map[string]error
}

func newFaultVolume(t *testing.T) *faultVolume {
	t.Helper()
	dir := storage.NewDirVolume(t.TempDir())
	if err := dir.Mount(); err != nil {
		t.Fatalf("Mount() error = %v", err)
	}
	return &faultVolume{
		Volume:     dir,
		creates:    make(map[string]int),
		failCreate: make(map[string]error),
	}
}

func (v *faultVolume) Create(name string) (storage.File, error) {
	if err := v.failCreate[name]; err != nil {
		return nil, err
	}
	v.creates[name]++
	return v.Volume.Create(name)
}

func (v *faultVolume) totalCreates() int {
	n := 0
	for _, c := range v.creates {
		n += c
	}
	return n
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func formatted(t *testing.T, vol storage.Volume) {
	t.Helper()
	m := New(vol, Options{})
	if err := m.EraseAll(false); err != nil {
		t.Fatalf("EraseAll() error = %v", err)
	}
}

func TestDirtyMask(t *testing.T) {
	var d DirtyMask
	if !d.Empty() || d.Count() != 0 || d.Bits().String() != "none" {
		t.Fatalf("zero DirtyMask not clean: %v", d.Bits())
	}

	t0 := time.Unix(100, 0)
	d.Mark(KindModel, t0)
	d.Mark(KindGeneral, t0.Add(time.Second))
	if d.Since() != t0 {
		t.Errorf("Since() = %v, want first mark %v", d.Since(), t0)
	}
	if d.Count() != 2 || d.Bits().String() != "general|model" {
		t.Errorf("Bits() = %v count %d", d.Bits(), d.Count())
	}

	d.Clear(KindGeneral)
	if d.Has(KindGeneral) || !d.Has(KindModel) {
		t.Errorf("after Clear(general) bits = %v", d.Bits())
	}
	d.Clear(KindModel)
	if !d.Empty() || !d.Since().IsZero() {
		t.Errorf("after clearing all: bits=%v since=%v", d.Bits(), d.Since())
	}
}

func TestFlushCoalescesMutations(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)
	m := New(vol, Options{})
	vol.creates = make(map[string]int)

	for i := 0; i < 10; i++ {
		m.MutateSettings(func(g *radio.GeneralSettings) { g.Contrast = uint8(i) })
	}
	if err := m.FlushDirty(true); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}
	if got := vol.creates[storage.SettingsPath]; got != 1 {
		t.Errorf("settings writes = %d, want 1", got)
	}
	if got := vol.totalCreates(); got != 1 {
		t.Errorf("total writes = %d, want 1", got)
	}

	if err := m.FlushDirty(true); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}
	if got := vol.totalCreates(); got != 1 {
		t.Errorf("flush with nothing dirty wrote %d files", got-1)
	}
}

func TestFlushHonoursWriteDelay(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)
	clock := newClock()
	m := New(vol, Options{WriteDelay: 2 * time.Second, Clock: clock.Now})
	vol.creates = make(map[string]int)

	m.MutateModel(func(md *radio.ModelData) { md.Trims[0] = 10 })
	clock.Advance(time.Second)
	if err := m.FlushDirty(false); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}
	if vol.totalCreates() != 0 || m.Dirty() != KindModel {
		t.Fatalf("flush before delay wrote %d files, dirty=%v", vol.totalCreates(), m.Dirty())
	}

	clock.Advance(time.Second)
	if err := m.FlushDirty(false); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}
	if got := vol.creates[storage.ModelPath(radio.DefaultModelFilename)]; got != 1 {
		t.Errorf("model writes = %d, want 1", got)
	}
	if m.Dirty() != 0 {
		t.Errorf("Dirty() = %v after flush", m.Dirty())
	}
}

func TestFlushFailureKeepsBitAndContinues(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)
	m := New(vol, Options{})

	modelPath := storage.ModelPath(radio.DefaultModelFilename)
	vol.failCreate[modelPath] = errors.New("card removed")
	vol.creates = make(map[string]int)

	m.MarkDirty(KindGeneral | KindModel)
	err := m.FlushDirty(true)
	if !errors.Is(err, record.ErrStorageIO) {
		t.Fatalf("FlushDirty() error = %v, want ErrStorageIO", err)
	}
	if m.Dirty() != KindModel {
		t.Errorf("Dirty() = %v, want model only", m.Dirty())
	}
	if vol.creates[storage.SettingsPath] != 1 {
		t.Errorf("settings not flushed despite model failure")
	}

	delete(vol.failCreate, modelPath)
	if err := m.FlushDirty(true); err != nil {
		t.Fatalf("retry FlushDirty() error = %v", err)
	}
	if m.Dirty() != 0 {
		t.Errorf("Dirty() = %v after successful retry", m.Dirty())
	}
}

func TestLoadAllMissingSettingsIsFatal(t *testing.T) {
	vol := newFaultVolume(t)
	m := New(vol, Options{})

	err := m.LoadAll(context.Background())
	if !errors.Is(err, ErrSettingsUnavailable) {
		t.Fatalf("LoadAll() error = %v, want ErrSettingsUnavailable", err)
	}
	if !errors.Is(err, record.ErrStorageIO) {
		t.Errorf("LoadAll() error = %v, want wrapped ErrStorageIO", err)
	}
}

func TestLoadAllRecoversCorruptSettings(t *testing.T) {
	vol := newFaultVolume(t)
	warned := ""
	m := New(vol, Options{
		RecoverCorruptSettings: true,
		OnWarn:                 func(reason string) { warned = reason },
	})

	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if warned == "" {
		t.Error("OnWarn not called")
	}
	for _, p := range []string{storage.SettingsPath, storage.ManifestPath, storage.ModelPath(radio.DefaultModelFilename)} {
		if !storage.Exists(vol, p) {
			t.Errorf("%s missing after recovery", p)
		}
	}
}

func TestLoadAllRoundTrip(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)

	m := New(vol, Options{})
	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	m.MutateSettings(func(g *radio.GeneralSettings) { g.Contrast = 31 })
	m.MutateModel(func(md *radio.ModelData) { md.SetName("HELI") })
	if err := m.FlushDirty(true); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}

	reloaded := New(vol, Options{})
	if err := reloaded.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	if got := reloaded.Settings().Contrast; got != 31 {
		t.Errorf("Contrast = %d, want 31", got)
	}
	md := reloaded.Model()
	if got := md.Name(); got != "HELI" {
		t.Errorf("model name = %q, want HELI", got)
	}
}

func TestLoadAllMissingModelFallsBack(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)

	// Settings point at a model that does not exist.
	m := New(vol, Options{})
	m.MutateSettings(func(g *radio.GeneralSettings) {
		if err := g.SetModelFilename("ghost.bin"); err != nil {
			t.Fatalf("SetModelFilename() error = %v", err)
		}
	})
	if err := m.FlushDirty(true); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}

	var postAlarms []bool
	loader := New(vol, Options{PostModelLoad: func(alarms bool) { postAlarms = append(postAlarms, alarms) }})
	if err := loader.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}

	// model1.bin is taken by the format, so the fresh model is model2.bin.
	if got := loader.CurrentModelFilename(); got != "model2.bin" {
		t.Errorf("CurrentModelFilename() = %q, want model2.bin", got)
	}
	if !storage.Exists(vol, storage.ModelPath("model2.bin")) {
		t.Error("fresh model not written")
	}
	if loader.Dirty() != 0 {
		t.Errorf("Dirty() = %v after fallback", loader.Dirty())
	}
	idx, err := modelindex.Load(vol)
	if err != nil {
		t.Fatalf("modelindex.Load() error = %v", err)
	}
	if !idx.Contains("model2.bin") {
		t.Error("fresh model not registered in manifest")
	}
	for _, a := range postAlarms {
		if a {
			t.Error("post-load hook ran with alarms enabled on the fallback path")
		}
	}
}

func TestLoadAllRejectsModelOutsideModels(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)

	// A restored settings record may name any 16-byte path.
	const escaping = "../BACKUPS/x.otx"
	m := New(vol, Options{})
	m.MutateSettings(func(g *radio.GeneralSettings) {
		if err := g.SetModelFilename(escaping); err != nil {
			t.Fatalf("SetModelFilename() error = %v", err)
		}
	})
	if err := m.FlushDirty(true); err != nil {
		t.Fatalf("FlushDirty() error = %v", err)
	}
	if err := m.LoadModel(escaping, false); !errors.Is(err, ErrInvalidModelFilename) {
		t.Errorf("LoadModel() error = %v, want ErrInvalidModelFilename", err)
	}
	m.MarkDirty(KindModel)
	if err := m.FlushDirty(true); !errors.Is(err, ErrInvalidModelFilename) {
		t.Errorf("FlushDirty() error = %v, want ErrInvalidModelFilename", err)
	}

	loader := New(vol, Options{})
	if err := loader.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	got := loader.CurrentModelFilename()
	if !storage.IsModelPath(storage.ModelPath(got)) {
		t.Errorf("CurrentModelFilename() = %q, want a file in MODELS", got)
	}
	if got == escaping {
		t.Error("escaping model filename kept after LoadAll")
	}
	if storage.Exists(vol, "BACKUPS/x.otx") {
		t.Error("model record written outside MODELS")
	}
	if err := loader.FlushDirty(true); err != nil {
		t.Errorf("FlushDirty() after fallback error = %v", err)
	}
}

func TestLoadAllAcceptsShorterSettings(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)

	// An older firmware wrote only the first 4 payload bytes.
	full, err := func() ([]byte, error) {
		g := radio.GeneralDefault()
		g.Variant = 0x0BAD
		return g.MarshalBinary()
	}()
	if err != nil {
		t.Fatalf("MarshalBinary() error = %v", err)
	}
	if err := record.Write(vol, storage.SettingsPath, full[:4]); err != nil {
		t.Fatalf("record.Write() error = %v", err)
	}

	m := New(vol, Options{})
	if err := m.LoadAll(context.Background()); err != nil {
		t.Fatalf("LoadAll() error = %v", err)
	}
	g := m.Settings()
	if g.Variant != 0x0BAD {
		t.Errorf("Variant = %#x, want 0xbad from the stored prefix", g.Variant)
	}
	if g.ModelFilename() != radio.DefaultModelFilename {
		t.Errorf("ModelFilename() = %q, want default tail", g.ModelFilename())
	}
}

func TestEraseAllIdempotent(t *testing.T) {
	vol := newFaultVolume(t)
	warnings := 0
	m := New(vol, Options{OnWarn: func(string) { warnings++ }})

	read := func() ([]byte, []byte) {
		t.Helper()
		s, err := storage.ReadFile(vol, storage.SettingsPath)
		if err != nil {
			t.Fatalf("ReadFile(settings) error = %v", err)
		}
		mf, err := storage.ReadFile(vol, storage.ManifestPath)
		if err != nil {
			t.Fatalf("ReadFile(manifest) error = %v", err)
		}
		return s, mf
	}

	if err := m.EraseAll(true); err != nil {
		t.Fatalf("EraseAll() error = %v", err)
	}
	s1, mf1 := read()

	m.MutateSettings(func(g *radio.GeneralSettings) { g.Contrast = 1 })
	if err := m.EraseAll(false); err != nil {
		t.Fatalf("second EraseAll() error = %v", err)
	}
	s2, mf2 := read()

	if !bytes.Equal(s1, s2) || !bytes.Equal(mf1, mf2) {
		t.Error("EraseAll() is not idempotent on storage")
	}
	if string(mf1) != "[Models]\nmodel1.bin\n" {
		t.Errorf("manifest = %q", mf1)
	}
	if warnings != 1 {
		t.Errorf("warnings = %d, want 1", warnings)
	}
	if m.Dirty() != 0 {
		t.Errorf("Dirty() = %v after EraseAll", m.Dirty())
	}
}

func TestLoadModelFailure(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)

	var pre int
	var post []bool
	m := New(vol, Options{
		PreModelLoad:  func() { pre++ },
		PostModelLoad: func(alarms bool) { post = append(post, alarms) },
	})

	if err := m.LoadModel("missing.bin", true); !errors.Is(err, record.ErrStorageIO) {
		t.Fatalf("LoadModel() error = %v, want ErrStorageIO", err)
	}
	md := m.Model()
	if md.Name() != "" {
		t.Errorf("model name = %q, want unnamed default", md.Name())
	}
	if pre != 1 || len(post) != 1 || post[0] {
		t.Errorf("hooks pre=%d post=%v, want 1 and [false]", pre, post)
	}

	if err := m.LoadModel(radio.DefaultModelFilename, true); err != nil {
		t.Fatalf("LoadModel() error = %v", err)
	}
	if len(post) != 2 || !post[1] {
		t.Errorf("post hooks = %v, want alarms on success", post)
	}
}

func TestCreateAndSelectModel(t *testing.T) {
	vol := newFaultVolume(t)
	formatted(t, vol)
	m := New(vol, Options{})

	name, err := m.CreateModel()
	if err != nil {
		t.Fatalf("CreateModel() error = %v", err)
	}
	if name != "model2.bin" {
		t.Errorf("CreateModel() = %q, want model2.bin", name)
	}
	md := m.Model()
	if md.Name() != "MODEL02" {
		t.Errorf("model name = %q, want MODEL02", md.Name())
	}

	read, err := m.ReadModel("model2.bin")
	if err != nil {
		t.Fatalf("ReadModel() error = %v", err)
	}
	if read.Name() != "MODEL02" {
		t.Errorf("ReadModel() name = %q", read.Name())
	}

	if err := m.SelectModel(radio.DefaultModelFilename); err != nil {
		t.Fatalf("SelectModel() error = %v", err)
	}
	if m.CurrentModelFilename() != radio.DefaultModelFilename {
		t.Errorf("CurrentModelFilename() = %q", m.CurrentModelFilename())
	}
	if m.Dirty() != KindGeneral {
		t.Errorf("Dirty() = %v, want general after select", m.Dirty())
	}

	if err := m.SelectModel("../radio.bin"); err == nil {
		t.Error("SelectModel() accepted a path outside MODELS")
	}
}
