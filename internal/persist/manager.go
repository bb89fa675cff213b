// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

// Package persist owns the in-memory settings and active model and decides
// when they are written to storage.
//
// Mutators only mark entities dirty. FlushDirty is the single place records
// are written, so storage write frequency is bounded by how often it is
// called, not by how often values change.
package persist

import (
	"context"
	"encoding"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/metrics"
	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/radio"
	"github.com/tomtom215/radiostore/internal/record"
	"github.com/tomtom215/radiostore/internal/storage"
)

// DefaultWriteDelay is how long a non-immediate flush waits after the first
// unflushed change.
const DefaultWriteDelay = 2 * time.Second

// ErrSettingsUnavailable is returned by LoadAll when the settings record
// cannot be loaded. The device cannot continue without it.
var ErrSettingsUnavailable = errors.New("persist: radio settings unavailable")

// Options configures a Manager.
type Options struct {
	// WriteDelay applies to non-immediate flushes.
	WriteDelay time.Duration

	// RecoverCorruptSettings formats the medium instead of failing when the
	// settings record cannot be loaded at startup.
	RecoverCorruptSettings bool

	// Clock returns the current time. Defaults to time.Now.
	Clock func() time.Time

	// OnWarn is called when EraseAll is asked to warn the user.
	OnWarn func(reason string)

	// PreModelLoad and PostModelLoad bracket every model switch. They run
	// with the manager locked and must not call back into it.
	PreModelLoad  func()
	PostModelLoad func(alarms bool)
}

// Manager holds the live settings and model.
type Manager struct {
	vol  storage.Volume
	opts Options

	mu       sync.Mutex
	dirty    DirtyMask
	settings radio.GeneralSettings
	model    radio.ModelData
}

// New returns a Manager holding factory defaults. Call LoadAll to read the
// medium.
func New(vol storage.Volume, opts Options) *Manager {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.WriteDelay < 0 {
		opts.WriteDelay = 0
	}
	return &Manager{
		vol:      vol,
		opts:     opts,
		settings: radio.GeneralDefault(),
		model:    radio.ModelDefault(1),
	}
}

// Settings returns a copy of the live settings.
func (m *Manager) Settings() radio.GeneralSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings
}

// Model returns a copy of the live model.
func (m *Manager) Model() radio.ModelData {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// CurrentModelFilename returns the filename of the active model.
func (m *Manager) CurrentModelFilename() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.settings.ModelFilename()
}

// MutateSettings applies fn to the live settings and marks them dirty.
func (m *Manager) MutateSettings(fn func(*radio.GeneralSettings)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.settings)
	m.markLocked(KindGeneral)
}

// MutateModel applies fn to the live model and marks it dirty.
func (m *Manager) MutateModel(fn func(*radio.ModelData)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(&m.model)
	m.markLocked(KindModel)
}

// MarkDirty marks k for the next flush.
func (m *Manager) MarkDirty(k Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.markLocked(k)
}

func (m *Manager) markLocked(k Kind) {
	m.dirty.Mark(k, m.opts.Clock())
	metrics.SetDirtyEntities(m.dirty.Count())
}

// Dirty returns the entities waiting to be flushed.
func (m *Manager) Dirty() Kind {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.dirty.Bits()
}

// FlushDirty writes every dirty entity, settings before model. A bit is
// cleared only when its write succeeds; a failed write does not stop the
// next entity. Unless immediate is set, nothing is written until WriteDelay
// has passed since the first unflushed change.
func (m *Manager) FlushDirty(immediate bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.flushLocked(immediate)
}

func (m *Manager) flushLocked(immediate bool) error {
	if m.dirty.Empty() {
		return nil
	}
	if !immediate && m.opts.Clock().Sub(m.dirty.Since()) < m.opts.WriteDelay {
		return nil
	}

	var errs []error
	for _, k := range flushOrder {
		if !m.dirty.Has(k) {
			continue
		}
		err := m.writeLocked(k)
		metrics.RecordFlush(k.String(), err)
		if err != nil {
			logging.Warn().Err(err).Str("entity", k.String()).Msg("Flush failed, entity stays dirty")
			errs = append(errs, fmt.Errorf("flush %s: %w", k, err))
			continue
		}
		m.dirty.Clear(k)
	}
	metrics.SetDirtyEntities(m.dirty.Count())
	return errors.Join(errs...)
}

func (m *Manager) writeLocked(k Kind) error {
	switch k {
	case KindGeneral:
		data, err := m.settings.MarshalBinary()
		if err != nil {
			return err
		}
		return record.Write(m.vol, storage.SettingsPath, data)
	case KindModel:
		filename := m.settings.ModelFilename()
		if err := checkModelFilename(filename); err != nil {
			return err
		}
		data, err := m.model.MarshalBinary()
		if err != nil {
			return err
		}
		return record.Write(m.vol, storage.ModelPath(filename), data)
	default:
		return fmt.Errorf("persist: unknown entity %d", k)
	}
}

type payload interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
}

// loadInto reads the record at name into v. The current contents of v are
// used as the base, so fields past a shorter stored payload keep their
// values. v is unchanged on error.
func loadInto(vol storage.Volume, name string, v payload) error {
	buf, err := v.MarshalBinary()
	if err != nil {
		return err
	}
	if _, err := record.Load(vol, name, buf); err != nil {
		return err
	}
	return v.UnmarshalBinary(buf)
}

// LoadAll reads the settings and the model they select. A settings failure
// is fatal (ErrSettingsUnavailable) unless RecoverCorruptSettings is set. A
// model failure, including a model filename outside MODELS, falls back to
// defaults and a freshly created model; errors on that path are logged and
// the in-memory state stays usable.
func (m *Manager) LoadAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	log := logging.Ctx(ctx)

	if err := loadInto(m.vol, storage.SettingsPath, &m.settings); err != nil {
		if !m.opts.RecoverCorruptSettings {
			log.Error().Err(err).Str("path", storage.SettingsPath).Msg("Radio settings unavailable")
			return fmt.Errorf("%w: %w", ErrSettingsUnavailable, err)
		}
		log.Warn().Err(err).Msg("Radio settings unreadable, formatting storage")
		if eraseErr := m.eraseAllLocked(true); eraseErr != nil {
			log.Warn().Err(eraseErr).Msg("Format after bad settings incomplete")
		}
	}

	filename := m.settings.ModelFilename()
	if err := m.loadModelLocked(filename, false); err != nil {
		log.Warn().Err(err).Str("model", filename).Msg("Model unavailable, creating a default model")

		m.settings = radio.GeneralDefault()
		m.model = radio.ModelDefault(1)
		if err := storage.EnsureDir(m.vol, storage.ModelsDir); err != nil {
			log.Warn().Err(err).Msg("Cannot create models directory")
			return nil
		}
		if _, err := m.createModelLocked(); err != nil {
			log.Warn().Err(err).Msg("Default model not persisted")
		}
		return nil
	}

	log.Info().
		Str("model", m.settings.ModelFilename()).
		Str("language", m.settings.Language()).
		Msg("Storage loaded")
	return nil
}

// EraseAll resets settings and model to defaults, formats the medium, and
// writes both records immediately. warnUser triggers Options.OnWarn.
// Calling it twice leaves identical content on storage.
func (m *Manager) EraseAll(warnUser bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.eraseAllLocked(warnUser)
}

func (m *Manager) eraseAllLocked(warnUser bool) error {
	logging.Info().Bool("warn", warnUser).Msg("Erasing storage")

	m.settings = radio.GeneralDefault()
	m.model = radio.ModelDefault(1)

	if warnUser && m.opts.OnWarn != nil {
		m.opts.OnWarn("Bad radio data")
	}

	formatErr := m.formatLocked()
	m.markLocked(KindGeneral | KindModel)
	return errors.Join(formatErr, m.flushLocked(true))
}

// formatLocked creates the directory layout and a default manifest.
// Records are not touched.
func (m *Manager) formatLocked() error {
	if err := storage.EnsureDir(m.vol, storage.RadioDir); err != nil {
		return fmt.Errorf("persist: format: %w", err)
	}
	if err := storage.EnsureDir(m.vol, storage.ModelsDir); err != nil {
		return fmt.Errorf("persist: format: %w", err)
	}
	if err := modelindex.Default(radio.DefaultModelFilename).Save(m.vol); err != nil {
		return fmt.Errorf("persist: format: write manifest: %w", err)
	}
	return nil
}
