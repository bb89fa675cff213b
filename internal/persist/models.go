// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package persist

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/tomtom215/radiostore/internal/logging"
	"github.com/tomtom215/radiostore/internal/modelindex"
	"github.com/tomtom215/radiostore/internal/radio"
	"github.com/tomtom215/radiostore/internal/storage"
)

// maxModelIndex bounds the search for a free model filename.
const maxModelIndex = 999

// ErrNoFreeModelSlot is returned by CreateModel when every modelN.bin name
// up to the limit is taken.
var ErrNoFreeModelSlot = errors.New("persist: no free model filename")

// ErrInvalidModelFilename is returned for a model filename that does not
// name a record directly inside MODELS.
var ErrInvalidModelFilename = errors.New("persist: invalid model filename")

// checkModelFilename rejects names that would resolve outside MODELS.
func checkModelFilename(filename string) error {
	if !storage.IsModelPath(storage.ModelPath(filename)) {
		return fmt.Errorf("%w %q", ErrInvalidModelFilename, filename)
	}
	return nil
}

// LoadModel makes filename the live model. On failure the live model is
// reset to an unnamed default, pending changes are flushed, and the post
// hook runs with alarms disabled. The load error is returned either way.
func (m *Manager) LoadModel(filename string, alarms bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.loadModelLocked(filename, alarms)
}

func (m *Manager) loadModelLocked(filename string, alarms bool) error {
	if err := checkModelFilename(filename); err != nil {
		return err
	}
	m.preModelLoad()

	err := loadInto(m.vol, storage.ModelPath(filename), &m.model)
	if err != nil {
		logging.Warn().Err(err).Str("model", filename).Msg("Model load failed")
		m.model = radio.ModelDefault(0)
		if flushErr := m.flushLocked(true); flushErr != nil {
			logging.Warn().Err(flushErr).Msg("Flush after failed model load incomplete")
		}
		alarms = false
	}

	m.postModelLoad(alarms)
	return err
}

// SelectModel records filename as the active model in settings and loads it.
func (m *Manager) SelectModel(filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := checkModelFilename(filename); err != nil {
		return err
	}
	if err := m.settings.SetModelFilename(filename); err != nil {
		return err
	}
	m.markLocked(KindGeneral)
	return m.loadModelLocked(filename, true)
}

// ReadModel loads a model record without making it live.
func (m *Manager) ReadModel(filename string) (radio.ModelData, error) {
	md := radio.ModelDefault(0)
	if err := loadInto(m.vol, storage.ModelPath(filename), &md); err != nil {
		return radio.ModelData{}, err
	}
	return md, nil
}

// CreateModel creates the next free modelN.bin with default contents, makes
// it the live model, registers it in the manifest and writes both records.
func (m *Manager) CreateModel() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createModelLocked()
}

func (m *Manager) createModelLocked() (string, error) {
	m.preModelLoad()
	defer m.postModelLoad(false)

	filename, index, err := m.nextModelFile()
	if err != nil {
		return "", err
	}

	m.model = radio.ModelDefault(index)
	if err := m.settings.SetModelFilename(filename); err != nil {
		return "", err
	}
	m.markLocked(KindGeneral | KindModel)

	regErr := m.registerModel(filename)
	if regErr != nil {
		logging.Warn().Err(regErr).Str("model", filename).Msg("Model not added to manifest")
	}

	if err := m.flushLocked(true); err != nil {
		return filename, err
	}

	logging.Info().Str("model", filename).Msg("Model created")
	return filename, nil
}

// nextModelFile returns the first modelN.bin (N >= 1) not present in MODELS.
func (m *Manager) nextModelFile() (string, int, error) {
	taken := make(map[string]bool)

	entries, err := m.vol.ReadDir(storage.ModelsDir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", 0, fmt.Errorf("persist: list models: %w", err)
	}
	for _, e := range entries {
		taken[e.Name()] = true
	}

	for i := 1; i <= maxModelIndex; i++ {
		name := fmt.Sprintf("model%d%s", i, storage.ModelExt)
		if !taken[name] {
			return name, i, nil
		}
	}
	return "", 0, ErrNoFreeModelSlot
}

// registerModel appends filename to the first manifest category. A missing
// manifest is recreated; an unreadable one is left alone.
func (m *Manager) registerModel(filename string) error {
	idx, err := modelindex.Load(m.vol)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		idx = modelindex.New()
	case err != nil:
		return err
	}

	if idx.Contains(filename) {
		return nil
	}
	category := modelindex.DefaultCategory
	if cats := idx.Categories(); len(cats) > 0 {
		category = cats[0].Name
	}
	idx.AddModel(category, filename)

	if err := storage.EnsureDir(m.vol, storage.RadioDir); err != nil {
		return err
	}
	return idx.Save(m.vol)
}

func (m *Manager) preModelLoad() {
	if m.opts.PreModelLoad != nil {
		m.opts.PreModelLoad()
	}
}

func (m *Manager) postModelLoad(alarms bool) {
	if m.opts.PostModelLoad != nil {
		m.opts.PostModelLoad(alarms)
	}
}
