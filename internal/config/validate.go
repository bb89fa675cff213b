// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package config

import (
	"fmt"

	"github.com/tomtom215/radiostore/internal/validation"
)

// Validate checks field rules, then rules spanning sections.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return verr
	}

	if err := c.validateStorage(); err != nil {
		return err
	}
	return c.validateRuntime()
}

func (c *Config) validateStorage() error {
	if c.Storage.Root == "" && !(c.Storage.Driver == "badger" && c.Storage.InMemory) {
		return fmt.Errorf("storage.root is required unless storage.driver=badger with storage.in_memory")
	}
	if c.Storage.InMemory && c.Storage.Driver != "badger" {
		return fmt.Errorf("storage.in_memory requires storage.driver=badger")
	}
	return nil
}

// validateRuntime checks timings that only make sense together. The pulse
// generator kicks the watchdog once per frame.
func (c *Config) validateRuntime() error {
	if c.Watchdog.Timeout <= c.Pulses.FramePeriod {
		return fmt.Errorf("watchdog.timeout (%v) must exceed pulses.frame_period (%v)",
			c.Watchdog.Timeout, c.Pulses.FramePeriod)
	}
	return nil
}

// HasWildcardCORS reports whether any origin is allowed.
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Server.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}
