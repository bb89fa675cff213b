// Radiostore - Transmitter Settings Persistence and Backup
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/radiostore

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the config files searched, in order.
var DefaultConfigPaths = []string{
	"radiostore.yaml",
	"radiostore.yml",
	"/etc/radiostore/config.yaml",
	"/etc/radiostore/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "RADIOSTORE_CONFIG"

// defaultConfig returns the built-in defaults, overridden by the file and
// environment layers.
func defaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Driver:     "dir",
			Root:       "/var/lib/radiostore",
			WriteDelay: 2 * time.Second,
		},
		Backup: BackupConfig{
			Timestamped:  true,
			MaxEntrySize: 1 << 20,
		},
		Pulses: PulsesConfig{
			FramePeriod: 22500 * time.Microsecond,
		},
		Watchdog: WatchdogConfig{
			Timeout: 500 * time.Millisecond,
		},
		AutoFlush: AutoFlushConfig{
			Interval:        500 * time.Millisecond,
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Server: ServerConfig{
			Host:              "127.0.0.1",
			Port:              8750,
			RateLimitRequests: 10,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
			ShutdownTimeout:   10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Default returns the built-in configuration, for commands that run
// without a config file.
func Default() *Config {
	return defaultConfig()
}

// Load reads configuration from defaults, the config file and the
// environment, then validates it.
func Load() (*Config, error) {
	return LoadFile(findConfigFile())
}

// LoadFile is Load with an explicit config file. An empty path skips the
// file layer.
func LoadFile(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns $RADIOSTORE_CONFIG if it exists, else the first
// existing DefaultConfigPaths entry, else "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as
// strings from the environment.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envMappings maps lower-cased environment variable names to koanf paths.
var envMappings = map[string]string{
	"radiostore_storage_driver":             "storage.driver",
	"radiostore_storage_root":               "storage.root",
	"radiostore_storage_in_memory":          "storage.in_memory",
	"radiostore_write_delay":                "storage.write_delay",
	"radiostore_recover_corrupt_settings":   "storage.recover_corrupt_settings",
	"radiostore_backup_timestamped":         "backup.timestamped",
	"radiostore_backup_max_entry_size":      "backup.max_entry_size",
	"radiostore_backup_retain":              "backup.retain",
	"radiostore_pulses_frame_period":        "pulses.frame_period",
	"radiostore_watchdog_timeout":           "watchdog.timeout",
	"radiostore_autoflush_interval":         "autoflush.interval",
	"radiostore_autoflush_breaker_failures": "autoflush.breaker_failures",
	"radiostore_autoflush_breaker_timeout":  "autoflush.breaker_timeout",
	"radiostore_http_host":                  "server.host",
	"radiostore_http_port":                  "server.port",
	"radiostore_rate_limit_requests":        "server.rate_limit_requests",
	"radiostore_rate_limit_window":          "server.rate_limit_window",
	"radiostore_cors_origins":               "server.cors_origins",
	"radiostore_shutdown_timeout":           "server.shutdown_timeout",
	"log_level":                             "logging.level",
	"log_format":                            "logging.format",
	"log_caller":                            "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped names return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
