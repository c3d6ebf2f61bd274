/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Unknown fields are ignored on unmarshal.

type EditorConfig struct {
	DebounceMs                int  `yaml:"debounce_ms"`
	SaveTimeoutMs             int  `yaml:"save_timeout_ms"`
	TabInsertsAtDeadEnd       bool `yaml:"tab_inserts_at_dead_end"`
	ShiftTabEntersPanelHeader bool `yaml:"shift_tab_enters_panel_header"`
	AutoContinue              bool `yaml:"auto_continue"`
}

type BackendConfig struct {
	DatabaseURL string `yaml:"database_url"`
	ProjectID   string `yaml:"project_id"`
	TimeoutMs   int    `yaml:"timeout_ms"`
	// The database password is not stored on disk; it lives in the OS keychain.
}

type HistoryConfig struct {
	KeepPerPage int    `yaml:"keep_per_page"`
	PruneEvery  string `yaml:"prune_every"` // cron spec, e.g. "@every 10m"
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console | json | auto
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Backend       BackendConfig `yaml:"backend"`
	History       HistoryConfig `yaml:"history"`
	Logging       LoggingConfig `yaml:"logging"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			DebounceMs:          500,
			SaveTimeoutMs:       5000,
			TabInsertsAtDeadEnd: true,
			AutoContinue:        true,
		},
		Backend: BackendConfig{TimeoutMs: 15000},
		History: HistoryConfig{KeepPerPage: 50, PruneEvery: "@every 10m"},
		Logging: LoggingConfig{Level: "info", Format: "auto"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath = "PANELSCRIPT_CONFIG"

	EnvDebounceMs    = "PANELSCRIPT_DEBOUNCE_MS"
	EnvSaveTimeoutMs = "PANELSCRIPT_SAVE_TIMEOUT_MS"
	EnvAutoContinue  = "PANELSCRIPT_AUTO_CONTINUE"

	EnvDatabaseURL      = "PANELSCRIPT_DATABASE_URL"
	EnvDatabasePassword = "PANELSCRIPT_DATABASE_PASSWORD"
	EnvProjectID        = "PANELSCRIPT_PROJECT_ID"
	EnvBackendTimeoutMs = "PANELSCRIPT_BACKEND_TIMEOUT_MS"

	// EnvLogLevel Logging envs
	EnvLogLevel  = "PANELSCRIPT_LOG_LEVEL"
	EnvLogFormat = "PANELSCRIPT_LOG_FORMAT"
	EnvLogSource = "PANELSCRIPT_LOG_SOURCE"
	EnvLogFile   = "PANELSCRIPT_LOG_FILE"
)

// ConfigPath returns the per-user config file path.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "PanelScript")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "PanelScript")
	default: // linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "panelscript")
		} else {
			base = filepath.Join(os.Getenv("HOME"), ".config", "panelscript")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present) over the defaults and merges
// environment overrides. The database password comes from the environment or
// the keyring and is returned separately.
func Load() (AppConfig, string, error) {
	cfg := Defaults()
	path, err := ConfigPath()
	if err != nil {
		return cfg, "", err
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Defaults(), "", fmt.Errorf("parse %s: %w", path, err)
		}
	case !errors.Is(err, os.ErrNotExist):
		return cfg, "", fmt.Errorf("read %s: %w", path, err)
	}
	normalize(&cfg)
	applyEnvOverrides(&cfg)

	if pw := os.Getenv(EnvDatabasePassword); pw != "" {
		return cfg, pw, nil
	}
	pw, _ := tokenStore.Get(keyringService, keyringPassword)
	return cfg, pw, nil
}

// Save writes the user config YAML and persists the password into the OS keyring (if non-empty).
func Save(cfg AppConfig, password string) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return err
	}
	if password != "" {
		if err := tokenStore.Set(keyringService, keyringPassword, password); err != nil {
			return fmt.Errorf("store password: %w", err)
		}
	}
	return nil
}

// normalize trims string fields and repairs values a hand-edited file may get wrong.
func normalize(cfg *AppConfig) {
	def := Defaults()
	if cfg.ConfigVersion == 0 {
		cfg.ConfigVersion = def.ConfigVersion
	}
	if cfg.Editor.DebounceMs < 0 {
		cfg.Editor.DebounceMs = def.Editor.DebounceMs
	}
	if cfg.Editor.SaveTimeoutMs <= 0 {
		cfg.Editor.SaveTimeoutMs = def.Editor.SaveTimeoutMs
	}
	if cfg.Backend.TimeoutMs <= 0 {
		cfg.Backend.TimeoutMs = def.Backend.TimeoutMs
	}
	cfg.Backend.DatabaseURL = strings.TrimSpace(cfg.Backend.DatabaseURL)
	cfg.Backend.ProjectID = strings.TrimSpace(cfg.Backend.ProjectID)
	if cfg.History.KeepPerPage <= 0 {
		cfg.History.KeepPerPage = def.History.KeepPerPage
	}
	if strings.TrimSpace(cfg.History.PruneEvery) == "" {
		cfg.History.PruneEvery = def.History.PruneEvery
	}
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = def.Logging.Level
	}
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = def.Logging.Format
	}
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvDebounceMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Editor.DebounceMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSaveTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.SaveTimeoutMs = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvAutoContinue)); v != "" {
		cfg.Editor.AutoContinue = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvDatabaseURL)); v != "" {
		cfg.Backend.DatabaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvProjectID)); v != "" {
		cfg.Backend.ProjectID = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvBackendTimeoutMs)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Backend.TimeoutMs = n
		}
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var overrideEnv = map[string]string{
	"editor.debounce_ms":     EnvDebounceMs,
	"editor.save_timeout_ms": EnvSaveTimeoutMs,
	"editor.auto_continue":   EnvAutoContinue,
	"backend.database_url":   EnvDatabaseURL,
	"backend.project_id":     EnvProjectID,
	"backend.timeout_ms":     EnvBackendTimeoutMs,
	"logging.level":          EnvLogLevel,
	"logging.format":         EnvLogFormat,
	"logging.source":         EnvLogSource,
	"logging.file":           EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := overrideEnv[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}

// Debounce is the idle time before an edited page is saved.
func (e EditorConfig) Debounce() time.Duration {
	return time.Duration(e.DebounceMs) * time.Millisecond
}

// SaveTimeout bounds a single save.
func (e EditorConfig) SaveTimeout() time.Duration {
	if e.SaveTimeoutMs <= 0 {
		return time.Duration(Defaults().Editor.SaveTimeoutMs) * time.Millisecond
	}
	return time.Duration(e.SaveTimeoutMs) * time.Millisecond
}

// Timeout bounds a single database round trip.
func (b BackendConfig) Timeout() time.Duration {
	if b.TimeoutMs <= 0 {
		return time.Duration(Defaults().Backend.TimeoutMs) * time.Millisecond
	}
	return time.Duration(b.TimeoutMs) * time.Millisecond
}
