// CreamLinux Installer
// Copyright (c) 2026 The CreamLinux Installer Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of CreamLinux Installer.
//
// CreamLinux Installer is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// CreamLinux Installer is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with CreamLinux Installer.  If not, see <http://www.gnu.org/licenses/>.

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	toml "github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SchemaVersion = 1
	CfgEnv        = "CREAMLINUX_CFG"
)

type Values struct {
	Library        Library   `toml:"library"`
	Network        Network   `toml:"network"`
	Catalog        Catalog   `toml:"catalog"`
	API            API       `toml:"api"`
	Updates        Updates   `toml:"updates"`
	Telemetry      Telemetry `toml:"telemetry,omitempty"`
	ConfigSchema   int       `toml:"config_schema"`
	DebugLogging   bool      `toml:"debug_logging"`
	ShowDisclaimer bool      `toml:"show_disclaimer"`
}

type Library struct {
	ManualPaths []string `toml:"manual_paths,omitempty,multiline"`
	Watch       bool     `toml:"watch"`
}

type Network struct {
	RequestTimeout string `toml:"request_timeout,omitempty"`
	RetryBase      string `toml:"retry_base,omitempty"`
	MaxAttempts    int    `toml:"max_attempts,omitempty"`
}

type Catalog struct {
	RequestInterval    string `toml:"request_interval,omitempty"`
	ThrottleWait       string `toml:"throttle_wait,omitempty"`
	MaxThrottleRetries int    `toml:"max_throttle_retries,omitempty"`
}

type API struct {
	AllowedOrigins []string `toml:"allowed_origins,omitempty"`
	Port           int      `toml:"port,omitempty"`
}

type Updates struct {
	CheckOnStartup bool `toml:"check_on_startup"`
}

type Telemetry struct {
	DSN            string `toml:"dsn,omitempty"`
	ErrorReporting bool   `toml:"error_reporting"`
}

var BaseDefaults = Values{
	ConfigSchema:   SchemaVersion,
	ShowDisclaimer: true,
	Library: Library{
		Watch: true,
	},
	Network: Network{
		RequestTimeout: "10s",
		RetryBase:      "1s",
		MaxAttempts:    3,
	},
	Catalog: Catalog{
		RequestInterval:    "300ms",
		ThrottleWait:       "10s",
		MaxThrottleRetries: 5,
	},
	API: API{
		Port: DefaultAPIPort,
	},
	Updates: Updates{
		CheckOnStartup: true,
	},
}

type Instance struct {
	cfgPath  string
	vals     Values
	defaults Values
	mu       syncutil.RWMutex
}

//nolint:gocritic // config struct copied for immutability
func NewConfig(configDir string, defaults Values) (*Instance, error) {
	cfgPath := os.Getenv(CfgEnv)
	log.Debug().Msgf("env config path: %s", cfgPath)

	if cfgPath == "" {
		cfgPath = filepath.Join(configDir, CfgFile)
	}

	cfg := Instance{
		mu:       syncutil.RWMutex{},
		cfgPath:  cfgPath,
		vals:     defaults,
		defaults: defaults,
	}

	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		log.Info().Msg("saving new default config to disk")

		err := os.MkdirAll(filepath.Dir(cfgPath), 0o750)
		if err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}

		err = cfg.Save()
		if err != nil {
			return nil, err
		}
	}

	err := cfg.Load()
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Instance) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	data, err := os.ReadFile(c.cfgPath)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then unmarshal file values on top.
	// This ensures fields not present in the file retain their default values.
	newVals := c.defaults
	err = toml.Unmarshal(data, &newVals)
	if err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if newVals.ConfigSchema != SchemaVersion {
		log.Error().Msgf(
			"schema version mismatch: got %d, expecting %d",
			newVals.ConfigSchema,
			SchemaVersion,
		)
		return errors.New("schema version mismatch")
	}

	c.vals = newVals

	if c.vals.DebugLogging {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	return nil
}

func (c *Instance) Save() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cfgPath == "" {
		return errors.New("config path not set")
	}

	// set current schema version
	c.vals.ConfigSchema = SchemaVersion

	data, err := toml.Marshal(&c.vals)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.cfgPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// parseDuration returns fallback when value is empty or invalid.
func parseDuration(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		log.Warn().Str("value", value).Msg("invalid duration in config, using default")
		return fallback
	}
	return d
}

func (c *Instance) DebugLogging() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.DebugLogging
}

func (c *Instance) SetDebugLogging(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.DebugLogging = enabled
	if enabled {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func (c *Instance) ShowDisclaimer() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.ShowDisclaimer
}

func (c *Instance) SetShowDisclaimer(show bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.ShowDisclaimer = show
}

// ManualLibraryPaths returns user-supplied Steam library roots.
func (c *Instance) ManualLibraryPaths() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	paths := make([]string, len(c.vals.Library.ManualPaths))
	copy(paths, c.vals.Library.ManualPaths)
	return paths
}

func (c *Instance) SetManualLibraryPaths(paths []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.ManualPaths = paths
}

func (c *Instance) WatchLibrary() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Library.Watch
}

func (c *Instance) SetWatchLibrary(watch bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vals.Library.Watch = watch
}

// RequestTimeout is the timeout of a single network attempt.
func (c *Instance) RequestTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Network.RequestTimeout, 10*time.Second)
}

func (c *Instance) RetryBase() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Network.RetryBase, time.Second)
}

func (c *Instance) MaxAttempts() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.Network.MaxAttempts < 1 {
		return 1
	}
	return c.vals.Network.MaxAttempts
}

func (c *Instance) CatalogRequestInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Catalog.RequestInterval, 300*time.Millisecond)
}

func (c *Instance) CatalogThrottleWait() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return parseDuration(c.vals.Catalog.ThrottleWait, 10*time.Second)
}

func (c *Instance) CatalogMaxThrottleRetries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Catalog.MaxThrottleRetries
}

func (c *Instance) APIPort() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.vals.API.Port == 0 {
		return DefaultAPIPort
	}
	return c.vals.API.Port
}

func (c *Instance) AllowedOrigins() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	origins := make([]string, len(c.vals.API.AllowedOrigins))
	copy(origins, c.vals.API.AllowedOrigins)
	return origins
}

func (c *Instance) CheckUpdatesOnStartup() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Updates.CheckOnStartup
}

// ErrorReporting returns the Sentry DSN and whether reporting was opted into.
func (c *Instance) ErrorReporting() (dsn string, enabled bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.vals.Telemetry.DSN, c.vals.Telemetry.ErrorReporting && c.vals.Telemetry.DSN != ""
}
