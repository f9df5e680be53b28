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

// Package smokeapi reads and writes SmokeAPI.config.json, the runtime
// configuration of SmokeAPI.
package smokeapi

import (
	"encoding/json"
	"fmt"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
)

const (
	ConfigFileName = "SmokeAPI.config.json"
	SchemaURL      = "https://raw.githubusercontent.com/acidicoala/SmokeAPI/refs/tags/v4.0.0/res/SmokeAPI.schema.json"
	SchemaVersion  = 4

	StatusUnlocked = "unlocked"
	StatusLocked   = "locked"
	StatusOriginal = "original"
)

// ExtraDLC lists DLC that Steam does not report for an app.
type ExtraDLC struct {
	DLCs map[string]string `json:"dlcs"`
}

//nolint:govet // field order is the key order of the written file
type Config struct {
	Schema              string              `json:"$schema"`
	Version             int                 `json:"$version"`
	Logging             bool                `json:"logging"`
	LogSteamHTTP        bool                `json:"log_steam_http"`
	DefaultAppStatus    string              `json:"default_app_status"`
	OverrideAppStatus   map[string]string   `json:"override_app_status"`
	OverrideDLCStatus   map[string]string   `json:"override_dlc_status"`
	AutoInjectInventory bool                `json:"auto_inject_inventory"`
	ExtraInventoryItems []uint32            `json:"extra_inventory_items"`
	ExtraDLCs           map[string]ExtraDLC `json:"extra_dlcs"`
}

// Default returns the configuration written by a fresh install.
func Default() Config {
	return Config{
		Schema:              SchemaURL,
		Version:             SchemaVersion,
		DefaultAppStatus:    StatusUnlocked,
		OverrideAppStatus:   map[string]string{},
		OverrideDLCStatus:   map[string]string{},
		AutoInjectInventory: true,
		ExtraInventoryItems: []uint32{},
		ExtraDLCs:           map[string]ExtraDLC{},
	}
}

// normalize fills empty fields so the file always carries every key.
func (c *Config) normalize() {
	if c.Schema == "" {
		c.Schema = SchemaURL
	}
	if c.Version == 0 {
		c.Version = SchemaVersion
	}
	if c.DefaultAppStatus == "" {
		c.DefaultAppStatus = StatusUnlocked
	}
	if c.OverrideAppStatus == nil {
		c.OverrideAppStatus = map[string]string{}
	}
	if c.OverrideDLCStatus == nil {
		c.OverrideDLCStatus = map[string]string{}
	}
	if c.ExtraInventoryItems == nil {
		c.ExtraInventoryItems = []uint32{}
	}
	if c.ExtraDLCs == nil {
		c.ExtraDLCs = map[string]ExtraDLC{}
	}
}

// ApplyDLCStatus locks disabled DLC and clears overrides of enabled ones.
func (c *Config) ApplyDLCStatus(items []models.CatalogItem) {
	c.normalize()
	for _, item := range items {
		if item.Enabled {
			delete(c.OverrideDLCStatus, item.ID)
			continue
		}
		c.OverrideDLCStatus[item.ID] = StatusLocked
	}
}

// Decode parses a configuration document and fills defaults.
func Decode(data []byte) (*Config, error) {
	var c Config
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", ConfigFileName, err)
	}
	if c.Version > SchemaVersion {
		return nil, fmt.Errorf("unsupported %s version %d", ConfigFileName, c.Version)
	}
	c.normalize()
	return &c, nil
}

// Encode renders a configuration document with defaults filled in.
func Encode(cfg Config) ([]byte, error) { //nolint:gocritic // copy is normalized
	cfg.normalize()
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", ConfigFileName, err)
	}
	return data, nil
}
