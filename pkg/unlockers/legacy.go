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

package unlockers

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/creamapi"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/smokeapi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Detector works out what is installed in a game directory. Installs made by
// this program carry a manifest; older ones are recognised by their files.
type Detector struct {
	fs        afero.Fs
	manifests *manifest.Store
	smoke     *smokeapi.Store
}

func NewDetector(manifests *manifest.Store, smoke *smokeapi.Store) *Detector {
	return &Detector{fs: manifests.Fs(), manifests: manifests, smoke: smoke}
}

// Installed reports the installed unlocker and its version. It matches
// steam.InstalledFunc.
func (d *Detector) Installed(installPath string, caps []string) (models.InstalledKind, string) {
	m, err := d.manifests.Read(installPath)
	if err != nil {
		log.Warn().Err(err).Str("path", installPath).Msg("ignoring unreadable manifest")
	}
	if m != nil {
		return m.InstalledKind, m.InstalledVersion
	}
	return d.LegacyKind(installPath, caps), ""
}

func (d *Detector) exists(path string) bool {
	ok, err := afero.Exists(d.fs, path)
	return err == nil && ok
}

// LegacyKind recognises an install without a manifest. CreamLinux leaves
// cream.sh and its libraries in the game root; SmokeAPI leaves a _o backup
// next to each replaced steam_api library.
func (d *Detector) LegacyKind(installPath string, caps []string) models.InstalledKind {
	if d.exists(filepath.Join(installPath, CreamScript)) &&
		(d.exists(filepath.Join(installPath, CreamLib32)) || d.exists(filepath.Join(installPath, CreamLib64))) {
		return models.InstalledCream
	}
	for _, rel := range caps {
		if d.exists(filepath.Join(installPath, BackupName(rel))) {
			return models.InstalledSmoke
		}
	}
	return models.InstalledNone
}

// Manifest returns the recorded manifest of a game, or one reconstructed
// from a legacy install. It returns nil when nothing is installed.
func (d *Detector) Manifest(ctx context.Context, target *models.Target) (*manifest.Manifest, error) {
	m, err := d.manifests.Read(target.InstallPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}
	if m != nil {
		return m, nil
	}
	switch d.LegacyKind(target.InstallPath, target.CapabilityFiles) {
	case models.InstalledCream:
		return d.legacyCream(target), nil
	case models.InstalledSmoke:
		return d.legacySmoke(ctx, target)
	case models.InstalledNone:
		return nil, nil //nolint:nilnil // nothing installed
	default:
		return nil, nil //nolint:nilnil // nothing installed
	}
}

func (d *Detector) legacyCream(target *models.Target) *manifest.Manifest {
	m := &manifest.Manifest{InstalledKind: models.InstalledCream}
	for _, name := range CreamFiles {
		if d.exists(filepath.Join(target.InstallPath, name)) {
			m.Files = append(m.Files, name)
		}
	}
	cfg, err := creamapi.NewStore(d.fs).Read(target.InstallPath)
	if err != nil {
		log.Debug().Err(err).Msg("legacy creamlinux install without readable config")
		return m
	}
	m.EnabledItemIDs = manifest.EnabledIDs(cfg.DLCs)
	return m
}

func (d *Detector) legacySmoke(ctx context.Context, target *models.Target) (*manifest.Manifest, error) {
	backups, err := d.smoke.Backups(ctx, target.InstallPath)
	if err != nil {
		return nil, err
	}
	m := &manifest.Manifest{InstalledKind: models.InstalledSmoke}
	for _, backup := range backups {
		rel, err := filepath.Rel(target.InstallPath, backup)
		if err != nil {
			continue
		}
		m.Backups = append(m.Backups, manifest.Backup{Original: OriginalName(rel), Backup: rel})
	}

	cfgPath := d.smoke.ConfigPath(ctx, target.InstallPath)
	if d.exists(cfgPath) {
		if rel, err := filepath.Rel(target.InstallPath, cfgPath); err == nil {
			m.Files = append(m.Files, rel)
		}
		cfg, err := d.smoke.Read(ctx, target.InstallPath)
		if err == nil && cfg != nil {
			m.EnabledItemIDs = legacySmokeEnabled(cfg)
		}
	}
	return m, nil
}

// legacySmokeEnabled returns the DLC a SmokeAPI config does not lock. Only
// the extra DLC list names items, so that is all that can be recovered.
func legacySmokeEnabled(cfg *smokeapi.Config) []string {
	var ids []string
	for _, extra := range cfg.ExtraDLCs {
		for id := range extra.DLCs {
			if cfg.OverrideDLCStatus[id] != smokeapi.StatusLocked {
				ids = append(ids, id)
			}
		}
	}
	return ids
}
