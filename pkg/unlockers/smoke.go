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
	"strings"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/smokeapi"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Smoke installs SmokeAPI into Windows games run through Proton.
type Smoke struct {
	fs     afero.Fs
	config *smokeapi.Store
}

func NewSmoke(fs afero.Fs, config *smokeapi.Store) *Smoke {
	return &Smoke{fs: fs, config: config}
}

func (*Smoke) Kind() models.InstalledKind {
	return models.InstalledSmoke
}

func (*Smoke) Repository() (owner, repo string) {
	return "acidicoala", "SmokeAPI"
}

func (*Smoke) AssetName(version string) string {
	return "SmokeAPI-" + version + ".zip"
}

func (*Smoke) Eligible(target *models.Target) error {
	if target.Native() {
		return fmt.Errorf("%w: SmokeAPI requires a Proton game", ErrNotEligible)
	}
	if len(target.CapabilityFiles) == 0 {
		return fmt.Errorf("%w: no steam_api.dll or steam_api64.dll found", ErrNotEligible)
	}
	return nil
}

// smokeDLL finds the staged SmokeAPI library for an architecture.
func smokeDLL(files map[string]string, is64 bool) (string, bool) {
	suffix := "32.dll"
	if is64 {
		suffix = "64.dll"
	}
	for name, path := range files {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "smoke") && strings.HasSuffix(lower, suffix) {
			return path, true
		}
	}
	return "", false
}

// BackupName returns the name SmokeAPI expects for the original library,
// steam_api64.dll becoming steam_api64_o.dll.
func BackupName(rel string) string {
	ext := filepath.Ext(rel)
	return strings.TrimSuffix(rel, ext) + "_o" + ext
}

// OriginalName reverses BackupName.
func OriginalName(backupRel string) string {
	ext := filepath.Ext(backupRel)
	return strings.TrimSuffix(strings.TrimSuffix(backupRel, ext), "_o") + ext
}

func (s *Smoke) Stage(archive *Archive, dir string) (*Staged, error) {
	files, err := extractZip(s.fs, archive.Path, dir, func(name string) bool {
		return strings.HasSuffix(strings.ToLower(name), ".dll")
	})
	if err != nil {
		return nil, err
	}
	for _, is64 := range []bool{false, true} {
		if _, ok := smokeDLL(files, is64); !ok {
			bits := "32"
			if is64 {
				bits = "64"
			}
			return nil, fmt.Errorf("%w: no %s-bit SmokeAPI library", ErrInvalidArchive, bits)
		}
	}
	return &Staged{Archive: *archive, Dir: dir, Files: files}, nil
}

func (s *Smoke) Apply(ctx context.Context, txn *Txn, in ApplyInput) (*manifest.Manifest, error) {
	m := &manifest.Manifest{
		InstalledKind:    models.InstalledSmoke,
		InstalledVersion: in.Staged.Version,
		EnabledItemIDs:   manifest.EnabledIDs(in.Items),
	}

	for _, rel := range in.Target.CapabilityFiles {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		original := filepath.Join(in.Target.InstallPath, rel)
		backupRel := BackupName(rel)
		backup := filepath.Join(in.Target.InstallPath, backupRel)

		hasBackup, err := afero.Exists(s.fs, backup)
		if err != nil {
			return nil, fmt.Errorf("failed to stat %s: %w", backup, err)
		}
		if !hasBackup {
			if err := txn.Rename(original, backup); err != nil {
				return nil, err
			}
			log.Debug().Str("path", backup).Msg("backed up steam api library")
		}

		is64 := strings.Contains(filepath.Base(rel), "64")
		dll, _ := smokeDLL(in.Staged.Files, is64) //nolint:revive // verified in Stage
		if err := txn.CopyFile(dll, original, 0o644); err != nil {
			return nil, err
		}
		m.Backups = append(m.Backups, manifest.Backup{Original: rel, Backup: backupRel})
	}

	if err := s.WriteConfig(ctx, txn, in, m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteConfig locks disabled DLC in SmokeAPI.config.json, keeping any other
// settings the user made.
func (s *Smoke) WriteConfig(ctx context.Context, txn *Txn, in ApplyInput, m *manifest.Manifest) error {
	cfg, err := s.config.Read(ctx, in.Target.InstallPath)
	if err != nil {
		log.Warn().Err(err).Msg("replacing unreadable smokeapi config")
		cfg = nil
	}
	if cfg == nil {
		def := smokeapi.Default()
		cfg = &def
	}
	cfg.ApplyDLCStatus(in.Items)

	data, err := smokeapi.Encode(*cfg)
	if err != nil {
		return err
	}
	path := s.config.ConfigPath(ctx, in.Target.InstallPath)
	if err := txn.WriteFile(path, data, 0o644); err != nil {
		return err
	}

	rel, err := filepath.Rel(in.Target.InstallPath, path)
	if err != nil {
		return fmt.Errorf("config path outside game: %w", err)
	}
	m.Files = []string{rel}
	m.EnabledItemIDs = manifest.EnabledIDs(in.Items)
	return nil
}

func (*Smoke) Remove(ctx context.Context, txn *Txn, target *models.Target, m *manifest.Manifest) error {
	for _, b := range m.Backups {
		if err := ctx.Err(); err != nil {
			return err
		}
		backup := filepath.Join(target.InstallPath, b.Backup)
		if err := txn.Rename(backup, filepath.Join(target.InstallPath, b.Original)); err != nil {
			return err
		}
	}
	for _, rel := range m.Files {
		if err := txn.Remove(filepath.Join(target.InstallPath, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (*Smoke) Instructions(target *models.Target, dlcCount int, uninstall bool) *models.Instructions {
	kind := "smoke_install"
	if uninstall {
		kind = "smoke_uninstall"
	}
	return &models.Instructions{
		Type:      kind,
		GameTitle: target.Title,
		DLCCount:  dlcCount,
	}
}
