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

// Package manifest persists what was installed into a game directory and
// which DLC are enabled. The manifest is the only record uninstalls trust.
package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// FileName is the manifest file written into each game directory.
const FileName = "creamlinux.json"

var ErrInvalidManifest = errors.New("invalid manifest")

// Backup records an original game file moved aside by an install.
type Backup struct {
	Original string `json:"original"`
	Backup   string `json:"backup"`
}

type Manifest struct {
	UpdatedAt        time.Time            `json:"updated_at"`
	InstalledKind    models.InstalledKind `json:"installed_kind"`
	InstalledVersion string               `json:"installed_version"`
	EnabledItemIDs   []string             `json:"enabled_item_ids"`
	Files            []string             `json:"files,omitempty"`
	Backups          []Backup             `json:"backups,omitempty"`
}

// IsEnabled reports whether a DLC id is in the enabled set.
func (m *Manifest) IsEnabled(id string) bool {
	return slices.Contains(m.EnabledItemIDs, id)
}

// normalize sorts and deduplicates the enabled set.
func (m *Manifest) normalize() {
	ids := slices.Clone(m.EnabledItemIDs)
	if ids == nil {
		ids = []string{}
	}
	slices.Sort(ids)
	m.EnabledItemIDs = slices.Compact(ids)
}

// validate rejects recorded paths that escape the game directory.
func (m *Manifest) validate() error {
	if m.InstalledKind != models.InstalledCream && m.InstalledKind != models.InstalledSmoke {
		return fmt.Errorf("%w: unknown installed kind %q", ErrInvalidManifest, m.InstalledKind)
	}
	for _, f := range m.Files {
		if !filepath.IsLocal(f) {
			return fmt.Errorf("%w: file path %q is not local", ErrInvalidManifest, f)
		}
	}
	for _, b := range m.Backups {
		if !filepath.IsLocal(b.Original) || !filepath.IsLocal(b.Backup) {
			return fmt.Errorf("%w: backup path %q is not local", ErrInvalidManifest, b.Backup)
		}
	}
	return nil
}

// EnabledIDs returns the ids of enabled items.
func EnabledIDs(items []models.CatalogItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if item.Enabled {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// Store reads and writes manifests through an afero filesystem.
type Store struct {
	fs    afero.Fs
	clock clockwork.Clock
}

func NewStore(fs afero.Fs) *Store {
	return NewStoreWithClock(fs, clockwork.NewRealClock())
}

// NewStoreWithClock returns a Store that stamps UpdatedAt from clock.
func NewStoreWithClock(fs afero.Fs, clock clockwork.Clock) *Store {
	return &Store{fs: fs, clock: clock}
}

// NewOSStore returns a Store backed by the real filesystem.
func NewOSStore() *Store {
	return NewStore(afero.NewOsFs())
}

// Fs returns the filesystem the store operates on.
func (s *Store) Fs() afero.Fs {
	return s.fs
}

// Path returns the manifest location for a game directory.
func Path(targetPath string) string {
	return filepath.Join(targetPath, FileName)
}

// Read returns the manifest of a game directory, or nil if none exists.
func (s *Store) Read(targetPath string) (*Manifest, error) {
	data, err := afero.ReadFile(s.fs, Path(targetPath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // absent manifest is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := m.validate(); err != nil {
		return nil, err
	}
	m.normalize()

	return &m, nil
}

// Write replaces the manifest atomically: the data goes to a temp file in the
// same directory which is then renamed over the old manifest. UpdatedAt is
// set to the time of the write.
func (s *Store) Write(targetPath string, m Manifest) error { //nolint:gocritic // value keeps caller's copy untouched
	if err := m.validate(); err != nil {
		return err
	}
	m.normalize()
	m.UpdatedAt = s.clock.Now().UTC()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	tmp, err := afero.TempFile(s.fs, targetPath, ".creamlinux-*.json.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp manifest: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		s.removeTemp(tmpName)
		return fmt.Errorf("failed to write temp manifest: %w", err)
	}

	if err := s.fs.Rename(tmpName, Path(targetPath)); err != nil {
		s.removeTemp(tmpName)
		return fmt.Errorf("failed to replace manifest: %w", err)
	}

	log.Debug().
		Str("path", targetPath).
		Str("kind", string(m.InstalledKind)).
		Int("enabled", len(m.EnabledItemIDs)).
		Msg("wrote manifest")
	return nil
}

func (s *Store) removeTemp(name string) {
	if err := s.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Str("path", name).Msg("error removing temp manifest")
	}
}

// Delete removes the manifest. Deleting a missing manifest is not an error.
func (s *Store) Delete(targetPath string) error {
	err := s.fs.Remove(Path(targetPath))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete manifest: %w", err)
	}
	return nil
}
