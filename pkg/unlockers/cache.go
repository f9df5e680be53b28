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
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const versionsFile = "versions.json"

// CacheDirName returns the cache subdirectory of an unlocker kind.
func CacheDirName(kind models.InstalledKind) string {
	switch kind {
	case models.InstalledCream:
		return "creamlinux"
	case models.InstalledSmoke:
		return "smokeapi"
	case models.InstalledNone:
		return ""
	default:
		return string(kind)
	}
}

type latestVersion struct {
	Latest string `json:"latest"`
}

// Archive is a downloaded release archive in the cache.
type Archive struct {
	Kind    models.InstalledKind
	Version string
	Path    string
}

// Cache stores release archives under <root>/<kind>/<version>/<asset> and
// remembers the latest known version of each kind in versions.json.
type Cache struct {
	fs   afero.Fs
	root string
	mu   syncutil.Mutex
}

func NewCache(fs afero.Fs, root string) *Cache {
	return &Cache{fs: fs, root: root}
}

func (c *Cache) Root() string {
	return c.root
}

// ArchivePath returns where an asset of a version is stored.
func (c *Cache) ArchivePath(kind models.InstalledKind, version, asset string) string {
	return filepath.Join(c.root, CacheDirName(kind), sanitizeVersion(version), asset)
}

// sanitizeVersion keeps tag names from escaping the cache directory.
func sanitizeVersion(version string) string {
	v := strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(version)
	if v == "" {
		return "unknown"
	}
	return v
}

// Lookup returns a cached archive of a specific version.
func (c *Cache) Lookup(kind models.InstalledKind, version, asset string) (*Archive, bool) {
	path := c.ArchivePath(kind, version, asset)
	if ok, err := afero.Exists(c.fs, path); err != nil || !ok {
		return nil, false
	}
	return &Archive{Kind: kind, Version: version, Path: path}, true
}

// Newest returns the cached archive of the newest version of a kind.
func (c *Cache) Newest(kind models.InstalledKind) (*Archive, bool) {
	dir := filepath.Join(c.root, CacheDirName(kind))
	versions, err := afero.ReadDir(c.fs, dir)
	if err != nil {
		return nil, false
	}

	var best *Archive
	for _, v := range versions {
		if !v.IsDir() {
			continue
		}
		files, err := afero.ReadDir(c.fs, filepath.Join(dir, v.Name()))
		if err != nil {
			continue
		}
		for _, f := range files {
			if f.IsDir() || !strings.HasSuffix(strings.ToLower(f.Name()), ".zip") {
				continue
			}
			if best == nil || IsNewer(v.Name(), best.Version) {
				best = &Archive{Kind: kind, Version: v.Name(), Path: filepath.Join(dir, v.Name(), f.Name())}
			}
			break
		}
	}
	return best, best != nil
}

func (c *Cache) readVersions() (map[string]latestVersion, error) {
	data, err := afero.ReadFile(c.fs, filepath.Join(c.root, versionsFile))
	if errors.Is(err, os.ErrNotExist) {
		return map[string]latestVersion{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", versionsFile, err)
	}
	versions := map[string]latestVersion{}
	if err := json.Unmarshal(data, &versions); err != nil {
		log.Warn().Err(err).Msg("ignoring corrupt versions.json")
		return map[string]latestVersion{}, nil
	}
	return versions, nil
}

// Latest returns the latest version recorded for a kind.
func (c *Cache) Latest(kind models.InstalledKind) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, err := c.readVersions()
	if err != nil {
		log.Warn().Err(err).Msg("failed to read cached versions")
		return ""
	}
	return versions[CacheDirName(kind)].Latest
}

// SetLatest records the latest version of a kind.
func (c *Cache) SetLatest(kind models.InstalledKind, version string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	versions, err := c.readVersions()
	if err != nil {
		return err
	}
	versions[CacheDirName(kind)] = latestVersion{Latest: version}

	data, err := json.MarshalIndent(versions, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal versions: %w", err)
	}
	if err := c.fs.MkdirAll(c.root, 0o750); err != nil {
		return fmt.Errorf("failed to create cache dir: %w", err)
	}
	if err := afero.WriteFile(c.fs, filepath.Join(c.root, versionsFile), data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", versionsFile, err)
	}
	return nil
}

// Prune removes every cached version of a kind except keep.
func (c *Cache) Prune(kind models.InstalledKind, keep string) error {
	dir := filepath.Join(c.root, CacheDirName(kind))
	entries, err := afero.ReadDir(c.fs, dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to list cache: %w", err)
	}
	keep = sanitizeVersion(keep)
	var errs []error
	for _, e := range entries {
		if !e.IsDir() || e.Name() == keep {
			continue
		}
		if err := c.fs.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StagingDir creates a fresh scratch directory for extracting an archive.
func (c *Cache) StagingDir() (string, error) {
	base := filepath.Join(c.root, "staging")
	if err := c.fs.MkdirAll(base, 0o750); err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	dir, err := afero.TempDir(c.fs, base, "job-")
	if err != nil {
		return "", fmt.Errorf("failed to create staging dir: %w", err)
	}
	return dir, nil
}
