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

package smokeapi

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// MaxBackupDepth bounds the search for steam_api*_o.dll backups.
const MaxBackupDepth = 5

// IsBackupName reports whether a file name is a steam_api backup made when
// SmokeAPI was installed.
func IsBackupName(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasPrefix(lower, "steam_api") && strings.HasSuffix(lower, "_o.dll")
}

func relDepth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// FindBackups returns every steam_api*_o.dll below root within
// MaxBackupDepth, sorted.
func FindBackups(ctx context.Context, root string) ([]string, error) {
	var (
		mu    syncutil.Mutex
		found []string
	)
	err := fastwalk.Walk(nil, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if d.IsDir() {
			if path != root && relDepth(root, path) >= MaxBackupDepth {
				return fs.SkipDir
			}
			return nil
		}
		if IsBackupName(d.Name()) {
			mu.Lock()
			found = append(found, path)
			mu.Unlock()
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	slices.Sort(found)
	return found, nil
}

// findBackupsFs is FindBackups for an arbitrary afero filesystem.
func findBackupsFs(ctx context.Context, fsys afero.Fs, root string) ([]string, error) {
	var found []string
	err := afero.Walk(fsys, root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if info.IsDir() {
			if path != root && relDepth(root, path) >= MaxBackupDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if IsBackupName(info.Name()) {
			found = append(found, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search %s: %w", root, err)
	}
	slices.Sort(found)
	return found, nil
}

// Store reads and writes SmokeAPI.config.json. The file lives next to the
// first steam_api backup found in the game, or in the game root.
type Store struct {
	fs       afero.Fs
	findFunc func(ctx context.Context, root string) ([]string, error)
}

func NewStore(fsys afero.Fs) *Store {
	return &Store{
		fs: fsys,
		findFunc: func(ctx context.Context, root string) ([]string, error) {
			return findBackupsFs(ctx, fsys, root)
		},
	}
}

// NewOSStore returns a Store on the real filesystem.
func NewOSStore() *Store {
	return &Store{fs: afero.NewOsFs(), findFunc: FindBackups}
}

// Backups lists the steam_api backups left by a SmokeAPI install.
func (s *Store) Backups(ctx context.Context, gamePath string) ([]string, error) {
	return s.findFunc(ctx, gamePath)
}

// ConfigPath returns where the configuration of a game belongs.
func (s *Store) ConfigPath(ctx context.Context, gamePath string) string {
	backups, err := s.findFunc(ctx, gamePath)
	if err != nil {
		log.Warn().Err(err).Str("path", gamePath).Msg("failed to search for steam_api backups")
	}
	if len(backups) > 0 {
		return filepath.Join(filepath.Dir(backups[0]), ConfigFileName)
	}
	return filepath.Join(gamePath, ConfigFileName)
}

// Read returns the configuration of a game, or nil if there is none.
func (s *Store) Read(ctx context.Context, gamePath string) (*Config, error) {
	path := s.ConfigPath(ctx, gamePath)
	data, err := afero.ReadFile(s.fs, path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil //nolint:nilnil // absent config is not an error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", ConfigFileName, err)
	}
	return Decode(data)
}

// Write stores cfg and returns the path written.
func (s *Store) Write(ctx context.Context, gamePath string, cfg Config) (string, error) { //nolint:gocritic // passed on by value
	data, err := Encode(cfg)
	if err != nil {
		return "", err
	}

	path := s.ConfigPath(ctx, gamePath)
	if err := afero.WriteFile(s.fs, path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", ConfigFileName, err)
	}
	log.Info().Str("path", path).Msg("wrote smokeapi config")
	return path, nil
}

// Delete removes the configuration. A missing file is not an error.
func (s *Store) Delete(ctx context.Context, gamePath string) error {
	path := s.ConfigPath(ctx, gamePath)
	err := s.fs.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete %s: %w", ConfigFileName, err)
	}
	return nil
}
