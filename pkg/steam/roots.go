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

package steam

import (
	"os"
	"path/filepath"
	"slices"

	"github.com/rs/zerolog/log"
)

// SteamDeckSDCard is where SteamOS mounts the SD card library.
const SteamDeckSDCard = "/run/media/mmcblk0p1"

// DefaultRoots returns the usual Steam install locations for a home
// directory. Entries are not checked for existence.
func DefaultRoots(home string) []string {
	if home == "" {
		return []string{SteamDeckSDCard}
	}
	return []string{
		filepath.Join(home, ".steam", "steam"),
		filepath.Join(home, ".steam", "root"),
		filepath.Join(home, ".local", "share", "Steam"),
		// Flatpak
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", ".local", "share", "Steam"),
		filepath.Join(home, ".var", "app", "com.valvesoftware.Steam", "data", "Steam"),
		SteamDeckSDCard,
	}
}

// RegistryRoots reads SteamPath and InstallPath from ~/.steam/registry.vdf.
func RegistryRoots(home string) []string {
	if home == "" {
		return nil
	}
	path := filepath.Join(home, ".steam", "registry.vdf")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	m, err := readVDF(path)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read steam registry")
		return nil
	}

	roots := findVDFStrings(m, "steampath")
	roots = append(roots, findVDFStrings(m, "installpath")...)
	slices.Sort(roots)
	return slices.Compact(roots)
}

// CollectRoots merges the default, registry and manual roots, keeping only
// existing directories and dropping duplicates in order.
func CollectRoots(home string, manual []string) []string {
	candidates := DefaultRoots(home)
	candidates = append(candidates, RegistryRoots(home)...)
	candidates = append(candidates, manual...)

	seen := make(map[string]struct{}, len(candidates))
	roots := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c == "" {
			continue
		}
		info, err := os.Stat(c)
		if err != nil || !info.IsDir() {
			continue
		}
		key := canonicalPath(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		roots = append(roots, c)
	}
	return roots
}

// canonicalPath resolves symlinks so ~/.steam/steam and the directory it
// points to count as one location.
func canonicalPath(path string) string {
	resolved, err := filepath.EvalSymlinks(path)
	if err != nil {
		return filepath.Clean(path)
	}
	return resolved
}
