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

var steamAppsCandidates = []string{
	"steamapps",
	"SteamApps",
	filepath.Join("steam", "steamapps"),
	filepath.Join("Steam", "steamapps"),
}

// FindSteamAppsDir resolves a library root to its steamapps directory.
// A path that already is a steamapps directory is returned as is.
func FindSteamAppsDir(root string) (string, bool) {
	base := filepath.Base(root)
	if base == "steamapps" || base == "SteamApps" {
		if isDir(root) {
			return root, true
		}
	}
	for _, candidate := range steamAppsCandidates {
		path := filepath.Join(root, candidate)
		if isDir(path) {
			return path, true
		}
	}
	return "", false
}

// Library is one discovered steamapps directory.
type Library struct {
	// Root is the directory containing steamapps.
	Root      string
	SteamApps string
}

// DiscoverLibraries resolves roots to steamapps directories and follows the
// path entries of every libraryfolders.vdf it meets. A directory is visited
// at most once and nothing below a library is searched for more libraries.
func DiscoverLibraries(roots []string) []Library {
	queue := append([]string(nil), roots...)
	visited := make(map[string]struct{})
	var libs []Library

	for len(queue) > 0 {
		root := queue[0]
		queue = queue[1:]

		steamApps, ok := FindSteamAppsDir(root)
		if !ok {
			log.Debug().Str("root", root).Msg("no steamapps directory in root")
			continue
		}
		key := canonicalPath(steamApps)
		if _, seen := visited[key]; seen {
			continue
		}
		visited[key] = struct{}{}

		lib := Library{Root: filepath.Dir(steamApps), SteamApps: steamApps}
		libs = append(libs, lib)

		queue = append(queue, libraryFolderPaths(lib)...)
	}

	return libs
}

// libraryFolderPaths returns the path entries of the library's descriptor,
// read from steamapps/ first and config/ second.
func libraryFolderPaths(lib Library) []string {
	candidates := []string{
		filepath.Join(lib.SteamApps, "libraryfolders.vdf"),
		filepath.Join(lib.Root, "config", "libraryfolders.vdf"),
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		m, err := readVDF(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to read library folders")
			continue
		}
		folders, ok := vdfPath(m, "libraryfolders")
		if !ok {
			continue
		}

		var paths []string
		for id, v := range folders {
			switch entry := v.(type) {
			case map[string]any:
				if p, ok := entry["path"].(string); ok && p != "" {
					paths = append(paths, p)
				}
			case string:
				// Old format stores the path directly under a numeric key.
				if isNumeric(id) && entry != "" {
					paths = append(paths, entry)
				}
			}
		}
		slices.Sort(paths)
		return paths
	}
	return nil
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
