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
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/charlievieth/fastwalk"
	"github.com/rs/zerolog/log"
)

// MaxScanDepth bounds how deep the install tree walk descends.
const MaxScanDepth = 8

var skippedDirs = []string{
	"videos", "video", "movies", "movie",
	"sound", "sounds", "audio", "music",
	"textures", "localization", "shaders", "logs",
}

var (
	windowsExts = []string{".exe", ".bat", ".cmd", ".msi"}
	linuxExts   = []string{".so", ".bin", ".sh", ".x86", ".x86_64"}
	elfMagic    = []byte{0x7f, 'E', 'L', 'F'}
)

// CapabilityFileNames are the Steam API libraries SmokeAPI replaces.
var CapabilityFileNames = []string{"steam_api.dll", "steam_api64.dll"}

// TreeInfo is what a walk of one install directory found.
type TreeInfo struct {
	// CapabilityFiles are relative to the install path.
	CapabilityFiles []string
	// HasWindowsExe is set by any .exe, .bat, .cmd or .msi file.
	HasWindowsExe  bool
	HasLinuxBinary bool
}

// Native reports whether the tree looks like a native Linux build.
func (t TreeInfo) Native() bool {
	return t.HasLinuxBinary && !t.HasWindowsExe
}

// depth returns how many path elements rel has below the walk root.
func depth(rel string) int {
	if rel == "." || rel == "" {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}

// InspectTree walks an install directory to classify its binaries and find
// capability files.
func InspectTree(ctx context.Context, root string) (TreeInfo, error) {
	var (
		mu   syncutil.Mutex
		info TreeInfo
	)

	err := fastwalk.Walk(nil, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			log.Debug().Err(err).Str("path", path).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}

		if d.IsDir() {
			if rel == "." {
				return nil
			}
			if slices.Contains(skippedDirs, strings.ToLower(d.Name())) || depth(rel) >= MaxScanDepth {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := strings.ToLower(d.Name())
		ext := filepath.Ext(name)
		isWindows := slices.Contains(windowsExts, ext)
		isLinux := slices.Contains(linuxExts, ext)
		if !isWindows && !isLinux && ext == "" {
			isLinux = isELFExecutable(path, d)
		}
		isCapability := slices.Contains(CapabilityFileNames, name)

		if !isWindows && !isLinux && !isCapability {
			return nil
		}

		mu.Lock()
		defer mu.Unlock()
		if isWindows {
			info.HasWindowsExe = true
		}
		if isLinux {
			info.HasLinuxBinary = true
		}
		if isCapability {
			info.CapabilityFiles = append(info.CapabilityFiles, rel)
		}
		return nil
	})
	if err != nil {
		return TreeInfo{}, fmt.Errorf("failed to walk %s: %w", root, err)
	}

	slices.Sort(info.CapabilityFiles)
	return info, nil
}

func isELFExecutable(path string, d fs.DirEntry) bool {
	fi, err := d.Info()
	if err != nil || fi.Mode().Perm()&0o111 == 0 {
		return false
	}
	//nolint:gosec // Safe: reads the header of a game file
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Debug().Err(closeErr).Msg("error closing file")
		}
	}()

	header := make([]byte, len(elfMagic))
	if _, err := io.ReadFull(f, header); err != nil {
		return false
	}
	return bytes.Equal(header, elfMagic)
}

// CompatToolMapping returns the apps that Steam is configured to run
// through a compatibility tool, keyed by AppID. Steam stores the global
// default under AppID 0, which is not a per-app choice and is left out.
func CompatToolMapping(steamRoot string) map[string]string {
	path := filepath.Join(steamRoot, "config", "config.vdf")
	if _, err := os.Stat(path); err != nil {
		return nil
	}

	m, err := readVDF(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("failed to read steam config")
		return nil
	}
	mapping, ok := vdfPath(m, "installconfigstore", "software", "valve", "steam", "compattoolmapping")
	if !ok {
		return nil
	}

	tools := make(map[string]string, len(mapping))
	for appID, v := range mapping {
		if appID == "0" {
			continue
		}
		entry, ok := v.(map[string]any)
		if !ok {
			continue
		}
		if name, ok := entry["name"].(string); ok && name != "" {
			tools[appID] = name
		}
	}
	return tools
}

// DetectPlatform decides how Steam runs a game. An explicit compatibility
// tool mapping wins over the contents of the install tree.
func DetectPlatform(appID string, compatTools map[string]string, tree TreeInfo) models.Platform {
	if _, ok := compatTools[appID]; ok {
		return models.PlatformCompat
	}
	if tree.Native() {
		return models.PlatformNative
	}
	return models.PlatformCompat
}
