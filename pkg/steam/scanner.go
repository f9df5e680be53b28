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

// Package steam discovers installed Steam games and classifies how Steam
// runs each of them.
package steam

import (
	"context"
	"errors"
	"fmt"
	"os"
	"runtime"
	"slices"
	"strings"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// ErrNoLibraryFound means none of the roots contains a Steam library. An
// existing library without games is not an error.
var ErrNoLibraryFound = errors.New("no steam library found")

// ProgressFunc receives scan progress updates.
type ProgressFunc func(models.ScanProgressResponse)

// InstalledFunc reports which unlocker is installed in a game directory and
// its version.
type InstalledFunc func(installPath string, capabilityFiles []string) (models.InstalledKind, string)

// Result is the outcome of one scan.
type Result struct {
	Targets   []models.Target
	Libraries []Library
}

// Scanner builds the Target set from Steam libraries. It never modifies
// anything on disk.
type Scanner struct {
	installed   InstalledFunc
	concurrency int
}

func NewScanner(installed InstalledFunc) *Scanner {
	return &Scanner{
		installed:   installed,
		concurrency: min(runtime.NumCPU(), 8),
	}
}

// Scan discovers libraries below roots and inspects every installed game.
func (s *Scanner) Scan(ctx context.Context, roots []string, progress ProgressFunc) (*Result, error) {
	if progress == nil {
		progress = func(models.ScanProgressResponse) {}
	}

	libs := DiscoverLibraries(roots)
	if len(libs) == 0 {
		return nil, ErrNoLibraryFound
	}
	log.Info().Int("libraries", len(libs)).Msg("discovered steam libraries")

	compatTools := make(map[string]string)
	for _, lib := range libs {
		for appID, tool := range CompatToolMapping(lib.Root) {
			compatTools[appID] = tool
		}
	}

	apps := collectApps(libs)
	total := len(apps)

	var (
		mu      syncutil.Mutex
		targets = make([]models.Target, 0, total)
		done    int
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.concurrency, 1))
	for _, app := range apps {
		g.Go(func() error {
			target, err := s.inspect(gctx, app, compatTools)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				log.Warn().Err(err).Str("game_id", app.AppID).Msg("skipping game")
			}

			mu.Lock()
			defer mu.Unlock()
			done++
			if err != nil {
				return nil
			}
			targets = append(targets, target)
			progress(models.ScanProgressResponse{
				Message:  "Found: " + target.Title,
				Progress: min(float64(done)/float64(total)*100, 99),
				Total:    total,
			})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scan cancelled: %w", err)
	}

	slices.SortFunc(targets, func(a, b models.Target) int {
		if c := strings.Compare(strings.ToLower(a.Title), strings.ToLower(b.Title)); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	progress(models.ScanProgressResponse{
		Message:  fmt.Sprintf("Scan complete: found %d games", len(targets)),
		Progress: 100,
		Total:    len(targets),
	})
	log.Info().Int("games", len(targets)).Msg("steam scan complete")

	return &Result{Targets: targets, Libraries: libs}, nil
}

func (s *Scanner) inspect(
	ctx context.Context,
	app AppInfo,
	compatTools map[string]string,
) (models.Target, error) {
	installPath := app.InstallPath()
	tree, err := InspectTree(ctx, installPath)
	if err != nil {
		return models.Target{}, err
	}

	target := models.Target{
		ID:              app.AppID,
		Title:           app.Name,
		InstallPath:     installPath,
		Platform:        DetectPlatform(app.AppID, compatTools, tree),
		InstalledKind:   models.InstalledNone,
		JobState:        models.JobIdle,
		CapabilityFiles: tree.CapabilityFiles,
	}
	if target.CapabilityFiles == nil {
		target.CapabilityFiles = []string{}
	}
	if s.installed != nil {
		target.InstalledKind, target.InstalledVersion = s.installed(installPath, tree.CapabilityFiles)
	}

	log.Debug().
		Str("game_id", target.ID).
		Str("platform", string(target.Platform)).
		Str("installed", string(target.InstalledKind)).
		Int("capability_files", len(target.CapabilityFiles)).
		Msg("inspected game")
	return target, nil
}

// collectApps reads the app manifests of every library, dropping tools,
// duplicates and apps whose install directory is gone.
func collectApps(libs []Library) []AppInfo {
	seen := make(map[string]struct{})
	var apps []AppInfo

	for _, lib := range libs {
		paths, err := ListAppManifests(lib.SteamApps)
		if err != nil {
			log.Warn().Err(err).Str("library", lib.SteamApps).Msg("skipping unreadable library")
			continue
		}
		for _, path := range paths {
			info, err := ReadAppManifest(path)
			if err != nil {
				log.Warn().Err(err).Str("path", path).Msg("skipping corrupt app manifest")
				continue
			}
			if IsToolApp(info) {
				continue
			}
			if _, dup := seen[info.AppID]; dup {
				continue
			}
			if !isDir(info.InstallPath()) {
				continue
			}
			seen[info.AppID] = struct{}{}
			apps = append(apps, info)
		}
	}
	return apps
}

// HomeDir returns the user's home directory or an empty string.
func HomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		log.Warn().Err(err).Msg("failed to get home directory")
		return ""
	}
	return home
}
