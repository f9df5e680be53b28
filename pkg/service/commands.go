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

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/creamapi"
	"github.com/Novattz/creamlinux-installer/pkg/jobs"
	"github.com/Novattz/creamlinux-installer/pkg/smokeapi"
	"github.com/Novattz/creamlinux-installer/pkg/steam"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// Scan rescans every Steam library and replaces the game set. Concurrent
// calls run one after the other.
func (s *Service) Scan(ctx context.Context) ([]models.Target, error) {
	s.scanMu.Lock()
	defer s.scanMu.Unlock()

	s.lib.BeginScan()
	res, err := s.scanner.Scan(ctx, s.roots(), func(p models.ScanProgressResponse) {
		notifications.ScanProgress(s.ns, p)
	})
	if errors.Is(err, steam.ErrNoLibraryFound) {
		notifications.ScanProgress(s.ns, models.ScanProgressResponse{
			Message:  "No Steam library found",
			Progress: 100,
		})
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	for i := range res.Targets {
		if s.jobs.Running(res.Targets[i].ID) {
			res.Targets[i].JobState = models.JobRunning
		}
	}
	s.lib.Replace(res.Targets, res.Libraries)

	s.mu.Lock()
	s.scanned = true
	if s.watcher != nil {
		s.watcher.Watch(s.lib.SteamAppsDirs())
	}
	s.mu.Unlock()

	s.reconcile()
	return s.lib.Targets(), nil
}

func (s *Service) target(id string) (models.Target, error) {
	t, ok := s.lib.Target(id)
	if ok {
		return t, nil
	}
	s.mu.Lock()
	scanned := s.scanned
	s.mu.Unlock()
	if !scanned {
		return models.Target{}, ErrNotScanned
	}
	return models.Target{}, fmt.Errorf("%w: %s", ErrUnknownGame, id)
}

func (s *Service) targetByPath(path string) (models.Target, error) {
	if t, ok := s.lib.ByPath(path); ok {
		return t, nil
	}
	return models.Target{}, fmt.Errorf("%w: %s", ErrUnknownGame, path)
}

// actionRequest turns a game action into a job request. The bare install
// and uninstall actions pick the unlocker from the game.
func actionRequest(t *models.Target, action string) (jobs.Request, error) {
	req := jobs.Request{Target: *t}
	switch action {
	case models.ActionInstall:
		req.Kind = jobs.KindInstall
		req.Unlocker = unlockers.KindFor(t)
	case models.ActionInstallCream:
		req.Kind, req.Unlocker = jobs.KindInstall, models.InstalledCream
	case models.ActionInstallSmoke:
		req.Kind, req.Unlocker = jobs.KindInstall, models.InstalledSmoke
	case models.ActionUninstall:
		req.Kind = jobs.KindUninstall
		req.Unlocker = t.InstalledKind
		if req.Unlocker == models.InstalledNone || req.Unlocker == "" {
			req.Unlocker = unlockers.KindFor(t)
		}
	case models.ActionUninstallCream:
		req.Kind, req.Unlocker = jobs.KindUninstall, models.InstalledCream
	case models.ActionUninstallSmoke:
		req.Kind, req.Unlocker = jobs.KindUninstall, models.InstalledSmoke
	default:
		return req, fmt.Errorf("unknown game action %q", action)
	}
	return req, nil
}

// ProcessGameAction runs an install or uninstall job and returns the game
// as the job left it. Installs enable every DLC.
func (s *Service) ProcessGameAction(ctx context.Context, action models.GameAction) (models.Target, error) {
	t, err := s.target(action.GameID)
	if err != nil {
		return models.Target{}, err
	}
	req, err := actionRequest(&t, action.Action)
	if err != nil {
		return t, err
	}
	if req.Kind == jobs.KindInstall {
		req.FetchCatalog = true
	}
	return s.submit(ctx, &req)
}

// InstallCreamWithDLCs installs CreamLinux with the given DLC selection.
func (s *Service) InstallCreamWithDLCs(ctx context.Context, gameID string, items []models.CatalogItem) (models.Target, error) {
	t, err := s.target(gameID)
	if err != nil {
		return models.Target{}, err
	}
	return s.submit(ctx, &jobs.Request{
		Target:   t,
		Kind:     jobs.KindInstall,
		Unlocker: models.InstalledCream,
		Items:    slices.Clone(items),
	})
}

// submit runs a job to the end. A failed job still returns the game so the
// caller sees its state next to the error.
func (s *Service) submit(ctx context.Context, req *jobs.Request) (models.Target, error) {
	job, err := s.jobs.Submit(ctx, *req)
	if err != nil {
		return req.Target, err
	}
	if err := job.Wait(ctx); err != nil {
		return job.Target(), err
	}
	return job.Target(), nil
}

// Job returns the running job of a game.
func (s *Service) Job(gameID string) (*jobs.Job, bool) {
	return s.jobs.Get(gameID)
}

// CancelJob cancels the job of a game if it has not started writing files.
func (s *Service) CancelJob(gameID string) bool {
	return s.jobs.Cancel(gameID)
}

// StreamDLCs starts streaming the catalog of a game as notifications.
func (s *Service) StreamDLCs(gameID string) {
	s.streamer.Start(gameID)
}

// AbortDLCFetch stops a catalog stream. It reports whether one was running.
func (s *Service) AbortDLCFetch(gameID string) bool {
	return s.streamer.Cancel(gameID)
}

// AllDLCs returns the full catalog of the game at gamePath, marking what the
// installed unlocker currently enables. The cached catalog is used when
// there is one.
func (s *Service) AllDLCs(ctx context.Context, gamePath string) ([]models.CatalogItem, error) {
	t, err := s.targetByPath(gamePath)
	if err != nil {
		return nil, err
	}

	var items []models.CatalogItem
	found := false
	if cache := s.streamer.Cache(); cache != nil {
		items, found, err = cache.Get(t.ID)
		if err != nil {
			log.Warn().Err(err).Str("game_id", t.ID).Msg("ignoring unreadable catalog cache")
		}
	}
	if !found {
		items, err = s.streamer.Fetch(ctx, t.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch DLC list: %w", err)
		}
	}

	return s.withInstalledState(ctx, &t, items), nil
}

// withInstalledState sets Enabled from the unlocker configuration on disk.
func (s *Service) withInstalledState(ctx context.Context, t *models.Target, items []models.CatalogItem) []models.CatalogItem {
	out := slices.Clone(items)
	switch t.InstalledKind {
	case models.InstalledCream:
		cfg, err := creamapi.NewStore(afero.NewOsFs()).Read(t.InstallPath)
		if err != nil {
			log.Debug().Err(err).Str("game_id", t.ID).Msg("no readable cream_api.ini")
			return out
		}
		for _, entry := range cfg.DLCs {
			i := slices.IndexFunc(out, func(item models.CatalogItem) bool { return item.ID == entry.ID })
			if i < 0 {
				out = append(out, entry)
				continue
			}
			out[i].Enabled = entry.Enabled
		}
	case models.InstalledSmoke:
		cfg, err := s.smoke.Read(ctx, t.InstallPath)
		if err != nil || cfg == nil {
			return out
		}
		for i := range out {
			out[i].Enabled = cfg.OverrideDLCStatus[out[i].ID] != smokeapi.StatusLocked
		}
	case models.InstalledNone:
	}
	return out
}

// UpdateDLCConfiguration rewrites the unlocker configuration of the game at
// gamePath and waits for it to finish.
func (s *Service) UpdateDLCConfiguration(ctx context.Context, gamePath string, items []models.CatalogItem) error {
	t, err := s.targetByPath(gamePath)
	if err != nil {
		return err
	}
	job, err := s.jobs.Submit(ctx, jobs.Request{
		Target:   t,
		Kind:     jobs.KindUpdateConfig,
		Unlocker: t.InstalledKind,
		Items:    slices.Clone(items),
	})
	if err != nil {
		return err
	}
	return job.Wait(ctx)
}

// CurrentConflict returns the conflict to show next, if any.
func (s *Service) CurrentConflict() (*models.Conflict, bool) {
	c, ok := s.conflicts.Current()
	if !ok {
		return nil, false
	}
	return &c, true
}

// ResolveConflict removes the unlocker that does not fit the game.
func (s *Service) ResolveConflict(ctx context.Context, gameID string, kind models.ConflictKind) (models.Target, error) {
	t, err := s.resolver.Resolve(ctx, models.Conflict{TargetID: gameID, Kind: kind})
	if err != nil {
		return t, err
	}
	s.reconcile()
	return t, nil
}

func (s *Service) ReadSmokeAPIConfig(ctx context.Context, gamePath string) (*smokeapi.Config, error) {
	return s.smoke.Read(ctx, gamePath)
}

// WriteSmokeAPIConfig validates and stores a SmokeAPI configuration document.
func (s *Service) WriteSmokeAPIConfig(ctx context.Context, gamePath string, raw json.RawMessage) error {
	cfg, err := smokeapi.Decode(raw)
	if err != nil {
		return err
	}
	_, err = s.smoke.Write(ctx, gamePath, *cfg)
	return err
}

func (s *Service) DeleteSmokeAPIConfig(ctx context.Context, gamePath string) error {
	return s.smoke.Delete(ctx, gamePath)
}

func (s *Service) Settings() models.SettingsResponse {
	return models.SettingsResponse{
		ManualPaths:    s.cfg.ManualLibraryPaths(),
		DebugLogging:   s.cfg.DebugLogging(),
		ShowDisclaimer: s.cfg.ShowDisclaimer(),
		WatchLibrary:   s.cfg.WatchLibrary(),
	}
}

// UpdateSettings applies and saves the given settings. Nil fields are left
// unchanged.
func (s *Service) UpdateSettings(params *models.UpdateSettingsParams) (models.SettingsResponse, error) {
	if params.ManualPaths != nil {
		s.cfg.SetManualLibraryPaths(*params.ManualPaths)
	}
	if params.DebugLogging != nil {
		s.cfg.SetDebugLogging(*params.DebugLogging)
	}
	if params.ShowDisclaimer != nil {
		s.cfg.SetShowDisclaimer(*params.ShowDisclaimer)
	}
	if params.WatchLibrary != nil {
		s.cfg.SetWatchLibrary(*params.WatchLibrary)
		if err := s.EnableWatcher(*params.WatchLibrary); err != nil {
			log.Error().Err(err).Msg("failed to toggle library watcher")
		}
	}
	if err := s.cfg.Save(); err != nil {
		return s.Settings(), fmt.Errorf("failed to save settings: %w", err)
	}
	return s.Settings(), nil
}
