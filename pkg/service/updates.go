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
	"errors"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/creamapi"
	"github.com/Novattz/creamlinux-installer/pkg/jobs"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// CheckUpdates looks up the latest unlocker releases and reinstalls every
// game running an older version, keeping its enabled DLC. The outcome is
// sent as unlockers-updated.
func (s *Service) CheckUpdates(ctx context.Context) (models.UnlockersUpdatedResponse, error) {
	var (
		res    models.UnlockersUpdatedResponse
		errs   []error
		latest = make(map[models.InstalledKind]string)
	)
	for _, u := range s.registry.All() {
		v, err := s.fetcher.LatestVersion(ctx, u)
		if err != nil {
			log.Warn().Err(err).Msgf("failed to check for %s updates", u.Kind().DisplayName())
			errs = append(errs, err)
			continue
		}
		latest[u.Kind()] = v
		log.Info().Str("version", v).Msgf("latest %s", u.Kind().DisplayName())
	}
	res.CreamVersion = latest[models.InstalledCream]
	res.SmokeVersion = latest[models.InstalledSmoke]

	for _, t := range s.lib.Targets() {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		v, ok := latest[t.InstalledKind]
		if !ok || !outdated(t.InstalledVersion, v) {
			continue
		}
		if err := s.reinstall(ctx, &t); err != nil {
			log.Error().Err(err).Str("game_id", t.ID).Msg("failed to update unlocker")
			res.GamesFailed++
			continue
		}
		res.GamesUpdated++
	}

	log.Info().
		Int("updated", res.GamesUpdated).
		Int("failed", res.GamesFailed).
		Msg("unlocker update check complete")
	notifications.UnlockersUpdated(s.ns, res)
	return res, errors.Join(errs...)
}

// outdated reports whether an installed version is older than latest.
// Installs without a recorded version predate the manifest and are left
// alone.
func outdated(installed, latest string) bool {
	return installed != "" && unlockers.IsNewer(latest, installed)
}

func (s *Service) reinstall(ctx context.Context, t *models.Target) error {
	m, err := s.detector.Manifest(ctx, t)
	if err != nil {
		return err
	}
	var items []models.CatalogItem
	if m != nil {
		items = s.reinstallItems(t, m)
	}

	log.Info().
		Str("game_id", t.ID).
		Str("from", t.InstalledVersion).
		Msgf("updating %s", t.InstalledKind.DisplayName())
	job, err := s.jobs.Submit(ctx, jobs.Request{
		Target:   *t,
		Kind:     jobs.KindInstall,
		Unlocker: t.InstalledKind,
		Items:    items,
	})
	if err != nil {
		return err
	}
	return job.Wait(ctx)
}

// reinstallItems rebuilds the DLC selection of an install from its manifest.
// Names come from the current cream_api.ini, falling back to the catalog
// cache. Disabled CreamLinux entries are carried over as disabled.
func (s *Service) reinstallItems(t *models.Target, m *manifest.Manifest) []models.CatalogItem {
	var known []models.CatalogItem
	if t.InstalledKind == models.InstalledCream {
		cfg, err := creamapi.NewStore(afero.NewOsFs()).Read(t.InstallPath)
		if err != nil {
			log.Debug().Err(err).Str("game_id", t.ID).Msg("no readable cream_api.ini to keep dlc names from")
		} else {
			known = cfg.DLCs
		}
	}

	names := make(map[string]string, len(known))
	if cache := s.streamer.Cache(); cache != nil {
		cached, _, err := cache.Get(t.ID)
		if err != nil {
			log.Debug().Err(err).Str("game_id", t.ID).Msg("ignoring unreadable catalog cache")
		}
		for _, item := range cached {
			names[item.ID] = item.Name
		}
	}
	for _, item := range known {
		if item.Name != "" {
			names[item.ID] = item.Name
		}
	}

	items := make([]models.CatalogItem, 0, len(m.EnabledItemIDs)+len(known))
	seen := make(map[string]bool, cap(items))
	for _, id := range m.EnabledItemIDs {
		seen[id] = true
		items = append(items, models.CatalogItem{ID: id, Name: names[id], Enabled: true})
	}
	for _, item := range known {
		if seen[item.ID] {
			continue
		}
		seen[item.ID] = true
		items = append(items, models.CatalogItem{ID: item.ID, Name: names[item.ID]})
	}
	return items
}
