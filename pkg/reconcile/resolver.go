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

package reconcile

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/jobs"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/rs/zerolog/log"
)

var (
	ErrUnknownTarget = errors.New("unknown game")
	// ErrConflictChanged means the conflict no longer matches the game.
	ErrConflictChanged = errors.New("conflict does not match game")
)

// Submitter starts jobs. Satisfied by *jobs.Controller.
type Submitter interface {
	Submit(ctx context.Context, req jobs.Request) (*jobs.Job, error)
}

// ManifestSource returns the manifest of a game, reconstructing one for
// installs made without a manifest. Satisfied by *unlockers.Detector.
type ManifestSource interface {
	Manifest(ctx context.Context, target *models.Target) (*manifest.Manifest, error)
}

// TargetLookup finds a game in the library.
type TargetLookup interface {
	Target(id string) (models.Target, bool)
}

// Resolver removes the unlocker of a conflicting game through an uninstall
// job.
type Resolver struct {
	jobs      Submitter
	manifests ManifestSource
	targets   TargetLookup
	queue     *Queue
}

func NewResolver(submitter Submitter, manifests ManifestSource, targets TargetLookup, queue *Queue) *Resolver {
	return &Resolver{jobs: submitter, manifests: manifests, targets: targets, queue: queue}
}

// conflictManifest returns what to remove for a conflict. Without any
// record, every known artifact name of the unlocker is removed.
func (r *Resolver) conflictManifest(ctx context.Context, t *models.Target, kind models.InstalledKind) (*manifest.Manifest, error) {
	m, err := r.manifests.Manifest(ctx, t)
	if err != nil {
		return nil, err
	}
	if m != nil && m.InstalledKind == kind {
		return m, nil
	}
	if m != nil {
		log.Warn().
			Str("game_id", t.ID).
			Str("recorded", string(m.InstalledKind)).
			Msg("manifest disagrees with conflict, removing known artifacts")
	}
	fallback := &manifest.Manifest{InstalledKind: kind}
	if kind == models.InstalledCream {
		fallback.Files = slices.Clone(unlockers.CreamFiles)
	}
	return fallback, nil
}

// Resolve removes the mismatched unlocker and waits for the job. Resolving
// a game that no longer conflicts is a no-op returning the game.
func (r *Resolver) Resolve(ctx context.Context, c models.Conflict) (models.Target, error) {
	t, ok := r.targets.Target(c.TargetID)
	if !ok {
		return models.Target{}, fmt.Errorf("%w: %s", ErrUnknownTarget, c.TargetID)
	}

	current, conflicting := Check(&t)
	if !conflicting {
		log.Info().Str("game_id", t.ID).Msg("conflict already resolved")
		r.resolved(t.ID)
		return t, nil
	}
	if c.Kind != "" && current.Kind != c.Kind {
		return t, fmt.Errorf("%w: %s is %s", ErrConflictChanged, t.ID, current.Kind)
	}

	m, err := r.conflictManifest(ctx, &t, t.InstalledKind)
	if err != nil {
		return t, fmt.Errorf("failed to read installed files: %w", err)
	}

	log.Info().
		Str("game_id", t.ID).
		Str("conflict", string(current.Kind)).
		Int("files", len(m.Files)).
		Int("backups", len(m.Backups)).
		Msg("resolving platform conflict")

	job, err := r.jobs.Submit(ctx, jobs.Request{
		Target:           t,
		Kind:             jobs.KindUninstall,
		Unlocker:         t.InstalledKind,
		ManifestOverride: m,
	})
	if err != nil {
		return t, err
	}
	if err := job.Wait(ctx); err != nil {
		return job.Target(), err
	}

	r.resolved(t.ID)
	return job.Target(), nil
}

func (r *Resolver) resolved(targetID string) {
	if r.queue != nil {
		r.queue.Resolved(targetID)
	}
}
