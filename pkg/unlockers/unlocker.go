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

// Package unlockers implements the CreamLinux and SmokeAPI install
// procedures: release lookup, archive caching, staging and applying files to
// a game directory.
package unlockers

import (
	"context"
	"fmt"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
)

// ApplyInput is what an unlocker needs to install into or configure a game.
type ApplyInput struct {
	Target *models.Target
	Staged *Staged
	Items  []models.CatalogItem
}

// Unlocker is one installable DLC unlocker.
type Unlocker interface {
	Kind() models.InstalledKind
	// Repository is the GitHub owner and name releases are published under.
	Repository() (owner, repo string)
	AssetName(version string) string
	// Eligible returns ErrNotEligible when the target cannot take the
	// unlocker.
	Eligible(target *models.Target) error
	// Stage extracts an archive into dir and verifies its content.
	Stage(archive *Archive, dir string) (*Staged, error)
	// Apply installs staged files and the loader configuration.
	Apply(ctx context.Context, txn *Txn, in ApplyInput) (*manifest.Manifest, error)
	// WriteConfig rewrites the loader configuration for a new enabled set.
	WriteConfig(ctx context.Context, txn *Txn, in ApplyInput, m *manifest.Manifest) error
	// Remove deletes recorded files and restores backups.
	Remove(ctx context.Context, txn *Txn, target *models.Target, m *manifest.Manifest) error
	Instructions(target *models.Target, dlcCount int, uninstall bool) *models.Instructions
}

// Registry holds the available unlockers by kind.
type Registry struct {
	byKind map[models.InstalledKind]Unlocker
}

func NewRegistry(us ...Unlocker) *Registry {
	r := &Registry{byKind: make(map[models.InstalledKind]Unlocker, len(us))}
	for _, u := range us {
		r.byKind[u.Kind()] = u
	}
	return r
}

func (r *Registry) Get(kind models.InstalledKind) (Unlocker, error) {
	u, ok := r.byKind[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownUnlocker, kind)
	}
	return u, nil
}

// All returns the registered unlockers in a stable order.
func (r *Registry) All() []Unlocker {
	var out []Unlocker
	for _, k := range []models.InstalledKind{models.InstalledCream, models.InstalledSmoke} {
		if u, ok := r.byKind[k]; ok {
			out = append(out, u)
		}
	}
	return out
}

// KindFor picks the unlocker that suits a target's platform.
func KindFor(target *models.Target) models.InstalledKind {
	if target.Native() {
		return models.InstalledCream
	}
	return models.InstalledSmoke
}

func enabledCount(items []models.CatalogItem) int {
	n := 0
	for _, item := range items {
		if item.Enabled {
			n++
		}
	}
	return n
}
