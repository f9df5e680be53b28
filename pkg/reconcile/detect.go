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

// Package reconcile finds games whose installed unlocker no longer matches
// how Steam runs them, and removes the mismatched unlocker.
package reconcile

import (
	"github.com/Novattz/creamlinux-installer/pkg/api/models"
)

// Check returns the conflict of a single game, if any.
func Check(t *models.Target) (models.Conflict, bool) {
	var kind models.ConflictKind
	switch {
	case t.InstalledKind == models.InstalledCream && t.Platform == models.PlatformCompat:
		kind = models.ConflictCreamButCompat
	case t.InstalledKind == models.InstalledSmoke && t.Platform == models.PlatformNative:
		kind = models.ConflictSmokeButNative
	default:
		return models.Conflict{}, false
	}
	return models.Conflict{TargetID: t.ID, Title: t.Title, Kind: kind}, true
}

// Detect returns one conflict per mismatched game, in library order. Games
// with a running job are skipped; they are checked again when it finishes.
func Detect(targets []models.Target) []models.Conflict {
	var out []models.Conflict
	for i := range targets {
		if targets[i].JobState == models.JobRunning {
			continue
		}
		if c, ok := Check(&targets[i]); ok {
			out = append(out, c)
		}
	}
	return out
}
