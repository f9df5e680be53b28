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

package models

// Platform is how a game is executed by Steam.
type Platform string

const (
	PlatformNative Platform = "native"
	// PlatformCompat is a Windows build run through Proton.
	PlatformCompat Platform = "compat"
)

// InstalledKind is the unlocker currently installed into a game.
type InstalledKind string

const (
	InstalledNone  InstalledKind = "none"
	InstalledCream InstalledKind = "cream"
	InstalledSmoke InstalledKind = "smoke"
)

// DisplayName returns the upstream project name of the unlocker.
func (k InstalledKind) DisplayName() string {
	switch k {
	case InstalledCream:
		return "CreamLinux"
	case InstalledSmoke:
		return "SmokeAPI"
	case InstalledNone:
		return ""
	default:
		return string(k)
	}
}

type JobState string

const (
	JobIdle    JobState = "idle"
	JobRunning JobState = "running"
)

// Target is a single manageable game installation.
type Target struct {
	ID               string        `json:"id"`
	Title            string        `json:"title"`
	InstallPath      string        `json:"install_path"`
	Platform         Platform      `json:"platform"`
	InstalledKind    InstalledKind `json:"installed_kind"`
	InstalledVersion string        `json:"installed_version,omitempty"`
	JobState         JobState      `json:"job_state"`
	CapabilityFiles  []string      `json:"capability_files"`
}

// Native reports whether the game runs as a native Linux build.
func (t *Target) Native() bool {
	return t.Platform == PlatformNative
}

// CatalogItem is one DLC entry of a game's catalog.
type CatalogItem struct {
	ID      string `json:"appid" validate:"required,numeric"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

type ConflictKind string

const (
	ConflictCreamButCompat ConflictKind = "cream-to-proton"
	ConflictSmokeButNative ConflictKind = "smoke-to-native"
)

// Conflict is a mismatch between a game's platform and its installed unlocker.
type Conflict struct {
	TargetID string       `json:"game_id"`
	Title    string       `json:"game_title"`
	Kind     ConflictKind `json:"conflict_type"`
}
