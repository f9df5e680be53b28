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

import "encoding/json"

// Game actions accepted by process_game_action. The bare forms infer the
// unlocker from the game's platform or its current installation.
const (
	ActionInstall        = "install"
	ActionUninstall      = "uninstall"
	ActionInstallCream   = "install_cream"
	ActionUninstallCream = "uninstall_cream"
	ActionInstallSmoke   = "install_smoke"
	ActionUninstallSmoke = "uninstall_smoke"
)

type GameAction struct {
	GameID string `json:"game_id" validate:"required,numeric"`
	Action string `json:"action" validate:"required,oneof=install uninstall install_cream uninstall_cream install_smoke uninstall_smoke"` //nolint:lll // validator tag
}

type ProcessGameActionParams struct {
	GameAction GameAction `json:"game_action" validate:"required"`
}

type GameIDParams struct {
	GameID string `json:"game_id" validate:"required,numeric"`
}

type GamePathParams struct {
	GamePath string `json:"game_path" validate:"required,abspath"`
}

type UpdateDLCConfigurationParams struct {
	GamePath string        `json:"game_path" validate:"required,abspath"`
	DLCs     []CatalogItem `json:"dlcs" validate:"dive"`
}

type InstallCreamWithDLCsParams struct {
	GameID       string        `json:"game_id" validate:"required,numeric"`
	SelectedDLCs []CatalogItem `json:"selected_dlcs" validate:"dive"`
}

type ResolvePlatformConflictParams struct {
	GameID       string       `json:"game_id" validate:"required,numeric"`
	ConflictType ConflictKind `json:"conflict_type" validate:"required,oneof=cream-to-proton smoke-to-native"`
}

type WriteSmokeAPIConfigParams struct {
	GamePath string          `json:"game_path" validate:"required,abspath"`
	Config   json.RawMessage `json:"config" validate:"required"`
}

type UpdateSettingsParams struct {
	ManualPaths    *[]string `json:"manual_paths" validate:"omitempty,dive,abspath"`
	DebugLogging   *bool     `json:"debug_logging"`
	ShowDisclaimer *bool     `json:"show_disclaimer"`
	WatchLibrary   *bool     `json:"watch_library"`
}
