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

// ScanProgressResponse is the payload of scan-progress.
type ScanProgressResponse struct {
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
	Total    int     `json:"total,omitempty"`
}

// Instructions are manual steps the user must perform after a job, such as
// pasting a launch command into Steam.
type Instructions struct {
	Type      string `json:"type"`
	Command   string `json:"command,omitempty"`
	GameTitle string `json:"game_title"`
	DLCCount  int    `json:"dlc_count"`
}

// InstallationProgressResponse is the payload of installation-progress.
type InstallationProgressResponse struct {
	Instructions     *Instructions `json:"instructions,omitempty"`
	GameID           string        `json:"game_id"`
	Title            string        `json:"title"`
	Message          string        `json:"message"`
	Step             string        `json:"step"`
	Progress         float64       `json:"progress"`
	Complete         bool          `json:"complete"`
	ShowInstructions bool          `json:"show_instructions"`
}

// DLCProgressResponse is the payload of dlc-progress.
type DLCProgressResponse struct {
	TimeLeft *string `json:"timeLeft,omitempty"`
	GameID   string  `json:"game_id"`
	Message  string  `json:"message"`
	Progress float64 `json:"progress"`
}

// DLCFoundResponse is the payload of dlc-found.
type DLCFoundResponse struct {
	GameID string `json:"game_id"`
	CatalogItem
}

// DLCErrorResponse is the payload of dlc-error.
type DLCErrorResponse struct {
	GameID string `json:"game_id"`
	Error  string `json:"error"`
}

// UnlockersUpdatedResponse reports the outcome of a startup update pass.
type UnlockersUpdatedResponse struct {
	CreamVersion string `json:"creamlinux_version,omitempty"`
	SmokeVersion string `json:"smokeapi_version,omitempty"`
	GamesUpdated int    `json:"games_updated"`
	GamesFailed  int    `json:"games_failed"`
}

type SettingsResponse struct {
	ManualPaths    []string `json:"manual_paths"`
	DebugLogging   bool     `json:"debug_logging"`
	ShowDisclaimer bool     `json:"show_disclaimer"`
	WatchLibrary   bool     `json:"watch_library"`
}

type VersionResponse struct {
	Version string `json:"version"`
}
