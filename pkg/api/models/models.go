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

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Events sent from the core to connected clients.
const (
	NotificationScanProgress         = "scan-progress"
	NotificationGameUpdated          = "game-updated"
	NotificationInstallationProgress = "installation-progress"
	NotificationDLCFound             = "dlc-found"
	NotificationDLCProgress          = "dlc-progress"
	NotificationDLCError             = "dlc-error"
	NotificationPlatformConflict     = "platform-conflict"
	NotificationUnlockersUpdated     = "unlockers-updated"
)

// Commands accepted from clients.
const (
	MethodScanSteamGames          = "scan_steam_games"
	MethodProcessGameAction       = "process_game_action"
	MethodStreamGameDLCs          = "stream_game_dlcs"
	MethodAbortDLCFetch           = "abort_dlc_fetch"
	MethodGetAllDLCs              = "get_all_dlcs_command"
	MethodUpdateDLCConfiguration  = "update_dlc_configuration_command"
	MethodInstallCreamWithDLCs    = "install_cream_with_dlcs_command"
	MethodResolvePlatformConflict = "resolve_platform_conflict"
	MethodGetCurrentConflict      = "get_current_conflict"
	MethodReadSmokeAPIConfig      = "read_smokeapi_config"
	MethodWriteSmokeAPIConfig     = "write_smokeapi_config"
	MethodDeleteSmokeAPIConfig    = "delete_smokeapi_config"
	MethodLoadConfig              = "load_config"
	MethodUpdateConfig            = "update_config"
	MethodVersion                 = "version"
)

type Notification struct {
	Method string
	Params json.RawMessage
}

type RequestObject struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uuid.UUID      `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type ErrorObject struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type ResponseObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Result  any          `json:"result"`
	Error   *ErrorObject `json:"error,omitempty"`
}

// ResponseErrorObject exists for sending errors, so we can omit result from
// the response, but so nil responses are still returned when using the main
// ResponseObject.
type ResponseErrorObject struct {
	JSONRPC string       `json:"jsonrpc"`
	ID      uuid.UUID    `json:"id"`
	Error   *ErrorObject `json:"error"`
}
