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

package methods

import (
	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/models/requests"
	"github.com/Novattz/creamlinux-installer/pkg/api/validation"
	"github.com/rs/zerolog/log"
)

// HandleStreamGameDLCs returns at once. The catalog follows as dlc-found
// and dlc-progress notifications.
//
//nolint:gocritic // single-use parameter in API handler
func HandleStreamGameDLCs(env requests.RequestEnv) (any, error) {
	var params models.GameIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	log.Info().Str("game_id", params.GameID).Msg("received dlc stream request")
	env.Service.StreamDLCs(params.GameID)
	return nil, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleAbortDLCFetch(env requests.RequestEnv) (any, error) {
	var params models.GameIDParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	if !env.Service.AbortDLCFetch(params.GameID) {
		log.Debug().Str("game_id", params.GameID).Msg("no dlc fetch to abort")
	}
	return nil, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleGetAllDLCs(env requests.RequestEnv) (any, error) {
	var params models.GamePathParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	items, err := env.Service.AllDLCs(env.Context, params.GamePath)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []models.CatalogItem{}
	}
	return items, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleUpdateDLCConfiguration(env requests.RequestEnv) (any, error) {
	var params models.UpdateDLCConfigurationParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	log.Info().
		Str("path", params.GamePath).
		Int("dlcs", len(params.DLCs)).
		Msg("received dlc configuration update")

	return nil, env.Service.UpdateDLCConfiguration(env.Context, params.GamePath, params.DLCs)
}
