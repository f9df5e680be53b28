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

func HandleLoadConfig(env requests.RequestEnv) (any, error) { //nolint:gocritic // single-use parameter in API handler
	log.Info().Msg("received settings request")
	return env.Service.Settings(), nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleUpdateConfig(env requests.RequestEnv) (any, error) {
	log.Info().Msg("received settings update request")

	var params models.UpdateSettingsParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}

	if params.ManualPaths != nil {
		log.Info().Strs("manualPaths", *params.ManualPaths).Msg("update")
	}
	if params.DebugLogging != nil {
		log.Info().Bool("debugLogging", *params.DebugLogging).Msg("update")
	}
	if params.ShowDisclaimer != nil {
		log.Info().Bool("showDisclaimer", *params.ShowDisclaimer).Msg("update")
	}
	if params.WatchLibrary != nil {
		log.Info().Bool("watchLibrary", *params.WatchLibrary).Msg("update")
	}

	return env.Service.UpdateSettings(&params)
}
