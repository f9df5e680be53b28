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

// HandleGetCurrentConflict returns the oldest unresolved platform conflict,
// or null.
//
//nolint:gocritic // single-use parameter in API handler
func HandleGetCurrentConflict(env requests.RequestEnv) (any, error) {
	c, ok := env.Service.CurrentConflict()
	if !ok {
		return nil, nil
	}
	return c, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleResolvePlatformConflict(env requests.RequestEnv) (any, error) {
	var params models.ResolvePlatformConflictParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	log.Info().
		Str("game_id", params.GameID).
		Str("conflict", string(params.ConflictType)).
		Msg("received conflict resolution")

	return env.Service.ResolveConflict(env.Context, params.GameID, params.ConflictType)
}
