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
)

//nolint:gocritic // single-use parameter in API handler
func HandleReadSmokeAPIConfig(env requests.RequestEnv) (any, error) {
	var params models.GamePathParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	cfg, err := env.Service.ReadSmokeAPIConfig(env.Context, params.GamePath)
	if err != nil || cfg == nil {
		return nil, err
	}
	return cfg, nil
}

//nolint:gocritic // single-use parameter in API handler
func HandleWriteSmokeAPIConfig(env requests.RequestEnv) (any, error) {
	var params models.WriteSmokeAPIConfigParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	return nil, env.Service.WriteSmokeAPIConfig(env.Context, params.GamePath, params.Config)
}

//nolint:gocritic // single-use parameter in API handler
func HandleDeleteSmokeAPIConfig(env requests.RequestEnv) (any, error) {
	var params models.GamePathParams
	if err := validation.ValidateAndUnmarshal(env.Params, &params); err != nil {
		return nil, err
	}
	return nil, env.Service.DeleteSmokeAPIConfig(env.Context, params.GamePath)
}
