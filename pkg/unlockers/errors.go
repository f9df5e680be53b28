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

package unlockers

import (
	"errors"

	"github.com/Novattz/creamlinux-installer/pkg/shared/httpclient"
)

var (
	// ErrNotEligible means the target cannot take this unlocker, for example
	// CreamLinux on a Proton game.
	ErrNotEligible = errors.New("target not eligible")
	// ErrTransientNetwork failures are retried.
	ErrTransientNetwork = httpclient.ErrTransientNetwork
	// ErrLocalIO failures happen on this machine's disk and are never
	// retried.
	ErrLocalIO = errors.New("local file operation failed")
	// ErrInvalidArchive means a release archive is missing required files.
	ErrInvalidArchive  = errors.New("invalid release archive")
	ErrNoReleaseAsset  = errors.New("release asset not found")
	ErrUnknownUnlocker = errors.New("unknown unlocker")
)
