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

package jobs

import (
	"errors"

	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
)

var (
	// ErrNotEligible jobs fail immediately and are never retried.
	ErrNotEligible      = unlockers.ErrNotEligible
	ErrTransientNetwork = unlockers.ErrTransientNetwork
	ErrAlreadyRunning   = errors.New("a job is already running for this game")
	// ErrLocalIO means a file operation on this machine failed, in the game
	// directory or the download cache. It is never retried and the game is
	// left as it was before the job.
	ErrLocalIO   = unlockers.ErrLocalIO
	ErrCancelled = errors.New("job cancelled")
)
