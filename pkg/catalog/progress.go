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

package catalog

import (
	"fmt"
	"math"
	"time"
)

// progressTracker keeps reported progress monotonic. Nothing below 100 is
// reported as done, and 100 is reported exactly once.
type progressTracker struct {
	last float64
	done bool
}

// at reports v, capped at 99 and never below the last value.
func (p *progressTracker) at(v float64) float64 {
	p.last = max(p.last, min(v, 99))
	return p.last
}

// items reports progress once the total is known.
func (p *progressTracker) items(fetched, total int) float64 {
	if total <= 0 {
		return p.at(p.last)
	}
	return p.at(float64(fetched) / float64(total) * 100)
}

// complete returns true the first time it is called.
func (p *progressTracker) complete() bool {
	if p.done {
		return false
	}
	p.done = true
	p.last = 100
	return true
}

// timeLeft estimates the remaining time of a fetch from the number of
// items left and the request interval.
func timeLeft(remaining int, interval time.Duration) string {
	seconds := int(math.Ceil(float64(remaining) * interval.Seconds()))
	if seconds < 60 {
		return fmt.Sprintf("~%d seconds", seconds)
	}
	return fmt.Sprintf("~%d minute(s)", int(math.Ceil(float64(seconds)/60)))
}
