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

package reconcile

import (
	"slices"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
)

// Queue holds the unresolved conflicts and surfaces them one at a time.
type Queue struct {
	pending []models.Conflict
	mu      syncutil.Mutex
}

func NewQueue() *Queue {
	return &Queue{}
}

func sameConflict(a, b models.Conflict) bool {
	return a.TargetID == b.TargetID && a.Kind == b.Kind
}

// Update replaces the queue with the latest detection. Conflicts already
// queued keep their position, conflicts that disappeared are dropped. The
// newly seen conflicts are returned.
func (q *Queue) Update(detected []models.Conflict) []models.Conflict {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.pending[:0:0]
	for _, c := range q.pending {
		if slices.ContainsFunc(detected, func(d models.Conflict) bool { return sameConflict(c, d) }) {
			kept = append(kept, c)
		}
	}

	var added []models.Conflict
	for _, d := range detected {
		if slices.ContainsFunc(kept, func(c models.Conflict) bool { return sameConflict(c, d) }) {
			continue
		}
		kept = append(kept, d)
		added = append(added, d)
	}
	q.pending = kept
	return added
}

// Current returns the conflict the user should resolve next.
func (q *Queue) Current() (models.Conflict, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return models.Conflict{}, false
	}
	return q.pending[0], true
}

// Resolved drops every conflict of a game.
func (q *Queue) Resolved(targetID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = slices.DeleteFunc(q.pending, func(c models.Conflict) bool {
		return c.TargetID == targetID
	})
}

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
