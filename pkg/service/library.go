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

package service

import (
	"path/filepath"
	"slices"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/Novattz/creamlinux-installer/pkg/steam"
)

// Library is the set of games found by the last scan. A scan replaces it
// wholesale; jobs change single games in place.
type Library struct {
	byID map[string]int
	// touched holds the games jobs changed since BeginScan. Nil when no scan
	// is in flight.
	touched   map[string]struct{}
	targets   []models.Target
	libraries []steam.Library
	mu        syncutil.RWMutex
}

func NewLibrary() *Library {
	return &Library{byID: make(map[string]int)}
}

// BeginScan marks the start of a scan. Job updates made between BeginScan
// and Replace win over what the scan read from disk.
func (l *Library) BeginScan() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.touched = make(map[string]struct{})
}

// Replace swaps in the result of a scan.
func (l *Library) Replace(targets []models.Target, libraries []steam.Library) {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := slices.Clone(targets)
	for i := range next {
		if _, ok := l.touched[next[i].ID]; !ok {
			continue
		}
		j, ok := l.byID[next[i].ID]
		if !ok {
			continue
		}
		cur := l.targets[j]
		next[i].JobState = cur.JobState
		next[i].InstalledKind = cur.InstalledKind
		next[i].InstalledVersion = cur.InstalledVersion
	}

	l.targets = next
	l.libraries = slices.Clone(libraries)
	l.touched = nil
	l.byID = make(map[string]int, len(next))
	for i, t := range l.targets {
		l.byID[t.ID] = i
	}
}

// Targets returns a copy of every game.
func (l *Library) Targets() []models.Target {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]models.Target, len(l.targets))
	for i, t := range l.targets {
		out[i] = t
		out[i].CapabilityFiles = slices.Clone(t.CapabilityFiles)
	}
	return out
}

func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.targets)
}

func (l *Library) Target(id string) (models.Target, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.byID[id]
	if !ok {
		return models.Target{}, false
	}
	t := l.targets[i]
	t.CapabilityFiles = slices.Clone(t.CapabilityFiles)
	return t, true
}

// ByPath finds the game installed at path.
func (l *Library) ByPath(path string) (models.Target, bool) {
	clean := filepath.Clean(path)
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.targets {
		if filepath.Clean(t.InstallPath) == clean {
			t.CapabilityFiles = slices.Clone(t.CapabilityFiles)
			return t, true
		}
	}
	return models.Target{}, false
}

// UpdateTarget applies fn to one game and returns the result.
func (l *Library) UpdateTarget(id string, fn func(t *models.Target)) (models.Target, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.touched != nil {
		l.touched[id] = struct{}{}
	}
	i, ok := l.byID[id]
	if !ok {
		return models.Target{}, false
	}
	fn(&l.targets[i])
	t := l.targets[i]
	t.CapabilityFiles = slices.Clone(t.CapabilityFiles)
	return t, true
}

// SteamAppsDirs lists the steamapps directory of every discovered library.
func (l *Library) SteamAppsDirs() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	dirs := make([]string, 0, len(l.libraries))
	for _, lib := range l.libraries {
		dirs = append(dirs, lib.SteamApps)
	}
	return dirs
}
