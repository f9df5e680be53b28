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
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLibraryChange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		ev   fsnotify.Event
		want bool
	}{
		{"manifest_created", fsnotify.Event{Name: "/s/steamapps/appmanifest_620.acf", Op: fsnotify.Create}, true},
		{"manifest_removed", fsnotify.Event{Name: "/s/steamapps/appmanifest_620.acf", Op: fsnotify.Remove}, true},
		{"library_folders", fsnotify.Event{Name: "/s/steamapps/libraryfolders.vdf", Op: fsnotify.Write}, true},
		{"chmod_only", fsnotify.Event{Name: "/s/steamapps/appmanifest_620.acf", Op: fsnotify.Chmod}, false},
		{"download_temp", fsnotify.Event{Name: "/s/steamapps/downloading/state_620.patch", Op: fsnotify.Create}, false},
		{"other_acf", fsnotify.Event{Name: "/s/steamapps/workshop.acf", Op: fsnotify.Write}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, libraryChange(tt.ev))
		})
	}
}

// touch creates an empty file so the watcher sees a single create event.
func touch(t *testing.T, path string) {
	t.Helper()
	f, err := os.Create(path) //nolint:gosec // test path
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestLibraryWatcher_Debounce(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dir := t.TempDir()
	clock := clockwork.NewFakeClock()
	fired := make(chan struct{}, 4)
	w, err := NewLibraryWatcher(clock, RescanDebounce, func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer func() { assert.NoError(t, w.Close()) }()
	w.Watch([]string{dir})

	//nolint:gosec // G306: test file permissions are fine
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	touch(t, filepath.Join(dir, "appmanifest_620.acf"))

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(RescanDebounce / 2)
	select {
	case <-fired:
		t.Fatal("rescan before the library was quiet")
	case <-time.After(50 * time.Millisecond):
	}

	clock.Advance(RescanDebounce / 2)
	select {
	case <-fired:
	case <-ctx.Done():
		t.Fatal("timed out waiting for rescan")
	}
}

func TestLibraryWatcher_Unwatch(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	clock := clockwork.NewFakeClock()
	fired := make(chan struct{}, 4)
	w, err := NewLibraryWatcher(clock, RescanDebounce, func() { fired <- struct{}{} })
	require.NoError(t, err)
	defer func() { assert.NoError(t, w.Close()) }()

	w.Watch([]string{dir})
	w.Watch(nil)

	touch(t, filepath.Join(dir, "appmanifest_620.acf"))
	time.Sleep(50 * time.Millisecond)
	clock.Advance(RescanDebounce)

	select {
	case <-fired:
		t.Fatal("rescan for an unwatched directory")
	case <-time.After(50 * time.Millisecond):
	}
}
