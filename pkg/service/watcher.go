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
	"strings"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/fsnotify/fsnotify"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

// RescanDebounce is how long the library must be quiet before a rescan.
const RescanDebounce = 2 * time.Second

// libraryChange reports whether a file event can change the game list.
func libraryChange(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
		!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return false
	}
	name := filepath.Base(ev.Name)
	if name == "libraryfolders.vdf" {
		return true
	}
	return strings.HasPrefix(name, "appmanifest_") && strings.HasSuffix(name, ".acf")
}

// LibraryWatcher calls onChange once the watched steamapps directories have
// been quiet for the debounce period after a change.
type LibraryWatcher struct {
	clock    clockwork.Clock
	timer    clockwork.Timer
	w        *fsnotify.Watcher
	onChange func()
	watched  map[string]bool
	done     chan struct{}
	debounce time.Duration
	mu       syncutil.Mutex
}

func NewLibraryWatcher(clock clockwork.Clock, debounce time.Duration, onChange func()) (*LibraryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	lw := &LibraryWatcher{
		clock:    clock,
		w:        w,
		onChange: onChange,
		watched:  make(map[string]bool),
		done:     make(chan struct{}),
		debounce: debounce,
	}
	go lw.loop()
	return lw, nil
}

// Watch sets the watched directories, adding new ones and dropping the
// ones no longer listed.
func (lw *LibraryWatcher) Watch(dirs []string) {
	lw.mu.Lock()
	defer lw.mu.Unlock()

	want := make(map[string]bool, len(dirs))
	for _, d := range dirs {
		want[d] = true
		if lw.watched[d] {
			continue
		}
		if err := lw.w.Add(d); err != nil {
			log.Warn().Err(err).Str("path", d).Msg("failed to watch steam library")
			continue
		}
		lw.watched[d] = true
		log.Debug().Str("path", d).Msg("watching steam library")
	}
	for d := range lw.watched {
		if want[d] {
			continue
		}
		if err := lw.w.Remove(d); err != nil {
			log.Debug().Err(err).Str("path", d).Msg("failed to unwatch steam library")
		}
		delete(lw.watched, d)
	}
}

func (lw *LibraryWatcher) loop() {
	defer close(lw.done)
	for {
		select {
		case ev, ok := <-lw.w.Events:
			if !ok {
				return
			}
			if libraryChange(ev) {
				log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("steam library changed")
				lw.schedule()
			}
		case err, ok := <-lw.w.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("library watcher error")
		}
	}
}

func (lw *LibraryWatcher) schedule() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	if lw.timer != nil {
		lw.timer.Stop()
	}
	lw.timer = lw.clock.AfterFunc(lw.debounce, lw.onChange)
}

// Close stops watching. A pending rescan is dropped.
func (lw *LibraryWatcher) Close() error {
	err := lw.w.Close()
	<-lw.done
	lw.mu.Lock()
	if lw.timer != nil {
		lw.timer.Stop()
	}
	lw.mu.Unlock()
	return err
}
