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
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// UnknownName is used for items whose details could not be fetched.
const UnknownName = "Unknown DLC"

// Options tune request pacing and throttling.
type Options struct {
	RequestInterval    time.Duration
	ThrottleWait       time.Duration
	CancelGrace        time.Duration
	MaxThrottleRetries int
}

var DefaultOptions = Options{
	RequestInterval:    300 * time.Millisecond,
	ThrottleWait:       10 * time.Second,
	CancelGrace:        2 * time.Second,
	MaxThrottleRetries: 5,
}

func OptionsFromConfig(cfg *config.Instance) Options {
	opts := DefaultOptions
	opts.RequestInterval = cfg.CatalogRequestInterval()
	opts.ThrottleWait = cfg.CatalogThrottleWait()
	opts.MaxThrottleRetries = cfg.CatalogMaxThrottleRetries()
	return opts
}

// Events receives the output of a stream as it happens. Nil fields are
// skipped.
type Events struct {
	Found    func(item models.CatalogItem)
	Progress func(p models.DLCProgressResponse)
}

type activeStream struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Streamer runs catalog lookups, at most one per app at a time.
type Streamer struct {
	ctx    context.Context
	store  Lookup
	cache  *Cache
	clock  clockwork.Clock
	ns     chan<- models.Notification
	active map[string]*activeStream
	opts   Options
	mu     syncutil.Mutex
}

// NewStreamer creates a streamer. Background streams stop when ctx is
// cancelled. cache may be nil.
func NewStreamer(
	ctx context.Context,
	store Lookup,
	cache *Cache,
	ns chan<- models.Notification,
	clock clockwork.Clock,
	opts Options,
) *Streamer {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Streamer{
		ctx:    ctx,
		store:  store,
		cache:  cache,
		clock:  clock,
		ns:     ns,
		opts:   opts,
		active: make(map[string]*activeStream),
	}
}

// Cache returns the catalog cache, which may be nil.
func (s *Streamer) Cache() *Cache {
	return s.cache
}

// Start streams the catalog of an app in the background, sending dlc-found,
// dlc-progress and dlc-error notifications. A running stream for the same
// app is cancelled first.
func (s *Streamer) Start(appID string) {
	ctx, cancel := context.WithCancel(s.ctx)
	st := &activeStream{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	prev := s.active[appID]
	s.active[appID] = st
	s.mu.Unlock()

	if prev != nil {
		s.stop(appID, prev)
	}

	go func() {
		defer close(st.done)
		defer cancel()
		defer func() {
			s.mu.Lock()
			if s.active[appID] == st {
				delete(s.active, appID)
			}
			s.mu.Unlock()
		}()

		_, err := s.Stream(ctx, appID, Events{
			Found: func(item models.CatalogItem) {
				notifications.DLCFound(s.ns, models.DLCFoundResponse{GameID: appID, CatalogItem: item})
			},
			Progress: func(p models.DLCProgressResponse) {
				notifications.DLCProgress(s.ns, p)
			},
		})
		switch {
		case err == nil:
		case errors.Is(err, context.Canceled):
			log.Info().Str("game_id", appID).Msg("dlc fetch cancelled")
		default:
			log.Error().Err(err).Str("game_id", appID).Msg("dlc fetch failed")
			notifications.DLCError(s.ns, models.DLCErrorResponse{GameID: appID, Error: err.Error()})
		}
	}()
}

// Cancel stops the stream of an app and waits for it to finish, up to the
// cancel grace period. It reports whether a stream was running.
func (s *Streamer) Cancel(appID string) bool {
	s.mu.Lock()
	st, ok := s.active[appID]
	if ok {
		delete(s.active, appID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	s.stop(appID, st)
	return true
}

func (s *Streamer) stop(appID string, st *activeStream) {
	st.cancel()
	timer := s.clock.NewTimer(s.opts.CancelGrace)
	defer timer.Stop()
	select {
	case <-st.done:
	case <-timer.Chan():
		log.Warn().Str("game_id", appID).Msg("dlc fetch did not stop within grace period")
	}
}

// Stop cancels every running stream.
func (s *Streamer) Stop() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.active))
	for id := range s.active {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Cancel(id)
	}
}

// Fetch collects the whole catalog of an app without sending events.
func (s *Streamer) Fetch(ctx context.Context, appID string) ([]models.CatalogItem, error) {
	return s.Stream(ctx, appID, Events{})
}

// Stream looks up an app and then each of its DLC in turn. Items whose
// details cannot be fetched are named UnknownName rather than failing the
// stream. Every item starts enabled.
func (s *Streamer) Stream(ctx context.Context, appID string, ev Events) ([]models.CatalogItem, error) {
	var tracker progressTracker
	progress := func(msg string, v float64, left *string) {
		if ev.Progress != nil {
			ev.Progress(models.DLCProgressResponse{GameID: appID, Message: msg, Progress: v, TimeLeft: left})
		}
	}

	progress("Looking up game details...", tracker.at(5), nil)
	details, err := s.lookup(ctx, appID, func() {
		progress("Rate limited by Steam. Waiting...", tracker.at(5), nil)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch game details: %w", err)
	}

	total := len(details.DLC)
	log.Info().Str("game_id", appID).Int("dlcs", total).Msg("found dlcs")
	progress(fmt.Sprintf("Found %d DLCs. Fetching details...", total), tracker.at(10), nil)

	limiter := rate.NewLimiter(rate.Every(s.opts.RequestInterval), 1)
	items := make([]models.CatalogItem, 0, total)
	for i, id := range details.DLC {
		if err := limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("request pacing: %w", err)
		}

		left := timeLeft(total-i, s.opts.RequestInterval)
		progress(fmt.Sprintf("Processing DLC %d/%d", i+1, total), tracker.items(i, total), &left)

		name := UnknownName
		d, err := s.lookup(ctx, id, func() {
			progress("Rate limited by Steam. Waiting...", tracker.items(i, total), nil)
		})
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			log.Debug().Err(err).Str("dlc_id", id).Msg("using placeholder dlc name")
		case d.Name != "":
			name = d.Name
		}

		item := models.CatalogItem{ID: id, Name: name, Enabled: true}
		items = append(items, item)
		if ev.Found != nil {
			ev.Found(item)
		}
	}

	if s.cache != nil {
		if err := s.cache.Put(appID, items); err != nil {
			log.Warn().Err(err).Str("game_id", appID).Msg("failed to cache catalog")
		}
	}

	if tracker.complete() {
		progress(fmt.Sprintf("Completed! Found %d DLCs", len(items)), 100, nil)
	}
	return items, nil
}

// lookup fetches app details, waiting out rate limits up to the configured
// number of retries.
func (s *Streamer) lookup(ctx context.Context, appID string, throttled func()) (*AppDetails, error) {
	for attempt := 0; ; attempt++ {
		d, err := s.store.AppDetails(ctx, appID)
		if !errors.Is(err, ErrRateLimited) {
			return d, err
		}
		if attempt >= s.opts.MaxThrottleRetries {
			return nil, err
		}

		log.Warn().Str("app_id", appID).Dur("wait", s.opts.ThrottleWait).Msg("rate limited by steam store")
		throttled()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.clock.After(s.opts.ThrottleWait):
		}
	}
}
