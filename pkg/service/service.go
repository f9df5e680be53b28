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

// Package service wires the scanner, catalog streamer, job controller and
// conflict reconciler together and implements the commands clients send.
package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/catalog"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/helpers"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/Novattz/creamlinux-installer/pkg/jobs"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/reconcile"
	"github.com/Novattz/creamlinux-installer/pkg/service/broker"
	"github.com/Novattz/creamlinux-installer/pkg/shared/httpclient"
	"github.com/Novattz/creamlinux-installer/pkg/smokeapi"
	"github.com/Novattz/creamlinux-installer/pkg/steam"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const notificationBuffer = 256

var (
	ErrUnknownGame = errors.New("unknown game")
	// ErrNotScanned means a command needs the library before the first scan.
	ErrNotScanned = errors.New("steam library not scanned yet")
)

// Deps are the collaborators of a Service. Zero fields get the production
// implementation.
type Deps struct {
	Releases unlockers.ReleaseSource
	Download unlockers.DownloadFunc
	Store    catalog.Lookup
	Clock    clockwork.Clock
	// Roots returns the directories searched for Steam libraries.
	Roots    func() []string
	Writable func(path string) error
	CacheDir string
	DataDir  string
}

// Service holds the running core.
type Service struct {
	ctx       context.Context
	cfg       *config.Instance
	ns        chan<- models.Notification
	lib       *Library
	scanner   *steam.Scanner
	streamer  *catalog.Streamer
	catalog   *catalog.Cache
	jobs      *jobs.Controller
	registry  *unlockers.Registry
	fetcher   *unlockers.Fetcher
	detector  *unlockers.Detector
	manifests *manifest.Store
	smoke     *smokeapi.Store
	conflicts *reconcile.Queue
	resolver  *reconcile.Resolver
	watcher   *LibraryWatcher
	clock     clockwork.Clock
	roots     func() []string
	scanMu    syncutil.Mutex
	mu        syncutil.Mutex
	scanned   bool
}

// New builds a Service. Notifications go to ns without ever blocking.
func New(ctx context.Context, cfg *config.Instance, ns chan<- models.Notification, deps Deps) (*Service, error) {
	if deps.Clock == nil {
		deps.Clock = clockwork.NewRealClock()
	}
	if deps.CacheDir == "" {
		deps.CacheDir = helpers.CacheDir()
	}
	if deps.DataDir == "" {
		deps.DataDir = helpers.DataDir()
	}
	if deps.Roots == nil {
		deps.Roots = func() []string {
			return steam.CollectRoots(steam.HomeDir(), cfg.ManualLibraryPaths())
		}
	}
	client := httpclient.NewClientFromConfig(cfg)
	if deps.Releases == nil {
		releases, err := unlockers.NewGitHubReleases()
		if err != nil {
			return nil, err
		}
		deps.Releases = releases
	}
	if deps.Download == nil {
		deps.Download = unlockers.HTTPDownloader(client)
	}
	if deps.Store == nil {
		deps.Store = catalog.NewStoreClient(client, catalog.DefaultStoreURL, cfg.RequestTimeout())
	}

	if err := os.MkdirAll(deps.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	cache, err := catalog.OpenCache(filepath.Join(deps.DataDir, config.CatalogDBFile))
	if err != nil {
		log.Error().Err(err).Msg("catalog cache unavailable, continuing without it")
		cache = nil
	}

	fs := afero.NewOsFs()
	manifests := manifest.NewStoreWithClock(fs, deps.Clock)
	smoke := smokeapi.NewOSStore()
	registry := unlockers.NewRegistry(unlockers.NewCream(fs), unlockers.NewSmoke(fs, smoke))
	fetcher := unlockers.NewFetcher(
		deps.Releases,
		unlockers.NewCache(fs, filepath.Join(deps.CacheDir, "unlockers")),
		deps.Download,
	)
	detector := unlockers.NewDetector(manifests, smoke)
	streamer := catalog.NewStreamer(ctx, deps.Store, cache, ns, deps.Clock, catalog.OptionsFromConfig(cfg))

	s := &Service{
		ctx:       ctx,
		cfg:       cfg,
		ns:        ns,
		lib:       NewLibrary(),
		scanner:   steam.NewScanner(detector.Installed),
		streamer:  streamer,
		catalog:   cache,
		registry:  registry,
		fetcher:   fetcher,
		detector:  detector,
		manifests: manifests,
		smoke:     smoke,
		conflicts: reconcile.NewQueue(),
		clock:     deps.Clock,
		roots:     deps.Roots,
	}

	jobOpts := jobs.OptionsFromConfig(cfg)
	jobOpts.Clock = deps.Clock
	jobOpts.Writable = deps.Writable
	s.jobs = jobs.NewController(jobs.Deps{
		Fs:        fs,
		Unlockers: registry,
		Fetcher:   fetcher,
		Manifests: manifests,
		Detector:  detector,
		Catalog:   streamer,
		Targets:   s.lib,
	}, ns, jobOpts)
	s.jobs.OnComplete(func(*jobs.Job) { s.reconcile() })
	s.resolver = reconcile.NewResolver(s.jobs, detector, s.lib, s.conflicts)

	return s, nil
}

// Library returns the current game set.
func (s *Service) Library() *Library {
	return s.lib
}

// EnableWatcher starts or stops rescanning on library changes.
func (s *Service) EnableWatcher(enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !enabled {
		if s.watcher == nil {
			return nil
		}
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	if s.watcher != nil {
		return nil
	}
	w, err := NewLibraryWatcher(s.clock, RescanDebounce, s.rescan)
	if err != nil {
		return fmt.Errorf("failed to start library watcher: %w", err)
	}
	w.Watch(s.lib.SteamAppsDirs())
	s.watcher = w
	return nil
}

func (s *Service) rescan() {
	if s.ctx.Err() != nil {
		return
	}
	log.Info().Msg("steam library changed, rescanning")
	if _, err := s.Scan(s.ctx); err != nil {
		log.Warn().Err(err).Msg("rescan failed")
	}
}

// reconcile queues new platform conflicts and announces them.
func (s *Service) reconcile() {
	added := s.conflicts.Update(reconcile.Detect(s.lib.Targets()))
	for _, c := range added {
		log.Warn().
			Str("game_id", c.TargetID).
			Str("conflict", string(c.Kind)).
			Msgf("%s has the wrong unlocker for its platform", c.Title)
		notifications.PlatformConflict(s.ns, c)
	}
}

// Stop cancels what can be cancelled and waits for running jobs.
func (s *Service) Stop() {
	if err := s.EnableWatcher(false); err != nil {
		log.Warn().Err(err).Msg("error stopping library watcher")
	}
	s.streamer.Stop()
	s.jobs.Stop()
	if s.catalog != nil {
		if err := s.catalog.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing catalog cache")
		}
	}
}

// APIStarter serves the API for a running service until its context ends.
type APIStarter func(ctx context.Context, cfg *config.Instance, svc *Service, notifications <-chan models.Notification)

// Start runs the service until stop is called. The initial scan, the
// startup update check and the library watcher run in the background.
func Start(cfg *config.Instance, startAPI APIStarter) (stop func() error, done <-chan struct{}, err error) {
	log.Info().Msgf("version: %s", config.AppVersion)

	ctx, cancel := context.WithCancel(context.Background())
	ns := make(chan models.Notification, notificationBuffer)

	notifBroker := broker.NewBroker(ctx, ns)
	notifBroker.Start()

	svc, err := New(ctx, cfg, ns, Deps{})
	if err != nil {
		cancel()
		return nil, nil, err
	}

	if startAPI != nil {
		log.Info().Msg("starting API service")
		apiNotifications, _ := notifBroker.Subscribe(100)
		go startAPI(ctx, cfg, svc, apiNotifications)
	}

	go svc.startup(ctx)

	doneCh := make(chan struct{})
	go func() {
		<-ctx.Done()
		log.Info().Msg("service context cancelled, running cleanup")
		svc.Stop()
		notifBroker.Stop()
		log.Info().Msg("service cleanup completed")
		close(doneCh)
	}()

	stop = func() error {
		cancel()
		<-doneCh
		return nil
	}
	return stop, doneCh, nil
}

func (s *Service) startup(ctx context.Context) {
	if _, err := s.Scan(ctx); err != nil {
		log.Warn().Err(err).Msg("initial scan failed")
	}
	if s.cfg.WatchLibrary() {
		if err := s.EnableWatcher(true); err != nil {
			log.Error().Err(err).Msg("library watcher unavailable")
		}
	}
	if s.cfg.CheckUpdatesOnStartup() {
		if _, err := s.CheckUpdates(ctx); err != nil {
			log.Warn().Err(err).Msg("unlocker update check failed")
		}
	}
}
