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

// Package jobs runs install, uninstall and configuration jobs, at most one
// per game at a time.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const eventBuffer = 256

// TargetUpdater applies a change to a game in the library and returns the
// updated game.
type TargetUpdater interface {
	UpdateTarget(id string, fn func(t *models.Target)) (models.Target, bool)
}

// CatalogFetcher collects the full catalog of a game.
type CatalogFetcher interface {
	Fetch(ctx context.Context, appID string) ([]models.CatalogItem, error)
}

type Options struct {
	// Writable returns an error when a game directory cannot be written.
	Writable    func(path string) error
	Clock       clockwork.Clock
	RetryBase   time.Duration
	MaxAttempts int
}

var DefaultOptions = Options{
	RetryBase:   time.Second,
	MaxAttempts: 3,
}

func OptionsFromConfig(cfg *config.Instance) Options {
	opts := DefaultOptions
	opts.RetryBase = cfg.RetryBase()
	opts.MaxAttempts = cfg.MaxAttempts()
	return opts
}

// Deps are the collaborators a Controller drives.
type Deps struct {
	Fs        afero.Fs
	Unlockers *unlockers.Registry
	Fetcher   *unlockers.Fetcher
	Manifests *manifest.Store
	Detector  *unlockers.Detector
	Catalog   CatalogFetcher
	Targets   TargetUpdater
}

// Controller owns the registry of active jobs.
type Controller struct {
	deps       Deps
	ns         chan<- models.Notification
	events     chan models.Notification
	quit       chan struct{}
	forwarded  chan struct{}
	onComplete func(*Job)
	jobs       map[string]*Job
	opts       Options
	wg         sync.WaitGroup
	mu         syncutil.Mutex
	closed     bool
}

func NewController(deps Deps, ns chan<- models.Notification, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Writable == nil {
		opts.Writable = Writable
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	c := &Controller{
		deps:      deps,
		ns:        ns,
		events:    make(chan models.Notification, eventBuffer),
		quit:      make(chan struct{}),
		forwarded: make(chan struct{}),
		jobs:      make(map[string]*Job),
		opts:      opts,
	}
	go c.forward()
	return c
}

// forward hands job events to the notification channel in order, so that a
// slow consumer never blocks a job.
func (c *Controller) forward() {
	defer close(c.forwarded)
	for n := range c.events {
		select {
		case c.ns <- n:
			continue
		default:
		}
		select {
		case c.ns <- n:
		case <-c.quit:
		}
	}
}

// OnComplete registers a hook called after every job finishes.
func (c *Controller) OnComplete(fn func(*Job)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onComplete = fn
}

// Submit starts a job unless the game already has one running.
func (c *Controller) Submit(ctx context.Context, req Request) (*Job, error) { //nolint:gocritic // request is copied into the job
	if req.Kind == KindInstall {
		u, err := c.deps.Unlockers.Get(req.Unlocker)
		if err != nil {
			return nil, err
		}
		if err := u.Eligible(&req.Target); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, errors.New("job controller stopped")
	}
	if existing, ok := c.jobs[req.Target.ID]; ok {
		return existing, fmt.Errorf("%w: %s", ErrAlreadyRunning, existing)
	}

	jobCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := newJob(&req, cancel)
	c.jobs[req.Target.ID] = job
	c.updateTarget(job, func(t *models.Target) { t.JobState = models.JobRunning })

	log.Info().Str("game_id", req.Target.ID).Str("job_id", job.ID.String()).Msgf("starting %s", job)
	c.wg.Add(1)
	go c.run(jobCtx, job, &req)
	return job, nil
}

// Get returns the active job of a game.
func (c *Controller) Get(targetID string) (*Job, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	j, ok := c.jobs[targetID]
	return j, ok
}

// Running reports whether a game has an active job.
func (c *Controller) Running(targetID string) bool {
	_, ok := c.Get(targetID)
	return ok
}

// Cancel cancels the active job of a game if it has not reached Staging.
func (c *Controller) Cancel(targetID string) bool {
	j, ok := c.Get(targetID)
	if !ok {
		return false
	}
	return j.tryCancel()
}

// Stop cancels what can be cancelled, waits for every job and stops
// forwarding events.
func (c *Controller) Stop() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, j := range c.jobs {
		j.tryCancel()
	}
	c.mu.Unlock()

	c.wg.Wait()
	close(c.quit)
	close(c.events)
	<-c.forwarded
}

// updateTarget must be called with c.mu held.
func (c *Controller) updateTarget(job *Job, fn func(t *models.Target)) {
	job.mu.Lock()
	fn(&job.target)
	job.mu.Unlock()

	if c.deps.Targets == nil {
		notifications.GameUpdated(c.events, job.Target())
		return
	}
	t, ok := c.deps.Targets.UpdateTarget(job.TargetID, fn)
	if !ok {
		log.Warn().Str("game_id", job.TargetID).Msg("job target no longer in library")
		notifications.GameUpdated(c.events, job.Target())
		return
	}
	job.mu.Lock()
	job.target = t
	job.mu.Unlock()
	notifications.GameUpdated(c.events, t)
}

func (c *Controller) run(ctx context.Context, job *Job, req *Request) {
	defer c.wg.Done()

	res, err := c.execute(ctx, job, req)

	var step Step
	switch {
	case err == nil:
		step = StepComplete
	case errors.Is(err, context.Canceled) || errors.Is(err, ErrCancelled):
		step = StepCancelled
		err = ErrCancelled
	default:
		step = StepError
	}

	c.mu.Lock()
	job.mu.Lock()
	job.err = err
	job.mu.Unlock()
	if step == StepComplete {
		job.setStep(step, 100)
	} else {
		job.setStep(step, 0)
	}
	delete(c.jobs, job.TargetID)
	c.updateTarget(job, func(t *models.Target) {
		t.JobState = models.JobIdle
		if res != nil {
			t.InstalledKind = res.kind
			t.InstalledVersion = res.version
		}
	})
	c.terminalEvent(job, req, step, err)
	hook := c.onComplete
	c.mu.Unlock()

	switch step {
	case StepComplete:
		log.Info().Str("game_id", job.TargetID).Msgf("%s complete", job)
	case StepCancelled:
		log.Info().Str("game_id", job.TargetID).Msgf("%s cancelled", job)
	default:
		log.Error().Err(err).Str("game_id", job.TargetID).Msgf("%s failed", job)
	}

	close(job.done)
	if hook != nil {
		hook(job)
	}
}
