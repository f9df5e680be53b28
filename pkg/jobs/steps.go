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
	"context"
	"errors"
	"fmt"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/rs/zerolog/log"
)

// result is what a finished job changes on its target.
type result struct {
	kind    models.InstalledKind
	version string
}

// stepProgress is the progress reported on entering each step.
var stepProgress = map[Step]float64{
	StepPreparing:    10,
	StepTransferring: 30,
	StepStaging:      60,
	StepApplying:     80,
}

func title(job *Job) string {
	name := job.Unlocker.DisplayName()
	switch job.Kind {
	case KindInstall:
		return "Installing " + name
	case KindUninstall:
		return "Uninstalling " + name
	case KindUpdateConfig:
		return "Updating DLC configuration"
	default:
		return string(job.Kind)
	}
}

// enter moves the job to step and emits installation-progress.
func (c *Controller) enter(job *Job, step Step, message string) {
	job.setStep(step, stepProgress[step])
	notifications.InstallationProgress(c.events, models.InstallationProgressResponse{
		GameID:   job.TargetID,
		Title:    title(job),
		Message:  message,
		Step:     string(step),
		Progress: job.Progress(),
	})
}

// terminalEvent must be called once per job, with c.mu held. The event can
// wait briefly for room in a full events channel.
func (c *Controller) terminalEvent(job *Job, req *Request, step Step, err error) {
	name := job.Unlocker.DisplayName()
	payload := models.InstallationProgressResponse{
		GameID:   job.TargetID,
		Title:    title(job),
		Step:     string(step),
		Progress: job.Progress(),
		Complete: true,
	}

	switch step {
	case StepComplete:
		switch job.Kind {
		case KindInstall:
			payload.Message = name + " installed successfully!"
		case KindUninstall:
			payload.Message = name + " uninstalled successfully!"
		case KindUpdateConfig:
			payload.Message = "DLC configuration updated"
		}
		if job.Kind != KindUpdateConfig && job.Unlocker != models.InstalledNone {
			if u, uerr := c.deps.Unlockers.Get(job.Unlocker); uerr == nil {
				target := job.Target()
				payload.Instructions = u.Instructions(&target, enabledCount(req.Items), job.Kind == KindUninstall)
				payload.ShowInstructions = job.Unlocker == models.InstalledCream
			}
		}
	case StepCancelled:
		payload.Message = "Cancelled"
	default:
		payload.Message = "Error: " + err.Error()
	}
	notifications.InstallationProgress(c.events, payload)
}

func enabledCount(items []models.CatalogItem) int {
	n := 0
	for _, item := range items {
		if item.Enabled {
			n++
		}
	}
	return n
}

func (c *Controller) execute(ctx context.Context, job *Job, req *Request) (*result, error) {
	switch req.Kind {
	case KindInstall:
		return c.install(ctx, job, req)
	case KindUninstall:
		return c.uninstall(ctx, job, req)
	case KindUpdateConfig:
		return c.updateConfig(ctx, job, req)
	default:
		return nil, fmt.Errorf("unknown job kind %q", req.Kind)
	}
}

// prepare runs the Preparing checks: eligible, when given, then a writable
// game directory.
func (c *Controller) prepare(job *Job, target *models.Target, eligible func(*models.Target) error) error {
	c.enter(job, StepPreparing, "Checking "+target.Title+"...")
	if eligible != nil {
		if err := eligible(target); err != nil {
			return err
		}
	}
	if err := c.opts.Writable(target.InstallPath); err != nil {
		return fmt.Errorf("%w: game directory is not writable: %w", ErrLocalIO, err)
	}
	return nil
}

func (c *Controller) install(ctx context.Context, job *Job, req *Request) (*result, error) {
	u, err := c.deps.Unlockers.Get(req.Unlocker)
	if err != nil {
		return nil, err
	}
	target := req.Target

	if err := c.prepare(job, &target, u.Eligible); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	items := req.Items
	if items == nil && req.FetchCatalog && c.deps.Catalog != nil {
		c.enter(job, StepTransferring, "Fetching DLC list...")
		err := c.retry(ctx, "catalog fetch", func(ctx context.Context) error {
			var fetchErr error
			items, fetchErr = c.deps.Catalog.Fetch(ctx, target.ID)
			return fetchErr
		})
		if err != nil {
			return nil, fmt.Errorf("failed to fetch DLC list: %w", err)
		}
		req.Items = items
	}

	c.enter(job, StepTransferring, "Downloading "+u.Kind().DisplayName()+"...")
	var archive *unlockers.Archive
	err = c.retry(ctx, "release download", func(ctx context.Context) error {
		var fetchErr error
		archive, fetchErr = c.deps.Fetcher.Fetch(ctx, u)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}

	if !job.commit(ctx) {
		return nil, ctx.Err()
	}
	ctx = context.WithoutCancel(ctx)

	c.enter(job, StepStaging, "Extracting "+u.Kind().DisplayName()+"...")
	dir, err := c.deps.Fetcher.Cache().StagingDir()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocalIO, err)
	}
	defer func() {
		if rmErr := c.deps.Fs.RemoveAll(dir); rmErr != nil {
			log.Warn().Err(rmErr).Str("path", dir).Msg("failed to remove staging dir")
		}
	}()
	staged, err := u.Stage(archive, dir)
	if err != nil {
		return nil, err
	}

	c.enter(job, StepApplying, "Installing "+u.Kind().DisplayName()+" files...")
	txn := unlockers.NewTxn(c.deps.Fs)
	m, err := u.Apply(ctx, txn, unlockers.ApplyInput{Target: &target, Staged: staged, Items: items})
	if err != nil {
		return nil, c.abort(txn, err)
	}
	if err := c.deps.Manifests.Write(target.InstallPath, *m); err != nil {
		return nil, c.abort(txn, err)
	}
	txn.Commit()

	return &result{kind: m.InstalledKind, version: m.InstalledVersion}, nil
}

func (c *Controller) uninstall(ctx context.Context, job *Job, req *Request) (*result, error) {
	target := req.Target
	m := req.ManifestOverride
	if m == nil {
		var err error
		m, err = c.deps.Manifests.Read(target.InstallPath)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLocalIO, err)
		}
	}
	if m == nil {
		log.Info().Str("game_id", target.ID).Msg("nothing recorded to uninstall")
		return &result{kind: models.InstalledNone}, nil
	}

	u, err := c.deps.Unlockers.Get(m.InstalledKind)
	if err != nil {
		return nil, err
	}
	if err := c.prepare(job, &target, nil); err != nil {
		return nil, err
	}
	if !job.commit(ctx) {
		return nil, ctx.Err()
	}
	ctx = context.WithoutCancel(ctx)

	c.enter(job, StepApplying, "Removing "+u.Kind().DisplayName()+" files...")
	txn := unlockers.NewTxn(c.deps.Fs)
	if err := u.Remove(ctx, txn, &target, m); err != nil {
		return nil, c.abort(txn, err)
	}
	if err := c.deps.Manifests.Delete(target.InstallPath); err != nil {
		return nil, c.abort(txn, err)
	}
	txn.Commit()

	return &result{kind: models.InstalledNone}, nil
}

func (c *Controller) updateConfig(ctx context.Context, job *Job, req *Request) (*result, error) {
	target := req.Target
	m, err := c.currentManifest(ctx, &target)
	if err != nil {
		return nil, err
	}
	u, err := c.deps.Unlockers.Get(m.InstalledKind)
	if err != nil {
		return nil, err
	}

	if err := c.prepare(job, &target, nil); err != nil {
		return nil, err
	}
	if !job.commit(ctx) {
		return nil, ctx.Err()
	}
	ctx = context.WithoutCancel(ctx)

	c.enter(job, StepApplying, "Writing DLC configuration...")
	txn := unlockers.NewTxn(c.deps.Fs)
	if err := u.WriteConfig(ctx, txn, unlockers.ApplyInput{Target: &target, Items: req.Items}, m); err != nil {
		return nil, c.abort(txn, err)
	}
	if err := c.deps.Manifests.Write(target.InstallPath, *m); err != nil {
		return nil, c.abort(txn, err)
	}
	txn.Commit()

	return &result{kind: m.InstalledKind, version: m.InstalledVersion}, nil
}

// currentManifest returns the manifest of a game, reconstructing one for
// legacy installs.
func (c *Controller) currentManifest(ctx context.Context, target *models.Target) (*manifest.Manifest, error) {
	var (
		m   *manifest.Manifest
		err error
	)
	if c.deps.Detector != nil {
		m, err = c.deps.Detector.Manifest(ctx, target)
	} else {
		m, err = c.deps.Manifests.Read(target.InstallPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLocalIO, err)
	}
	if m == nil {
		return nil, fmt.Errorf("%w: no unlocker installed", ErrNotEligible)
	}
	return m, nil
}

// abort undoes a failed apply and reports it as a local I/O failure.
func (*Controller) abort(txn *unlockers.Txn, err error) error {
	if rbErr := txn.Rollback(); rbErr != nil {
		return fmt.Errorf("%w: %w (%w)", ErrLocalIO, err, rbErr)
	}
	if errors.Is(err, ErrLocalIO) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrLocalIO, err)
}

// retry runs fn until it succeeds, fails permanently or runs out of
// attempts. Only transient network errors are retried, with exponential
// backoff.
func (c *Controller) retry(ctx context.Context, what string, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil || !errors.Is(err, ErrTransientNetwork) || attempt >= c.opts.MaxAttempts {
			return err
		}

		wait := c.opts.RetryBase << (attempt - 1)
		log.Warn().Err(err).Int("attempt", attempt).Dur("wait", wait).Msgf("%s failed, retrying", what)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.opts.Clock.After(wait):
		}
	}
}
