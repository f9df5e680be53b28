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
	"fmt"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/google/uuid"
)

type Kind string

const (
	KindInstall      Kind = "install"
	KindUninstall    Kind = "uninstall"
	KindUpdateConfig Kind = "update_config"
)

// Step is the stage a job is in. Steps only move forward.
type Step string

const (
	StepIdle         Step = "idle"
	StepPreparing    Step = "preparing"
	StepTransferring Step = "transferring"
	StepStaging      Step = "staging"
	StepApplying     Step = "applying"
	StepComplete     Step = "complete"
	StepError        Step = "error"
	StepCancelled    Step = "cancelled"
)

// Terminal reports whether no further step follows.
func (s Step) Terminal() bool {
	return s == StepComplete || s == StepError || s == StepCancelled
}

// Request describes a job to run against one game.
type Request struct {
	// ManifestOverride is used by uninstall instead of the manifest on disk,
	// for installs that predate the manifest.
	ManifestOverride *manifest.Manifest
	Target           models.Target
	Kind             Kind
	Unlocker         models.InstalledKind
	// Items is the catalog with the enabled set to write. When nil, an
	// install fetches the catalog first if FetchCatalog is set.
	Items        []models.CatalogItem
	FetchCatalog bool
}

// Job is a running or finished job.
type Job struct {
	err         error
	cancel      context.CancelFunc
	done        chan struct{}
	TargetID    string
	Kind        Kind
	Unlocker    models.InstalledKind
	step        Step
	target      models.Target
	progress    float64
	ID          uuid.UUID
	mu          syncutil.Mutex
	cancellable bool
}

func newJob(req *Request, cancel context.CancelFunc) *Job {
	return &Job{
		ID:          uuid.New(),
		TargetID:    req.Target.ID,
		Kind:        req.Kind,
		Unlocker:    req.Unlocker,
		target:      req.Target,
		step:        StepIdle,
		cancel:      cancel,
		cancellable: true,
		done:        make(chan struct{}),
	}
}

func (j *Job) String() string {
	return fmt.Sprintf("%s %s on %s", j.Kind, j.Unlocker.DisplayName(), j.TargetID)
}

func (j *Job) Step() Step {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.step
}

func (j *Job) Progress() float64 {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.progress
}

// Target returns the game as of the last step. After Done it reflects the
// job's outcome.
func (j *Job) Target() models.Target {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.target
}

// Done is closed once the job reaches a terminal step.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Wait blocks until the job finishes and returns nil for Complete,
// ErrCancelled for Cancelled, or the failure.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.err
}

func (j *Job) setStep(step Step, progress float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.step = step
	j.progress = max(j.progress, progress)
}

// commit makes the job uncancellable. Returns false if it was already
// cancelled.
func (j *Job) commit(ctx context.Context) bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if ctx.Err() != nil {
		return false
	}
	j.cancellable = false
	return true
}

// tryCancel cancels the job if it has not reached Staging yet.
func (j *Job) tryCancel() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	if !j.cancellable || j.step.Terminal() {
		return false
	}
	j.cancel()
	return true
}
