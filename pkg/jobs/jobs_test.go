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
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/creamapi"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/smokeapi"
	"github.com/Novattz/creamlinux-installer/pkg/testing/fixtures"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	nativePath = "/steam/steamapps/common/Portal2"
	protonPath = "/steam/steamapps/common/Witcher3"
)

var testItems = []models.CatalogItem{
	{ID: "1001", Name: "Expansion One", Enabled: true},
	{ID: "1002", Name: "Expansion Two"},
}

func nativeTarget() models.Target {
	return models.Target{
		ID:          "620",
		Title:       "Portal 2",
		InstallPath: nativePath,
		Platform:    models.PlatformNative,
		JobState:    models.JobIdle,
	}
}

func protonTarget() models.Target {
	return models.Target{
		ID:              "292030",
		Title:           "The Witcher 3",
		InstallPath:     protonPath,
		Platform:        models.PlatformCompat,
		CapabilityFiles: []string{"steam_api64.dll"},
		JobState:        models.JobIdle,
	}
}

type fakeReleases struct{}

func (fakeReleases) LatestRelease(_ context.Context, _, repo string) (*unlockers.Release, error) {
	if repo == "creamlinux" {
		return &unlockers.Release{
			Version: "1.3.5",
			Assets:  []unlockers.Asset{{Name: "creamlinux.zip", URL: "https://example.invalid/creamlinux.zip"}},
		}, nil
	}
	return &unlockers.Release{
		Version: "v4.0.0",
		Assets:  []unlockers.Asset{{Name: "SmokeAPI-v4.0.0.zip", URL: "https://example.invalid/SmokeAPI-v4.0.0.zip"}},
	}, nil
}

type fakeLibrary struct {
	targets map[string]models.Target
	mu      syncutil.Mutex
}

func (l *fakeLibrary) UpdateTarget(id string, fn func(t *models.Target)) (models.Target, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	t, ok := l.targets[id]
	if !ok {
		return models.Target{}, false
	}
	fn(&t)
	l.targets[id] = t
	return t, true
}

func (l *fakeLibrary) get(id string) models.Target {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.targets[id]
}

type fakeCatalog struct {
	items []models.CatalogItem
}

func (f fakeCatalog) Fetch(context.Context, string) ([]models.CatalogItem, error) {
	return f.items, nil
}

type harness struct {
	fs        afero.Fs
	ctrl      *Controller
	lib       *fakeLibrary
	ns        chan models.Notification
	manifests *manifest.Store
}

type harnessOptions struct {
	download unlockers.DownloadFunc
	writable func(string) error
	clock    clockwork.Clock
}

// releaseDownloader writes the fixture archive matching the asset URL.
func releaseDownloader(t *testing.T, fs afero.Fs) unlockers.DownloadFunc {
	return func(_ context.Context, url, dest string) error {
		if strings.Contains(url, "creamlinux") {
			fixtures.WriteZip(t, fs, dest, fixtures.CreamRelease)
		} else {
			fixtures.WriteZip(t, fs, dest, fixtures.SmokeRelease)
		}
		return nil
	}
}

func newHarness(t *testing.T, fs afero.Fs, opts harnessOptions) *harness {
	t.Helper()
	require.NoError(t, fs.MkdirAll(nativePath, 0o750))
	require.NoError(t, fs.MkdirAll(protonPath, 0o750))
	require.NoError(t, afero.WriteFile(fs, filepath.Join(protonPath, "steam_api64.dll"), []byte("valve64"), 0o644))

	if opts.download == nil {
		opts.download = releaseDownloader(t, fs)
	}
	if opts.writable == nil {
		opts.writable = func(string) error { return nil }
	}
	if opts.clock == nil {
		opts.clock = clockwork.NewFakeClock()
	}

	manifests := manifest.NewStore(fs)
	smoke := smokeapi.NewStore(fs)
	lib := &fakeLibrary{targets: map[string]models.Target{
		"620":    nativeTarget(),
		"292030": protonTarget(),
	}}
	ns := make(chan models.Notification, 256)
	ctrl := NewController(Deps{
		Fs:        fs,
		Unlockers: unlockers.NewRegistry(unlockers.NewCream(fs), unlockers.NewSmoke(fs, smoke)),
		Fetcher:   unlockers.NewFetcher(fakeReleases{}, unlockers.NewCache(fs, "/cache"), opts.download),
		Manifests: manifests,
		Detector:  unlockers.NewDetector(manifests, smoke),
		Catalog:   fakeCatalog{items: testItems},
		Targets:   lib,
	}, ns, Options{
		Writable:    opts.writable,
		Clock:       opts.clock,
		RetryBase:   time.Second,
		MaxAttempts: 3,
	})
	t.Cleanup(ctrl.Stop)
	return &harness{fs: fs, ctrl: ctrl, lib: lib, ns: ns, manifests: manifests}
}

func (h *harness) run(t *testing.T, req Request) error {
	t.Helper()
	job, err := h.ctrl.Submit(context.Background(), req)
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return job.Wait(ctx)
}

// events stops the controller and returns every notification it sent.
func (h *harness) events() []models.Notification {
	h.ctrl.Stop()
	var out []models.Notification
	for {
		select {
		case n := <-h.ns:
			out = append(out, n)
		default:
			return out
		}
	}
}

func progressEvents(t *testing.T, ns []models.Notification) []models.InstallationProgressResponse {
	t.Helper()
	var out []models.InstallationProgressResponse
	for _, n := range ns {
		if n.Method != models.NotificationInstallationProgress {
			continue
		}
		var p models.InstallationProgressResponse
		require.NoError(t, json.Unmarshal(n.Params, &p))
		out = append(out, p)
	}
	return out
}

func steps(ps []models.InstallationProgressResponse) []string {
	out := make([]string, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Step)
	}
	return out
}

func exists(t *testing.T, fs afero.Fs, path string) bool {
	t.Helper()
	ok, err := afero.Exists(fs, path)
	require.NoError(t, err)
	return ok
}

func TestController_InstallCream(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{})
	err := h.run(t, Request{
		Target:   nativeTarget(),
		Kind:     KindInstall,
		Unlocker: models.InstalledCream,
		Items:    testItems,
	})
	require.NoError(t, err)

	for _, name := range unlockers.CreamFiles {
		assert.True(t, exists(t, h.fs, filepath.Join(nativePath, name)), name)
	}
	m, err := h.manifests.Read(nativePath)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, models.InstalledCream, m.InstalledKind)
	assert.Equal(t, "1.3.5", m.InstalledVersion)
	assert.Equal(t, []string{"1001"}, m.EnabledItemIDs)

	target := h.lib.get("620")
	assert.Equal(t, models.InstalledCream, target.InstalledKind)
	assert.Equal(t, "1.3.5", target.InstalledVersion)
	assert.Equal(t, models.JobIdle, target.JobState)

	ps := progressEvents(t, h.events())
	assert.Equal(t, []string{"preparing", "transferring", "staging", "applying", "complete"}, steps(ps))
	for i := 1; i < len(ps); i++ {
		assert.GreaterOrEqual(t, ps[i].Progress, ps[i-1].Progress)
	}
	final := ps[len(ps)-1]
	assert.True(t, final.Complete)
	assert.InDelta(t, 100, final.Progress, 0.001)
	assert.True(t, final.ShowInstructions)
	require.NotNil(t, final.Instructions)
	assert.Equal(t, "cream_install", final.Instructions.Type)
	assert.Equal(t, unlockers.CreamLaunchCommand, final.Instructions.Command)
	assert.Equal(t, 1, final.Instructions.DLCCount)

	for _, p := range ps[:len(ps)-1] {
		assert.False(t, p.Complete)
	}
}

func TestController_InstallFetchesCatalog(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{})
	require.NoError(t, h.run(t, Request{
		Target:       nativeTarget(),
		Kind:         KindInstall,
		Unlocker:     models.InstalledCream,
		FetchCatalog: true,
	}))

	cfg, err := creamapi.NewStore(h.fs).Read(nativePath)
	require.NoError(t, err)
	assert.Equal(t, testItems, cfg.DLCs)
}

func TestController_InstallSmokeAndUninstall(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{})
	require.NoError(t, h.run(t, Request{
		Target:   protonTarget(),
		Kind:     KindInstall,
		Unlocker: models.InstalledSmoke,
	}))
	assert.True(t, exists(t, h.fs, filepath.Join(protonPath, "steam_api64_o.dll")))
	assert.Equal(t, models.InstalledSmoke, h.lib.get("292030").InstalledKind)

	require.NoError(t, h.run(t, Request{
		Target:   h.lib.get("292030"),
		Kind:     KindUninstall,
		Unlocker: models.InstalledSmoke,
	}))
	data, err := afero.ReadFile(h.fs, filepath.Join(protonPath, "steam_api64.dll"))
	require.NoError(t, err)
	assert.Equal(t, "valve64", string(data))
	assert.False(t, exists(t, h.fs, filepath.Join(protonPath, "steam_api64_o.dll")))
	assert.False(t, exists(t, h.fs, manifest.Path(protonPath)))
	assert.Equal(t, models.InstalledNone, h.lib.get("292030").InstalledKind)

	ps := progressEvents(t, h.events())
	last := ps[len(ps)-1]
	require.NotNil(t, last.Instructions)
	assert.Equal(t, "smoke_uninstall", last.Instructions.Type)
	assert.False(t, last.ShowInstructions)
}

func TestController_UninstallWithoutManifest(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	h := newHarness(t, fs, harnessOptions{})
	require.NoError(t, afero.WriteFile(fs, filepath.Join(nativePath, "game.x86_64"), []byte("elf"), 0o755))

	require.NoError(t, h.run(t, Request{
		Target:   nativeTarget(),
		Kind:     KindUninstall,
		Unlocker: models.InstalledCream,
	}))

	entries, err := afero.ReadDir(fs, nativePath)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "game.x86_64", entries[0].Name())

	ps := progressEvents(t, h.events())
	require.Len(t, ps, 1)
	assert.True(t, ps[0].Complete)
	assert.Equal(t, "complete", ps[0].Step)
}

func TestController_UninstallManifestOverride(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	h := newHarness(t, fs, harnessOptions{})
	for _, name := range []string{unlockers.CreamScript, unlockers.CreamLib64} {
		require.NoError(t, afero.WriteFile(fs, filepath.Join(protonPath, name), nil, 0o644))
	}
	target := protonTarget()
	target.InstalledKind = models.InstalledCream
	h.lib.targets["292030"] = target

	require.NoError(t, h.run(t, Request{
		Target:   target,
		Kind:     KindUninstall,
		Unlocker: models.InstalledCream,
		ManifestOverride: &manifest.Manifest{
			InstalledKind: models.InstalledCream,
			Files:         []string{unlockers.CreamScript, unlockers.CreamLib64},
		},
	}))
	assert.False(t, exists(t, fs, filepath.Join(protonPath, unlockers.CreamScript)))
	assert.False(t, exists(t, fs, filepath.Join(protonPath, unlockers.CreamLib64)))
	assert.Equal(t, models.InstalledNone, h.lib.get("292030").InstalledKind)
}

func TestController_UpdateConfig(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{})
	require.NoError(t, h.run(t, Request{
		Target:   nativeTarget(),
		Kind:     KindInstall,
		Unlocker: models.InstalledCream,
		Items:    testItems,
	}))

	updated := []models.CatalogItem{
		{ID: "1001", Name: "Expansion One"},
		{ID: "1002", Name: "Expansion Two", Enabled: true},
	}
	require.NoError(t, h.run(t, Request{
		Target: h.lib.get("620"),
		Kind:   KindUpdateConfig,
		Items:  updated,
	}))

	cfg, err := creamapi.NewStore(h.fs).Read(nativePath)
	require.NoError(t, err)
	assert.Equal(t, updated, cfg.DLCs)
	m, err := h.manifests.Read(nativePath)
	require.NoError(t, err)
	assert.Equal(t, []string{"1002"}, m.EnabledItemIDs)
	assert.Equal(t, "1.3.5", m.InstalledVersion)
}

func TestController_UpdateConfigNothingInstalled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{})
	err := h.run(t, Request{Target: nativeTarget(), Kind: KindUpdateConfig, Items: testItems})
	require.ErrorIs(t, err, ErrNotEligible)
}

func TestController_NotEligible(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{})
	_, err := h.ctrl.Submit(context.Background(), Request{
		Target:   nativeTarget(),
		Kind:     KindInstall,
		Unlocker: models.InstalledSmoke,
	})
	require.ErrorIs(t, err, ErrNotEligible)
	assert.False(t, h.ctrl.Running("620"))
	assert.Equal(t, models.JobIdle, h.lib.get("620").JobState)
}

func TestController_Unwritable(t *testing.T) {
	t.Parallel()

	h := newHarness(t, afero.NewMemMapFs(), harnessOptions{
		writable: func(string) error { return errors.New("permission denied") },
	})
	err := h.run(t, Request{Target: nativeTarget(), Kind: KindInstall, Unlocker: models.InstalledCream})
	require.ErrorIs(t, err, ErrLocalIO)

	ps := progressEvents(t, h.events())
	assert.Equal(t, []string{"preparing", "error"}, steps(ps))
	assert.Contains(t, ps[1].Message, "permission denied")
}

func TestController_ApplyFailureRollsBack(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	h := newHarness(t, fs, harnessOptions{})
	target := protonTarget()
	target.CapabilityFiles = []string{"steam_api64.dll", "missing/steam_api.dll"}

	err := h.run(t, Request{Target: target, Kind: KindInstall, Unlocker: models.InstalledSmoke})
	require.ErrorIs(t, err, ErrLocalIO)

	data, err := afero.ReadFile(fs, filepath.Join(protonPath, "steam_api64.dll"))
	require.NoError(t, err)
	assert.Equal(t, "valve64", string(data))
	assert.False(t, exists(t, fs, filepath.Join(protonPath, "steam_api64_o.dll")))
	assert.False(t, exists(t, fs, manifest.Path(protonPath)))
	assert.Equal(t, models.InstalledNone, h.lib.get("292030").InstalledKind)
}

// blockingDownload waits until release is closed or the job is cancelled.
func blockingDownload(t *testing.T, fs afero.Fs, started chan<- struct{}, release <-chan struct{}) unlockers.DownloadFunc {
	next := releaseDownloader(t, fs)
	return func(ctx context.Context, url, dest string) error {
		started <- struct{}{}
		select {
		case <-release:
			return next(ctx, url, dest)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func TestController_SingleFlight(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	h := newHarness(t, fs, harnessOptions{download: blockingDownload(t, fs, started, release)})

	req := Request{Target: nativeTarget(), Kind: KindInstall, Unlocker: models.InstalledCream, Items: testItems}
	job, err := h.ctrl.Submit(context.Background(), req)
	require.NoError(t, err)
	<-started
	assert.Equal(t, models.JobRunning, h.lib.get("620").JobState)

	_, err = h.ctrl.Submit(context.Background(), req)
	require.ErrorIs(t, err, ErrAlreadyRunning)

	other, err := h.ctrl.Submit(context.Background(), Request{
		Target: protonTarget(), Kind: KindUninstall, Unlocker: models.InstalledSmoke,
	})
	require.NoError(t, err)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, job.Wait(ctx))
	require.NoError(t, other.Wait(ctx))
	assert.False(t, h.ctrl.Running("620"))
}

func TestController_CancelDuringTransfer(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	started := make(chan struct{}, 1)
	h := newHarness(t, fs, harnessOptions{download: blockingDownload(t, fs, started, make(chan struct{}))})

	req := Request{Target: nativeTarget(), Kind: KindInstall, Unlocker: models.InstalledCream, Items: testItems}
	job, err := h.ctrl.Submit(context.Background(), req)
	require.NoError(t, err)
	<-started

	assert.True(t, h.ctrl.Cancel("620"))
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.ErrorIs(t, job.Wait(ctx), ErrCancelled)
	assert.Equal(t, StepCancelled, job.Step())

	assert.False(t, h.ctrl.Running("620"))
	assert.False(t, h.ctrl.Cancel("620"))
	assert.False(t, exists(t, fs, filepath.Join(nativePath, unlockers.CreamScript)))
	assert.Equal(t, models.JobIdle, h.lib.get("620").JobState)

	ps := progressEvents(t, h.events())
	require.NotEmpty(t, ps)
	terminal := 0
	for _, p := range ps {
		if p.Complete {
			terminal++
			assert.Equal(t, "cancelled", p.Step)
		}
	}
	assert.Equal(t, 1, terminal)
}

func TestController_RetriesTransientDownload(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClock()
	var calls atomic.Int32
	next := releaseDownloader(t, fs)
	h := newHarness(t, fs, harnessOptions{
		clock: clock,
		download: func(ctx context.Context, url, dest string) error {
			if calls.Add(1) < 3 {
				return errors.New("connection reset")
			}
			return next(ctx, url, dest)
		},
	})

	job, err := h.ctrl.Submit(context.Background(), Request{
		Target: nativeTarget(), Kind: KindInstall, Unlocker: models.InstalledCream, Items: testItems,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)

	require.NoError(t, job.Wait(ctx))
	assert.Equal(t, int32(3), calls.Load())
}

func TestController_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	clock := clockwork.NewFakeClock()
	h := newHarness(t, fs, harnessOptions{
		clock: clock,
		download: func(context.Context, string, string) error {
			return errors.New("connection reset")
		},
	})

	job, err := h.ctrl.Submit(context.Background(), Request{
		Target: nativeTarget(), Kind: KindInstall, Unlocker: models.InstalledCream, Items: testItems,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)
	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(2 * time.Second)

	require.ErrorIs(t, job.Wait(ctx), ErrTransientNetwork)
	assert.Equal(t, StepError, job.Step())
}

func TestController_LocalDownloadFailureNotRetried(t *testing.T) {
	t.Parallel()

	fs := afero.NewMemMapFs()
	var calls atomic.Int32
	h := newHarness(t, fs, harnessOptions{
		clock: clockwork.NewFakeClock(),
		download: func(_ context.Context, _, dest string) error {
			calls.Add(1)
			return fmt.Errorf("error creating file: %w",
				&iofs.PathError{Op: "open", Path: dest + ".part", Err: syscall.ENOSPC})
		},
	})

	job, err := h.ctrl.Submit(context.Background(), Request{
		Target: nativeTarget(), Kind: KindInstall, Unlocker: models.InstalledCream, Items: testItems,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err = job.Wait(ctx)
	require.ErrorIs(t, err, ErrLocalIO)
	require.NotErrorIs(t, err, ErrTransientNetwork)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, StepError, job.Step())
}

func TestJob_CancelAfterCommit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job := newJob(&Request{Target: nativeTarget(), Kind: KindInstall}, cancel)
	job.setStep(StepStaging, 60)

	require.True(t, job.commit(ctx))
	assert.False(t, job.tryCancel())
	require.NoError(t, ctx.Err())
}

func TestJob_CancelBeforeCommit(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	job := newJob(&Request{Target: nativeTarget(), Kind: KindInstall}, cancel)
	job.setStep(StepTransferring, 30)

	assert.True(t, job.tryCancel())
	assert.False(t, job.commit(ctx))
}
