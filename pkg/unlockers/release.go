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

package unlockers

import (
	"context"
	"fmt"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/creativeprojects/go-selfupdate"
)

// Asset is one downloadable file of a release.
type Asset struct {
	Name string
	URL  string
}

// Release is a published unlocker version.
type Release struct {
	Version string
	Assets  []Asset
}

// Asset returns the asset with the given name, ignoring case.
func (r *Release) Asset(name string) (Asset, bool) {
	for _, a := range r.Assets {
		if strings.EqualFold(a.Name, name) {
			return a, true
		}
	}
	return Asset{}, false
}

// ReleaseSource finds the latest release of a repository.
type ReleaseSource interface {
	LatestRelease(ctx context.Context, owner, repo string) (*Release, error)
}

// GitHubReleases lists releases through the GitHub API.
type GitHubReleases struct {
	source selfupdate.Source
}

// NewGitHubReleases uses GITHUB_TOKEN from the environment when set.
func NewGitHubReleases() (*GitHubReleases, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create github source: %w", err)
	}
	return &GitHubReleases{source: source}, nil
}

// LatestRelease returns the highest non-draft, non-prerelease version.
func (g *GitHubReleases) LatestRelease(ctx context.Context, owner, repo string) (*Release, error) {
	releases, err := g.source.ListReleases(ctx, selfupdate.NewRepositorySlug(owner, repo))
	if err != nil {
		return nil, fmt.Errorf("%w: listing %s/%s releases: %w", ErrTransientNetwork, owner, repo, err)
	}

	var best selfupdate.SourceRelease
	for _, rel := range releases {
		if rel == nil || rel.GetDraft() || rel.GetPrerelease() {
			continue
		}
		if best == nil || IsNewer(rel.GetTagName(), best.GetTagName()) {
			best = rel
		}
	}
	if best == nil {
		return nil, fmt.Errorf("%w: no releases for %s/%s", ErrNoReleaseAsset, owner, repo)
	}

	out := &Release{Version: best.GetTagName()}
	for _, a := range best.GetAssets() {
		out.Assets = append(out.Assets, Asset{Name: a.GetName(), URL: a.GetBrowserDownloadURL()})
	}
	return out, nil
}

// IsNewer reports whether version a is newer than b. Versions that are not
// semver compare as different strings, so any change counts as newer.
func IsNewer(a, b string) bool {
	if b == "" {
		return a != ""
	}
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a != b
	}
	return va.GreaterThan(vb)
}
