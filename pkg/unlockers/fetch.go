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
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"syscall"

	"github.com/Novattz/creamlinux-installer/pkg/shared/httpclient"
	"github.com/rs/zerolog/log"
)

// DownloadFunc saves url to dest.
type DownloadFunc func(ctx context.Context, url, dest string) error

// HTTPDownloader downloads through an httpclient.Client, writing to a temp
// file first.
func HTTPDownloader(client *httpclient.Client) DownloadFunc {
	return func(ctx context.Context, url, dest string) error {
		return client.DownloadFile(ctx, httpclient.DownloadFileArgs{
			URL:        url,
			OutputPath: dest,
			TempPath:   dest + ".part",
		})
	}
}

// Fetcher resolves the latest release of an unlocker and makes sure its
// archive is in the cache.
type Fetcher struct {
	source   ReleaseSource
	cache    *Cache
	download DownloadFunc
}

func NewFetcher(source ReleaseSource, cache *Cache, download DownloadFunc) *Fetcher {
	return &Fetcher{source: source, cache: cache, download: download}
}

func (f *Fetcher) Cache() *Cache {
	return f.cache
}

// LatestVersion asks the release source for the newest version and records
// it in the cache.
func (f *Fetcher) LatestVersion(ctx context.Context, u Unlocker) (string, error) {
	owner, repo := u.Repository()
	rel, err := f.source.LatestRelease(ctx, owner, repo)
	if err != nil {
		return "", err
	}
	if err := f.cache.SetLatest(u.Kind(), rel.Version); err != nil {
		log.Warn().Err(err).Msg("failed to record latest version")
	}
	return rel.Version, nil
}

// Fetch returns a cached archive of the latest release, downloading it if
// needed. When the release lookup fails the newest cached archive is used.
func (f *Fetcher) Fetch(ctx context.Context, u Unlocker) (*Archive, error) {
	owner, repo := u.Repository()
	rel, err := f.source.LatestRelease(ctx, owner, repo)
	if err != nil {
		if cached, ok := f.cache.Newest(u.Kind()); ok {
			log.Warn().Err(err).
				Str("version", cached.Version).
				Msgf("release lookup failed, using cached %s", u.Kind().DisplayName())
			return cached, nil
		}
		return nil, err
	}

	assetName := u.AssetName(rel.Version)
	if cached, ok := f.cache.Lookup(u.Kind(), rel.Version, assetName); ok {
		log.Debug().Str("path", cached.Path).Msg("using cached archive")
		return cached, nil
	}

	asset, ok := rel.Asset(assetName)
	if !ok {
		return nil, fmt.Errorf("%w: %s in %s/%s %s", ErrNoReleaseAsset, assetName, owner, repo, rel.Version)
	}

	dest := f.cache.ArchivePath(u.Kind(), rel.Version, assetName)
	if err := f.cache.fs.MkdirAll(filepath.Dir(dest), 0o750); err != nil {
		return nil, fmt.Errorf("%w: failed to create cache dir: %w", ErrLocalIO, err)
	}

	log.Info().Str("url", asset.URL).Msgf("downloading %s %s", u.Kind().DisplayName(), rel.Version)
	if err := f.download(ctx, asset.URL, dest); err != nil {
		return nil, classifyDownloadError(err)
	}

	if err := f.cache.SetLatest(u.Kind(), rel.Version); err != nil {
		log.Warn().Err(err).Msg("failed to record latest version")
	}
	if err := f.cache.Prune(u.Kind(), rel.Version); err != nil {
		log.Warn().Err(err).Msg("failed to prune old versions")
	}

	return &Archive{Kind: u.Kind(), Version: rel.Version, Path: dest}, nil
}

// classifyDownloadError marks retryable download failures. Client errors
// other than 429 are permanent, and so are failures writing the archive to
// disk.
func classifyDownloadError(err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isLocalIOError(err) {
		return fmt.Errorf("%w: download failed: %w", ErrLocalIO, err)
	}
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) &&
		statusErr.StatusCode >= 400 && statusErr.StatusCode < 500 &&
		statusErr.StatusCode != http.StatusTooManyRequests {
		return fmt.Errorf("download failed: %w", err)
	}
	return fmt.Errorf("%w: download failed: %w", ErrTransientNetwork, err)
}

// isLocalIOError reports whether err came from the local filesystem rather
// than the connection. Network errors are checked first since a failed dial
// can also carry a syscall errno.
func isLocalIOError(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return false
	}
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	return errors.As(err, &pathErr) ||
		errors.As(err, &linkErr) ||
		errors.Is(err, syscall.ENOSPC) ||
		errors.Is(err, syscall.EROFS) ||
		errors.Is(err, fs.ErrPermission)
}
