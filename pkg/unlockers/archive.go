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
	"archive/zip"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

// maxEntrySize caps a single extracted file. Unlocker binaries are a few
// megabytes at most.
const maxEntrySize = 64 << 20

// Staged is an extracted and verified release.
type Staged struct {
	// Files maps the base name of every extracted file to its path.
	Files map[string]string
	Archive
	Dir string
}

// extractZip flattens the entries accepted by keep into dir, keyed by base
// name. Directory structure inside the archive is ignored.
func extractZip(fs afero.Fs, archivePath, dir string, keep func(name string) bool) (map[string]string, error) {
	f, err := fs.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing archive")
		}
	}()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidArchive, err)
	}

	files := make(map[string]string)
	for _, entry := range zr.File {
		if entry.FileInfo().IsDir() {
			continue
		}
		name := path.Base(strings.ReplaceAll(entry.Name, "\\", "/"))
		if name == "." || name == "/" || !keep(name) {
			continue
		}
		dest := filepath.Join(dir, name)
		if err := extractEntry(fs, entry, dest); err != nil {
			return nil, err
		}
		files[name] = dest
	}
	return files, nil
}

func extractEntry(fs afero.Fs, entry *zip.File, dest string) error {
	rc, err := entry.Open()
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidArchive, entry.Name, err)
	}
	defer func() {
		if closeErr := rc.Close(); closeErr != nil {
			log.Warn().Err(closeErr).Msg("error closing archive entry")
		}
	}()

	out, err := fs.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}
	n, err := io.Copy(out, io.LimitReader(rc, maxEntrySize+1))
	if closeErr := out.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to extract %s: %w", entry.Name, err)
	}
	if n > maxEntrySize {
		return fmt.Errorf("%w: %s exceeds size limit", ErrInvalidArchive, entry.Name)
	}
	return nil
}

// requireFiles checks that every name was extracted.
func requireFiles(files map[string]string, names ...string) error {
	var missing []string
	for _, n := range names {
		if _, ok := files[n]; !ok {
			missing = append(missing, n)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidArchive, strings.Join(missing, ", "))
	}
	return nil
}
