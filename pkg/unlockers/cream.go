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
	"os"
	"path/filepath"
	"slices"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/creamapi"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const (
	CreamScript = "cream.sh"
	CreamLib32  = "lib32Creamlinux.so"
	CreamLib64  = "lib64Creamlinux.so"

	// CreamLaunchCommand goes into the Steam launch options of the game.
	CreamLaunchCommand = "sh ./cream.sh %command%"
)

// CreamFiles are the files a CreamLinux install puts in the game root.
var CreamFiles = []string{CreamScript, CreamLib32, CreamLib64, creamapi.FileName}

// Cream installs CreamLinux into native Linux games.
type Cream struct {
	fs afero.Fs
}

func NewCream(fs afero.Fs) *Cream {
	return &Cream{fs: fs}
}

func (*Cream) Kind() models.InstalledKind {
	return models.InstalledCream
}

func (*Cream) Repository() (owner, repo string) {
	return "anticitizn", "creamlinux"
}

func (*Cream) AssetName(string) string {
	return "creamlinux.zip"
}

func (*Cream) Eligible(target *models.Target) error {
	if !target.Native() {
		return fmt.Errorf("%w: CreamLinux requires a native Linux game", ErrNotEligible)
	}
	return nil
}

func (c *Cream) Stage(archive *Archive, dir string) (*Staged, error) {
	files, err := extractZip(c.fs, archive.Path, dir, func(string) bool { return true })
	if err != nil {
		return nil, err
	}
	if err := requireFiles(files, CreamScript, CreamLib32, CreamLib64); err != nil {
		return nil, err
	}
	return &Staged{Archive: *archive, Dir: dir, Files: files}, nil
}

func (c *Cream) Apply(ctx context.Context, txn *Txn, in ApplyInput) (*manifest.Manifest, error) {
	for _, name := range []string{CreamScript, CreamLib32, CreamLib64} {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		perm := os.FileMode(0o644)
		if name == CreamScript {
			perm = 0o755
		}
		dst := filepath.Join(in.Target.InstallPath, name)
		if err := txn.CopyFile(in.Staged.Files[name], dst, perm); err != nil {
			return nil, err
		}
		log.Debug().Str("path", dst).Msg("installed creamlinux file")
	}

	m := &manifest.Manifest{
		InstalledKind:    models.InstalledCream,
		InstalledVersion: in.Staged.Version,
		EnabledItemIDs:   manifest.EnabledIDs(in.Items),
		Files:            slices.Clone(CreamFiles),
	}
	if err := c.WriteConfig(ctx, txn, in, m); err != nil {
		return nil, err
	}
	return m, nil
}

// WriteConfig updates cream_api.ini in place, or renders a new one.
func (c *Cream) WriteConfig(_ context.Context, txn *Txn, in ApplyInput, m *manifest.Manifest) error {
	data, err := creamapi.NewStore(c.fs).Content(in.Target.InstallPath, in.Target.ID, in.Items)
	if err != nil {
		return err
	}
	path := creamapi.Path(in.Target.InstallPath)
	if err := txn.WriteFile(path, data, 0o644); err != nil {
		return err
	}
	m.EnabledItemIDs = manifest.EnabledIDs(in.Items)
	return nil
}

func (c *Cream) Remove(ctx context.Context, txn *Txn, target *models.Target, m *manifest.Manifest) error {
	for _, rel := range m.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := txn.Remove(filepath.Join(target.InstallPath, rel)); err != nil {
			return err
		}
	}
	return nil
}

func (*Cream) Instructions(target *models.Target, dlcCount int, uninstall bool) *models.Instructions {
	kind := "cream_install"
	if uninstall {
		kind = "cream_uninstall"
	}
	return &models.Instructions{
		Type:      kind,
		Command:   CreamLaunchCommand,
		GameTitle: target.Title,
		DLCCount:  dlcCount,
	}
}
