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
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"
)

const undoSuffix = ".creamlinux-undo"

// Txn applies file changes to a game directory so that they can be undone
// as a whole. Replaced and removed files are moved aside and only deleted on
// Commit.
type Txn struct {
	fs      afero.Fs
	undo    []func() error
	trash   []string
	applied []string
}

func NewTxn(fs afero.Fs) *Txn {
	return &Txn{fs: fs}
}

// Applied lists the paths written by the transaction in order.
func (t *Txn) Applied() []string {
	return t.applied
}

func (t *Txn) exists(path string) (bool, error) {
	ok, err := afero.Exists(t.fs, path)
	if err != nil {
		return false, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return ok, nil
}

// preserve moves an existing file out of the way and registers its return.
func (t *Txn) preserve(path string) error {
	ok, err := t.exists(path)
	if err != nil || !ok {
		return err
	}
	aside := path + undoSuffix
	if err := t.fs.RemoveAll(aside); err != nil {
		return fmt.Errorf("failed to clear %s: %w", aside, err)
	}
	if err := t.fs.Rename(path, aside); err != nil {
		return fmt.Errorf("failed to move aside %s: %w", path, err)
	}
	t.trash = append(t.trash, aside)
	t.undo = append(t.undo, func() error {
		return t.fs.Rename(aside, path)
	})
	return nil
}

func (t *Txn) removeOnUndo(path string) {
	t.undo = append(t.undo, func() error {
		err := t.fs.Remove(path)
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	})
}

// WriteFile replaces path with data.
func (t *Txn) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := t.preserve(path); err != nil {
		return err
	}
	t.removeOnUndo(path)
	if err := afero.WriteFile(t.fs, path, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := t.fs.Chmod(path, perm); err != nil {
		return fmt.Errorf("failed to chmod %s: %w", path, err)
	}
	t.applied = append(t.applied, path)
	return nil
}

// CopyFile replaces dst with the content of src.
func (t *Txn) CopyFile(src, dst string, perm os.FileMode) error {
	in, err := t.fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	data, err := io.ReadAll(in)
	if closeErr := in.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return t.WriteFile(dst, data, perm)
}

// Remove deletes path on Commit. A missing file is ignored.
func (t *Txn) Remove(path string) error {
	return t.preserve(path)
}

// Rename moves src over dst.
func (t *Txn) Rename(src, dst string) error {
	if err := t.preserve(dst); err != nil {
		return err
	}
	if err := t.fs.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to rename %s: %w", src, err)
	}
	t.undo = append(t.undo, func() error {
		return t.fs.Rename(dst, src)
	})
	t.applied = append(t.applied, dst)
	return nil
}

// Rollback undoes every applied change in reverse order.
func (t *Txn) Rollback() error {
	var errs []error
	for i := len(t.undo) - 1; i >= 0; i-- {
		if err := t.undo[i](); err != nil {
			errs = append(errs, err)
		}
	}
	t.undo = nil
	t.trash = nil
	t.applied = nil
	if err := errors.Join(errs...); err != nil {
		log.Error().Err(err).Msg("rollback incomplete")
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// Commit deletes the files moved aside. Cleanup errors are logged only.
func (t *Txn) Commit() {
	for _, path := range t.trash {
		if err := t.fs.RemoveAll(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("failed to remove replaced file")
		}
	}
	t.undo = nil
	t.trash = nil
}
