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

package helpers

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/rs/zerolog/log"
)

// ErrServiceRunning is returned by PidFile.Acquire when another live
// process holds the file.
var ErrServiceRunning = errors.New("service already running")

// PidFilePath is where the daemon records its process ID.
func PidFilePath() string {
	return filepath.Join(CacheDir(), config.PidFile)
}

// PidFile guards against two daemons managing the same library.
type PidFile struct {
	path string
}

func NewPidFile(path string) *PidFile {
	return &PidFile{path: path}
}

// Pid returns the recorded process ID, or 0 when there is no file.
func (p *PidFile) Pid() (int, error) {
	//nolint:gosec // Safe: reads PID files for service management
	data, err := os.ReadFile(p.path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	} else if err != nil {
		return 0, fmt.Errorf("error reading pid file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("error parsing pid: %w", err)
	}
	return pid, nil
}

// Running returns true if the recorded process is still alive.
func (p *PidFile) Running() bool {
	pid, err := p.Pid()
	if err != nil || pid == 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return IsProcessRunning(proc)
}

// Acquire writes the current PID. A stale file left by a dead process is
// replaced.
func (p *PidFile) Acquire() error {
	if p.Running() {
		return ErrServiceRunning
	}

	err := os.MkdirAll(filepath.Dir(p.path), 0o750)
	if err != nil {
		return fmt.Errorf("failed to create pid directory: %w", err)
	}

	err = os.WriteFile(p.path, []byte(strconv.Itoa(os.Getpid())), 0o600)
	if err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	log.Debug().Str("path", p.path).Msg("created pid file")
	return nil
}

// Release removes the file if it still belongs to this process.
func (p *PidFile) Release() error {
	pid, err := p.Pid()
	if err != nil {
		return err
	}
	if pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(p.path); err != nil {
		return fmt.Errorf("failed to remove PID file: %w", err)
	}
	return nil
}

// IsProcessRunning checks if a process is still running.
// Returns false if the process is nil or has terminated.
func IsProcessRunning(proc *os.Process) bool {
	if proc == nil {
		return false
	}
	// signal 0 checks for existence without delivering anything
	err := proc.Signal(syscall.Signal(0))
	return err == nil
}
