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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/Novattz/creamlinux-installer/internal/telemetry"
	"github.com/Novattz/creamlinux-installer/pkg/api"
	"github.com/Novattz/creamlinux-installer/pkg/cli"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/helpers"
	"github.com/Novattz/creamlinux-installer/pkg/service"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		telemetry.Flush()
		os.Exit(1)
	}
}

func run() error {
	flags := cli.SetupFlags()
	flags.Pre()

	if os.Geteuid() == 0 {
		return errors.New("creamlinux cannot be run as root")
	}

	var logWriters []io.Writer
	if *flags.Daemon {
		logWriters = []io.Writer{os.Stderr}
	}

	cfg, err := cli.Setup(config.BaseDefaults, logWriters)
	if err != nil {
		return err
	}
	defer telemetry.Close()

	defer func() {
		if err := recover(); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Panic: %s\n", err)
			log.Fatal().Msgf("panic: %v", err)
		}
	}()

	ctx, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopSignals()

	handled, err := flags.Post(ctx, cfg, os.Stdout)
	if handled {
		return err
	}

	pid := helpers.NewPidFile(helpers.PidFilePath())
	if err := pid.Acquire(); err != nil {
		return fmt.Errorf("error starting service: %w", err)
	}
	defer func() {
		if err := pid.Release(); err != nil {
			log.Error().Err(err).Msg("error removing pid file")
		}
	}()

	stopSvc, done, err := service.Start(cfg, api.Start)
	if err != nil {
		log.Error().Msgf("error starting service: %s", err)
		return fmt.Errorf("error starting service: %w", err)
	}
	log.Info().Int("port", cfg.APIPort()).Msg("service started")

	select {
	case <-ctx.Done():
		log.Info().Msg("received stop signal")
	case <-done:
	}

	if err := stopSvc(); err != nil {
		log.Error().Msgf("error stopping service: %s", err)
		return err
	}
	return nil
}
