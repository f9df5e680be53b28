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

// Package cli holds the command line flags shared by every entry point.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Novattz/creamlinux-installer/internal/telemetry"
	"github.com/Novattz/creamlinux-installer/pkg/api/client"
	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/config"
	"github.com/Novattz/creamlinux-installer/pkg/helpers"
	"github.com/Novattz/creamlinux-installer/pkg/manifest"
	"github.com/Novattz/creamlinux-installer/pkg/smokeapi"
	"github.com/Novattz/creamlinux-installer/pkg/steam"
	"github.com/Novattz/creamlinux-installer/pkg/unlockers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var ErrMissingValue = errors.New("flag requires a value")

type Flags struct {
	API     *string
	Wait    *string
	Version *bool
	Scan    *bool
	Daemon  *bool
}

// SetupFlags defines all common CLI flags.
func SetupFlags() *Flags {
	return &Flags{
		API: flag.String(
			"api",
			"",
			"send method and params to API and print response",
		),
		Wait: flag.String(
			"wait",
			"",
			"print the next notification with the given method",
		),
		Version: flag.Bool(
			"version",
			false,
			"print version and exit",
		),
		Scan: flag.Bool(
			"scan",
			false,
			"scan Steam libraries and print the games found as JSON",
		),
		Daemon: flag.Bool(
			"daemon",
			false,
			"log to stderr as well as the log file",
		),
	}
}

func isFlagPassed(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// Pre runs flag parsing and actions any immediate flags that don't
// require environment setup. Add any custom flags before running this.
func (f *Flags) Pre() {
	flag.Parse()

	if *f.Version {
		_, _ = fmt.Printf("CreamLinux Installer v%s\n", config.AppVersion)
		os.Exit(0)
	}
}

// Post actions all remaining flags that need config and logging. It
// reports whether a flag was handled, in which case the caller should exit
// instead of starting the service.
func (f *Flags) Post(ctx context.Context, cfg *config.Instance, out io.Writer) (bool, error) {
	api := client.NewLocalAPIClient(cfg)

	switch {
	case isFlagPassed("api"):
		return true, CallAPI(ctx, api, *f.API, out)
	case isFlagPassed("wait"):
		if *f.Wait == "" {
			return true, fmt.Errorf("wait: %w", ErrMissingValue)
		}
		resp, err := api.WaitNotification(ctx, -1, *f.Wait)
		if err != nil {
			log.Error().Err(err).Msg("error waiting for notification")
			return true, fmt.Errorf("error waiting for notification: %w", err)
		}
		_, _ = fmt.Fprintln(out, resp)
		return true, nil
	case *f.Scan:
		if helpers.NewPidFile(helpers.PidFilePath()).Running() {
			targets, err := client.ScanTargets(ctx, api)
			if err != nil {
				return true, fmt.Errorf("scan failed: %w", err)
			}
			return true, printTargets(out, targets)
		}
		roots := steam.CollectRoots(steam.HomeDir(), cfg.ManualLibraryPaths())
		return true, ScanLibrary(ctx, roots, out)
	}
	return false, nil
}

// CallAPI sends "method:params" to the running service and prints the
// result.
func CallAPI(ctx context.Context, api client.APIClient, value string, out io.Writer) error {
	if value == "" {
		return fmt.Errorf("api: %w", ErrMissingValue)
	}

	method, params, _ := strings.Cut(value, ":")
	resp, err := api.Call(ctx, method, params)
	if err != nil {
		log.Error().Err(err).Msg("error calling API")
		return fmt.Errorf("error calling API: %w", err)
	}

	_, _ = fmt.Fprintln(out, resp)
	return nil
}

// ScanLibrary scans without a running service. It reads the same files the
// service does and changes nothing on disk.
func ScanLibrary(ctx context.Context, roots []string, out io.Writer) error {
	detector := unlockers.NewDetector(manifest.NewOSStore(), smokeapi.NewOSStore())
	scanner := steam.NewScanner(detector.Installed)

	result, err := scanner.Scan(ctx, roots, func(p models.ScanProgressResponse) {
		log.Debug().Float64("progress", p.Progress).Msg(p.Message)
	})
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}

	return printTargets(out, result.Targets)
}

func printTargets(out io.Writer, targets []models.Target) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(targets); err != nil {
		return fmt.Errorf("error encoding targets: %w", err)
	}
	return nil
}

// Setup initializes the user config and logging. Returns a user config object.
//
//nolint:gocritic // config struct copied for immutability
func Setup(defaultConfig config.Values, writers []io.Writer) (*config.Instance, error) {
	err := helpers.InitLogging(helpers.CacheDir(), writers)
	if err != nil {
		return nil, fmt.Errorf("error initializing logging: %w", err)
	}

	cfg, err := config.NewConfig(helpers.ConfigDir(), defaultConfig)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}

	if cfg.DebugLogging() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	dsn, enabled := cfg.ErrorReporting()
	if err := telemetry.Init(dsn, enabled, config.AppVersion); err != nil {
		log.Warn().Err(err).Msg("failed to initialize error reporting")
	}

	return cfg, nil
}
