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

package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/config"
)

// APIClient is how the command line reaches a running service.
type APIClient interface {
	// Call sends one method with raw JSON params and returns the raw result.
	Call(ctx context.Context, method, params string) (string, error)
	// WaitNotification returns the params of the next notification named method.
	WaitNotification(ctx context.Context, timeout time.Duration, method string) (string, error)
}

// LocalAPIClient calls the service listening on the configured local port.
type LocalAPIClient struct {
	cfg *config.Instance
}

func NewLocalAPIClient(cfg *config.Instance) *LocalAPIClient {
	return &LocalAPIClient{cfg: cfg}
}

func (c *LocalAPIClient) Call(ctx context.Context, method, params string) (string, error) {
	resp, err := LocalClient(ctx, c.cfg, method, params)
	if err != nil {
		return "", fmt.Errorf("api call failed: %w", err)
	}
	return resp, nil
}

func (c *LocalAPIClient) WaitNotification(ctx context.Context, timeout time.Duration, method string) (string, error) {
	resp, err := WaitNotification(ctx, timeout, c.cfg, method)
	if err != nil {
		return "", fmt.Errorf("wait notification failed: %w", err)
	}
	return resp, nil
}

// ScanTargets asks the service to rescan the library and decodes the games
// it found.
func ScanTargets(ctx context.Context, c APIClient) ([]models.Target, error) {
	resp, err := c.Call(ctx, models.MethodScanSteamGames, "")
	if err != nil {
		return nil, err
	}
	var targets []models.Target
	if err := json.Unmarshal([]byte(resp), &targets); err != nil {
		return nil, fmt.Errorf("invalid scan result: %w", err)
	}
	return targets, nil
}
