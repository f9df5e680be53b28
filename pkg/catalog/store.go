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

// Package catalog looks up the DLC catalog of a game in the Steam store,
// one paced request per item, and streams what it finds.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/shared/httpclient"
)

// DefaultStoreURL is the Steam store app details endpoint.
const DefaultStoreURL = "https://store.steampowered.com/api/appdetails"

var (
	ErrRateLimited = errors.New("rate limited by steam store")
	// ErrNotFound is returned when the store has no details for an app.
	ErrNotFound         = errors.New("app not found in steam store")
	ErrTransientNetwork = httpclient.ErrTransientNetwork
)

// AppDetails is the part of a store app entry the catalog needs.
type AppDetails struct {
	Name string
	DLC  []string
}

type appDetailsEntry struct {
	Data    json.RawMessage `json:"data"`
	Success bool            `json:"success"`
}

type appDetailsData struct {
	Name string   `json:"name"`
	DLC  []uint64 `json:"dlc"`
}

// Lookup fetches store details of one app.
type Lookup interface {
	AppDetails(ctx context.Context, appID string) (*AppDetails, error)
}

// StoreClient talks to the Steam store API.
type StoreClient struct {
	client  *httpclient.Client
	baseURL string
	timeout time.Duration
}

// NewStoreClient returns a client for baseURL where each request is bounded
// by timeout.
func NewStoreClient(client *httpclient.Client, baseURL string, timeout time.Duration) *StoreClient {
	return &StoreClient{client: client, baseURL: baseURL, timeout: timeout}
}

func (c *StoreClient) AppDetails(ctx context.Context, appID string) (*AppDetails, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body map[string]appDetailsEntry
	err := c.client.GetJSON(reqCtx, c.baseURL+"?appids="+url.QueryEscape(appID), &body)
	switch {
	case ctx.Err() != nil:
		return nil, ctx.Err()
	case httpclient.IsStatus(err, http.StatusTooManyRequests):
		return nil, fmt.Errorf("%w: app %s", ErrRateLimited, appID)
	case err != nil:
		return nil, fmt.Errorf("%w: app %s: %w", ErrTransientNetwork, appID, err)
	}

	entry, ok := body[appID]
	if !ok || !entry.Success || len(entry.Data) == 0 || entry.Data[0] != '{' {
		return nil, fmt.Errorf("%w: app %s", ErrNotFound, appID)
	}
	var data appDetailsData
	if err := json.Unmarshal(entry.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: app %s: %w", ErrNotFound, appID, err)
	}

	details := &AppDetails{Name: data.Name, DLC: make([]string, 0, len(data.DLC))}
	for _, id := range data.DLC {
		details.DLC = append(details.DLC, strconv.FormatUint(id, 10))
	}
	return details, nil
}
