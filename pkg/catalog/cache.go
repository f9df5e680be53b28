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

package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	bolt "go.etcd.io/bbolt"
)

const bucketCatalogs = "catalogs"

type cachedCatalog struct {
	UpdatedAt time.Time            `json:"updated_at"`
	Items     []models.CatalogItem `json:"items"`
}

// Cache keeps the last catalog fetched for each app.
type Cache struct {
	db *bolt.DB
}

func OpenCache(path string) (*Cache, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog cache: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketCatalogs))
		return err //nolint:wrapcheck // wrapped below
	})
	if err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to close catalog cache: %w", closeErr)
		}
		return nil, fmt.Errorf("failed to create catalog bucket: %w", err)
	}
	return &Cache{db: db}, nil
}

func (c *Cache) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close catalog cache: %w", err)
	}
	return nil
}

// Put replaces the cached catalog of an app.
func (c *Cache) Put(appID string, items []models.CatalogItem) error {
	data, err := json.Marshal(cachedCatalog{UpdatedAt: time.Now().UTC(), Items: items})
	if err != nil {
		return fmt.Errorf("failed to marshal catalog: %w", err)
	}
	err = c.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketCatalogs)).Put([]byte(appID), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store catalog: %w", err)
	}
	return nil
}

// Get returns the cached catalog of an app and whether one exists.
func (c *Cache) Get(appID string) ([]models.CatalogItem, bool, error) {
	var cached *cachedCatalog
	err := c.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(bucketCatalogs)).Get([]byte(appID))
		if v == nil {
			return nil
		}
		cached = &cachedCatalog{}
		return json.Unmarshal(v, cached)
	})
	if err != nil {
		return nil, false, fmt.Errorf("failed to read catalog: %w", err)
	}
	if cached == nil {
		return nil, false, nil
	}
	return cached.Items, true, nil
}
