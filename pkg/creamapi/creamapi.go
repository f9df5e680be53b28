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

// Package creamapi reads and writes cream_api.ini, the loader configuration
// of CreamLinux. Disabled DLC are kept in the file as "# <id> = <name>" so
// that the full catalog survives a round trip.
package creamapi

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/spf13/afero"
	"gopkg.in/ini.v1"
)

// FileName is the loader configuration written into the game directory.
const FileName = "cream_api.ini"

var ErrNotFound = errors.New("cream_api.ini not found")

const dlcSection = "dlc"

// Config is the parsed content of cream_api.ini.
type Config struct {
	AppID string
	DLCs  []models.CatalogItem
}

// Render produces a fresh cream_api.ini for an app.
func Render(appID string, items []models.CatalogItem) []byte {
	var b bytes.Buffer
	fmt.Fprintf(&b, "APPID = %s\n", appID)
	b.WriteString("[config]\n")
	b.WriteString("issubscribedapp_on_false_use_real = true\n")
	b.WriteString("[methods]\n")
	b.WriteString("disable_steamapps_issubscribedapp = false\n")
	b.WriteString("[dlc]\n")
	for _, item := range items {
		b.WriteString(entryLine(item))
		b.WriteByte('\n')
	}
	return b.Bytes()
}

func entryLine(item models.CatalogItem) string {
	if item.Enabled {
		return item.ID + " = " + item.Name
	}
	return "# " + item.ID + " = " + item.Name
}

type entry struct {
	id      string
	name    string
	enabled bool
}

// parseEntry reads one line of the [dlc] section. ";" lines are plain
// comments, "#" lines are disabled entries.
func parseEntry(line string) (entry, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, ";") {
		return entry{}, false
	}
	enabled := true
	if strings.HasPrefix(trimmed, "#") {
		enabled = false
		trimmed = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
	}
	id, name, ok := strings.Cut(trimmed, "=")
	if !ok {
		return entry{}, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return entry{}, false
	}
	return entry{
		id:      id,
		name:    strings.Trim(strings.TrimSpace(name), `"`),
		enabled: enabled,
	}, true
}

func isSectionHeader(trimmed string) (string, bool) {
	if strings.HasPrefix(trimmed, "[") && strings.HasSuffix(trimmed, "]") {
		return strings.TrimSpace(trimmed[1 : len(trimmed)-1]), true
	}
	return "", false
}

// Parse reads the app id and every DLC entry, enabled or not, in file
// order.
func Parse(data []byte) (*Config, error) {
	f, err := ini.LoadSources(ini.LoadOptions{
		IgnoreInlineComment: true,
		AllowBooleanKeys:    true,
	}, data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", FileName, err)
	}

	cfg := &Config{
		AppID: f.Section(ini.DefaultSection).Key("APPID").String(),
		DLCs:  []models.CatalogItem{},
	}
	enabled := f.Section(dlcSection)

	seen := make(map[string]struct{})
	inDLC := false
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		trimmed := strings.TrimSpace(sc.Text())
		if name, ok := isSectionHeader(trimmed); ok {
			inDLC = name == dlcSection
			continue
		}
		if !inDLC {
			continue
		}
		e, ok := parseEntry(trimmed)
		if !ok {
			continue
		}
		if _, dup := seen[e.id]; dup {
			continue
		}
		seen[e.id] = struct{}{}
		if e.enabled && enabled.HasKey(e.id) {
			e.name = enabled.Key(e.id).String()
		}
		cfg.DLCs = append(cfg.DLCs, models.CatalogItem{ID: e.id, Name: e.name, Enabled: e.enabled})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", FileName, err)
	}

	return cfg, nil
}

// Update rewrites the enabled state of known entries in place and appends
// new entries at the end of the [dlc] section. Everything else in the file
// is kept as it was.
func Update(data []byte, items []models.CatalogItem) []byte {
	states := make(map[string]models.CatalogItem, len(items))
	for _, item := range items {
		states[item.ID] = item
	}
	processed := make(map[string]struct{}, len(items))

	missing := func() []string {
		var add []string
		for _, item := range items {
			if _, ok := processed[item.ID]; ok {
				continue
			}
			processed[item.ID] = struct{}{}
			add = append(add, entryLine(item))
		}
		return add
	}

	text := string(data)
	trailingNewline := strings.HasSuffix(text, "\n")
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")

	out := make([]string, 0, len(lines)+len(items))
	inDLC := false
	sawDLC := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if name, ok := isSectionHeader(trimmed); ok {
			if inDLC {
				out = insertBeforeBlanks(out, missing())
			}
			inDLC = name == dlcSection
			sawDLC = sawDLC || inDLC
			out = append(out, line)
			continue
		}
		if !inDLC {
			out = append(out, line)
			continue
		}

		e, ok := parseEntry(line)
		if !ok {
			out = append(out, line)
			continue
		}
		item, known := states[e.id]
		if !known {
			out = append(out, line)
			continue
		}
		if _, dup := processed[e.id]; dup {
			continue
		}
		processed[e.id] = struct{}{}
		if item.Name == "" {
			item.Name = e.name
		}
		out = append(out, entryLine(item))
	}

	if !sawDLC {
		out = append(out, "[dlc]")
		inDLC = true
	}
	if inDLC {
		out = insertBeforeBlanks(out, missing())
	}

	result := strings.Join(out, "\n")
	if trailingNewline || !sawDLC {
		result += "\n"
	}
	return []byte(result)
}

// insertBeforeBlanks adds lines after the last non-blank line of out.
func insertBeforeBlanks(out, add []string) []string {
	if len(add) == 0 {
		return out
	}
	i := len(out)
	for i > 0 && strings.TrimSpace(out[i-1]) == "" {
		i--
	}
	tail := slices.Clone(out[i:])
	out = append(out[:i], add...)
	return append(out, tail...)
}

// Store reads and writes cream_api.ini through an afero filesystem.
type Store struct {
	fs afero.Fs
}

func NewStore(fs afero.Fs) *Store {
	return &Store{fs: fs}
}

// Path returns the location of cream_api.ini in a game directory.
func Path(gamePath string) string {
	return filepath.Join(gamePath, FileName)
}

// Read parses the cream_api.ini of a game. It returns ErrNotFound when the
// file does not exist.
func (s *Store) Read(gamePath string) (*Config, error) {
	data, err := afero.ReadFile(s.fs, Path(gamePath))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Parse(data)
}

// Content returns the cream_api.ini a game should have for items: the
// existing file with the new enabled set applied, or a fresh one for appID.
func (s *Store) Content(gamePath, appID string, items []models.CatalogItem) ([]byte, error) {
	data, err := afero.ReadFile(s.fs, Path(gamePath))
	if errors.Is(err, os.ErrNotExist) {
		return Render(appID, items), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", FileName, err)
	}
	return Update(data, items), nil
}
