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

package telemetry

import (
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePath(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: "",
		},
		{
			name:     "no username in path",
			input:    "/usr/local/bin/creamlinux",
			expected: "/usr/local/bin/creamlinux",
		},
		{
			name:     "steam library in home",
			input:    "/home/deck/.local/share/Steam/steamapps/common/Portal 2/cream_api.ini",
			expected: "/home/<user>/.local/share/Steam/steamapps/common/Portal 2/cream_api.ini",
		},
		{
			name:     "home path uppercase",
			input:    "/Home/Deck/games",
			expected: "/home/<user>/games",
		},
		{
			name:     "removable media",
			input:    "/run/media/deck/SD/steamapps/common",
			expected: "/run/media/<user>/SD/steamapps/common",
		},
		{
			name:     "multiple paths in message",
			input:    "copying /home/alice/src to /home/bob/dst",
			expected: "copying /home/<user>/src to /home/<user>/dst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, sanitizePath(tt.input))
		})
	}
}

func TestSanitizeEvent(t *testing.T) {
	t.Parallel()

	event := &sentry.Event{
		ServerName: "steamdeck",
		Message:    "failed to write /home/deck/game/cream_api.ini",
		User:       sentry.User{Username: "deck"},
		Extra:      map[string]any{"path": "/home/deck/game", "count": 3},
		Exception: []sentry.Exception{{
			Value: "open /home/deck/x: permission denied",
			Stacktrace: &sentry.Stacktrace{Frames: []sentry.Frame{{
				AbsPath:  "/home/dev/src/creamlinux/pkg/jobs/runner.go",
				Filename: "pkg/jobs/runner.go",
			}}},
		}},
	}

	got := sanitizeEvent(event)
	require.NotNil(t, got)
	assert.Empty(t, got.ServerName)
	assert.Empty(t, got.User.Username)
	assert.Equal(t, "failed to write /home/<user>/game/cream_api.ini", got.Message)
	assert.Equal(t, "/home/<user>/game", got.Extra["path"])
	assert.Equal(t, 3, got.Extra["count"])
	assert.Equal(t, "open /home/<user>/x: permission denied", got.Exception[0].Value)
	assert.Equal(t, "/home/<user>/src/creamlinux/pkg/jobs/runner.go", got.Exception[0].Stacktrace.Frames[0].AbsPath)
}

func TestInitDisabled(t *testing.T) {
	t.Parallel()

	require.NoError(t, Init("", true, "1.0.0"))
	require.NoError(t, Init("https://key@example.invalid/1", false, "1.0.0"))
	assert.False(t, Enabled())

	// no-ops while disabled
	Flush()
	Close()
}
