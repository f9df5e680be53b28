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

package notifications

import (
	"testing"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendNotification_NonBlocking(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification)

	done := make(chan struct{})
	go func() {
		GameUpdated(ns, models.Target{ID: "620"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("sendNotification blocked on unbuffered channel")
	}
}

func TestSendNotification_DropsWhenFull(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ns <- models.Notification{Method: "prefill"}

	done := make(chan struct{})
	go func() {
		for range 10 {
			DLCProgress(ns, models.DLCProgressResponse{GameID: "620", Progress: 50})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("sendNotification blocked when channel was full")
	}

	msg := <-ns
	assert.Equal(t, "prefill", msg.Method)
	assert.Empty(t, ns)
}

func TestInstallationProgress_FinalEventWaitsForRoom(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	ns <- models.Notification{Method: "prefill"}

	// step events are still dropped on a full channel
	InstallationProgress(ns, models.InstallationProgressResponse{GameID: "620", Step: "transferring", Progress: 30})

	done := make(chan struct{})
	go func() {
		InstallationProgress(ns, models.InstallationProgressResponse{
			GameID:   "620",
			Step:     "error",
			Message:  "Error: download failed",
			Complete: true,
		})
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, "prefill", (<-ns).Method)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("final installation-progress was not delivered")
	}
	n := <-ns
	assert.Equal(t, models.NotificationInstallationProgress, n.Method)
	assert.Contains(t, string(n.Params), `"complete":true`)
	assert.Contains(t, string(n.Params), `"step":"error"`)
	assert.Empty(t, ns)
}

func TestInstallationProgress_Payload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	InstallationProgress(ns, models.InstallationProgressResponse{
		GameID:   "620",
		Title:    "Installing CreamLinux",
		Message:  "Done",
		Progress: 100,
		Complete: true,
		Instructions: &models.Instructions{
			Type:    "cream_install",
			Command: "sh ./cream.sh %command%",
		},
	})

	n := <-ns
	assert.Equal(t, models.NotificationInstallationProgress, n.Method)
	params := string(n.Params)
	assert.Contains(t, params, `"complete":true`)
	assert.Contains(t, params, `"show_instructions":false`)
	assert.Contains(t, params, `"type":"cream_install"`)
}

func TestDLCFound_FlattensItem(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	DLCFound(ns, models.DLCFoundResponse{
		GameID:      "620",
		CatalogItem: models.CatalogItem{ID: "1001", Name: "Expansion"},
	})

	n := <-ns
	assert.JSONEq(t, `{"game_id":"620","appid":"1001","name":"Expansion","enabled":false}`, string(n.Params))
}

func TestDLCProgress_OmitsTimeLeft(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 2)
	DLCProgress(ns, models.DLCProgressResponse{GameID: "620", Message: "Looking up game details...", Progress: 5})
	left := "~3 seconds"
	DLCProgress(ns, models.DLCProgressResponse{GameID: "620", Progress: 40, TimeLeft: &left})

	first := <-ns
	assert.NotContains(t, string(first.Params), "timeLeft")
	second := <-ns
	assert.Contains(t, string(second.Params), `"timeLeft":"~3 seconds"`)
}

func TestCriticalNotifications(t *testing.T) {
	t.Parallel()

	for _, method := range []string{
		models.NotificationGameUpdated,
		models.NotificationPlatformConflict,
		models.NotificationDLCError,
	} {
		assert.True(t, criticalNotifications[method], method)
	}
	assert.False(t, criticalNotifications[models.NotificationDLCProgress])
	assert.False(t, criticalNotifications[models.NotificationScanProgress])
}

func TestPlatformConflict_Payload(t *testing.T) {
	t.Parallel()

	ns := make(chan models.Notification, 1)
	PlatformConflict(ns, models.Conflict{TargetID: "620", Title: "Portal 2", Kind: models.ConflictCreamButCompat})

	n := <-ns
	require.NotNil(t, n.Params)
	assert.JSONEq(t, `{"game_id":"620","game_title":"Portal 2","conflict_type":"cream-to-proton"}`, string(n.Params))
}
