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
	"encoding/json"
	"time"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/rs/zerolog/log"
)

// criticalNotifications are state changes a client cannot recover from
// missing. Progress events are high volume and superseded by the next one.
var criticalNotifications = map[string]bool{
	models.NotificationGameUpdated:      true,
	models.NotificationDLCError:         true,
	models.NotificationPlatformConflict: true,
	models.NotificationUnlockersUpdated: true,
}

// IsCritical reports whether dropping a notification of this method leaves a
// client with stale state.
func IsCritical(method string) bool {
	return criticalNotifications[method]
}

// terminalWait bounds how long the final installation-progress of a job
// waits for room in a full channel before it is dropped.
const terminalWait = 2 * time.Second

// sendNotification never blocks. A full channel drops the notification.
func sendNotification(ns chan<- models.Notification, method string, payload any) {
	send(ns, method, payload, 0)
}

// send delivers a notification, waiting up to wait for room in ns.
func send(ns chan<- models.Notification, method string, payload any, wait time.Duration) {
	var params json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			log.Error().Err(err).Str("method", method).Msg("error marshalling notification params")
			return
		}
		params = data
	}

	n := models.Notification{Method: method, Params: params}
	select {
	case ns <- n:
		return
	default:
	}
	if wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case ns <- n:
			return
		case <-timer.C:
		}
		log.Warn().Str("method", method).Dur("wait", wait).Msg("notification channel full, dropping final notification")
		return
	}

	if criticalNotifications[method] {
		log.Warn().Str("method", method).Msg("notification channel full, dropping critical notification")
	} else {
		log.Debug().Str("method", method).Msg("notification channel full, dropping notification")
	}
}

func ScanProgress(ns chan<- models.Notification, payload models.ScanProgressResponse) {
	sendNotification(ns, models.NotificationScanProgress, payload)
}

func GameUpdated(ns chan<- models.Notification, payload models.Target) {
	sendNotification(ns, models.NotificationGameUpdated, payload)
}

// InstallationProgress sends a job step. The final event of a job, marked
// Complete, waits for room instead of being dropped straight away.
func InstallationProgress(ns chan<- models.Notification, payload models.InstallationProgressResponse) {
	if payload.Complete {
		send(ns, models.NotificationInstallationProgress, payload, terminalWait)
		return
	}
	sendNotification(ns, models.NotificationInstallationProgress, payload)
}

func DLCFound(ns chan<- models.Notification, payload models.DLCFoundResponse) {
	sendNotification(ns, models.NotificationDLCFound, payload)
}

func DLCProgress(ns chan<- models.Notification, payload models.DLCProgressResponse) {
	sendNotification(ns, models.NotificationDLCProgress, payload)
}

func DLCError(ns chan<- models.Notification, payload models.DLCErrorResponse) {
	sendNotification(ns, models.NotificationDLCError, payload)
}

func PlatformConflict(ns chan<- models.Notification, payload models.Conflict) {
	sendNotification(ns, models.NotificationPlatformConflict, payload)
}

func UnlockersUpdated(ns chan<- models.Notification, payload models.UnlockersUpdatedResponse) {
	sendNotification(ns, models.NotificationUnlockersUpdated, payload)
}
