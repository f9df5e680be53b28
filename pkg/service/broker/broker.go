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

// Package broker fans notifications out to every consumer without letting a
// slow one hold up the rest.
package broker

import (
	"context"

	"github.com/Novattz/creamlinux-installer/pkg/api/models"
	"github.com/Novattz/creamlinux-installer/pkg/api/notifications"
	"github.com/Novattz/creamlinux-installer/pkg/helpers/syncutil"
	"github.com/rs/zerolog/log"
)

// Broker reads one notification source and copies each notification to all
// subscribers.
type Broker struct {
	ctx         context.Context
	source      <-chan models.Notification
	subscribers map[int]chan models.Notification
	done        chan struct{}
	dropped     map[int]int
	mu          syncutil.RWMutex
	nextID      int
}

func NewBroker(ctx context.Context, source <-chan models.Notification) *Broker {
	return &Broker{
		ctx:         ctx,
		source:      source,
		subscribers: make(map[int]chan models.Notification),
		dropped:     make(map[int]int),
		done:        make(chan struct{}),
	}
}

// Start runs the broadcast loop until the source closes or the context is
// cancelled. Subscriber channels are closed on exit.
func (b *Broker) Start() {
	go func() {
		defer close(b.done)
		for {
			select {
			case notif, ok := <-b.source:
				if !ok {
					log.Debug().Msg("broker: source closed")
					b.closeAllSubscribers()
					return
				}
				b.broadcast(notif)
			case <-b.ctx.Done():
				log.Debug().Msg("broker: context cancelled")
				b.closeAllSubscribers()
				return
			}
		}
	}()
}

// Done is closed once the broadcast loop has exited.
func (b *Broker) Done() <-chan struct{} {
	return b.done
}

func (b *Broker) broadcast(notif models.Notification) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		select {
		case ch <- notif:
		default:
			b.dropped[id]++
			ev := log.Debug()
			if notifications.IsCritical(notif.Method) {
				ev = log.Warn()
			}
			ev.Int("subscriber_id", id).
				Int("dropped", b.dropped[id]).
				Str("method", notif.Method).
				Msg("subscriber full, dropping notification")
		}
	}
}

// Subscribe registers a consumer. Notifications beyond bufferSize pending
// ones are dropped for that consumer only.
func (b *Broker) Subscribe(bufferSize int) (notifChan <-chan models.Notification, id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id = b.nextID
	b.nextID++

	ch := make(chan models.Notification, bufferSize)
	b.subscribers[id] = ch
	log.Debug().Int("subscriber_id", id).Int("buffer_size", bufferSize).Msg("new subscriber")

	return ch, id
}

// Unsubscribe closes a subscription. Repeated calls are no-ops.
func (b *Broker) Unsubscribe(id int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		delete(b.dropped, id)
		close(ch)
	}
}

// Dropped returns how many notifications a subscriber has missed.
func (b *Broker) Dropped(id int) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[id]
}

func (b *Broker) Stop() {
	b.closeAllSubscribers()
}

func (b *Broker) closeAllSubscribers() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, ch := range b.subscribers {
		close(ch)
		log.Debug().Int("subscriber_id", id).Msg("closed subscriber on shutdown")
	}
	b.subscribers = make(map[int]chan models.Notification)
	b.dropped = make(map[int]int)
}
