/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package heartbeat implements the per-client periodic probe of spec
// §4.7: every interval, send a heartbeat service message, increment a
// missed counter on dispatch, decrement on reply. When the counter reaches
// threshold the monitor fires hbeat-missed and terminates the client
// (client-terminated); it does not fire the client's reconnecting callback.
package heartbeat

import (
	"context"
	"time"

	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/wire"
)

// Monitor drives one client's heartbeat loop.
type Monitor struct {
	c         *client.Client
	interval  time.Duration
	threshold uint32
}

// New builds a heartbeat monitor for a registered client.
func New(c *client.Client, interval time.Duration, threshold uint32) *Monitor {
	return &Monitor{c: c, interval: interval, threshold: threshold}
}

// Run blocks, dispatching a heartbeat every interval until ctx is
// cancelled. Call it on its own goroutine per client (spec §7's "timer
// thread per session... drives heartbeats" — one Monitor per client keeps
// the dispatch loop scoped to the client it measures).
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Dispatch(ctx)
		}
	}
}

// Dispatch runs one heartbeat cycle: increments the missed counter,
// terminates the client once threshold is reached, otherwise sends a
// heartbeat service message on a fresh stream. Exposed so callers (and
// tests) can drive a cycle without waiting on the ticker.
func (m *Monitor) Dispatch(ctx context.Context) {
	missed := m.c.HeartbeatDispatched()
	if missed >= m.threshold {
		m.c.HeartbeatMissed()
		m.c.Terminate()
		return
	}

	s, err := m.c.Open(stream.Callbacks{
		OnEnd: func(s *stream.Stream, reason stream.EndReason, err error) {
			if reason == stream.EndNormal {
				m.c.HeartbeatReplied()
			}
		},
	})
	if err != nil {
		return
	}
	_ = m.c.Send(ctx, s, wire.BodyGDT, nil, false)
}
