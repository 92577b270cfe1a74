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

// Package client implements the Client endpoint of spec §4.3: a transport
// handle, local/peer identity, the stream table, and the invariant that no
// payload is admitted outbound until registration succeeds.
package client

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	libatm "github.com/minkfabric/mink/atomic"
	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/transport"
	"github.com/minkfabric/mink/gdt/wire"
)

// Callbacks is the client-scoped handler table (spec §4.4): new-stream,
// terminated, reconnecting, idle, plus the heartbeat bookkeeping events
// that fire per client rather than per session.
type Callbacks struct {
	OnStreamNew         func(c *Client, s *stream.Stream, msg wire.Message)
	OnTerminated        func(c *Client)
	OnReconnecting      func(c *Client)
	OnIdle              func(c *Client)
	OnHeartbeatReceived func(c *Client)
	OnHeartbeatMissed   func(c *Client, missed uint32)
}

// Client is one transport association plus everything the multiplexer
// needs to drive it (spec §4.3 "Client endpoint").
type Client struct {
	tr     transport.Transport
	router bool

	mu    sync.RWMutex
	local wire.Endpoint
	peer  wire.Endpoint

	registered atomic.Bool
	streams    *stream.Table
	cb         Callbacks

	hbMissed *libatm.HeartbeatTally

	closeOnce sync.Once
	done      chan struct{}
}

// New constructs a Client around an already-established transport. The
// Client is not registered until MarkRegistered is called, per the
// invariant in spec §4.3 that no payload is admitted outbound before
// then.
func New(tr transport.Transport, local wire.Endpoint, router bool, counter *stream.Counter, cb Callbacks) *Client {
	return &Client{
		tr:       tr,
		router:   router,
		local:    local,
		cb:       cb,
		done:     make(chan struct{}),
		streams:  stream.NewTable(local.Type+"/"+local.ID, counter),
		hbMissed: libatm.NewHeartbeatTally(),
	}
}

// Key identifies the client by local identity for session bookkeeping
// before registration assigns a peer identity; after registration, Peer()
// is the identity that matters for routing.
func (c *Client) Key() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.local.Type + "/" + c.local.ID
}

// Peer returns the (type, id) learned from the registration handshake.
func (c *Client) Peer() wire.Endpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.peer
}

// Router reports whether this client was registered with the router flag
// set (spec §4.6: destination tables only admit router-flagged clients
// for onward routing).
func (c *Client) Router() bool { return c.router }

// Registered reports whether the registration handshake completed with
// status 0.
func (c *Client) Registered() bool { return c.registered.Load() }

// MarkRegistered transitions the client to registered with the peer
// identity from the REG_RESULT reply (spec §4.5). Returns false if the
// client was already registered (duplicate REG_RESULT is ignored).
func (c *Client) MarkRegistered(peer wire.Endpoint) bool {
	if !c.registered.CompareAndSwap(false, true) {
		return false
	}
	c.mu.Lock()
	c.peer = peer
	c.mu.Unlock()
	return true
}

// Open allocates a new outbound stream. Returns a gdt.ErrTransportDown
// error if the client is not yet registered (spec §4.3 invariant).
func (c *Client) Open(cb stream.Callbacks) (*stream.Stream, error) {
	if !c.Registered() {
		return nil, gdt.ErrTransportDown.Errorf("client %s is not registered: outbound streams are rejected", c.Key())
	}
	return c.streams.Open(cb), nil
}

// Send frames and transmits one message on an already-open stream,
// stamping its header MessageID from the stream id and firing
// payload-sent once the transport confirms the write (spec §4.4
// "payload-sent": "Outbound frame left the socket").
func (c *Client) Send(ctx context.Context, s *stream.Stream, kind wire.BodyKind, body []byte, sequenceEnd bool) error {
	if !c.Registered() && kind != wire.BodyRegistration {
		return gdt.ErrTransportDown.Errorf("client %s is not registered: outbound payload rejected", c.Key())
	}

	c.mu.RLock()
	local, peer := c.local, c.peer
	c.mu.RUnlock()

	msg := wire.Message{
		Header: wire.Header{
			Source:      local,
			Destination: peer,
			UUID:        uuid.New(),
			MessageID:   s.ID(),
			SequenceNum: s.Seq(),
			SequenceEnd: sequenceEnd,
		},
		Kind: kind,
		Body: body,
	}

	record := wire.EncodeMessage(msg)
	if err := c.tr.Send(ctx, record); err != nil {
		return gdt.ErrTransportSend.Errorf("%s", err.Error())
	}

	s.Sent(body)
	if sequenceEnd {
		s.End(stream.EndNormal, nil)
		c.streams.Remove(s.ID())
	}
	return nil
}

// ReadLoop blocks on inbound records until the transport closes or ctx is
// cancelled, dispatching each decoded message to its stream (stream-next)
// or, for an unknown id, firing stream-new. Meant to run on its own
// goroutine per spec §7's "transport connection owns two threads: one
// blocking on inbound records" scheduling model.
func (c *Client) ReadLoop(ctx context.Context, newStreamCallbacks func(kind wire.BodyKind) stream.Callbacks) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.done:
			return nil
		default:
		}

		record, err := c.tr.Recv(ctx)
		if err != nil {
			c.fireReconnecting()
			return gdt.ErrTransportDown.Errorf("%s", err.Error())
		}

		msg, err := wire.DecodeMessage(record)
		if err != nil {
			continue // malformed message aborts the in-progress message only (spec §4.1 error conditions)
		}

		s, isNew := c.streams.Accept(msg.Header.MessageID, newStreamCallbacks(msg.Kind))
		if isNew {
			if c.cb.OnStreamNew != nil {
				c.cb.OnStreamNew(c, s, msg)
			}
		} else {
			s.Next(msg.Body)
		}

		if msg.Header.SequenceEnd {
			s.End(stream.EndNormal, nil)
			c.streams.Remove(s.ID())
		}
	}
}

func (c *Client) fireReconnecting() {
	if c.cb.OnReconnecting != nil {
		c.cb.OnReconnecting(c)
	}
}

// HeartbeatDispatched increments the missed counter on dispatch (spec
// §4.7: "increment a missed counter on dispatch, decrement on reply").
func (c *Client) HeartbeatDispatched() uint32 {
	return c.hbMissed.Missed()
}

// HeartbeatReplied decrements the missed counter and fires
// hbeat-received.
func (c *Client) HeartbeatReplied() {
	c.hbMissed.Replied()
	if c.cb.OnHeartbeatReceived != nil {
		c.cb.OnHeartbeatReceived(c)
	}
}

// HeartbeatMissed reports the current missed counter and fires
// hbeat-missed.
func (c *Client) HeartbeatMissed() uint32 {
	missed := c.hbMissed.Count()
	if c.cb.OnHeartbeatMissed != nil {
		c.cb.OnHeartbeatMissed(c, missed)
	}
	return missed
}

// MissedHeartbeats reports the current missed-heartbeat tally without
// firing hbeat-missed, for a session-wide stats snapshot (spec §3's Stats
// message kind) that must not trip per-client callbacks on every poll.
func (c *Client) MissedHeartbeats() uint32 {
	return c.hbMissed.Count()
}

// PollTimeouts drives the stream table's 1 Hz timeout sweep (spec §4.4).
func (c *Client) PollTimeouts(interval time.Duration) {
	c.streams.PollTimeouts(interval)
}

// StreamTable exposes the live-stream table for session-level draining.
func (c *Client) StreamTable() *stream.Table { return c.streams }

// Terminate cancels every live stream, fires client-terminated, and
// closes the transport. Idempotent.
func (c *Client) Terminate() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.streams.Cancel()
		_ = c.tr.Close()
		if c.cb.OnTerminated != nil {
			c.cb.OnTerminated(c)
		}
	})
}
