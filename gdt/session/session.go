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

// Package session implements the Session of spec §4.3: listen/connect/stop
// and the session-scoped event callbacks (client-new, client-terminated,
// client-reconnecting, stream-new), driving the registration handshake of
// §4.5 over gdt/client and admitting registered peers into the gdt/route
// weighted round-robin table.
//
// The original's process-wide current-daemon singleton is replaced per the
// redesign flag in spec §9: callers thread an explicit
// context.Config[string] daemon handle through Session rather than reading
// a global.
package session

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	libctx "github.com/minkfabric/mink/context"
	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/heartbeat"
	"github.com/minkfabric/mink/gdt/route"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/transport"
	"github.com/minkfabric/mink/gdt/wire"
)

// Callbacks is the session-scoped handler table (spec §4.3
// register_callback's event set: client-new, client-terminated,
// client-reconnecting, stream-new). Every field is optional.
type Callbacks struct {
	OnClientNew          func(c *client.Client)
	OnClientTerminated   func(c *client.Client)
	OnClientReconnecting func(c *client.Client)
	OnStreamNew          func(c *client.Client, s *stream.Stream, msg wire.Message)
}

// Session owns every Client accepted or connected under one local identity,
// the shared stream-id counter and routing table, and the registration
// handshake that admits a transport association as a Client.
type Session struct {
	local wire.Endpoint
	ctx   libctx.Config[string]

	counter *stream.Counter
	routes  *route.Table

	hbInterval  time.Duration
	hbThreshold uint32

	mu         sync.RWMutex
	cb         Callbacks
	registry   map[string]*client.Client
	monitorEnd map[string]context.CancelFunc

	listenerMu sync.Mutex
	listeners  []transport.Listener

	streamsTotal atomic.Uint64

	wg       sync.WaitGroup
	draining bool
}

// New constructs a Session for local identity local (this daemon's own
// type/id). ctxCfg is the explicit daemon context handle, held by the
// Session and returned by Context in place of the original's global
// pointer (spec §9); no callback receives it as an argument. routes
// may be nil if this daemon never forwards traffic.
func New(local wire.Endpoint, ctxCfg libctx.Config[string], routes *route.Table, cb Callbacks, hbInterval time.Duration, hbThreshold uint32) *Session {
	if routes == nil {
		routes = route.New()
	}
	return &Session{
		local:       local,
		ctx:         ctxCfg,
		counter:     stream.NewCounter(),
		routes:      routes,
		hbInterval:  hbInterval,
		hbThreshold: hbThreshold,
		cb:          cb,
		registry:    make(map[string]*client.Client),
		monitorEnd:  make(map[string]context.CancelFunc),
	}
}

// Context returns the session's daemon context handle.
func (s *Session) Context() libctx.Config[string] { return s.ctx }

// Routes returns the session's shared routing table.
func (s *Session) Routes() *route.Table { return s.routes }

// Clients returns a snapshot of every currently-registered client, for a
// daemon's own 1 Hz timer goroutine to drive per-client stream-timeout
// polling (spec §5: "a 1 Hz timer goroutine per session for stream
// timeouts and heartbeats" — heartbeats are already driven per client by
// admit's Monitor; stream-timeout polling is the caller's loop).
func (s *Session) Clients() []*client.Client {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*client.Client, 0, len(s.registry))
	for _, c := range s.registry {
		out = append(out, c)
	}
	return out
}

// StreamsOpen reports the number of streams currently live across every
// registered client, for a GDT_STATS reply (spec §3's Stats message kind).
func (s *Session) StreamsOpen() int {
	return s.liveStreamCount()
}

// StreamsTotal reports the number of streams ever recognized by this
// session (registration included), incremented once per stream the first
// time any client's ReadLoop sees it.
func (s *Session) StreamsTotal() uint64 {
	return s.streamsTotal.Load()
}

// HeartbeatMissTotal sums the current missed-heartbeat tally across every
// registered client.
func (s *Session) HeartbeatMissTotal() uint32 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total uint32
	for _, c := range s.registry {
		total += c.MissedHeartbeats()
	}
	return total
}

// RegisterCallback attaches a session-level handler for one event (spec
// §4.3 "register_callback(event, handler)"). handler must match the field
// type for the given event; a mismatched type is a no-op.
func (s *Session) RegisterCallback(event stream.Event, handler any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event {
	case stream.EventClientNew:
		if h, ok := handler.(func(*client.Client)); ok {
			s.cb.OnClientNew = h
		}
	case stream.EventClientTerminated:
		if h, ok := handler.(func(*client.Client)); ok {
			s.cb.OnClientTerminated = h
		}
	case stream.EventClientReconnecting:
		if h, ok := handler.(func(*client.Client)); ok {
			s.cb.OnClientReconnecting = h
		}
	case stream.EventStreamNew:
		if h, ok := handler.(func(*client.Client, *stream.Stream, wire.Message)); ok {
			s.cb.OnStreamNew = h
		}
	}
}

func registryKey(ep wire.Endpoint, router bool) string {
	return fmt.Sprintf("%s/%s/router=%v", ep.Type, ep.ID, router)
}

// Listen opens a passive transport; every accepted peer becomes an
// unregistered Client awaiting the registration handshake (spec §4.3
// "listen(bind-spec)"). Blocks until ctx is cancelled or the listener
// errors; run on its own goroutine.
func (s *Session) Listen(ctx context.Context, ln transport.Listener) error {
	s.listenerMu.Lock()
	s.listeners = append(s.listeners, ln)
	s.listenerMu.Unlock()

	for {
		tr, err := ln.Accept(ctx)
		if err != nil {
			return err
		}
		s.wg.Add(1)
		go s.acceptClient(ctx, tr)
	}
}

// acceptClient wraps a freshly-accepted transport in an unregistered
// Client and drives its ReadLoop, expecting the first stream to carry a
// REG_REQUEST (spec §4.5).
func (s *Session) acceptClient(ctx context.Context, tr transport.Transport) {
	defer s.wg.Done()

	c := s.newClient(tr, false)
	_ = c.ReadLoop(ctx, s.newStreamCallbacksFor(c))
}

// Connect opens an active transport handshake: sends REG_REQUEST on a
// fresh stream, blocks for REG_RESULT, and returns the registered Client
// or the handshake failure (spec §4.3 "connect(...)" and §4.5 failure
// modes: timeout, missing fields, conflicting registration).
func (s *Session) Connect(ctx context.Context, tr transport.Transport, router bool) (*client.Client, error) {
	c := s.newClient(tr, router)

	go func() { _ = c.ReadLoop(ctx, s.newStreamCallbacksFor(c)) }()

	type result struct {
		peer wire.Endpoint
		err  error
	}
	done := make(chan result, 1)

	st := c.StreamTable().Open(stream.Callbacks{
		OnNext: func(st *stream.Stream, msg []byte) {
			reply, err := wire.DecodeRegistration(msg)
			if err != nil {
				done <- result{err: err}
				return
			}
			if reply.Status != 0 {
				done <- result{err: gdt.ErrRegistrationMissingFields.Errorf("registration rejected: status %d", reply.Status)}
				return
			}
			peer := wire.Endpoint{Type: reply.DaemonType, ID: reply.DaemonID}
			c.MarkRegistered(peer)
			done <- result{peer: peer}
		},
		OnEnd: func(st *stream.Stream, reason stream.EndReason, err error) {
			if reason != stream.EndNormal {
				select {
				case done <- result{err: gdt.ErrRegistrationTimeout.Errorf("registration stream ended before a reply arrived")}:
				default:
				}
			}
		},
	})

	body := wire.EncodeRegistration(wire.RegistrationMessage{
		Action:     wire.RegRequest,
		DaemonType: s.local.Type,
		DaemonID:   s.local.ID,
		Router:     router,
	})
	if err := c.Send(ctx, st, wire.BodyRegistration, body, false); err != nil {
		return nil, err
	}

	select {
	case res := <-done:
		if res.err != nil {
			c.Terminate()
			return nil, res.err
		}
		s.admit(c, res.peer, router)
		return c, nil
	case <-ctx.Done():
		c.Terminate()
		return nil, gdt.ErrRegistrationTimeout.Errorf("registration handshake timed out")
	}
}

func (s *Session) newClient(tr transport.Transport, router bool) *client.Client {
	return client.New(tr, s.local, router, s.counter, client.Callbacks{
		OnTerminated: func(cc *client.Client) {
			s.forget(cc)
			s.mu.RLock()
			h := s.cb.OnClientTerminated
			s.mu.RUnlock()
			if h != nil {
				h(cc)
			}
		},
		OnReconnecting: func(cc *client.Client) {
			s.mu.RLock()
			h := s.cb.OnClientReconnecting
			s.mu.RUnlock()
			if h != nil {
				h(cc)
			}
		},
		OnStreamNew: func(cc *client.Client, st *stream.Stream, msg wire.Message) {
			s.streamsTotal.Add(1)

			if msg.Kind == wire.BodyRegistration {
				s.handleRegRequest(cc, st, msg)
				return
			}
			if msg.Kind == wire.BodyStats {
				s.handleStatsRequest(cc, st)
				return
			}
			s.mu.RLock()
			h := s.cb.OnStreamNew
			s.mu.RUnlock()
			if h != nil {
				h(cc, st, msg)
			}
		},
	})
}

// newStreamCallbacksFor returns the per-kind default Callbacks for a brand
// new inbound stream. Registration's own reply-correlation is wired
// through OnStreamNew above, since registration always arrives as an
// unknown id; ordinary service/config traffic gets no special per-stream
// behavior here; handlers attach via the stream returned from
// OnStreamNew/OnTerminated instead.
func (s *Session) newStreamCallbacksFor(c *client.Client) func(wire.BodyKind) stream.Callbacks {
	return func(kind wire.BodyKind) stream.Callbacks {
		return stream.Callbacks{}
	}
}

// handleStatsRequest replies to an inbound GDT-native stats request with a
// snapshot of this session's counters (spec §3's Stats message kind),
// letting a peer poll a node's health without scraping the Prometheus
// /metrics endpoint (original_source/src/services/stats/gdttrapc.cpp's
// role as a GDT-native stats collector).
func (s *Session) handleStatsRequest(c *client.Client, st *stream.Stream) {
	stats := wire.StatsMessage{
		StreamsOpen:   uint32(s.StreamsOpen()),
		StreamsTotal:  s.StreamsTotal(),
		HeartbeatMiss: s.HeartbeatMissTotal(),
	}
	_ = c.Send(context.Background(), st, wire.BodyStats, wire.EncodeStats(stats), true)
}

// handleRegRequest processes an inbound REG_REQUEST, replying with
// REG_RESULT and admitting the peer on success (spec §4.5).
func (s *Session) handleRegRequest(c *client.Client, st *stream.Stream, msg wire.Message) {
	req, err := wire.DecodeRegistration(msg.Body)
	if err != nil {
		c.Terminate()
		return
	}

	peer := wire.Endpoint{Type: req.DaemonType, ID: req.DaemonID}
	key := registryKey(peer, req.Router)

	s.mu.Lock()
	_, dup := s.registry[key]
	s.mu.Unlock()
	if dup {
		// Conflicting (type,id) of an already-registered peer: disconnect
		// the newer association (spec §4.5 failure mode).
		c.Terminate()
		return
	}

	c.MarkRegistered(peer)
	s.admit(c, peer, req.Router)

	reply := wire.EncodeRegistration(wire.RegistrationMessage{
		Action:     wire.RegResult,
		DaemonType: s.local.Type,
		DaemonID:   s.local.ID,
		Router:     req.Router,
		Status:     0,
	})
	_ = c.Send(context.Background(), st, wire.BodyRegistration, reply, true)
}

// admit records a freshly-registered client in the session registry, wires
// it into the routing table if router-flagged, starts its heartbeat
// monitor, and fires client-new (spec §4.5 "if the local session has a
// routing handler, the new client is inserted into every applicable
// destination-type table with the default weight").
func (s *Session) admit(c *client.Client, peer wire.Endpoint, router bool) {
	key := registryKey(peer, router)

	s.mu.Lock()
	s.registry[key] = c
	if s.hbInterval > 0 {
		hbCtx, cancel := context.WithCancel(context.Background())
		s.monitorEnd[key] = cancel
		mon := heartbeat.New(c, s.hbInterval, s.hbThreshold)
		go mon.Run(hbCtx)
	}
	h := s.cb.OnClientNew
	s.mu.Unlock()

	if router {
		s.routes.AddNode(peer.Type, peer.ID, c, defaultWeight)
	}
	if h != nil {
		h(c)
	}
}

// defaultWeight is the WRR weight a newly-admitted router client receives
// (spec §4.5 "with the default weight"); callers adjust it afterward via
// Routes().UpdateClient.
const defaultWeight = 1

func (s *Session) forget(c *client.Client) {
	s.mu.Lock()
	for key, existing := range s.registry {
		if existing == c {
			delete(s.registry, key)
			if cancel, ok := s.monitorEnd[key]; ok {
				cancel()
				delete(s.monitorEnd, key)
			}
		}
	}
	s.mu.Unlock()

	peer := c.Peer()
	if peer.Type != "" {
		s.routes.RemoveNode(peer.Type, peer.ID)
	}
}

// Stop idempotently drains the session (spec §4.3 "stop()"): closes every
// listener, then waits up to grace for in-flight streams on every
// registered client to finish before terminating them.
func (s *Session) Stop(grace time.Duration) {
	s.mu.Lock()
	if s.draining {
		s.mu.Unlock()
		return
	}
	s.draining = true
	s.mu.Unlock()

	s.listenerMu.Lock()
	for _, ln := range s.listeners {
		_ = ln.Close()
	}
	s.listenerMu.Unlock()

	deadline := time.Now().Add(grace)
	for time.Now().Before(deadline) {
		if s.liveStreamCount() == 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	s.mu.RLock()
	clients := make([]*client.Client, 0, len(s.registry))
	for _, c := range s.registry {
		clients = append(clients, c)
	}
	s.mu.RUnlock()

	for _, c := range clients {
		c.Terminate()
	}
	s.wg.Wait()
}

func (s *Session) liveStreamCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := 0
	for _, c := range s.registry {
		total += c.StreamTable().Len()
	}
	return total
}
