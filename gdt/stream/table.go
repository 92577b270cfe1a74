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

package stream

import (
	"sync"
	"time"

	libatm "github.com/minkfabric/mink/atomic"
)

// Counter is the session-global id source: monotonically increasing,
// never issuing zero (spec's testable property "ID uniqueness"). One
// Counter is shared by every client Table in a session. It is a thin
// domain-named wrapper around atomic.Sequence, which owns the actual
// skip-zero compare-and-swap loop.
type Counter struct {
	seq *libatm.Sequence
}

// NewCounter returns a counter starting just before 1.
func NewCounter() *Counter {
	return &Counter{seq: libatm.NewSequence()}
}

// Next returns the next id, skipping zero on wraparound.
func (c *Counter) Next() uint64 {
	return c.seq.Next()
}

// Table is the per-client live-stream map keyed by id (spec §4.4).
type Table struct {
	mu       sync.RWMutex
	streams  map[uint64]*Stream
	counter  *Counter
	clientID string
}

// NewTable allocates a stream table for one client, drawing ids from the
// session-wide counter.
func NewTable(clientID string, counter *Counter) *Table {
	return &Table{
		streams:  make(map[uint64]*Stream),
		counter:  counter,
		clientID: clientID,
	}
}

// Open allocates a new outbound stream (§4.4: "allocated from a pool when
// an outbound send begins").
func (t *Table) Open(cb Callbacks) *Stream {
	id := t.counter.Next()
	s := newStream(id, t.clientID, cb)

	t.mu.Lock()
	t.streams[id] = s
	t.mu.Unlock()
	return s
}

// Accept registers an inbound message whose id is unknown, firing
// stream-new semantics at the call site (the Client does the actual
// stream-new dispatch since it alone knows the message body; Accept only
// performs the table bookkeeping).
func (t *Table) Accept(id uint64, cb Callbacks) (s *Stream, isNew bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.streams[id]; ok {
		return existing, false
	}
	s = newStream(id, t.clientID, cb)
	t.streams[id] = s
	return s, true
}

// Get looks up a live stream by id.
func (t *Table) Get(id uint64) (*Stream, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.streams[id]
	return s, ok
}

// Remove drops a stream from the table. Called once a terminal callback
// has returned (§4.3: "destroyed when END or TIMEOUT fires and all
// callbacks have returned").
func (t *Table) Remove(id uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.streams, id)
}

// Len reports the number of live streams, used for drain-wait bookkeeping
// in session stop().
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.streams)
}

// Cancel ends every live stream with EndCancelled, dropping pending
// outbound frames implicitly (callers must not re-queue after Cancel).
// Used when a client disconnects or the session drains (spec §4.4
// "Cancellation").
func (t *Table) Cancel() {
	t.mu.Lock()
	victims := make([]*Stream, 0, len(t.streams))
	for _, s := range t.streams {
		victims = append(victims, s)
	}
	t.streams = make(map[uint64]*Stream)
	t.mu.Unlock()

	for _, s := range victims {
		s.End(EndCancelled, nil)
	}
}

// PollTimeouts is driven by the session's 1 Hz timer thread (spec §4.4:
// "Timeouts are polled at 1 Hz against each stream's last_activity"). Any
// stream idle longer than interval fires stream-timeout and is removed.
func (t *Table) PollTimeouts(interval time.Duration) {
	now := time.Now()

	t.mu.RLock()
	var expired []*Stream
	for _, s := range t.streams {
		if !s.Terminal() && s.idleSince(now) >= interval {
			expired = append(expired, s)
		}
	}
	t.mu.RUnlock()

	for _, s := range expired {
		if s.markTerminal() {
			s.fireTimeout()
			t.Remove(s.id)
		}
	}
}
