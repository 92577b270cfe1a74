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
)

// Stream is one correlated exchange sharing a 64-bit id (spec §4.4):
// unidirectional (one request, one END) or streaming (many continue, one
// END). The owning client is identified by an opaque string rather than a
// back-pointer to *client.Client, which would cycle-import this package.
type Stream struct {
	mu sync.Mutex

	id       uint64
	clientID string
	seq      uint32
	lastBusy time.Time
	terminal bool
	cb       Callbacks
}

func newStream(id uint64, clientID string, cb Callbacks) *Stream {
	return &Stream{
		id:       id,
		clientID: clientID,
		lastBusy: time.Now(),
		cb:       cb,
	}
}

// ID returns the stream's 64-bit correlation id.
func (s *Stream) ID() uint64 { return s.id }

// ClientID returns the owning client's identity key.
func (s *Stream) ClientID() string { return s.clientID }

// Seq returns the number of frames observed on the stream so far.
func (s *Stream) Seq() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seq
}

// Terminal reports whether END or TIMEOUT has already fired.
func (s *Stream) Terminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.terminal
}

// touch records activity and returns the sequence number assigned to it.
func (s *Stream) touch() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastBusy = time.Now()
	s.seq++
	return s.seq
}

func (s *Stream) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastBusy)
}

func (s *Stream) markTerminal() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.terminal {
		return false
	}
	s.terminal = true
	return true
}

// Next records an inbound or outbound continuation frame and fires
// OnNext. Ordering guarantee (spec §4.4): callbacks on one stream are
// strictly ordered, so Next must be called from a single goroutine per
// stream (the client's inbound-reader or the caller driving an outbound
// dialogue).
func (s *Stream) Next(msg []byte) {
	s.touch()
	if s.cb.OnNext != nil {
		s.cb.OnNext(s, msg)
	}
}

// End marks the stream terminal and fires OnEnd exactly once. A second
// call is a no-op, matching the "destroyed when END or TIMEOUT fires"
// lifecycle rule — only the first caller observes the transition.
func (s *Stream) End(reason EndReason, err error) {
	if !s.markTerminal() {
		return
	}
	if s.cb.OnEnd != nil {
		s.cb.OnEnd(s, reason, err)
	}
}

// Sent fires OnPayloadSent for an outbound frame that left the socket,
// ordered with respect to the send that caused it.
func (s *Stream) Sent(msg []byte) {
	if s.cb.OnPayloadSent != nil {
		s.cb.OnPayloadSent(s, msg)
	}
}

func (s *Stream) fireTimeout() {
	if s.cb.OnTimeout != nil {
		s.cb.OnTimeout(s)
	}
}
