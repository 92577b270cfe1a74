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

package atomic

import "sync/atomic"

// HeartbeatTally is the per-client missed-heartbeat counter gdt/client
// and gdt/heartbeat share: incremented on dispatch, decremented (never
// below zero) on reply (spec §4.7: "increment a missed counter on
// dispatch, decrement on reply").
type HeartbeatTally struct {
	v atomic.Uint32
}

// NewHeartbeatTally returns a HeartbeatTally starting at zero missed.
func NewHeartbeatTally() *HeartbeatTally {
	return &HeartbeatTally{}
}

// Missed increments the tally on dispatch and returns the new count.
func (h *HeartbeatTally) Missed() uint32 {
	return h.v.Add(1)
}

// Replied decrements the tally on a reply, never going below zero.
func (h *HeartbeatTally) Replied() {
	for {
		cur := h.v.Load()
		if cur == 0 {
			return
		}
		if h.v.CompareAndSwap(cur, cur-1) {
			return
		}
	}
}

// Count reports the current missed-heartbeat tally.
func (h *HeartbeatTally) Count() uint32 {
	return h.v.Load()
}

// Exceeds reports whether the tally has reached or passed threshold —
// gdt/heartbeat's Monitor.Dispatch terminates a client once missed
// replies reach this point.
func (h *HeartbeatTally) Exceeds(threshold uint32) bool {
	return h.v.Load() >= threshold
}
