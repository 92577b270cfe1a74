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

package pool

import "fmt"

// Ring is a single-producer-single-consumer ring buffer of fixed
// power-of-two capacity, used for cross-goroutine handoff between a
// client's outbound-drain goroutine and whatever produces frames for it
// (spec §4.2, §5). A buffered channel already gives Go the same handoff
// semantics as the source's lock-free SPSC queue; Ring wraps one so
// transport code gets an explicit power-of-two-capacity constructor and a
// Len() health check instead of reaching for channel internals directly.
type Ring[T any] struct {
	ch chan T
}

// NewRing allocates a ring buffer. capacity must be a power of two,
// matching the source's spscq.h sizing discipline.
func NewRing[T any](capacity int) (*Ring[T], error) {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		return nil, fmt.Errorf("pool: ring capacity %d is not a power of two", capacity)
	}
	return &Ring[T]{ch: make(chan T, capacity)}, nil
}

// Push enqueues an item, blocking only if the ring is full. Returns false
// if done is closed before the push completes.
func (r *Ring[T]) Push(item T, done <-chan struct{}) bool {
	select {
	case r.ch <- item:
		return true
	case <-done:
		return false
	}
}

// TryPush enqueues without blocking; returns false if the ring is full.
func (r *Ring[T]) TryPush(item T) bool {
	select {
	case r.ch <- item:
		return true
	default:
		return false
	}
}

// Pop dequeues an item, blocking until one is available or done closes.
func (r *Ring[T]) Pop(done <-chan struct{}) (T, bool) {
	select {
	case v := <-r.ch:
		return v, true
	case <-done:
		var zero T
		return zero, false
	}
}

// Len reports the number of items currently queued.
func (r *Ring[T]) Len() int {
	return len(r.ch)
}

// Cap reports the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return cap(r.ch)
}
