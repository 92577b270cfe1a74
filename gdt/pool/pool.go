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

// Package pool implements the two fixed-capacity pools from spec §4.2
// (schema-node clones used as linked overlays, TLV descriptors) plus a
// single-producer-single-consumer ring buffer for transport queue handoff.
//
// Both fixed pools share the "oldest wins" wraparound documented in
// original_source/src/include/pool.h's circular free list: on exhaustion,
// the allocator does not block or error — it overwrites the oldest live
// entry. A hard cap (New's hardCap option) is offered per the Open Question in spec §9,
// since the source leaves the in-flight upper bound undocumented.
package pool

import (
	"sync"

	"github.com/minkfabric/mink/errors/pool"
	"github.com/minkfabric/mink/gdt"
)

// Pool is a fixed-capacity freelist over T with oldest-wins wraparound.
type Pool[T any] struct {
	mu       sync.Mutex
	items    []T
	next     int  // ring cursor: index of the oldest (next to be overwritten) slot
	filled   int  // number of slots ever populated, capped at len(items)
	hardCap  bool // when true, Get returns an error instead of overwrapping
	wraps    uint64
	warnings pool.Pool
}

// New allocates a pool with the given fixed capacity. When hardCap is
// true, exhaustion returns gdt.ErrPoolExhausted instead of silently
// overwriting the oldest entry (the debug-build assertion from spec §9,
// exposed here as a runtime option rather than a build tag so callers can
// flip it per session without a recompile).
func New[T any](capacity int, hardCap bool) *Pool[T] {
	return &Pool[T]{
		items:    make([]T, capacity),
		hardCap:  hardCap,
		warnings: pool.New(),
	}
}

// Get returns the next freelist slot, constructing it via newItem on first
// use. On exhaustion it wraps to the oldest slot (oldest-wins) unless
// hardCap is set.
func (p *Pool[T]) Get(newItem func() T) (T, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.filled < len(p.items) {
		idx := p.filled
		p.items[idx] = newItem()
		p.filled++
		p.next = (idx + 1) % len(p.items)
		return p.items[idx], nil
	}

	if p.hardCap {
		var zero T
		p.warnings.Add(gdt.ErrPoolExhausted.Errorf())
		return zero, gdt.ErrPoolExhausted.Errorf()
	}

	idx := p.next
	p.items[idx] = newItem()
	p.next = (idx + 1) % len(p.items)
	p.wraps++
	return p.items[idx], nil
}

// Wraps returns the number of oldest-wins overwrites observed, exposed as
// a health metric per spec §9.
func (p *Pool[T]) Wraps() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.wraps
}

// Cap returns the pool's fixed capacity.
func (p *Pool[T]) Cap() int {
	return len(p.items)
}

// Warnings returns the exhaustion errors recorded so far (an errors/pool
// accumulator): one entry each time Get is refused under hardCap. Oldest-wins
// overwrites are counted by Wraps only and add no entry here, and entries are
// not rate-limited.
func (p *Pool[T]) Warnings() pool.Pool {
	return p.warnings
}
