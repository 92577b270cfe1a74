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

// Package route implements the weighted round-robin routing handler of
// spec §4.6: one table per destination type, mapping to an ordered set of
// (client, weight) entries. Selection uses the smooth WRR algorithm
// (current weight accumulates by the node's configured weight each round,
// the highest accumulator wins and is discounted by the sum of all
// weights) so that, over any window of N selections, a node of weight w
// out of total W is chosen close to N*w/W times rather than in bursts.
package route

import (
	"sync"

	"github.com/minkfabric/mink/gdt/client"
)

// node is one (client, weight) entry in a destination-type table.
type node struct {
	id      string
	client  *client.Client
	weight  int
	current int
}

// Table is the routing handler (spec §4.6). One Table instance is shared
// by a session across every destination type; each type gets its own
// internal node slice under the same lock, matching the thread-safety
// requirement that remove_node during a get cannot return a dangling
// entry — both operations share the table's single mutex.
type Table struct {
	mu    sync.Mutex
	types map[string][]*node
}

// New allocates an empty routing table.
func New() *Table {
	return &Table{types: make(map[string][]*node)}
}

// AddNode inserts a (client, weight) entry for a destination type, then
// re-normalizes nothing else — smooth WRR needs no global renormalization
// on insert, unlike the naive interleaving scheme.
func (t *Table) AddNode(destType, destID string, c *client.Client, weight int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.types[destType]
	for _, n := range entries {
		if n.id == destID {
			n.client = c
			n.weight = weight
			return
		}
	}
	t.types[destType] = append(entries, &node{id: destID, client: c, weight: weight})
}

// RemoveNode drops a (type, id) entry.
func (t *Table) RemoveNode(destType, destID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.types[destType]
	for i, n := range entries {
		if n.id == destID {
			t.types[destType] = append(entries[:i], entries[i+1:]...)
			return
		}
	}
}

// UpdateClient rebinds a client's weight, e.g. after heartbeat resumed
// restores it to its configured value.
func (t *Table) UpdateClient(destType, destID string, weight int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, n := range t.types[destType] {
		if n.id == destID {
			n.weight = weight
			return
		}
	}
}

// Get advances the smooth-WRR cursor for destType and returns the
// selected client, or nil if every entry has weight zero (spec §4.6:
// "skip zero-weight entries, return none when all weights are zero").
func (t *Table) Get(destType string) *client.Client {
	t.mu.Lock()
	defer t.mu.Unlock()

	entries := t.types[destType]
	if len(entries) == 0 {
		return nil
	}

	total := 0
	var best *node
	for _, n := range entries {
		if n.weight <= 0 {
			continue
		}
		n.current += n.weight
		total += n.weight
		if best == nil || n.current > best.current {
			best = n
		}
	}
	if best == nil {
		return nil
	}
	best.current -= total
	return best.client
}
