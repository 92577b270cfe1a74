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

package config

import (
	"sync"

	"github.com/minkfabric/mink/gdt/service"
)

// Store is the config daemon's single-owner parameter tree, keyed by the
// slash-delimited path each ConfigMessage addresses (spec §6). Single
// mutex guards every path's map, consistent with the "Parameter maps are
// single-owner; no concurrent mutation" discipline of spec §5 — the lock
// here serializes entry into and out of that single-owner region rather
// than permitting concurrent mutation of one ParameterMap.
type Store struct {
	mu   sync.Mutex
	tree map[string]*service.ParameterMap
}

// NewStore returns an empty config tree.
func NewStore() *Store {
	return &Store{tree: make(map[string]*service.ParameterMap)}
}

// Get returns the ParameterMap committed at path, or nil if never set.
func (s *Store) Get(path string) *service.ParameterMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tree[path]
}

// Set replaces the ParameterMap committed at path.
func (s *Store) Set(path string, params *service.ParameterMap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tree[path] = params
}
