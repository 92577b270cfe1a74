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

package service

import "sync"

// Key identifies one ParameterMap entry by (parameter id, index,
// fragment), per the GLOSSARY's "Parameter map (service layer)" entry.
type Key struct {
	ParamID  int64
	Index    int64
	Fragment int64
}

// ParameterMap is an insertion-ordered mapping from Key to Value. Order
// is preserved across Set/overwrite so that encoding reproduces the
// caller's field ordering deterministically.
type ParameterMap struct {
	mu     sync.RWMutex
	order  []Key
	values map[Key]Value
}

// NewParameterMap returns an empty map.
func NewParameterMap() *ParameterMap {
	return &ParameterMap{values: make(map[Key]Value)}
}

// Set inserts or overwrites the entry at (paramID, index, fragment) (spec
// §4.8 "set(param_id, value, index=0, fragment=0)").
func (m *ParameterMap) Set(paramID int64, value Value, index, fragment int64) {
	key := Key{ParamID: paramID, Index: index, Fragment: fragment}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.values[key]; !exists {
		m.order = append(m.order, key)
	}
	m.values[key] = value
}

// Get returns the value at (paramID, index, fragment 0), or false if
// absent (spec §4.8 "get(param_id, index=0)").
func (m *ParameterMap) Get(paramID int64, index int64) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[Key{ParamID: paramID, Index: index}]
	return v, ok
}

// GetFragment returns the value at an explicit (paramID, index,
// fragment) triple, for reassembly of fragmented parameters.
func (m *ParameterMap) GetFragment(key Key) (Value, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

// Keys returns every key in insertion order.
func (m *ParameterMap) Keys() []Key {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Key, len(m.order))
	copy(out, m.order)
	return out
}

// Len reports the number of entries.
func (m *ParameterMap) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.order)
}
