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

// Sequence is a lock-free, monotonically increasing id generator that
// never issues zero. gdt/stream's per-session stream-id counter and
// gdt/config's commit-log filename sequence are both this shape; giving
// it one home here replaces two copies of the same skip-zero
// compare-and-swap loop.
type Sequence struct {
	v atomic.Uint64
}

// NewSequence returns a Sequence starting just before 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next id, skipping zero on wraparound.
func (s *Sequence) Next() uint64 {
	for {
		v := s.v.Add(1)
		if v != 0 {
			return v
		}
	}
}

// Current returns the most recently issued id without allocating a new
// one.
func (s *Sequence) Current() uint64 {
	return s.v.Load()
}
