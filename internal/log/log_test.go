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

package log_test

import (
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/minkfabric/mink/internal/log"
)

var _ = Describe("Fields", func() {
	It("returns a new map from Add rather than mutating the receiver", func() {
		base := log.NewFields().Add("a", 1)
		derived := base.Add("b", 2)

		Expect(base).To(HaveKey("a"))
		Expect(base).ToNot(HaveKey("b"))
		Expect(derived).To(HaveKeyWithValue("a", 1))
		Expect(derived).To(HaveKeyWithValue("b", 2))
	})

	It("overlays the other map's keys on top without touching the receiver", func() {
		base := log.NewFields().Add("a", 1).Add("b", 1)
		merged := base.Merge(log.NewFields().Add("b", 2).Add("c", 3))

		Expect(base).To(HaveKeyWithValue("b", 1))
		Expect(merged).To(HaveKeyWithValue("a", 1))
		Expect(merged).To(HaveKeyWithValue("b", 2))
		Expect(merged).To(HaveKeyWithValue("c", 3))
	})

	It("returns the receiver unchanged when merging an empty Fields", func() {
		base := log.NewFields().Add("a", 1)
		Expect(base.Merge(log.NewFields())).To(Equal(base))
	})
})

var _ = Describe("Logger", func() {
	It("constructs without panicking at debug and info levels", func() {
		Expect(func() { log.New(true) }).ToNot(Panic())
		Expect(func() { log.New(false) }).ToNot(Panic())
	})

	It("logs level methods and Error without panicking", func() {
		l := log.New(false)
		Expect(func() {
			l.Debug("debug message")
			l.Info("info message")
			l.Warn("warn message")
			l.Error(errors.New("boom"))
		}).ToNot(Panic())
	})

	It("carries accumulated fields through With without mutating the parent", func() {
		root := log.New(false)
		child := root.With(log.NewFields().Add("component", "test"))
		Expect(child).ToNot(BeNil())
		Expect(func() { child.Info("from child") }).ToNot(Panic())
	})

	It("suppresses a repeat WarnRateLimited call within the window", func() {
		l := log.New(false)
		Expect(func() {
			l.WarnRateLimited("pool-exhausted", time.Hour, "first")
			l.WarnRateLimited("pool-exhausted", time.Hour, "second, should be dropped")
		}).ToNot(Panic())
	})

	It("allows a repeat WarnRateLimited call once the window elapses", func() {
		l := log.New(false)
		Expect(func() {
			l.WarnRateLimited("short-window", time.Millisecond, "first")
			time.Sleep(5 * time.Millisecond)
			l.WarnRateLimited("short-window", time.Millisecond, "second, should fire")
		}).ToNot(Panic())
	})

	It("shares one rate-limit window across clones produced by With", func() {
		root := log.New(false)
		a := root.With(log.NewFields().Add("site", "a"))
		b := root.With(log.NewFields().Add("site", "b"))

		a.WarnRateLimited("shared-key", time.Hour, "from a")
		// b shares the same underlying rate limiter as a (both derived
		// from root), so this call within the window is a silent no-op
		// rather than an independent, un-synchronized counter.
		Expect(func() { b.WarnRateLimited("shared-key", time.Hour, "from b") }).ToNot(Panic())
	})

	It("does not race when WarnRateLimited is called concurrently from clones sharing one root", func() {
		root := log.New(false)
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func(n int) {
				defer wg.Done()
				c := root.With(log.NewFields().Add("n", n))
				c.WarnRateLimited("concurrent-key", time.Microsecond, "racing")
			}(i)
		}
		wg.Wait()
	})
})
