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

package session_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libctx "github.com/minkfabric/mink/context"
	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/session"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/transport/tcp"
	"github.com/minkfabric/mink/gdt/wire"
)

var _ = Describe("Session registration handshake", func() {
	It("registers a connecting peer and fires client-new on both sides (spec scenario: register-then-echo setup)", func() {
		ln, err := tcp.Listen("127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		aNew := make(chan *client.Client, 1)
		a := session.New(wire.Endpoint{Type: "x", ID: "a1"}, libctx.NewConfig[string](nil), nil,
			session.Callbacks{OnClientNew: func(c *client.Client) { aNew <- c }}, 0, 0)
		go func() { _ = a.Listen(ctx, ln) }()

		bNew := make(chan *client.Client, 1)
		b := session.New(wire.Endpoint{Type: "y", ID: "b1"}, libctx.NewConfig[string](nil), nil,
			session.Callbacks{OnClientNew: func(c *client.Client) { bNew <- c }}, 0, 0)

		conn, err := tcp.Dial(ctx, ln.Addr())
		Expect(err).ToNot(HaveOccurred())

		bc, err := b.Connect(ctx, conn, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(bc.Registered()).To(BeTrue())
		Expect(bc.Peer()).To(Equal(wire.Endpoint{Type: "x", ID: "a1"}))

		select {
		case gotB := <-bNew:
			Expect(gotB).To(Equal(bc))
		case <-time.After(time.Second):
			Fail("client-new never fired on B")
		}

		select {
		case gotA := <-aNew:
			Expect(gotA.Peer()).To(Equal(wire.Endpoint{Type: "y", ID: "b1"}))
			Expect(gotA.Registered()).To(BeTrue())
		case <-time.After(time.Second):
			Fail("client-new never fired on A")
		}
	})

	It("disconnects the newer association on a conflicting registration", func() {
		ln, err := tcp.Listen("127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		a := session.New(wire.Endpoint{Type: "x", ID: "a1"}, libctx.NewConfig[string](nil), nil, session.Callbacks{}, 0, 0)
		go func() { _ = a.Listen(ctx, ln) }()

		b := session.New(wire.Endpoint{Type: "y", ID: "b1"}, libctx.NewConfig[string](nil), nil, session.Callbacks{}, 0, 0)

		conn1, err := tcp.Dial(ctx, ln.Addr())
		Expect(err).ToNot(HaveOccurred())
		first, err := b.Connect(ctx, conn1, false)
		Expect(err).ToNot(HaveOccurred())
		Expect(first.Registered()).To(BeTrue())

		terminated := make(chan struct{})
		b2 := session.New(wire.Endpoint{Type: "y", ID: "b1"}, libctx.NewConfig[string](nil), nil,
			session.Callbacks{OnClientTerminated: func(c *client.Client) { close(terminated) }}, 0, 0)

		conn2, err := tcp.Dial(ctx, ln.Addr())
		Expect(err).ToNot(HaveOccurred())
		_, err = b2.Connect(ctx, conn2, false)
		Expect(err).To(HaveOccurred())

		select {
		case <-terminated:
		case <-time.After(time.Second):
			Fail("duplicate registration's newer association was never terminated")
		}
	})
})

var _ = Describe("Session stop", func() {
	It("is idempotent and closes listeners", func() {
		ln, err := tcp.Listen("127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		a := session.New(wire.Endpoint{Type: "x", ID: "a1"}, libctx.NewConfig[string](nil), nil, session.Callbacks{}, 0, 0)
		go func() { _ = a.Listen(ctx, ln) }()

		a.Stop(50 * time.Millisecond)
		a.Stop(50 * time.Millisecond)

		_, err = tcp.Dial(ctx, ln.Addr())
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Session stats responder", func() {
	It("replies to a GDT-native stats request with a live snapshot", func() {
		ln, err := tcp.Listen("127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		a := session.New(wire.Endpoint{Type: "x", ID: "a1"}, libctx.NewConfig[string](nil), nil, session.Callbacks{}, 0, 0)
		go func() { _ = a.Listen(ctx, ln) }()

		b := session.New(wire.Endpoint{Type: "y", ID: "b1"}, libctx.NewConfig[string](nil), nil, session.Callbacks{}, 0, 0)

		conn, err := tcp.Dial(ctx, ln.Addr())
		Expect(err).ToNot(HaveOccurred())

		bc, err := b.Connect(ctx, conn, false)
		Expect(err).ToNot(HaveOccurred())

		done := make(chan wire.StatsMessage, 1)
		st := bc.StreamTable().Open(stream.Callbacks{
			OnNext: func(_ *stream.Stream, msg []byte) {
				reply, derr := wire.DecodeStats(msg)
				Expect(derr).ToNot(HaveOccurred())
				done <- reply
			},
		})
		Expect(bc.Send(ctx, st, wire.BodyStats, nil, false)).To(Succeed())

		select {
		case reply := <-done:
			Expect(reply.StreamsTotal).To(BeNumerically(">=", uint64(1)))
		case <-time.After(time.Second):
			Fail("stats reply never arrived")
		}

		Expect(a.StreamsTotal()).To(BeNumerically(">=", uint64(1)))
	})
})

var _ = Describe("Session register_callback", func() {
	It("attaches a handler after construction, ignoring a type-mismatched handler", func() {
		a := session.New(wire.Endpoint{Type: "x", ID: "a1"}, libctx.NewConfig[string](nil), nil, session.Callbacks{}, 0, 0)

		a.RegisterCallback(stream.EventClientNew, "not a handler")
		a.RegisterCallback(stream.EventClientNew, func(c *client.Client) {})
	})
})
