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

package service_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/route"
	"github.com/minkfabric/mink/gdt/service"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/transport/tcp"
	"github.com/minkfabric/mink/gdt/wire"
)

// Exercises spec §8 scenario 1 ("Register-then-echo"): node B sends a
// service message {101: "hello"} to node A; A's stream-new fires once and
// sees id=101 -> "hello"; A replies {101: "HELLO"}; B's stream-end fires
// with no error and the reply value is visible to B.
var _ = Describe("Service message send/reply", func() {
	It("delivers a request and its reply across a direct connection", func() {
		ln, err := tcp.Listen("127.0.0.1:0")
		Expect(err).ToNot(HaveOccurred())
		defer ln.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		accepted := make(chan *tcp.Conn, 1)
		go func() {
			t, acceptErr := ln.Accept(ctx)
			Expect(acceptErr).ToNot(HaveOccurred())
			accepted <- t.(*tcp.Conn)
		}()

		bConn, err := tcp.Dial(ctx, ln.Addr())
		Expect(err).ToNot(HaveOccurred())
		aConn := <-accepted
		defer aConn.Close()
		defer bConn.Close()

		aReceived := make(chan *service.Message, 1)
		a := client.New(aConn, wire.Endpoint{Type: "x", ID: "a1"}, false, stream.NewCounter(), client.Callbacks{
			OnStreamNew: func(c *client.Client, s *stream.Stream, msg wire.Message) {
				params, decodeErr := service.Decode(msg.Body, 0)
				Expect(decodeErr).ToNot(HaveOccurred())
				aReceived <- service.FromRequest(s, params)
			},
		})
		Expect(a.MarkRegistered(wire.Endpoint{Type: "y", ID: "b1"})).To(BeTrue())

		go func() {
			_ = a.ReadLoop(ctx, func(kind wire.BodyKind) stream.Callbacks { return stream.Callbacks{} })
		}()

		b := client.New(bConn, wire.Endpoint{Type: "y", ID: "b1"}, false, stream.NewCounter(), client.Callbacks{})
		Expect(b.MarkRegistered(wire.Endpoint{Type: "x", ID: "a1"})).To(BeTrue())

		go func() {
			_ = b.ReadLoop(ctx, func(kind wire.BodyKind) stream.Callbacks { return stream.Callbacks{} })
		}()

		req := service.New()
		req.Set(101, service.StringValue("hello"), 0, 0)

		type result struct {
			reply *service.Message
			err   error
		}
		bDone := make(chan result, 1)

		routes := route.New()
		err = service.Send(ctx, b, routes, "x", "a1", req, func(reply *service.Message, sendErr error) {
			bDone <- result{reply: reply, err: sendErr}
		})
		Expect(err).ToNot(HaveOccurred())

		var request *service.Message
		select {
		case request = <-aReceived:
		case <-time.After(time.Second):
			Fail("A's stream-new never fired")
		}

		got, ok := request.Get(101, 0)
		Expect(ok).To(BeTrue())
		Expect(got.Str()).To(Equal("hello"))

		reply := service.New()
		reply.Set(101, service.StringValue("HELLO"), 0, 0)
		Expect(request.Reply(ctx, a, reply.Params)).To(Succeed())

		select {
		case res := <-bDone:
			Expect(res.err).ToNot(HaveOccurred())
			Expect(res.reply).ToNot(BeNil())
			v, ok := res.reply.Get(101, 0)
			Expect(ok).To(BeTrue())
			Expect(v.Str()).To(Equal("HELLO"))
		case <-time.After(time.Second):
			Fail("B's stream-end never fired")
		}
	})

	It("rejects Reply when the message has no originating stream", func() {
		m := service.New()
		err := m.Reply(context.Background(), nil, m.Params)
		Expect(err).To(HaveOccurred())
	})
})
