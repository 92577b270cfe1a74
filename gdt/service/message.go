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

import (
	"context"

	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/route"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/wire"
)

// bodyTag is the context-specific constructed tag the ParameterMap occupies
// inside a BodyService message body (spec §4.8).
const bodyTag = 0

// Message is the service-message layer of spec §4.8: a ParameterMap
// carried inside a GDT stream, with set/get accessors and send/reply
// operations that hide the stream and routing plumbing from callers.
type Message struct {
	Params *ParameterMap

	stream *stream.Stream // set on reply: the stream a request arrived on
}

// New returns an empty outbound service message.
func New() *Message {
	return &Message{Params: NewParameterMap()}
}

// FromRequest wraps the ParameterMap of an inbound stream-new message so a
// handler can Reply on the same stream, preserving correlation (spec §4.8
// "reply(...) is valid only inside the stream-new callback for a service
// request").
func FromRequest(s *stream.Stream, params *ParameterMap) *Message {
	return &Message{Params: params, stream: s}
}

// Set inserts or overwrites a parameter (spec §4.8 "set(param_id, value,
// index=0, fragment=0)").
func (m *Message) Set(paramID int64, value Value, index, fragment int64) {
	m.Params.Set(paramID, value, index, fragment)
}

// Get reads a parameter by (paramID, index), fragment 0 (spec §4.8
// "get(param_id, index=0)").
func (m *Message) Get(paramID int64, index int64) (Value, bool) {
	return m.Params.Get(paramID, index)
}

// Send transmits the message as a new stream to destType/destID. When
// destType and destID name c's own peer, c carries the message; otherwise
// (an empty destID included) the destination client is chosen by the
// routing table's weighted round-robin handler for destType (spec §4.6),
// and destID does not pick among the routed clients. onComplete, when
// non-nil, fires once the reply stream ends.
func Send(ctx context.Context, c *client.Client, routes *route.Table, destType, destID string, m *Message, onComplete func(*Message, error)) error {
	var target *client.Client
	if destID != "" && destID == c.Peer().ID && destType == c.Peer().Type {
		target = c
	} else {
		target = routes.Get(destType)
	}
	if target == nil {
		return gdt.ErrRouteNoDestination.Errorf("no destination client for type %q", destType)
	}

	body := m.Params.Encode(bodyTag)

	var reply *Message
	s, err := target.Open(stream.Callbacks{
		OnNext: func(s *stream.Stream, msg []byte) {
			params, decodeErr := Decode(msg, bodyTag)
			if decodeErr != nil {
				return
			}
			reply = &Message{Params: params, stream: s}
		},
		OnEnd: func(s *stream.Stream, reason stream.EndReason, err error) {
			if onComplete == nil {
				return
			}
			if reason != stream.EndNormal {
				onComplete(nil, err)
				return
			}
			onComplete(reply, nil)
		},
	})
	if err != nil {
		return err
	}

	return target.Send(ctx, s, wire.BodyService, body, false)
}

// Reply sends one or more values back on the stream a request arrived on.
// Valid only when this Message was produced by FromRequest; otherwise
// returns gdt.ErrServiceNoCorrelation (spec §4.8).
func (m *Message) Reply(ctx context.Context, c *client.Client, values *ParameterMap) error {
	if m.stream == nil {
		return gdt.ErrServiceNoCorrelation.Errorf("message has no originating stream to reply on")
	}
	return c.Send(ctx, m.stream, wire.BodyService, values.Encode(bodyTag), true)
}
