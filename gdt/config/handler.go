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
	"context"

	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/service"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/wire"
)

// subscriberUserParamID is the reserved ParameterMap id carrying the
// requesting user's name in an AC_REQUEST (spec §6, grounded on
// original_source's config_gdt.h notification_request(usr_root, ...),
// which registers a user for notifications under a path).
const subscriberUserParamID = 0

// Handler processes inbound ConfigMessages arriving on a session's
// stream-new callback (spec §6 configuration protocol). Install
// HandleStreamNew as the session's OnStreamNew handler and filter by
// wire.BodyConfig.
type Handler struct {
	Store  *Store
	Log    *CommitLog
	Notify *Notifier
}

// NewHandler builds a config Handler over store, an optional commit log
// (nil disables commit persistence), and an optional notifier (nil
// disables NOTIFY fan-out).
func NewHandler(store *Store, log *CommitLog, notify *Notifier) *Handler {
	return &Handler{Store: store, Log: log, Notify: notify}
}

// HandleStreamNew dispatches one inbound config request, replying on the
// same stream (spec §8 scenario 6; §7 "config errors ... surfaced to
// originating user via AC_RESULT").
func (h *Handler) HandleStreamNew(ctx context.Context, c *client.Client, st *stream.Stream, msg wire.Message) {
	if msg.Kind != wire.BodyConfig {
		return
	}
	req, err := Decode(msg.Body)
	if err != nil {
		return
	}

	switch req.Action {
	case ActionGet:
		params := h.Store.Get(req.Path)
		if params == nil {
			params = service.NewParameterMap()
		}
		h.reply(ctx, c, st, req.Path, ActionResult, params)

	case ActionSet, ActionReplicate:
		h.commit(ctx, req.Path, req.Params)
		h.reply(ctx, c, st, req.Path, ActionResult, req.Params)

	case ActionACRequest:
		user, _ := req.Params.Get(subscriberUserParamID, 0)
		if h.Notify != nil {
			h.Notify.Register(user.Str(), req.Path, c)
		}
		h.reply(ctx, c, st, req.Path, ActionACResult, service.NewParameterMap())

	default:
		// RESULT, NOTIFY, AC_RESULT are reply-only arms; an inbound one
		// on a fresh stream has no request to answer.
	}
}

// commit records a SET/REPLICATE to the store, appends it to the commit
// log if one is configured, and fans NOTIFY out to covering subscribers.
func (h *Handler) commit(ctx context.Context, path string, params *service.ParameterMap) {
	h.Store.Set(path, params)
	if h.Log != nil {
		_, _ = h.Log.Write(Message{Action: ActionReplicate, Path: path, Params: params})
	}
	if h.Notify != nil {
		h.Notify.Dispatch(ctx, path, params)
	}
}

func (h *Handler) reply(ctx context.Context, c *client.Client, st *stream.Stream, path string, action Action, params *service.ParameterMap) {
	body := Encode(Message{Action: action, Path: path, Params: params})
	_ = c.Send(ctx, st, wire.BodyConfig, body, true)
}

// Request sends a config action to a peer and blocks for its RESULT/
// AC_RESULT, or ctx's deadline.
func Request(ctx context.Context, c *client.Client, req Message) (Message, error) {
	type outcome struct {
		reply Message
		err   error
	}
	done := make(chan outcome, 1)

	st, err := c.Open(stream.Callbacks{
		OnNext: func(st *stream.Stream, body []byte) {
			reply, decodeErr := Decode(body)
			done <- outcome{reply: reply, err: decodeErr}
		},
		OnEnd: func(st *stream.Stream, reason stream.EndReason, endErr error) {
			if reason != stream.EndNormal {
				select {
				case done <- outcome{err: endErr}:
				default:
				}
			}
		},
	})
	if err != nil {
		return Message{}, err
	}

	if err := c.Send(ctx, st, wire.BodyConfig, Encode(req), false); err != nil {
		return Message{}, err
	}

	select {
	case res := <-done:
		return res.reply, res.err
	case <-ctx.Done():
		return Message{}, ctx.Err()
	}
}
