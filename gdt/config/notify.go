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
	"strings"
	"sync"

	"github.com/minkfabric/mink/gdt/client"
	"github.com/minkfabric/mink/gdt/service"
	"github.com/minkfabric/mink/gdt/stream"
	"github.com/minkfabric/mink/gdt/wire"
)

// Subscriber is one registered (user, path) notification target (spec §6
// "Notification requests register a (user, path) pair").
type Subscriber struct {
	User   string
	Path   string
	Client *client.Client
}

// Notifier tracks every registered subscriber and fans out NOTIFY
// ConfigMessages on commit (spec §8 scenario 6: two users subscribed to
// `system/log` both receive a NOTIFY for a commit under
// `system/log/level`; neither receives an unrelated sibling path).
type Notifier struct {
	mu   sync.Mutex
	subs []Subscriber
}

// NewNotifier returns an empty subscriber registry.
func NewNotifier() *Notifier {
	return &Notifier{}
}

// Register adds a (user, path) subscription.
func (n *Notifier) Register(user, path string, c *client.Client) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.subs = append(n.subs, Subscriber{User: user, Path: path, Client: c})
}

// Unregister drops every subscription belonging to c, e.g. on client
// termination.
func (n *Notifier) Unregister(c *client.Client) {
	n.mu.Lock()
	defer n.mu.Unlock()

	kept := n.subs[:0]
	for _, s := range n.subs {
		if s.Client != c {
			kept = append(kept, s)
		}
	}
	n.subs = kept
}

// pathCovers reports whether sub is path or an ancestor of path ("/"
// delimited): "system/log" covers "system/log/level" and itself, but not
// "system/other".
func pathCovers(sub, path string) bool {
	if sub == "" || sub == path {
		return true
	}
	subSegs := strings.Split(sub, "/")
	pathSegs := strings.Split(path, "/")
	if len(subSegs) > len(pathSegs) {
		return false
	}
	for i, s := range subSegs {
		if s != pathSegs[i] {
			return false
		}
	}
	return true
}

// Matching returns every subscriber whose registered path covers path.
func (n *Notifier) Matching(path string) []Subscriber {
	n.mu.Lock()
	defer n.mu.Unlock()

	var out []Subscriber
	for _, s := range n.subs {
		if pathCovers(s.Path, path) {
			out = append(out, s)
		}
	}
	return out
}

// Dispatch sends a NOTIFY ConfigMessage carrying the committed sub-tree to
// every subscriber whose path covers path. Each delivery opens its own
// stream, sent as a single-frame, sequence-ending body (spec §6, §8
// scenario 6).
func (n *Notifier) Dispatch(ctx context.Context, path string, params *service.ParameterMap) []error {
	body := Encode(Message{Action: ActionNotify, Path: path, Params: params})

	var errs []error
	for _, s := range n.Matching(path) {
		st, err := s.Client.Open(stream.Callbacks{})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := s.Client.Send(ctx, st, wire.BodyConfig, body, true); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
