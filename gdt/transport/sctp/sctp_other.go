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

//go:build !linux

// Package sctp has no kernel SCTP binding outside linux; Dial/Listen
// always fail so callers fall back to transport/tcp (spec §9).
package sctp

import (
	"context"

	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/transport"
)

func Dial(ctx context.Context, addr string) (transport.Transport, error) {
	return nil, gdt.ErrTransportDial.Errorf("sctp transport is only available on linux, use transport/tcp")
}

func Listen(addr string) (transport.Listener, error) {
	return nil, gdt.ErrTransportDial.Errorf("sctp transport is only available on linux, use transport/tcp")
}
