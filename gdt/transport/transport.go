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

// Package transport defines the reliable ordered record delivery
// abstraction GDT rides on: one record per call equals one BER-encoded
// message. SCTP is the wire transport named by the spec; transport/tcp is
// the documented framed-TCP substitute for platforms without native SCTP
// (spec §9).
package transport

import (
	"context"
	"io"
)

// PPID is the SCTP payload protocol id registered for GDT (spec §6).
const PPID = 49

// Association parameters documented for the SCTP wire transport (spec §6,
// confirmed against original_source/src/include/sctp.h's
// init_sctp_server/init_sctp_client_bind defaults). The TCP substitute
// records these as documented-but-unenforced.
const (
	HeartbeatIntervalMS = 30000
	PathMaxRetrans      = 5
	RTOInitialMS        = 3000
	RTOMaxMS            = 60000
	RTOMinMS            = 1000
)

// Transport is one reliable ordered connection carrying whole records.
type Transport interface {
	io.Closer

	// Send writes one complete record (one BER-encoded message).
	Send(ctx context.Context, record []byte) error

	// Recv blocks for the next complete record.
	Recv(ctx context.Context) ([]byte, error)

	// LocalAddr / RemoteAddr identify the association's two endpoints for
	// logging.
	LocalAddr() string
	RemoteAddr() string
}

// Listener accepts inbound associations, each becoming a Transport.
type Listener interface {
	io.Closer
	Accept(ctx context.Context) (Transport, error)
	Addr() string
}
