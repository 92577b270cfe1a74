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

//go:build linux

// Package sctp is the native wire transport named by spec §6: a one-to-one
// SCTP association carrying PPID-49 records. Of the association parameters
// documented in transport.HeartbeatIntervalMS and friends, only the INIT
// settings are applied: max attempts from transport.PathMaxRetrans and max
// init timeout from transport.RTOMaxMS (in seconds). The heartbeat interval
// and the RTO initial and minimum values are not set on the association;
// the kernel defaults apply. It wraps
// github.com/ishidawataru/sctp, the kernel-socket SCTP binding moby/moby
// uses for its overlay network driver; this package is linux-only because
// that binding is.
package sctp

import (
	"context"

	"github.com/ishidawataru/sctp"

	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/transport"
)

const maxRecordSize = 16 * 1024 * 1024

// Conn adapts an *sctp.SCTPConn into a transport.Transport. Each Send/Recv
// moves exactly one SCTP message, so no length framing is needed: SCTP
// already preserves record boundaries.
type Conn struct {
	c *sctp.SCTPConn
}

var _ transport.Transport = (*Conn)(nil)

func newConn(c *sctp.SCTPConn) (*Conn, error) {
	info := &sctp.InitMsg{
		NumOstreams:    1,
		MaxInstreams:   1,
		MaxAttempts:    transport.PathMaxRetrans,
		MaxInitTimeout: transport.RTOMaxMS / 1000,
	}
	if err := c.SetInitMsg(*info); err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}
	return &Conn{c: c}, nil
}

// Dial establishes an SCTP association to addr ("host:port").
func Dial(ctx context.Context, addr string) (*Conn, error) {
	raddr, err := sctp.ResolveSCTPAddr("sctp", addr)
	if err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}

	c, err := sctp.DialSCTP("sctp", nil, raddr)
	if err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}
	return newConn(c)
}

func (c *Conn) Send(ctx context.Context, record []byte) error {
	if len(record) > maxRecordSize {
		return gdt.ErrTransportFrame.Errorf("record of %d bytes exceeds max %d", len(record), maxRecordSize)
	}

	info := &sctp.SndRcvInfo{
		Stream: 0,
		PPID:   transport.PPID,
	}
	if _, err := c.c.SCTPWrite(record, info); err != nil {
		return gdt.ErrTransportWrite.Errorf("%s", err.Error())
	}
	return nil
}

func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	buf := make([]byte, maxRecordSize)
	n, _, err := c.c.SCTPRead(buf)
	if err != nil {
		return nil, gdt.ErrTransportRead.Errorf("%s", err.Error())
	}
	return buf[:n], nil
}

func (c *Conn) Close() error { return c.c.Close() }

func (c *Conn) LocalAddr() string  { return c.c.LocalAddr().String() }
func (c *Conn) RemoteAddr() string { return c.c.RemoteAddr().String() }

// Listener accepts inbound SCTP associations.
type Listener struct {
	ln *sctp.SCTPListener
}

var _ transport.Listener = (*Listener)(nil)

// Listen binds addr ("host:port") for inbound associations.
func Listen(addr string) (*Listener, error) {
	laddr, err := sctp.ResolveSCTPAddr("sctp", addr)
	if err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}

	ln, err := sctp.ListenSCTP("sctp", laddr)
	if err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (transport.Transport, error) {
	type result struct {
		c   *sctp.SCTPConn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.AcceptSCTP()
		ch <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, gdt.ErrTransportDial.Errorf("%s", r.err.Error())
		}
		return newConn(r.c)
	}
}

func (l *Listener) Close() error { return l.ln.Close() }

func (l *Listener) Addr() string { return l.ln.Addr().String() }
