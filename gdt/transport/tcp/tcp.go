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

// Package tcp is the documented substitute transport for platforms without
// native SCTP (spec §9): a plain TCP stream framed by a 4-byte big-endian
// length prefix equal to the outer BER length, so the record boundary that
// SCTP gives for free is recovered on an ordered byte stream. PPID 49 has
// no TCP equivalent; it remains the package-level transport.PPID constant,
// which only the SCTP transport puts on the wire.
package tcp

import (
	"bufio"
	"context"
	"encoding/binary"
	"net"
	"sync"
	"time"

	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/transport"
)

// maxRecordSize bounds a single framed record, guarding against a
// corrupted length prefix turning into an unbounded allocation.
const maxRecordSize = 16 * 1024 * 1024

// Conn adapts a net.Conn into a transport.Transport using length-prefixed
// framing.
type Conn struct {
	conn net.Conn
	r    *bufio.Reader

	wmu sync.Mutex
}

var _ transport.Transport = (*Conn)(nil)

// New wraps an already-established net.Conn (from Dial or Listener.Accept).
func New(conn net.Conn) *Conn {
	return &Conn{conn: conn, r: bufio.NewReader(conn)}
}

// Dial opens a new TCP connection to addr. The SCTP association parameters
// documented in transport.HeartbeatIntervalMS and friends have no effect
// here; callers relying on reconnection under loss must lean on
// gdt/heartbeat instead.
func Dial(ctx context.Context, addr string) (*Conn, error) {
	var d net.Dialer
	c, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}
	return New(c), nil
}

func (c *Conn) Send(ctx context.Context, record []byte) error {
	if len(record) > maxRecordSize {
		return gdt.ErrTransportFrame.Errorf("record of %d bytes exceeds max %d", len(record), maxRecordSize)
	}

	c.wmu.Lock()
	defer c.wmu.Unlock()

	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetWriteDeadline(dl)
	}

	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(record)))

	if _, err := c.conn.Write(hdr[:]); err != nil {
		return gdt.ErrTransportWrite.Errorf("%s", err.Error())
	}
	if _, err := c.conn.Write(record); err != nil {
		return gdt.ErrTransportWrite.Errorf("%s", err.Error())
	}
	return nil
}

func (c *Conn) Recv(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = c.conn.SetReadDeadline(dl)
	} else {
		_ = c.conn.SetReadDeadline(time.Time{})
	}

	var hdr [4]byte
	if _, err := readFull(c.r, hdr[:]); err != nil {
		return nil, gdt.ErrTransportRead.Errorf("%s", err.Error())
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxRecordSize {
		return nil, gdt.ErrTransportFrame.Errorf("peer announced record of %d bytes, max %d", n, maxRecordSize)
	}

	buf := make([]byte, n)
	if _, err := readFull(c.r, buf); err != nil {
		return nil, gdt.ErrTransportRead.Errorf("%s", err.Error())
	}
	return buf, nil
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func (c *Conn) Close() error {
	return c.conn.Close()
}

func (c *Conn) LocalAddr() string  { return c.conn.LocalAddr().String() }
func (c *Conn) RemoteAddr() string { return c.conn.RemoteAddr().String() }

// Listener accepts inbound connections and frames each as a Conn.
type Listener struct {
	ln net.Listener
}

var _ transport.Listener = (*Listener)(nil)

// Listen binds addr for inbound associations.
func Listen(addr string) (*Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, gdt.ErrTransportDial.Errorf("%s", err.Error())
	}
	return &Listener{ln: ln}, nil
}

func (l *Listener) Accept(ctx context.Context) (transport.Transport, error) {
	type result struct {
		c   net.Conn
		err error
	}
	ch := make(chan result, 1)
	go func() {
		c, err := l.ln.Accept()
		ch <- result{c, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, gdt.ErrTransportDial.Errorf("%s", r.err.Error())
		}
		return New(r.c), nil
	}
}

func (l *Listener) Close() error { return l.ln.Close() }

func (l *Listener) Addr() string { return l.ln.Addr().String() }

// Validate confirms an address string is well-formed before handing it to
// Dial/Listen, surfacing a gdt error instead of a bare net.OpError.
func Validate(addr string) error {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return gdt.ErrConfigInvalid.Errorf("%s: %s", addr, err.Error())
	}
	return nil
}
