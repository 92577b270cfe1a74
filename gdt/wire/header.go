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

// Package wire defines the GDT message shapes (header plus the body choice
// over message kinds) and the network-byte-order primitives their numeric
// header fields use.
package wire

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// BodyKind selects which arm of the body CHOICE a message carries.
type BodyKind int

const (
	BodyGDT BodyKind = iota
	BodyRegistration
	BodyStats
	BodyService
	BodyConfig
)

// Endpoint is a (daemon type, daemon id) pair, each at most 15 characters
// per the GLOSSARY definition of daemon type/id.
type Endpoint struct {
	Type string
	ID   string
}

// Header carries the fields named in the data model: source/destination
// endpoint, uuid, message id, sequence number, sequence flag, status, and
// hop info. All multi-octet integer fields are network byte order.
type Header struct {
	Source      Endpoint
	Destination Endpoint
	UUID        uuid.UUID
	MessageID   uint64
	SequenceNum uint32
	SequenceEnd bool // true on the terminal frame of a stream (END)
	Status      uint16
	HopCount    uint8
}

// PutUint64 / PutUint32 / PutUint16 encode a header field in network byte
// order, never via host memcpy, per spec §4.1.
func PutUint64(dst []byte, v uint64) { binary.BigEndian.PutUint64(dst, v) }
func PutUint32(dst []byte, v uint32) { binary.BigEndian.PutUint32(dst, v) }
func PutUint16(dst []byte, v uint16) { binary.BigEndian.PutUint16(dst, v) }

func Uint64(src []byte) uint64 { return binary.BigEndian.Uint64(src) }
func Uint32(src []byte) uint32 { return binary.BigEndian.Uint32(src) }
func Uint16(src []byte) uint16 { return binary.BigEndian.Uint16(src) }

// Message is the root schema tree per spec §3: an IMPLICIT APPLICATION 0
// SEQUENCE with header (application 1) and optional body (application 2).
type Message struct {
	Header Header
	Kind   BodyKind
	Body   []byte // body-kind-specific encoded payload; see the gdt/service
	// and gdt/config packages for the Service/Config body shapes, and
	// RegistrationMessage/StatsMessage below for the remaining two.
}

// RegistrationAction is the REG_REQUEST/REG_RESULT action of §4.5.
type RegistrationAction int

const (
	RegRequest RegistrationAction = iota
	RegResult
)

// RegistrationMessage is the two-message registration handshake body.
// Mirrors the original's dedicated router-capability field (see
// original_source gdt_reg_events.cpp) rather than a generic parameter
// lookup.
type RegistrationMessage struct {
	Action     RegistrationAction
	DaemonType string
	DaemonID   string
	Router     bool
	Status     uint16
}

// StatsMessage carries a snapshot of counters exposed over GDT itself
// (distinct from the Prometheus /metrics ambient endpoint) for peers that
// poll a node's health without scraping HTTP, matching
// original_source/src/services/stats/gdttrapc.cpp's role as a GDT-native
// stats collector.
type StatsMessage struct {
	StreamsOpen    uint32
	StreamsTotal   uint64
	HeartbeatMiss  uint32
	PoolWraparound uint64
}
