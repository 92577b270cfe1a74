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

// Package config implements the Configuration protocol of spec §6:
// ConfigMessage{action, params} carried as a distinct GDT body, the
// commit log under ./commit-log/, and NOTIFY fan-out to (user, path)
// subscribers (spec §8 scenario 6).
package config

import (
	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/service"
	"github.com/minkfabric/mink/gdt/tlv"
)

// Action enumerates the ConfigMessage action choice (spec §6).
type Action byte

const (
	ActionReplicate Action = iota
	ActionGet
	ActionSet
	ActionResult
	ActionNotify
	ActionACRequest
	ActionACResult
)

func (a Action) String() string {
	switch a {
	case ActionReplicate:
		return "REPLICATE"
	case ActionGet:
		return "GET"
	case ActionSet:
		return "SET"
	case ActionResult:
		return "RESULT"
	case ActionNotify:
		return "NOTIFY"
	case ActionACRequest:
		return "AC_REQUEST"
	case ActionACResult:
		return "AC_RESULT"
	default:
		return "UNKNOWN"
	}
}

// Message is a ConfigMessage: an action, the slash-delimited config tree
// path it addresses, and a ParameterMap of values (set payload, get
// result, or a NOTIFY sub-tree).
type Message struct {
	Action Action
	Path   string
	Params *service.ParameterMap
}

// Field tags within a Message body. tagParams is constructed (it wraps a
// nested ParameterMap), the others primitive, so a positional decoder can
// tell them apart without a generic tag-skip loop.
const (
	tagAction = iota
	tagPath
	tagParams
)

func writeOctets(buf []byte, tagNumber int, value []byte) []byte {
	d := &tlv.Descriptor{Class: tlv.ClassContextSpecific, Complexity: tlv.Primitive, TagNumber: tagNumber, ValueLength: len(value)}
	buf = tlv.WriteTag(buf, d)
	buf = tlv.WriteLength(buf, d.LengthFormOf(), d.ValueLength)
	return append(buf, value...)
}

// Encode serializes a Message as the config body choice.
func Encode(m Message) []byte {
	var buf []byte
	buf = writeOctets(buf, tagAction, []byte{byte(m.Action)})
	buf = writeOctets(buf, tagPath, []byte(m.Path))

	params := m.Params
	if params == nil {
		params = service.NewParameterMap()
	}
	return append(buf, params.Encode(tagParams)...)
}

// Decode parses a Message produced by Encode.
func Decode(buf []byte) (Message, error) {
	var m Message

	class, complexity, tagNumber, n, err := tlv.ReadTag(buf)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	if class != tlv.ClassContextSpecific || complexity != tlv.Primitive || tagNumber != tagAction {
		return m, gdt.ErrDecodeSchema.Errorf("config message: expected action field")
	}
	buf = buf[n:]
	_, length, n, err := tlv.ReadLength(buf)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	buf = buf[n:]
	if length > len(buf) {
		return m, gdt.ErrDecodeTruncated.Errorf("action field length %d exceeds remaining %d bytes", length, len(buf))
	}
	if length != 1 {
		return m, gdt.ErrDecodeMalformed.Errorf("action field must be one octet, got %d", length)
	}
	m.Action = Action(buf[0])
	buf = buf[length:]

	class, complexity, tagNumber, n, err = tlv.ReadTag(buf)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	if class != tlv.ClassContextSpecific || complexity != tlv.Primitive || tagNumber != tagPath {
		return m, gdt.ErrDecodeSchema.Errorf("config message: expected path field")
	}
	buf = buf[n:]
	_, length, n, err = tlv.ReadLength(buf)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	buf = buf[n:]
	if length > len(buf) {
		return m, gdt.ErrDecodeTruncated.Errorf("path field length %d exceeds remaining %d bytes", length, len(buf))
	}
	m.Path = string(buf[:length])
	buf = buf[length:]

	params, err := service.Decode(buf, tagParams)
	if err != nil {
		return m, err
	}
	m.Params = params
	return m, nil
}
