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
	"encoding/binary"

	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/tlv"
)

// Each parameter record is a SEQUENCE{id, index, fragment, value CHOICE}
// (spec §4.8). Integer fields use context-specific primitive tags 0-2;
// the value CHOICE arm is tagged 3+Kind so the decoder recovers the exact
// variant without a separate type byte.
const (
	tagParamID = iota
	tagIndex
	tagFragment
	tagValueBase
)

func writeInt(buf []byte, tagNumber int, v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	// trim leading zero octets while the sign bit stays clear; negative
	// values keep all eight octets.
	n := 8
	for n > 1 && b[8-n] == 0 && b[8-n+1]&0x80 == 0 {
		n--
	}
	value := b[8-n:]

	d := &tlv.Descriptor{Class: tlv.ClassContextSpecific, Complexity: tlv.Primitive, TagNumber: tagNumber, ValueLength: len(value)}
	buf = tlv.WriteTag(buf, d)
	buf = tlv.WriteLength(buf, d.LengthFormOf(), d.ValueLength)
	return append(buf, value...)
}

func readInt(value []byte) int64 {
	var v int64
	for _, b := range value {
		v = (v << 8) | int64(b)
	}
	// sign-extend from the actual encoded width
	if len(value) > 0 && len(value) < 8 && value[0]&0x80 != 0 {
		shift := uint(64 - 8*len(value))
		v = (v << shift) >> shift
	}
	return v
}

func writeValue(buf []byte, v Value) []byte {
	d := &tlv.Descriptor{Class: tlv.ClassContextSpecific, Complexity: tlv.Primitive, TagNumber: tagValueBase + int(v.Kind)}

	var payload []byte
	switch v.Kind {
	case KindBool:
		if v.boolV {
			payload = []byte{0xff}
		} else {
			payload = []byte{0x00}
		}
	case KindInt32, KindInt64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, uint64(v.int64V))
		payload = trimInt(payload)
	case KindUint32, KindUint64:
		payload = make([]byte, 8)
		binary.BigEndian.PutUint64(payload, v.uint64V)
		payload = trimUint(payload)
	case KindOctets:
		payload = v.bytesV
	case KindString:
		payload = []byte(v.strV)
	case KindPointer:
		return buf // never encoded (spec §3: "pointer, for in-process handoff only")
	}

	d.ValueLength = len(payload)
	buf = tlv.WriteTag(buf, d)
	buf = tlv.WriteLength(buf, d.LengthFormOf(), d.ValueLength)
	return append(buf, payload...)
}

func trimInt(b []byte) []byte {
	n := len(b)
	for n > 1 && b[len(b)-n] == 0 && b[len(b)-n+1]&0x80 == 0 {
		n--
	}
	return b[len(b)-n:]
}

func trimUint(b []byte) []byte {
	n := len(b)
	for n > 1 && b[len(b)-n] == 0 {
		n--
	}
	return b[len(b)-n:]
}

// Encode serializes the map as a SEQUENCE OF parameter records wrapped at
// the given context-specific constructed tag (the service body's fixed
// ParameterMap slot, spec §4.8).
func (m *ParameterMap) Encode(wrapTag int) []byte {
	var body []byte
	for _, key := range m.Keys() {
		v, _ := m.GetFragment(key)
		if v.Kind == KindPointer {
			continue
		}

		var rec []byte
		rec = writeInt(rec, tagParamID, key.ParamID)
		rec = writeInt(rec, tagIndex, key.Index)
		rec = writeInt(rec, tagFragment, key.Fragment)
		rec = writeValue(rec, v)

		// universal tag number 16 is the ASN.1 SEQUENCE
		d := &tlv.Descriptor{Class: tlv.ClassUniversal, Complexity: tlv.Constructed, TagNumber: 16, ValueLength: len(rec)}
		body = tlv.WriteTag(body, d)
		body = tlv.WriteLength(body, d.LengthFormOf(), d.ValueLength)
		body = append(body, rec...)
	}

	d := &tlv.Descriptor{Class: tlv.ClassContextSpecific, Complexity: tlv.Constructed, TagNumber: wrapTag, ValueLength: len(body)}
	out := tlv.WriteTag(nil, d)
	out = tlv.WriteLength(out, d.LengthFormOf(), d.ValueLength)
	return append(out, body...)
}

// Decode parses a ParameterMap previously produced by Encode, expecting
// the same wrapping tag.
func Decode(buf []byte, wrapTag int) (*ParameterMap, error) {
	class, complexity, tagNumber, n, err := tlv.ReadTag(buf)
	if err != nil {
		return nil, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	if class != tlv.ClassContextSpecific || complexity != tlv.Constructed || tagNumber != wrapTag {
		return nil, gdt.ErrDecodeSchema.Errorf("parameter map: unexpected wrap tag")
	}
	buf = buf[n:]

	_, length, n, err := tlv.ReadLength(buf)
	if err != nil {
		return nil, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	buf = buf[n:]
	if length > len(buf) {
		return nil, gdt.ErrDecodeTruncated.Errorf("parameter map length %d exceeds remaining %d bytes", length, len(buf))
	}
	body := buf[:length]

	m := NewParameterMap()
	for len(body) > 0 {
		_, _, _, n, err := tlv.ReadTag(body)
		if err != nil {
			return nil, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		body = body[n:]

		_, recLen, n, err := tlv.ReadLength(body)
		if err != nil {
			return nil, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		body = body[n:]
		if recLen > len(body) {
			return nil, gdt.ErrDecodeTruncated.Errorf("parameter record length %d exceeds remaining %d bytes", recLen, len(body))
		}
		rec := body[:recLen]
		body = body[recLen:]

		key, v, err := decodeRecord(rec)
		if err != nil {
			return nil, err
		}
		m.Set(key.ParamID, v, key.Index, key.Fragment)
	}
	return m, nil
}

func decodeRecord(buf []byte) (Key, Value, error) {
	var key Key
	var v Value

	for len(buf) > 0 {
		class, complexity, tagNumber, n, err := tlv.ReadTag(buf)
		if err != nil {
			return key, v, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		buf = buf[n:]

		_, length, n, err := tlv.ReadLength(buf)
		if err != nil {
			return key, v, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		buf = buf[n:]
		if length > len(buf) {
			return key, v, gdt.ErrDecodeTruncated.Errorf("field length %d exceeds remaining %d bytes", length, len(buf))
		}
		value := buf[:length]
		buf = buf[length:]

		if class != tlv.ClassContextSpecific || complexity != tlv.Primitive {
			continue
		}

		switch {
		case tagNumber == tagParamID:
			key.ParamID = readInt(value)
		case tagNumber == tagIndex:
			key.Index = readInt(value)
		case tagNumber == tagFragment:
			key.Fragment = readInt(value)
		case tagNumber >= tagValueBase:
			v = decodeValue(Kind(tagNumber-tagValueBase), value)
		}
	}
	return key, v, nil
}

func decodeValue(kind Kind, value []byte) Value {
	switch kind {
	case KindBool:
		return BoolValue(len(value) == 1 && value[0] != 0x00)
	case KindInt32:
		return Int32Value(int32(readInt(value)))
	case KindInt64:
		return Int64Value(readInt(value))
	case KindUint32:
		return Uint32Value(uint32(readUint(value)))
	case KindUint64:
		return Uint64Value(readUint(value))
	case KindOctets:
		return OctetsValue(value)
	case KindString:
		return StringValue(string(value))
	default:
		return Value{}
	}
}

func readUint(value []byte) uint64 {
	var v uint64
	for _, b := range value {
		v = (v << 8) | uint64(b)
	}
	return v
}
