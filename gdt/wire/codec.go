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

package wire

import (
	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/tlv"
)

// Wire-fixed field tag numbers within the header's constructed body. The
// header shape never varies by session, unlike the overlay-bearing
// schemas gdt/schema encodes, so it is framed directly with the tlv
// primitives rather than built as a schema.Tree: there is nothing for an
// overlay to attach to.
const (
	tagSourceType = iota
	tagSourceID
	tagDestType
	tagDestID
	tagUUID
	tagMessageID
	tagSequenceNum
	tagSequenceEnd
	tagStatus
	tagHopCount
)

func writeField(buf []byte, tagNumber int, value []byte) []byte {
	d := &tlv.Descriptor{
		Class:       tlv.ClassContextSpecific,
		Complexity:  tlv.Primitive,
		TagNumber:   tagNumber,
		ValueLength: len(value),
	}
	buf = tlv.WriteTag(buf, d)
	buf = tlv.WriteLength(buf, d.LengthFormOf(), d.ValueLength)
	buf = append(buf, value...)
	return buf
}

func writeUint64(buf []byte, tagNumber int, v uint64) []byte {
	b := make([]byte, 8)
	PutUint64(b, v)
	return writeField(buf, tagNumber, b)
}

func writeUint32(buf []byte, tagNumber int, v uint32) []byte {
	b := make([]byte, 4)
	PutUint32(b, v)
	return writeField(buf, tagNumber, b)
}

func writeUint16(buf []byte, tagNumber int, v uint16) []byte {
	b := make([]byte, 2)
	PutUint16(b, v)
	return writeField(buf, tagNumber, b)
}

func writeBool(buf []byte, tagNumber int, v bool) []byte {
	b := byte(0x00)
	if v {
		b = 0xff
	}
	return writeField(buf, tagNumber, []byte{b})
}

func wrapApplication(tagNumber int, body []byte) []byte {
	d := &tlv.Descriptor{
		Class:       tlv.ClassApplication,
		Complexity:  tlv.Constructed,
		TagNumber:   tagNumber,
		ValueLength: len(body),
	}
	buf := tlv.WriteTag(nil, d)
	buf = tlv.WriteLength(buf, d.LengthFormOf(), d.ValueLength)
	return append(buf, body...)
}

// EncodeMessage serializes a Message as the IMPLICIT APPLICATION 0
// SEQUENCE of spec §6: header (application 1) followed by an optional
// body (application 2).
func EncodeMessage(m Message) []byte {
	var hdr []byte
	hdr = writeField(hdr, tagSourceType, []byte(m.Header.Source.Type))
	hdr = writeField(hdr, tagSourceID, []byte(m.Header.Source.ID))
	hdr = writeField(hdr, tagDestType, []byte(m.Header.Destination.Type))
	hdr = writeField(hdr, tagDestID, []byte(m.Header.Destination.ID))
	hdr = writeField(hdr, tagUUID, m.Header.UUID[:])
	hdr = writeUint64(hdr, tagMessageID, m.Header.MessageID)
	hdr = writeUint32(hdr, tagSequenceNum, m.Header.SequenceNum)
	hdr = writeBool(hdr, tagSequenceEnd, m.Header.SequenceEnd)
	hdr = writeUint16(hdr, tagStatus, m.Header.Status)
	hdr = writeField(hdr, tagHopCount, []byte{m.Header.HopCount})

	var kind [1]byte
	kind[0] = byte(m.Kind)
	hdr = writeField(hdr, tagHopCount+1, kind[:])

	out := wrapApplication(1, hdr)
	if len(m.Body) > 0 {
		out = append(out, wrapApplication(2, m.Body)...)
	}
	return wrapApplication(0, out)
}

// DecodeMessage parses a Message produced by EncodeMessage. Unknown
// optional context-specific tags inside the header are tolerated by
// skipping their TLV per spec §6, so a future field addition does not
// break older readers.
func DecodeMessage(buf []byte) (Message, error) {
	var m Message

	class, complexity, tagNumber, n, err := tlv.ReadTag(buf)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	if class != tlv.ClassApplication || complexity != tlv.Constructed || tagNumber != 0 {
		return m, gdt.ErrDecodeSchema.Errorf("expected APPLICATION 0 SEQUENCE root")
	}
	buf = buf[n:]

	_, length, n, err := tlv.ReadLength(buf)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	buf = buf[n:]
	if length > len(buf) {
		return m, gdt.ErrDecodeTruncated.Errorf("root length %d exceeds remaining %d bytes", length, len(buf))
	}
	root := buf[:length]

	class, complexity, tagNumber, n, err = tlv.ReadTag(root)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	if class != tlv.ClassApplication || complexity != tlv.Constructed || tagNumber != 1 {
		return m, gdt.ErrDecodeSchema.Errorf("expected APPLICATION 1 header")
	}
	root = root[n:]

	_, hdrLen, n, err := tlv.ReadLength(root)
	if err != nil {
		return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
	}
	root = root[n:]
	if hdrLen > len(root) {
		return m, gdt.ErrDecodeTruncated.Errorf("header length %d exceeds remaining %d bytes", hdrLen, len(root))
	}
	hdrBuf := root[:hdrLen]
	rest := root[hdrLen:]

	if err := decodeHeader(hdrBuf, &m.Header, &m.Kind); err != nil {
		return m, err
	}

	if len(rest) > 0 {
		class, complexity, tagNumber, n, err = tlv.ReadTag(rest)
		if err != nil {
			return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		if class != tlv.ClassApplication || complexity != tlv.Constructed || tagNumber != 2 {
			return m, gdt.ErrDecodeSchema.Errorf("expected APPLICATION 2 body")
		}
		rest = rest[n:]

		_, bodyLen, n, err := tlv.ReadLength(rest)
		if err != nil {
			return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		rest = rest[n:]
		if bodyLen > len(rest) {
			return m, gdt.ErrDecodeTruncated.Errorf("body length %d exceeds remaining %d bytes", bodyLen, len(rest))
		}
		m.Body = append([]byte(nil), rest[:bodyLen]...)
	}

	return m, nil
}

func decodeHeader(buf []byte, h *Header, kind *BodyKind) error {
	for len(buf) > 0 {
		class, complexity, tagNumber, n, err := tlv.ReadTag(buf)
		if err != nil {
			return gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		buf = buf[n:]

		_, length, n, err := tlv.ReadLength(buf)
		if err != nil {
			return gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		buf = buf[n:]
		if length > len(buf) {
			return gdt.ErrDecodeTruncated.Errorf("field length %d exceeds remaining %d bytes", length, len(buf))
		}
		value := buf[:length]
		buf = buf[length:]

		if class != tlv.ClassContextSpecific || complexity != tlv.Primitive {
			continue // unknown/optional: skip per spec §6 tolerance rule
		}

		switch tagNumber {
		case tagSourceType:
			h.Source.Type = string(value)
		case tagSourceID:
			h.Source.ID = string(value)
		case tagDestType:
			h.Destination.Type = string(value)
		case tagDestID:
			h.Destination.ID = string(value)
		case tagUUID:
			if len(value) == 16 {
				copy(h.UUID[:], value)
			}
		case tagMessageID:
			if len(value) == 8 {
				h.MessageID = Uint64(value)
			}
		case tagSequenceNum:
			if len(value) == 4 {
				h.SequenceNum = Uint32(value)
			}
		case tagSequenceEnd:
			if len(value) == 1 {
				h.SequenceEnd = value[0] != 0x00
			}
		case tagStatus:
			if len(value) == 2 {
				h.Status = Uint16(value)
			}
		case tagHopCount:
			if len(value) == 1 {
				h.HopCount = value[0]
			}
		case tagHopCount + 1:
			if len(value) == 1 {
				*kind = BodyKind(value[0])
			}
		}
	}
	return nil
}
