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

package schema

import (
	"github.com/minkfabric/mink/gdt"
	"github.com/minkfabric/mink/gdt/tlv"
)

// Encode serializes the tree depth-first under sessionID. Parent lengths
// are already correct (every SetRaw/SetLinked/Unlink propagated its delta),
// so Encode never sums children itself — it only lays out bytes in schema
// order, per spec §4.1.
func Encode(t *Tree, sessionID uint64) []byte {
	return encodeNode(t.Root, sessionID, nil)
}

func encodeNode(n *Node, sessionID uint64, buf []byte) []byte {
	if n.Any {
		return append(buf, n.raw...)
	}

	if n.Choice {
		if len(n.Children) == 0 || n.Selected < 0 || n.Selected >= len(n.Children) {
			return buf
		}
		sel := n.Children[n.Selected]
		if n.Desc.Explicit {
			buf = tlv.WriteTag(buf, n.Desc)
			buf = tlv.WriteLength(buf, n.Desc.LengthFormOf(), n.Desc.ValueLength)
			return encodeNode(sel, sessionID, buf)
		}
		// implicit choice: the selected arm's own tag goes on the wire.
		return encodeNode(sel, sessionID, buf)
	}

	buf = tlv.WriteTag(buf, n.Desc)
	buf = tlv.WriteLength(buf, n.Desc.LengthFormOf(), n.Desc.ValueLength)

	if len(n.Children) > 0 {
		for _, c := range n.Children {
			if !c.Present(sessionID) {
				continue
			}
			buf = encodeNode(c, sessionID, buf)
		}
		if n.Desc.LengthFormOf() == tlv.LengthIndefinite {
			buf = append(buf, tlv.IndefiniteTerminator...)
		}
		return buf
	}

	return append(buf, n.raw...)
}

// Decode parses buf into the tree under sessionID. Errors are one of the
// registered gdt decode-* codes; the stream/session is not torn down by a
// decode error, only the in-progress message is abandoned (spec §4.1).
func Decode(t *Tree, sessionID uint64, buf []byte) error {
	consumed, err := decodeNode(t.Root, sessionID, buf)
	if err != nil {
		return err
	}
	if consumed < len(buf) {
		return gdt.ErrDecodeTrailing.Errorf()
	}
	if consumed > len(buf) {
		return gdt.ErrDecodeTruncated.Errorf()
	}
	return nil
}

func decodeNode(n *Node, sessionID uint64, buf []byte) (int, error) {
	class, complexity, tagNumber, tagSize, err := tlv.ReadTag(buf)
	if err != nil {
		return 0, gdt.ErrDecodeMalformed.Error(err)
	}

	if n.Any {
		form, length, lenSize, err := tlv.ReadLength(buf[tagSize:])
		if err != nil {
			return 0, gdt.ErrDecodeMalformed.Error(err)
		}
		if form == tlv.LengthIndefinite {
			return 0, gdt.ErrDecodeMalformed.Errorf()
		}
		total := tagSize + lenSize + length
		if total > len(buf) {
			return 0, gdt.ErrDecodeTruncated.Errorf()
		}
		n.overlay = Overlay{SessionID: sessionID}
		n.raw = append([]byte(nil), buf[:total]...)
		n.Desc.ValueLength = length
		n.Desc.Recompute()
		return total, nil
	}

	if n.Choice {
		for i, c := range n.Children {
			cClass, cComplexity, cTag, _, cerr := tlv.ReadTag(buf)
			if cerr != nil {
				continue
			}
			if matchesTag(c, cClass, cComplexity, cTag) {
				consumed, err := decodeNode(c, sessionID, buf)
				if err != nil {
					return 0, err
				}
				n.Selected = i
				n.overlay = Overlay{SessionID: sessionID}
				n.Desc.ValueLength = c.Desc.EncodedSize()
				n.Desc.Recompute()
				return consumed, nil
			}
		}
		return 0, gdt.ErrDecodeSchema.Errorf()
	}

	if !matchesTag(n, class, complexity, tagNumber) {
		return 0, gdt.ErrDecodeSchema.Errorf()
	}

	form, length, lenSize, err := tlv.ReadLength(buf[tagSize:])
	if err != nil {
		return 0, gdt.ErrDecodeMalformed.Error(err)
	}

	bodyStart := tagSize + lenSize
	indefinite := form == tlv.LengthIndefinite

	var bodyEnd int
	if !indefinite {
		bodyEnd = bodyStart + length
		if bodyEnd > len(buf) {
			return 0, gdt.ErrDecodeTruncated.Errorf()
		}
	}

	if len(n.Children) == 0 {
		// leaf: value octets are the raw payload.
		if indefinite {
			return 0, gdt.ErrDecodeMalformed.Errorf()
		}
		n.overlay = Overlay{SessionID: sessionID}
		n.raw = append([]byte(nil), buf[bodyStart:bodyEnd]...)
		n.Desc.ValueLength = length
		n.Desc.Recompute()
		return bodyEnd, nil
	}

	offset := bodyStart
	childIdx := 0
	for {
		if indefinite {
			if offset+2 <= len(buf) && buf[offset] == 0x00 && buf[offset+1] == 0x00 {
				bodyEnd = offset + 2
				break
			}
			if offset >= len(buf) {
				return 0, gdt.ErrDecodeTruncated.Errorf()
			}
		} else if offset >= bodyEnd {
			break
		}

		if childIdx >= len(n.Children) {
			return 0, gdt.ErrDecodeBounds.Errorf()
		}

		child := n.Children[childIdx]
		cClass, cComplexity, cTag, _, cerr := tlv.ReadTag(buf[offset:])
		if cerr != nil {
			return 0, gdt.ErrDecodeMalformed.Error(cerr)
		}

		if child.Any || child.Choice || matchesTag(child, cClass, cComplexity, cTag) {
			consumed, err := decodeNode(child, sessionID, buf[offset:])
			if err != nil {
				return 0, err
			}
			offset += consumed
			childIdx++
			continue
		}

		if child.Optional {
			childIdx++
			continue
		}

		return 0, gdt.ErrDecodeSchema.Errorf()
	}

	if bodyEnd > len(buf) {
		return 0, gdt.ErrDecodeTruncated.Errorf()
	}

	n.overlay = Overlay{SessionID: sessionID}
	n.Desc.ValueLength = bodyEnd - bodyStart
	if indefinite {
		n.Desc.ValueLength = offset - bodyStart - 2
	}
	n.Desc.Recompute()
	return bodyEnd, nil
}

func matchesTag(n *Node, class tlv.Class, complexity tlv.Complexity, tagNumber int) bool {
	return n.Desc.Class == class && n.Desc.Complexity == complexity && n.Desc.TagNumber == tagNumber
}
