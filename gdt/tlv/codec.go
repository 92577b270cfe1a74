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

package tlv

import (
	"fmt"
)

// WriteTag appends the BER identifier octets for d to buf and returns the
// extended slice. Short form is used for tag numbers 0-30; long form
// (initial octet 0x1F, base-128 continuation octets) otherwise.
func WriteTag(buf []byte, d *Descriptor) []byte {
	initial := byte(d.Class) | byte(d.Complexity)

	if d.TagNumber <= 30 {
		return append(buf, initial|byte(d.TagNumber))
	}

	buf = append(buf, initial|0x1F)

	// base-128, most significant group first, continuation bit set on
	// every octet but the last.
	var groups []byte
	v := d.TagNumber
	groups = append(groups, byte(v&0x7F))
	v >>= 7
	for v > 0 {
		groups = append(groups, byte(v&0x7F)|0x80)
		v >>= 7
	}
	for i := len(groups) - 1; i >= 0; i-- {
		buf = append(buf, groups[i])
	}
	return buf
}

// WriteLength appends the BER length octets for the given form/value to
// buf and returns the extended slice.
func WriteLength(buf []byte, form LengthForm, valueLength int) []byte {
	if form == LengthIndefinite {
		return append(buf, 0x80)
	}
	if valueLength < 128 {
		return append(buf, byte(valueLength))
	}

	var octets []byte
	v := valueLength
	for v > 0 {
		octets = append(octets, byte(v&0xFF))
		v >>= 8
	}
	buf = append(buf, 0x80|byte(len(octets)))
	for i := len(octets) - 1; i >= 0; i-- {
		buf = append(buf, octets[i])
	}
	return buf
}

// IndefiniteTerminator is the 0x00 0x00 end-of-contents marker written
// after an indefinite-length node's children.
var IndefiniteTerminator = []byte{0x00, 0x00}

// ReadTag parses the BER identifier octets starting at buf[0] and returns
// the parsed class, complexity, tag number, and the number of octets
// consumed. An error is returned if buf is too short or the tag number
// overflows 32 bits (decode-malformed, per spec §4.1).
func ReadTag(buf []byte) (class Class, complexity Complexity, tagNumber int, consumed int, err error) {
	if len(buf) == 0 {
		return 0, 0, 0, 0, fmt.Errorf("tlv: empty buffer reading tag")
	}

	initial := buf[0]
	class = Class(initial & 0xC0)
	complexity = Complexity(initial & 0x20)
	low := initial & 0x1F

	if low != 0x1F {
		return class, complexity, int(low), 1, nil
	}

	tagNumber = 0
	i := 1
	for {
		if i >= len(buf) {
			return 0, 0, 0, 0, fmt.Errorf("tlv: truncated long-form tag")
		}
		b := buf[i]
		tagNumber = (tagNumber << 7) | int(b&0x7F)
		i++
		if tagNumber > 0xFFFFFFFF {
			return 0, 0, 0, 0, fmt.Errorf("tlv: tag number overflows 32 bits")
		}
		if b&0x80 == 0 {
			break
		}
	}
	return class, complexity, tagNumber, i, nil
}

// ReadLength parses the BER length octets starting at buf[0] and returns
// the parsed form, value length (-1 for indefinite), and octets consumed.
func ReadLength(buf []byte) (form LengthForm, valueLength int, consumed int, err error) {
	if len(buf) == 0 {
		return 0, 0, 0, fmt.Errorf("tlv: empty buffer reading length")
	}

	first := buf[0]
	if first == 0x80 {
		return LengthIndefinite, -1, 1, nil
	}
	if first&0x80 == 0 {
		return LengthDefiniteShort, int(first), 1, nil
	}

	n := int(first & 0x7F)
	if n == 0 || n > 4 {
		return 0, 0, 0, fmt.Errorf("tlv: malformed length-of-length %d", n)
	}
	if len(buf) < 1+n {
		return 0, 0, 0, fmt.Errorf("tlv: truncated long-form length")
	}

	v := 0
	for i := 0; i < n; i++ {
		v = (v << 8) | int(buf[1+i])
	}
	return LengthDefiniteLong, v, 1 + n, nil
}
