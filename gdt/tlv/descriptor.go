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

// Package tlv implements the ASN.1 BER tag/length primitives a schema node
// needs: tag class and complexity, short/long tag numbers, and the three
// length forms (definite-short, definite-long, indefinite).
package tlv

import (
	ber "github.com/go-asn1-ber/asn1-ber"
)

// Class mirrors the BER tag class of a node.
type Class = ber.Class

// Complexity mirrors the BER primitive/constructed bit.
type Complexity = ber.Type

// Re-exported so callers of this package never need to import asn1-ber
// directly for the four tag classes and the two complexity kinds.
const (
	ClassUniversal       = ber.ClassUniversal
	ClassApplication     = ber.ClassApplication
	ClassContextSpecific = ber.ClassContext
	ClassPrivate         = ber.ClassPrivate

	Primitive   = ber.TypePrimitive
	Constructed = ber.TypeConstructed
)

// UniversalClass names the ASN.1 universal types this runtime's schema trees
// use, plus the Choice and Any variants. Its values are this package's own
// numbering, not the ASN.1 universal tag numbers.
type UniversalClass int

const (
	UniversalNone UniversalClass = iota
	UniversalBoolean
	UniversalInteger
	UniversalBitString
	UniversalOctetString
	UniversalNull
	UniversalObjectIdentifier
	UniversalSequence
	UniversalSet
	UniversalChoice
	UniversalAny
	UniversalUTF8String
)

// LengthForm is the three BER length encodings from spec §4.1.
type LengthForm int

const (
	LengthDefiniteShort LengthForm = iota
	LengthDefiniteLong
	LengthIndefinite
)

// Descriptor holds every per-node TLV attribute named in the data model:
// tag class/complexity, universal class code, tag number, explicit-tag
// flag, value length, length-of-length size, tag encoding size, and the
// previous value length used to compute parent-length deltas.
type Descriptor struct {
	Class        Class
	Complexity   Complexity
	Universal    UniversalClass
	TagNumber    int
	Explicit     bool
	Unbounded    bool // indefinite length allowed (constructed nodes only)
	ValueLength  int
	PrevLength   int
	TagSize      int
	LengthSize   int
}

// TagSizeOf returns the number of octets the tag of this descriptor takes:
// one octet for tag numbers 0-30 (short form), otherwise the initial octet
// (class/complexity bits, tag number = 0x1F) followed by base-128 encoded
// continuation octets (long form).
func TagSizeOf(tagNumber int) int {
	if tagNumber <= 30 {
		return 1
	}

	n := 1
	v := tagNumber
	for v > 0 {
		n++
		v >>= 7
	}
	return n
}

// LengthSizeOf returns the number of octets a BER length prefix occupies
// for the given form and value length.
func LengthSizeOf(form LengthForm, valueLength int) int {
	switch form {
	case LengthIndefinite:
		return 1 // 0x80 leading octet; terminator 0x00 0x00 is not part of "length size"
	default:
		if valueLength < 128 {
			return 1
		}
		n := 0
		v := valueLength
		for v > 0 {
			n++
			v >>= 8
		}
		return 1 + n
	}
}

// LengthFormOf picks the length form for a value of the given length,
// honoring the node's Unbounded flag per spec §4.1: indefinite form is
// only used for constructed nodes whose unlimited_size flag is set.
func (d *Descriptor) LengthFormOf() LengthForm {
	if d.Unbounded && d.Complexity == Constructed {
		return LengthIndefinite
	}
	if d.ValueLength < 128 {
		return LengthDefiniteShort
	}
	return LengthDefiniteLong
}

// Recompute refreshes TagSize and LengthSize from the descriptor's current
// state. Callers invoke this whenever the value or a child's length
// changes; it never re-walks siblings or children.
func (d *Descriptor) Recompute() {
	d.TagSize = TagSizeOf(d.TagNumber)
	d.LengthSize = LengthSizeOf(d.LengthFormOf(), d.ValueLength)
}

// EncodedSize is tag+length+value for this node alone (no children summed
// beyond what ValueLength already reflects).
func (d *Descriptor) EncodedSize() int {
	return d.TagSize + d.LengthSize + d.ValueLength
}

// Delta returns the change in ValueLength since the last CommitDelta, used to
// propagate length deltas up the parent chain without a full re-walk.
func (d *Descriptor) Delta() int {
	return d.ValueLength - d.PrevLength
}

// CommitDelta records the current ValueLength as the new PrevLength after a
// delta has been propagated to the parent.
func (d *Descriptor) CommitDelta() {
	d.PrevLength = d.ValueLength
}
