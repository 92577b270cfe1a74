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

// Package service implements the ParameterMap and Service Message layer
// of spec §3/§4.8: an insertion-ordered (param-id, index, fragment) to
// typed-variant mapping, encoded as a SEQUENCE OF parameter records.
package service

// Kind is the ParameterMap value variant (spec §3 GLOSSARY: "boolean,
// integer, octets, pointer"). Pointer is in-process only and never
// reaches the wire.
type Kind int

const (
	KindBool Kind = iota
	KindInt32
	KindUint32
	KindInt64
	KindUint64
	KindOctets
	KindString
	KindPointer
)

// Value is the typed variant a ParameterMap entry carries.
type Value struct {
	Kind    Kind
	boolV   bool
	int64V  int64
	uint64V uint64
	bytesV  []byte
	strV    string
	ptrV    any
}

func BoolValue(v bool) Value     { return Value{Kind: KindBool, boolV: v} }
func Int32Value(v int32) Value   { return Value{Kind: KindInt32, int64V: int64(v)} }
func Uint32Value(v uint32) Value { return Value{Kind: KindUint32, uint64V: uint64(v)} }
func Int64Value(v int64) Value   { return Value{Kind: KindInt64, int64V: v} }
func Uint64Value(v uint64) Value { return Value{Kind: KindUint64, uint64V: v} }
func OctetsValue(v []byte) Value { return Value{Kind: KindOctets, bytesV: append([]byte(nil), v...)} }
func StringValue(v string) Value { return Value{Kind: KindString, strV: v} }
func PointerValue(v any) Value   { return Value{Kind: KindPointer, ptrV: v} }

func (v Value) Bool() bool     { return v.boolV }
func (v Value) Int32() int32   { return int32(v.int64V) }
func (v Value) Uint32() uint32 { return uint32(v.uint64V) }
func (v Value) Int64() int64   { return v.int64V }
func (v Value) Uint64() uint64 { return v.uint64V }
func (v Value) Octets() []byte { return v.bytesV }
func (v Value) Str() string    { return v.strV }
func (v Value) Pointer() any   { return v.ptrV }

func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindBool:
		return v.boolV == o.boolV
	case KindInt32, KindInt64:
		return v.int64V == o.int64V
	case KindUint32, KindUint64:
		return v.uint64V == o.uint64V
	case KindOctets:
		return string(v.bytesV) == string(o.bytesV)
	case KindString:
		return v.strV == o.strV
	case KindPointer:
		return v.ptrV == o.ptrV
	default:
		return false
	}
}
