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

// Package gdt registers the error codes shared by every GDT runtime
// subpackage, following the category table of the error handling design.
package gdt

import (
	liberr "github.com/minkfabric/mink/errors"
)

// Decode error codes: malformed, truncated, schema mismatch, bounds.
const (
	ErrDecodeMalformed liberr.CodeError = liberr.MinPkgGDTDecode + iota
	ErrDecodeTruncated
	ErrDecodeTrailing
	ErrDecodeSchema
	ErrDecodeBounds
)

// Transport error codes: association down, send failure.
const (
	ErrTransportDown liberr.CodeError = liberr.MinPkgGDTTransport + iota
	ErrTransportSend
	ErrTransportClosed
	ErrTransportDial
	ErrTransportWrite
	ErrTransportRead
	ErrTransportFrame
)

// Registration error codes: timeout, duplicate, missing fields.
const (
	ErrRegistrationTimeout liberr.CodeError = liberr.MinPkgGDTRegistration + iota
	ErrRegistrationDuplicate
	ErrRegistrationMissingFields
)

// Stream error codes: timeout, cancelled, non-zero reply status.
const (
	ErrStreamTimeout liberr.CodeError = liberr.MinPkgGDTStream + iota
	ErrStreamCancelled
	ErrStreamStatus
	ErrStreamUnknown
)

// Resource error codes: pool exhaustion.
const (
	ErrPoolExhausted liberr.CodeError = liberr.MinPkgGDTPool + iota
)

// Config error codes: parse failure, template mismatch.
const (
	ErrConfigParse liberr.CodeError = liberr.MinPkgGDTConfig + iota
	ErrConfigTemplateMismatch
	ErrConfigCommitLog
	ErrConfigInvalid
)

// Route error codes: no eligible destination for a routed send.
const (
	ErrRouteNoDestination liberr.CodeError = liberr.MinPkgGDTRoute + iota
)

// Service message error codes: reply called outside a stream-new callback.
const (
	ErrServiceNoCorrelation liberr.CodeError = liberr.MinPkgGDTService + iota
)

func init() {
	liberr.RegisterIdFctMessage(ErrDecodeMalformed, func(code liberr.CodeError) string {
		switch code {
		case ErrDecodeMalformed:
			return "malformed tag or length prefix"
		case ErrDecodeTruncated:
			return "unexpected end of buffer while decoding"
		case ErrDecodeTrailing:
			return "trailing bytes after root length was fully consumed"
		case ErrDecodeSchema:
			return "TLV does not match the expected schema position"
		case ErrDecodeBounds:
			return "value exceeds declared parent length"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrTransportDown, func(code liberr.CodeError) string {
		switch code {
		case ErrTransportDown:
			return "transport association is down"
		case ErrTransportSend:
			return "transport send failed"
		case ErrTransportClosed:
			return "transport already closed"
		case ErrTransportDial:
			return "transport dial or listen failed"
		case ErrTransportWrite:
			return "transport write failed"
		case ErrTransportRead:
			return "transport read failed"
		case ErrTransportFrame:
			return "transport frame length out of bounds"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrRegistrationTimeout, func(code liberr.CodeError) string {
		switch code {
		case ErrRegistrationTimeout:
			return "registration handshake timed out"
		case ErrRegistrationDuplicate:
			return "duplicate registration for an already-registered peer"
		case ErrRegistrationMissingFields:
			return "registration message is missing mandatory fields"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrStreamTimeout, func(code liberr.CodeError) string {
		switch code {
		case ErrStreamTimeout:
			return "stream had no activity within the configured interval"
		case ErrStreamCancelled:
			return "stream was cancelled"
		case ErrStreamStatus:
			return "stream reply carried a non-zero status"
		case ErrStreamUnknown:
			return "no stream table entry for this message id"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrPoolExhausted, func(code liberr.CodeError) string {
		switch code {
		case ErrPoolExhausted:
			return "pool exhausted and hard cap set: no entry was overwritten"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrConfigParse, func(code liberr.CodeError) string {
		switch code {
		case ErrConfigParse:
			return "configuration body failed to parse"
		case ErrConfigTemplateMismatch:
			return "configuration path does not match a known template"
		case ErrConfigCommitLog:
			return "commit log read or write failed"
		case ErrConfigInvalid:
			return "configuration value is invalid"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrRouteNoDestination, func(code liberr.CodeError) string {
		switch code {
		case ErrRouteNoDestination:
			return "no eligible destination for this type: all weights are zero or none registered"
		default:
			return ""
		}
	})

	liberr.RegisterIdFctMessage(ErrServiceNoCorrelation, func(code liberr.CodeError) string {
		switch code {
		case ErrServiceNoCorrelation:
			return "reply called outside a stream-new callback: no request to correlate against"
		default:
			return ""
		}
	})
}
