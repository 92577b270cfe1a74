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

// Field tags within a RegistrationMessage body (spec §4.5), independent of
// the header's own tag numbering since this is a separately-parsed blob.
const (
	tagRegAction = iota
	tagRegDaemonType
	tagRegDaemonID
	tagRegRouter
	tagRegStatus
)

// EncodeRegistration serializes a RegistrationMessage as this body's
// APPLICATION 2 payload.
func EncodeRegistration(m RegistrationMessage) []byte {
	var buf []byte
	buf = writeField(buf, tagRegAction, []byte{byte(m.Action)})
	buf = writeField(buf, tagRegDaemonType, []byte(m.DaemonType))
	buf = writeField(buf, tagRegDaemonID, []byte(m.DaemonID))
	buf = writeBool(buf, tagRegRouter, m.Router)
	buf = writeUint16(buf, tagRegStatus, m.Status)
	return buf
}

// DecodeRegistration parses a RegistrationMessage body. Missing mandatory
// fields (daemon type or id) are reported via gdt.ErrRegistrationMissingFields
// per spec §4.5's registration failure modes.
func DecodeRegistration(buf []byte) (RegistrationMessage, error) {
	var m RegistrationMessage

	for len(buf) > 0 {
		class, complexity, tagNumber, n, err := tlv.ReadTag(buf)
		if err != nil {
			return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		buf = buf[n:]

		_, length, n, err := tlv.ReadLength(buf)
		if err != nil {
			return m, gdt.ErrDecodeMalformed.Errorf("%s", err.Error())
		}
		buf = buf[n:]
		if length > len(buf) {
			return m, gdt.ErrDecodeTruncated.Errorf("registration field length %d exceeds remaining %d bytes", length, len(buf))
		}
		value := buf[:length]
		buf = buf[length:]

		if class != tlv.ClassContextSpecific || complexity != tlv.Primitive {
			continue
		}

		switch tagNumber {
		case tagRegAction:
			if len(value) == 1 {
				m.Action = RegistrationAction(value[0])
			}
		case tagRegDaemonType:
			m.DaemonType = string(value)
		case tagRegDaemonID:
			m.DaemonID = string(value)
		case tagRegRouter:
			if len(value) == 1 {
				m.Router = value[0] != 0x00
			}
		case tagRegStatus:
			if len(value) == 2 {
				m.Status = Uint16(value)
			}
		}
	}

	if m.DaemonType == "" || m.DaemonID == "" {
		return m, gdt.ErrRegistrationMissingFields.Errorf("registration message missing daemon type or id")
	}
	return m, nil
}
