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

// Field tags within a StatsMessage body, independent of the header's own
// tag numbering since this is a separately-parsed blob (mirrors
// RegistrationMessage's tagReg* scheme).
const (
	tagStatsStreamsOpen = iota
	tagStatsStreamsTotal
	tagStatsHeartbeatMiss
	tagStatsPoolWraparound
)

// EncodeStats serializes a StatsMessage as this body's APPLICATION 2
// payload, for a GDT_STATS_REQUEST reply (spec §3's fifth named message
// kind).
func EncodeStats(m StatsMessage) []byte {
	var buf []byte
	buf = writeUint32(buf, tagStatsStreamsOpen, m.StreamsOpen)
	buf = writeUint64(buf, tagStatsStreamsTotal, m.StreamsTotal)
	buf = writeUint32(buf, tagStatsHeartbeatMiss, m.HeartbeatMiss)
	buf = writeUint64(buf, tagStatsPoolWraparound, m.PoolWraparound)
	return buf
}

// DecodeStats parses a StatsMessage body.
func DecodeStats(buf []byte) (StatsMessage, error) {
	var m StatsMessage

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
			return m, gdt.ErrDecodeTruncated.Errorf("stats field length %d exceeds remaining %d bytes", length, len(buf))
		}
		value := buf[:length]
		buf = buf[length:]

		if class != tlv.ClassContextSpecific || complexity != tlv.Primitive {
			continue
		}

		switch tagNumber {
		case tagStatsStreamsOpen:
			if len(value) == 4 {
				m.StreamsOpen = Uint32(value)
			}
		case tagStatsStreamsTotal:
			if len(value) == 8 {
				m.StreamsTotal = Uint64(value)
			}
		case tagStatsHeartbeatMiss:
			if len(value) == 4 {
				m.HeartbeatMiss = Uint32(value)
			}
		case tagStatsPoolWraparound:
			if len(value) == 8 {
				m.PoolWraparound = Uint64(value)
			}
		}
	}

	return m, nil
}
