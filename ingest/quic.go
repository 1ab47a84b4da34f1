/*
 * Licensed to the Apache Software Foundation (ASF) under one or more
 * contributor license agreements.  See the NOTICE file distributed with
 * this work for additional information regarding copyright ownership.
 * The ASF licenses this file to You under the Apache License, Version 2.0
 * (the "License"); you may not use this file except in compliance with
 * the License.  You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package ingest

import (
	"encoding/binary"
)

const (
	quicHeaderFormLong = 0x80
	quicFixedBit       = 0x40
	quicLongTypeMask   = 0x30
	quicLongTypeShift  = 4
	quicTypeInitial    = 0x0

	// RFC 9000 caps connection IDs at 20 bytes for version 1.
	maxQUICConnIDLen = 20

	DefaultShortHeaderDCIDLen = 8
)

// QUICDestConnID extracts the destination connection ID from the first QUIC packet in
// payload. Long header Initial packets are skipped, since their DCID is chosen by the
// client before the server picks the connection's ID. Short headers do not carry the
// DCID length, so shortDCIDLen bytes are taken.
func QUICDestConnID(payload []byte, shortDCIDLen int) ([]byte, bool) {
	if len(payload) == 0 {
		return nil, false
	}
	first := payload[0]
	if first&quicHeaderFormLong == 0 {
		if first&quicFixedBit == 0 || shortDCIDLen <= 0 || shortDCIDLen > maxQUICConnIDLen {
			return nil, false
		}
		if len(payload) < 1+shortDCIDLen {
			return nil, false
		}
		return payload[1 : 1+shortDCIDLen], true
	}

	// form(1) | version(4) | dcid len(1) | dcid
	if len(payload) < 6 {
		return nil, false
	}
	version := binary.BigEndian.Uint32(payload[1:5])
	// version negotiation packets have no packet type
	if version != 0 && (first&quicLongTypeMask)>>quicLongTypeShift == quicTypeInitial {
		return nil, false
	}
	dcidLen := int(payload[5])
	if dcidLen == 0 || dcidLen > maxQUICConnIDLen || len(payload) < 6+dcidLen {
		return nil, false
	}
	return payload[6 : 6+dcidLen], true
}
