// Copyright 2021 Optakt Labs OÜ
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not
// use this file except in compliance with the License. You may obtain a copy of
// the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS, WITHOUT
// WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the
// License for the specific language governing permissions and limitations under
// the License.

package tree

import (
	"encoding/binary"
	"fmt"
)

// encodeRecord serializes a node for storage as tag(1) || index_length(4,
// little-endian) || body.
func encodeRecord(tag byte, indexLength uint32, body []byte) []byte {
	buf := make([]byte, 5+len(body))
	buf[0] = tag
	binary.LittleEndian.PutUint32(buf[1:5], indexLength)
	copy(buf[5:], body)
	return buf
}

// decodeRecord parses a stored payload back into its tag, index length and
// body.
func decodeRecord(raw []byte) (record, error) {
	if len(raw) < 5 {
		return record{}, fmt.Errorf("node payload too short: %d bytes", len(raw))
	}
	rec := record{
		tag:         raw[0],
		indexLength: binary.LittleEndian.Uint32(raw[1:5]),
		body:        raw[5:],
	}
	return rec, nil
}

// encodeChildren packs a NORMAL node's two children into the 64-byte body
// hashed to produce the node's own key.
func encodeChildren(left, right [32]byte) []byte {
	buf := make([]byte, 64)
	copy(buf[:32], left[:])
	copy(buf[32:], right[:])
	return buf
}

// decodeChildren unpacks a NORMAL node's body into its two children.
func decodeChildren(body []byte) (left, right [32]byte) {
	if len(body) != 64 {
		return Empty, Empty
	}
	copy(left[:], body[:32])
	copy(right[:], body[32:])
	return left, right
}
