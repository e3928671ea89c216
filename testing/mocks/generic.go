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

package mocks

import (
	"encoding/binary"
	"io"

	"github.com/rs/zerolog"
)

// NoopLogger is a logger that discards everything it is given, for tests
// that need to satisfy a zerolog.Logger parameter without any output.
var NoopLogger = zerolog.New(io.Discard)

// GenericLeaf deterministically derives leaf bytes from an index, with the
// first 8 bytes (the index portion) holding i in big-endian form and a
// further 24 bytes of filler content appended.
func GenericLeaf(i int) ([]byte, uint32) {
	buf := make([]byte, 32)
	binary.BigEndian.PutUint64(buf[:8], uint64(i))
	for j := 8; j < len(buf); j++ {
		buf[j] = byte(i + j)
	}
	return buf, 8
}

// GenericLeaves returns n distinct leaves generated by GenericLeaf.
func GenericLeaves(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		leaf, _ := GenericLeaf(i)
		out[i] = leaf
	}
	return out
}
