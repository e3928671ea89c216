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
	"github.com/gammazero/deque"

	"github.com/cairn-labs/smt/hashutil"
)

// A compact proof is a 32-byte bitmap followed by the non-empty siblings it
// names, each 32 bytes, ordered deepest-level-first.
const bitmapSize = 32

// setBit marks position pos (0 at the root step, N-2 at the deepest level) in
// a 32-byte bitmap. Position 0 lives in the least significant bit of the last
// byte.
func setBit(bitmap *[32]byte, pos int) {
	byteIndex := bitmapSize - 1 - pos/8
	bitIndex := uint(pos % 8)
	bitmap[byteIndex] |= 1 << bitIndex
}

// getBit reports whether position pos is set in bitmap.
func getBit(bitmap [32]byte, pos int) bool {
	byteIndex := bitmapSize - 1 - pos/8
	bitIndex := uint(pos % 8)
	return (bitmap[byteIndex]>>bitIndex)&1 == 1
}

// GenerateProof builds a compact inclusion or exclusion proof for position
// hi: a 32-byte bitmap followed by the non-empty off-path siblings
// encountered while walking from the root down to hi's slot, ordered
// deepest-first. Verification replays the same folding with the content hash
// of ValueAt(hi) (or the empty sentinel, for an exclusion proof) as the
// starting leaf digest.
func (e *Engine) GenerateProof(hi [32]byte) []byte {
	path := GetPath(e.numLevels, hi)
	n := int(e.numLevels)

	var bitmap [32]byte
	siblings := deque.New(n)

	nodeHash := e.root
	for g := 0; g < n-1; g++ {
		rec, err := e.getRecord(nodeHash)
		if err != nil {
			e.log.Error().Err(err).Msg("could not descend tree during proof generation")
			break
		}

		if rec.tag == TagValue {
			break
		}

		if rec.tag == TagFinal {
			value := e.ValueAt(hi)
			if !isEmpty32(value) {
				break
			}
			existingHi := GetPath(e.numLevels, e.hash(rec.body[:rec.indexLength]))
			d := ComparePaths(existingHi, path)
			if d == noDiff(path) {
				break
			}
			if d != n-1-g {
				sib := calcHashFromLeafAndLevel(e.hash, d, existingHi, e.hash(rec.body))
				siblings.PushFront(sib)
				setBit(&bitmap, n-2-d)
			}
			break
		}

		left, right := Empty, Empty
		if rec.tag == TagNormal {
			left, right = decodeChildren(rec.body)
		}

		bitIndex := n - 2 - g
		var offPath [32]byte
		if path[bitIndex] {
			nodeHash, offPath = right, left
		} else {
			nodeHash, offPath = left, right
		}

		if !isEmpty(offPath) {
			siblings.PushFront(offPath)
			setBit(&bitmap, g)
		}
	}

	out := make([]byte, 0, bitmapSize+32*siblings.Len())
	out = append(out, bitmap[:]...)
	for i := 0; i < siblings.Len(); i++ {
		s := siblings.At(i).([32]byte)
		out = append(out, s[:]...)
	}
	return out
}

// isEmpty32 reports whether a value returned by ValueAt is the empty
// sentinel: either nil, zero-length, or exactly the 32 zero bytes.
func isEmpty32(v []byte) bool {
	if len(v) != 32 {
		return len(v) == 0
	}
	var zero [32]byte
	for i, b := range v {
		if b != zero[i] {
			return false
		}
	}
	return true
}

// VerifyProof checks a compact proof against a root, position hash hi and
// leaf digest ht, for a tree of the given depth using the given hash
// primitive. ht is the all-zero sentinel for an exclusion proof. It returns
// false — never an error — for any malformed proof or failed verification,
// matching the free-standing shape of the reference check: no tree instance
// is required to verify a proof against its root.
func VerifyProof(root [32]byte, proof []byte, hi, ht [32]byte, numLevels uint32, hash hashutil.Func) bool {
	if len(proof) < bitmapSize || (len(proof)-bitmapSize)%32 != 0 {
		return false
	}

	var bitmap [32]byte
	copy(bitmap[:], proof[:bitmapSize])
	siblingBytes := proof[bitmapSize:]
	k := len(siblingBytes) / 32

	path := GetPath(numLevels, hi)
	n := int(numLevels)

	nodeHash := ht
	cursor := 0
	for i := n - 2; i >= 0; i-- {
		var sibling [32]byte
		if getBit(bitmap, i) {
			if cursor >= k {
				return false
			}
			copy(sibling[:], siblingBytes[cursor*32:(cursor+1)*32])
			cursor++
		}

		var left, right [32]byte
		if path[n-2-i] {
			left, right = sibling, nodeHash
		} else {
			left, right = nodeHash, sibling
		}

		if isEmpty(left) && isEmpty(right) {
			nodeHash = Empty
		} else {
			nodeHash = hash(encodeChildren(left, right))
		}
	}

	if cursor != k {
		return false
	}

	return nodeHash == root
}
