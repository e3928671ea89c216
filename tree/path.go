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

// GetPath extracts the descent path for a position hash over a tree with the
// given number of levels. The returned slice has numLevels-1 entries; entry i
// is bit i of hi, counted from the least significant bit of the digest. Bit
// N-2 is consumed first, at the root; bit 0 is consumed last, nearest the
// leaf.
func GetPath(numLevels uint32, hi [32]byte) []bool {
	n := int(numLevels) - 1
	path := make([]bool, n)
	for i := 0; i < n; i++ {
		byteIndex := len(hi) - 1 - i/8
		bitIndex := uint(i % 8)
		path[i] = (hi[byteIndex]>>bitIndex)&1 == 1
	}
	return path
}

// CutPath returns the suffix of path starting at index i. Cutting at or past
// the end of the path yields an empty suffix.
func CutPath(path []bool, i int) []bool {
	if i >= len(path) {
		return nil
	}
	if i < 0 {
		i = 0
	}
	return path[i:]
}

// noDiff is the sentinel ComparePaths returns for two identical paths. It is
// deliberately chosen to equal the tree's level count N (never -1): both
// paths passed to ComparePaths always have length N-1, so N is recovered as
// len(a)+1.
func noDiff(path []bool) int {
	return len(path) + 1
}

// ComparePaths compares two descent paths of equal length, both produced by
// GetPath for the same number of levels. It returns the highest index at
// which the two paths diverge, scanning from the root (the end of the slice)
// toward the leaf (index 0). If the paths never diverge, it returns the
// no-diff sentinel N = len(a)+1.
func ComparePaths(a, b []bool) int {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			return i
		}
	}
	return noDiff(a)
}

// EmptiesBetween returns the hashes of the empty sibling subtrees for every
// level from i down to pos, inclusive of both ends, in descent
// order (from i down to pos). Every entry is the Empty sentinel: siblings
// synthesized this way are always empty by construction, since they pad the
// gap opened up by hoisting a FINAL node.
func EmptiesBetween(i, pos int) [][32]byte {
	if i < pos {
		return nil
	}
	out := make([][32]byte, i-pos+1)
	for idx := range out {
		out[idx] = Empty
	}
	return out
}
