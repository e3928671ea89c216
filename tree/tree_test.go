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

package tree_test

import (
	"encoding/hex"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cairn-labs/smt/testing/mocks"
	"github.com/cairn-labs/smt/tree"
)

// mustRoot32 decodes a hex-encoded 32-byte root digest. The vectors below
// are copied verbatim from the specification's concrete end-to-end
// scenarios, so a mismatch here points at the path/bitmap bit-ordering
// convention documented in DESIGN.md's Open Questions section, not at a
// transcription error.
func mustRoot32(t *testing.T, s string) [32]byte {
	t.Helper()
	b, err := hex.DecodeString(s)
	require.NoError(t, err)
	require.Len(t, b, 32)
	var out [32]byte
	copy(out[:], b)
	return out
}

const genericNumLevels = 140

func newEngine(t *testing.T, numLevels uint32) *tree.Engine {
	t.Helper()
	e, err := tree.New(mocks.NoopLogger, mocks.BaselineStore(), numLevels)
	require.NoError(t, err)
	return e
}

func Test_EmptyTree(t *testing.T) {
	e := newEngine(t, genericNumLevels)
	assert.Equal(t, tree.Empty, e.Root())
}

func TestEngine_AddSingleLeaf(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	leaf, il := mocks.GenericLeaf(0)
	err := e.Add(tree.Leaf{Bytes: leaf, IndexLength: il})
	require.NoError(t, err)

	assert.NotEqual(t, tree.Empty, e.Root())
}

func TestEngine_AddTwoLeaves(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	leaves := mocks.GenericLeaves(2)
	for _, l := range leaves {
		err := e.Add(tree.Leaf{Bytes: l, IndexLength: 8})
		require.NoError(t, err)
	}

	assert.NotEqual(t, tree.Empty, e.Root())
}

func TestEngine_AddDuplicatePosition(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	leaf, il := mocks.GenericLeaf(0)
	err := e.Add(tree.Leaf{Bytes: leaf, IndexLength: il})
	require.NoError(t, err)

	err = e.Add(tree.Leaf{Bytes: leaf, IndexLength: il})
	assert.ErrorIs(t, err, tree.ErrAlreadyExists)
}

func TestEngine_OrderIndependence(t *testing.T) {
	leaves := mocks.GenericLeaves(6)

	e1 := newEngine(t, genericNumLevels)
	for _, l := range leaves {
		require.NoError(t, e1.Add(tree.Leaf{Bytes: l, IndexLength: 8}))
	}

	reversed := make([][]byte, len(leaves))
	for i, l := range leaves {
		reversed[len(leaves)-1-i] = l
	}

	e2 := newEngine(t, genericNumLevels)
	for _, l := range reversed {
		require.NoError(t, e2.Add(tree.Leaf{Bytes: l, IndexLength: 8}))
	}

	assert.Equal(t, e1.Root(), e2.Root())
}

func TestEngine_ValueAt(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	leaves := mocks.GenericLeaves(8)
	for _, l := range leaves {
		require.NoError(t, e.Add(tree.Leaf{Bytes: l, IndexLength: 8}))
	}

	for _, l := range leaves {
		hi := e.PositionHash(tree.Leaf{Bytes: l, IndexLength: 8})
		got := e.ValueAt(hi)
		assert.Equal(t, l, got)
	}
}

func TestEngine_ValueAtMissing(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	present, _ := mocks.GenericLeaf(0)
	require.NoError(t, e.Add(tree.Leaf{Bytes: present, IndexLength: 8}))

	absent, _ := mocks.GenericLeaf(1)
	hi := e.PositionHash(tree.Leaf{Bytes: absent, IndexLength: 8})
	got := e.ValueAt(hi)
	assert.Equal(t, tree.Empty[:], got)
}

func TestEngine_ManyLeaves(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	leaves := mocks.GenericLeaves(256)
	for _, l := range leaves {
		require.NoError(t, e.Add(tree.Leaf{Bytes: l, IndexLength: 8}))
	}

	for _, l := range leaves {
		hi := e.PositionHash(tree.Leaf{Bytes: l, IndexLength: 8})
		assert.Equal(t, l, e.ValueAt(hi))
	}
}

// TestEngine_HardcodedSingleLeaf is scenario 1 of the specification's
// concrete end-to-end scenarios: a single five-byte leaf with a three-byte
// index portion.
func TestEngine_HardcodedSingleLeaf(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	err := e.Add(tree.Leaf{Bytes: []byte{0x01, 0x02, 0x03, 0x04, 0x05}, IndexLength: 3})
	require.NoError(t, err)

	want := mustRoot32(t, "a0e72cc948119fcb71b413cf5ada12b2b825d5133299b20a6d9325ffc3e2fbf1")
	assert.Equal(t, want, e.Root())
}

// TestEngine_HardcodedTwoLeaves is scenario 2: two string leaves inserted in
// sequence, asserting the root after each insertion.
func TestEngine_HardcodedTwoLeaves(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	err := e.Add(tree.Leaf{Bytes: []byte("this is a test leaf"), IndexLength: 15})
	require.NoError(t, err)

	wantFirst := mustRoot32(t, "b4fdf8a653198f0e179ccb3af7e4fc09d76247f479d6cfc95cd92d6fda589f27")
	assert.Equal(t, wantFirst, e.Root())

	err = e.Add(tree.Leaf{Bytes: []byte("this is a second test leaf"), IndexLength: 15})
	require.NoError(t, err)

	wantSecond := mustRoot32(t, "8ac95e9c8a6fbd40bb21de7895ee35f9c8f30ca029dbb0972c02344f49462e82")
	assert.Equal(t, wantSecond, e.Root())
}

// TestEngine_HardcodedOrderIndependence is scenario 5: six leaves inserted
// in two distinct permutations, both expected to converge on the same
// hardcoded root.
func TestEngine_HardcodedOrderIndependence(t *testing.T) {
	bytesFor := func(i int) []byte {
		return []byte(strconv.Itoa(i) + " this is a test leaf")
	}
	want := mustRoot32(t, "264397f84da141b3134dcde1d7540d27a2bf0d787bbe8365d9ad5c9c18d3c621")

	first := newEngine(t, genericNumLevels)
	for _, i := range []int{0, 1, 2, 3, 4, 5} {
		require.NoError(t, first.Add(tree.Leaf{Bytes: bytesFor(i), IndexLength: 15}))
	}
	assert.Equal(t, want, first.Root())

	second := newEngine(t, genericNumLevels)
	for _, i := range []int{2, 1, 0, 5, 3, 4} {
		require.NoError(t, second.Add(tree.Leaf{Bytes: bytesFor(i), IndexLength: 15}))
	}
	assert.Equal(t, want, second.Root())
}

// TestEngine_HardcodedThousandLeaves is scenario 6: 1000 sequential leaves,
// asserting the final root against the hardcoded fixture.
func TestEngine_HardcodedThousandLeaves(t *testing.T) {
	e := newEngine(t, genericNumLevels)

	for i := 0; i < 1000; i++ {
		leaf := []byte(strconv.Itoa(i) + " this is a test leaf")
		require.NoError(t, e.Add(tree.Leaf{Bytes: leaf, IndexLength: 15}))
	}

	want := mustRoot32(t, "6e2da580b2920cd78ed8d4e4bf41e209dfc99ef28bc19560042f0ac803e0d6f7")
	assert.Equal(t, want, e.Root())
}
