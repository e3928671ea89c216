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
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/cairn-labs/smt/hashutil"
	"github.com/cairn-labs/smt/store"
)

// Leaf is a value to be inserted into the tree: an opaque byte sequence
// together with the length of its leading index portion. The index bytes
// determine the leaf's position in the tree; the full byte sequence
// determines its content address.
type Leaf struct {
	Bytes       []byte
	IndexLength uint32
}

func (l Leaf) hi(h hashutil.Func) [32]byte {
	return h(l.Bytes[:l.IndexLength])
}

func (l Leaf) ht(h hashutil.Func) [32]byte {
	return h(l.Bytes)
}

// Engine is the sparse Merkle tree: a fixed-depth binary trie whose nodes
// are content-addressed records in a Store. It holds no in-memory copy of
// the tree beyond its own root; every other node is read back from the
// store on demand.
type Engine struct {
	log       zerolog.Logger
	store     store.Store
	hash      hashutil.Func
	numLevels uint32
	root      [32]byte
}

// Option configures an Engine at construction time.
type Option func(*Engine)

// WithHash overrides the default hash primitive. Meant for tests that need a
// cheaper stand-in for Keccak-256.
func WithHash(h hashutil.Func) Option {
	return func(e *Engine) {
		e.hash = h
	}
}

// WithRoot initializes the engine with a pre-existing root, to resume work
// against a store that already holds a tree.
func WithRoot(root [32]byte) Option {
	return func(e *Engine) {
		e.root = root
	}
}

// New creates a tree engine with the given number of levels, backed by the
// given store. numLevels must be at least 2: a single-level tree has no room
// for a path and cannot tell leaves apart.
func New(log zerolog.Logger, st store.Store, numLevels uint32, opts ...Option) (*Engine, error) {
	if numLevels < 2 {
		return nil, fmt.Errorf("invalid number of levels: %d", numLevels)
	}

	e := &Engine{
		log:       log.With().Str("component", "tree_engine").Logger(),
		store:     st,
		hash:      hashutil.Keccak256,
		numLevels: numLevels,
	}
	for _, opt := range opts {
		opt(e)
	}

	return e, nil
}

// Root returns the current root digest. An empty tree has the all-zero
// root.
func (e *Engine) Root() [32]byte {
	return e.root
}

// PositionHash computes the position hash hi = H(leaf.Bytes[:leaf.IndexLength])
// that determines where leaf sits in the tree.
func (e *Engine) PositionHash(leaf Leaf) [32]byte {
	return leaf.hi(e.hash)
}

// ContentHash computes the full content hash ht = H(leaf.Bytes) under which
// a VALUE node is stored.
func (e *Engine) ContentHash(leaf Leaf) [32]byte {
	return leaf.ht(e.hash)
}

// NumLevels returns the tree's fixed depth.
func (e *Engine) NumLevels() uint32 {
	return e.numLevels
}

// getRecord reads the node stored under key, or the implicit EMPTY record if
// key is the all-zero sentinel or genuinely absent from the store. Any other
// store failure is returned as an error.
func (e *Engine) getRecord(key [32]byte) (record, error) {
	if isEmpty(key) {
		return record{tag: TagEmpty}, nil
	}

	raw, err := e.store.Get(key)
	if errors.Is(err, store.ErrNotFound) {
		return record{tag: TagEmpty}, nil
	}
	if err != nil {
		return record{}, fmt.Errorf("could not read node %x: %w", key, err)
	}

	rec, err := decodeRecord(raw)
	if err != nil {
		return record{}, fmt.Errorf("could not decode node %x: %w", key, err)
	}
	return rec, nil
}

// putRecord writes a node under key. The EMPTY tag is never stored: callers
// never attempt to, since empty subtrees are represented purely by the
// all-zero key.
func (e *Engine) putRecord(key [32]byte, tag byte, indexLength uint32, body []byte) error {
	raw := encodeRecord(tag, indexLength, body)
	if err := e.store.Put(key, raw); err != nil {
		return fmt.Errorf("could not write node %x: %w", key, err)
	}
	return nil
}

// calcHashFromLeafAndLevel folds empty-sibling hashes upward from a leaf
// hash for untilLevel steps, branching by path. At step j, if path[j] is set
// the accumulator becomes H(EMPTY || acc); otherwise it becomes H(acc ||
// EMPTY). It computes the content address a lone leaf would have if hoisted
// to sit alone untilLevel levels above the bottom of the tree.
func calcHashFromLeafAndLevel(hash hashutil.Func, untilLevel int, path []bool, leafHash [32]byte) [32]byte {
	acc := leafHash
	for j := 0; j < untilLevel; j++ {
		var left, right [32]byte
		if path[j] {
			left, right = Empty, acc
		} else {
			left, right = acc, Empty
		}
		acc = hash(encodeChildren(left, right))
	}
	return acc
}

// replaceLeaf stores a leaf under leafHash and folds it upward through
// siblings, building a fresh chain of NORMAL nodes. siblings is consumed
// from its tail: siblings[len(siblings)-1] pairs with the leaf itself,
// siblings[0] pairs with the node closest to the root. pathFromBottom[j]
// gives the branch bit for the j-th fold: set means the sibling sits on the
// left, clear means it sits on the right. It returns the resulting root
// digest.
func (e *Engine) replaceLeaf(pathFromBottom []bool, siblings [][32]byte, leafHash [32]byte, tag byte, indexLength uint32, body []byte) ([32]byte, error) {
	if err := e.putRecord(leafHash, tag, indexLength, body); err != nil {
		return Empty, fmt.Errorf("could not save leaf: %w", err)
	}

	cur := leafHash
	for j := 0; j < len(siblings); j++ {
		sib := siblings[len(siblings)-1-j]

		var left, right [32]byte
		if pathFromBottom[j] {
			left, right = sib, cur
		} else {
			left, right = cur, sib
		}

		var next [32]byte
		if isEmpty(left) && isEmpty(right) {
			next = Empty
		} else {
			body := encodeChildren(left, right)
			next = e.hash(body)
			if err := e.putRecord(next, TagNormal, 0, body); err != nil {
				return Empty, fmt.Errorf("could not save branch node: %w", err)
			}
		}
		cur = next
	}

	return cur, nil
}

// flushStore signals a store that batches writes that the current logical
// unit of writes is complete, if it supports doing so. Stores that commit
// synchronously (store.Memory) need no such signal.
func (e *Engine) flushStore() error {
	f, ok := e.store.(store.Flusher)
	if !ok {
		return nil
	}
	if err := f.Flush(); err != nil {
		return fmt.Errorf("could not flush store: %w", err)
	}
	return nil
}

// Add inserts a leaf into the tree. It fails with ErrAlreadyExists if a leaf
// with the identical position hash is already present, and with a wrapped
// error if the store fails. On success, every node the insertion wrote is
// flushed to the store as one unit before Add returns.
func (e *Engine) Add(leaf Leaf) error {
	if leaf.IndexLength > uint32(len(leaf.Bytes)) {
		return fmt.Errorf("index length %d exceeds value length %d", leaf.IndexLength, len(leaf.Bytes))
	}

	hi := leaf.hi(e.hash)
	ht := leaf.ht(e.hash)

	if err := e.putRecord(ht, TagValue, leaf.IndexLength, leaf.Bytes); err != nil {
		return fmt.Errorf("could not save leaf value: %w", err)
	}

	path := GetPath(e.numLevels, hi)

	var siblings [][32]byte
	nodeHash := e.root

	for i := int(e.numLevels) - 2; i >= 0; i-- {
		rec, err := e.getRecord(nodeHash)
		if err != nil {
			return fmt.Errorf("could not descend tree: %w", err)
		}

		if rec.tag == TagFinal {
			return e.splitFinal(rec, path, ht, leaf, siblings, i)
		}

		left, right := Empty, Empty
		if rec.tag == TagNormal {
			left, right = decodeChildren(rec.body)
		}

		var child, sibling [32]byte
		if path[i] {
			child, sibling = right, left
		} else {
			child, sibling = left, right
		}
		siblings = append(siblings, sibling)

		if isEmpty(child) {
			if i == int(e.numLevels)-2 && isEmpty(sibling) {
				final := calcHashFromLeafAndLevel(e.hash, i+1, path, ht)
				if err := e.putRecord(final, TagFinal, leaf.IndexLength, leaf.Bytes); err != nil {
					return fmt.Errorf("could not save root leaf: %w", err)
				}
				e.root = final
				return e.flushStore()
			}

			final := calcHashFromLeafAndLevel(e.hash, i, path, ht)
			root, err := e.replaceLeaf(CutPath(path, i), siblings, final, TagFinal, leaf.IndexLength, leaf.Bytes)
			if err != nil {
				return err
			}
			e.root = root
			return e.flushStore()
		}

		nodeHash = child
	}

	// The descent exhausted every level without hitting an EMPTY or FINAL
	// node: node_hash names a fully populated path, terminating at a VALUE.
	root, err := e.replaceLeaf(path, siblings, ht, TagValue, leaf.IndexLength, leaf.Bytes)
	if err != nil {
		return err
	}
	e.root = root
	return e.flushStore()
}

// splitFinal resolves a collision between the leaf being inserted and a
// FINAL node found partway down the descent: both leaves are re-hoisted to
// sit under a fresh NORMAL parent at the level where their paths diverge.
func (e *Engine) splitFinal(rec record, path []bool, ht [32]byte, leaf Leaf, siblings [][32]byte, i int) error {
	existingHi := GetPath(e.numLevels, e.hash(rec.body[:rec.indexLength]))
	existingHt := e.hash(rec.body)

	d := ComparePaths(existingHi, path)
	if d == noDiff(path) {
		return ErrAlreadyExists
	}

	k1 := calcHashFromLeafAndLevel(e.hash, d, existingHi, existingHt)
	if err := e.putRecord(k1, TagFinal, rec.indexLength, rec.body); err != nil {
		return fmt.Errorf("could not re-hoist existing leaf: %w", err)
	}

	k2 := calcHashFromLeafAndLevel(e.hash, d, path, ht)
	if err := e.putRecord(k2, TagFinal, leaf.IndexLength, leaf.Bytes); err != nil {
		return fmt.Errorf("could not hoist inserted leaf: %w", err)
	}

	var left, right [32]byte
	if path[d] {
		left, right = k1, k2
	} else {
		left, right = k2, k1
	}
	parentBody := encodeChildren(left, right)
	parentHash := e.hash(parentBody)
	if err := e.putRecord(parentHash, TagNormal, 0, parentBody); err != nil {
		return fmt.Errorf("could not save split parent: %w", err)
	}

	siblings = append(siblings, EmptiesBetween(i, d+1)...)

	root, err := e.replaceLeaf(CutPath(path, d+1), siblings, parentHash, TagNormal, 0, parentBody)
	if err != nil {
		return err
	}
	e.root = root
	return e.flushStore()
}

// ValueAt returns the leaf bytes stored at position hi, or the empty
// sentinel slice if no leaf occupies that position. It never errors: a
// store failure mid-descent is logged and treated as though the position
// were unoccupied.
func (e *Engine) ValueAt(hi [32]byte) []byte {
	path := GetPath(e.numLevels, hi)

	nodeHash := e.root
	for i := int(e.numLevels) - 2; i >= 0; i-- {
		rec, err := e.getRecord(nodeHash)
		if err != nil {
			e.log.Error().Err(err).Msg("could not descend tree during lookup")
			return Empty[:]
		}

		switch rec.tag {
		case TagEmpty:
			return Empty[:]

		case TagFinal:
			existingHi := GetPath(e.numLevels, e.hash(rec.body[:rec.indexLength]))
			if ComparePaths(existingHi, path) == noDiff(path) {
				return rec.body
			}
			return Empty[:]

		case TagValue:
			return rec.body

		default:
			left, right := decodeChildren(rec.body)
			if path[i] {
				nodeHash = right
			} else {
				nodeHash = left
			}
		}
	}

	rec, err := e.getRecord(nodeHash)
	if err != nil {
		e.log.Error().Err(err).Msg("could not read terminal node during lookup")
		return Empty[:]
	}
	if rec.tag != TagValue {
		return Empty[:]
	}
	return rec.body
}
