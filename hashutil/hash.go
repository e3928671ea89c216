// Package hashutil provides the hash primitive consumed by the tree engine.
// The engine itself treats the hash function as an opaque black box; this
// package supplies the one concrete implementation the rest of the module
// wires against.
package hashutil

import (
	"golang.org/x/crypto/sha3"
)

// Size is the length in bytes of a digest produced by Func.
const Size = 32

// Func hashes an arbitrary byte slice down to a fixed-size digest.
type Func func(data ...[]byte) [32]byte

// Keccak256 is the reference hash primitive for the tree: Keccak-256 over the
// concatenation of its arguments.
func Keccak256(data ...[]byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	for _, d := range data {
		h.Write(d)
	}
	var digest [32]byte
	copy(digest[:], h.Sum(nil))
	return digest
}
