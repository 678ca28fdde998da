// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package commit defines how trie node contents are folded into hashes.
// Schemes are plain values passed to the trie and the proof verifier; there is
// no process-wide default, so tries with different conventions can coexist.
package commit

import (
	"github.com/0xsoniclabs/statetrees/common/nibble"
)

// Radix is the number of children of a branch node.
const Radix = 16

// Scheme is a commitment scheme, deriving node hashes from node content.
// Implementations must be pure and safe for concurrent use.
type Scheme interface {
	// HashFunction returns the digest used by this scheme.
	HashFunction() HashFunction

	// NullHash is the hash of the empty trie and of empty child slots.
	NullHash() []byte

	// CommitLeaf computes the hash of a leaf with the given remaining path
	// and value hash.
	CommitLeaf(suffix nibble.Path, valueHash []byte) []byte

	// CommitBranch computes the hash of a branch with the given skip prefix
	// and children. Nil children are empty slots. The value hash is optional
	// and may be nil.
	CommitBranch(skip nibble.Path, children *[Radix][]byte, valueHash []byte) []byte
}

// ProofScheme is a Scheme supporting the compact neighbor encoding of branch
// steps in authentication paths.
type ProofScheme interface {
	Scheme

	// MerkleRoot computes the root of the binary merkle tree over the given
	// children. The number of children must be a power of two; nil entries
	// are treated as empty slots.
	MerkleRoot(children [][]byte) []byte

	// Neighbors returns the four sibling roots needed to recompute the
	// merkle root of all children from the child at position index.
	Neighbors(children *[Radix][]byte, index int) [4][]byte

	// RootFromNeighbors is the inverse of Neighbors, recomputing the merkle
	// root of all children from a single child and its neighbors.
	RootFromNeighbors(index int, child []byte, neighbors [4][]byte) []byte
}
