// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package proof

import (
	"bytes"
	"fmt"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
)

// pathLength is the number of nibbles of a hashed key.
const pathLength = 2 * commit.HashSize

// ComputeRoot recomputes the root hash of a trie from a proof for the given
// key and value. If including is true, the result is the root of a trie
// containing the entry; otherwise it is the root of the same trie without
// the key, in which case the value is ignored. A nil result denotes the empty
// trie. Proofs not describing a consistent path yield ErrInvalidProof.
func ComputeRoot(p *Proof, key, value []byte, including bool, hash commit.HashFunction, scheme commit.ProofScheme) ([]byte, error) {
	v := verifier{
		path:      nibble.FromBytes(hash(key)).Nibbles(),
		including: including,
		scheme:    scheme,
		hash:      scheme.HashFunction(),
	}
	if including {
		v.valueHash = hash(value)
	}
	if len(v.path) != pathLength {
		return nil, fmt.Errorf("%w: key hashes must have %d bytes", ErrInvalidProof, commit.HashSize)
	}
	return v.root(p.Steps, 0)
}

// Verify checks that the proof authenticates the presence (including) or
// absence (excluding) of the given entry in the trie with the given root.
// Nil roots and the null hash both denote the empty trie.
func Verify(p *Proof, expectedRoot, key, value []byte, including bool, hash commit.HashFunction, scheme commit.ProofScheme) bool {
	root, err := ComputeRoot(p, key, value, including, hash, scheme)
	if err != nil {
		return false
	}
	return sameRoot(root, expectedRoot, scheme)
}

// VerifyWire decodes a wire encoded proof and verifies it. Undecodable input
// results in an error wrapping ErrMalformedProof; well formed proofs that do
// not authenticate the entry result in false.
func VerifyWire(expectedRoot, key, value []byte, including bool, wire []byte, hash commit.HashFunction, scheme commit.ProofScheme) (bool, error) {
	p, err := Decode(wire)
	if err != nil {
		return false, err
	}
	return Verify(p, expectedRoot, key, value, including, hash, scheme), nil
}

func sameRoot(a, b []byte, scheme commit.Scheme) bool {
	null := scheme.NullHash()
	if a == nil {
		a = null
	}
	if b == nil {
		b = null
	}
	return bytes.Equal(a, b)
}

type verifier struct {
	path      []byte // < nibbles of the hashed key
	valueHash []byte
	including bool
	scheme    commit.ProofScheme
	hash      commit.HashFunction
}

// root folds the steps bottom-up by recursion, starting at the given
// position in the key path.
func (v *verifier) root(steps []Step, cursor int) ([]byte, error) {
	if len(steps) == 0 {
		if !v.including {
			return nil, nil
		}
		return v.scheme.CommitLeaf(v.nibbles(cursor, pathLength), v.valueHash), nil
	}

	step, rest := steps[0], steps[1:]
	last := len(rest) == 0
	skip := step.SkipLen()
	next := cursor + 1 + skip
	if skip < 0 || next > pathLength {
		return nil, fmt.Errorf("%w: skip %d at position %d exceeds key length", ErrInvalidProof, skip, cursor)
	}
	nib := v.path[next-1]
	prefix := v.path[cursor : next-1]

	switch s := step.(type) {
	case *BranchStep:
		sub, err := v.root(rest, next)
		if err != nil {
			return nil, err
		}
		if sub == nil {
			sub = v.scheme.NullHash()
		}
		root := v.scheme.RootFromNeighbors(int(nib), sub, s.Neighbors)
		if s.ValueHash != nil {
			return v.hash(prefix, root, s.ValueHash), nil
		}
		return v.hash(prefix, root), nil

	case *ForkStep:
		if s.Neighbor.Nibble > 15 {
			return nil, fmt.Errorf("%w: invalid neighbor nibble %d", ErrInvalidProof, s.Neighbor.Nibble)
		}
		if !v.including && last {
			// without the key, the neighbor is all that is left of the branch
			if s.Neighbor.Nibble == v.path[cursor+skip] {
				return nil, fmt.Errorf("%w: neighbor does not diverge from the key", ErrInvalidProof)
			}
			return v.hash(v.path[cursor:cursor+skip], []byte{s.Neighbor.Nibble}, s.Neighbor.Prefix, s.Neighbor.Root), nil
		}
		if s.Neighbor.Nibble == nib {
			return nil, fmt.Errorf("%w: neighbor occupies the slot of the key", ErrInvalidProof)
		}
		sub, err := v.root(rest, next)
		if err != nil {
			return nil, err
		}
		neighbor := v.hash(s.Neighbor.Prefix, s.Neighbor.Root)
		return v.hash(prefix, v.pair(int(nib), sub, int(s.Neighbor.Nibble), neighbor)), nil

	case *LeafStep:
		if len(s.Key) != commit.HashSize {
			return nil, fmt.Errorf("%w: leaf key must have %d bytes", ErrInvalidProof, commit.HashSize)
		}
		keyPath := nibble.FromBytes(s.Key)
		// the neighbor must share the path leading to the branch
		if !bytes.Equal(keyPath.Nibbles()[:next-1], v.path[:next-1]) {
			return nil, fmt.Errorf("%w: neighbor key leaves the path of the key", ErrInvalidProof)
		}
		neighborNib := keyPath.At(next - 1)
		if neighborNib == nib {
			return nil, fmt.Errorf("%w: neighbor occupies the slot of the key", ErrInvalidProof)
		}
		if !v.including && last {
			suffix, _ := keyPath.Suffix(cursor) // < cursor is within the key length
			return v.scheme.CommitLeaf(suffix, s.Value), nil
		}
		sub, err := v.root(rest, next)
		if err != nil {
			return nil, err
		}
		suffix, _ := keyPath.Suffix(next)
		neighbor := v.scheme.CommitLeaf(suffix, s.Value)
		return v.hash(prefix, v.pair(int(nib), sub, int(neighborNib), neighbor)), nil
	}
	return nil, fmt.Errorf("%w: unsupported step type %T", ErrInvalidProof, step)
}

// pair computes the merkle root of 16 slots with two occupied positions.
func (v *verifier) pair(indexA int, a []byte, indexB int, b []byte) []byte {
	var children [commit.Radix][]byte
	children[indexA] = a
	children[indexB] = b
	return v.scheme.MerkleRoot(children[:])
}

func (v *verifier) nibbles(from, to int) nibble.Path {
	res, _ := nibble.FromNibbles(v.path[from:to]...) // < key paths only contain valid nibbles
	return res
}
