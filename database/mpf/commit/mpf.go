// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package commit

import (
	"github.com/0xsoniclabs/statetrees/common/nibble"
)

// Mpf implements the Merkle Patricia Forestry commitment scheme:
//
//	leaf   = H(encodeSuffix(suffix) || valueHash)
//	branch = H(nibbles(skip) || merkle16(children) [|| valueHash])
//
// where encodeSuffix packs an even suffix as 0xff followed by its bytes, and
// an odd suffix as 0x00, its first nibble, and the remaining bytes. nibbles
// emits one byte per nibble and merkle16 is a binary merkle tree over the 16
// child slots with empty slots set to the null hash.
type Mpf struct {
	hash     HashFunction
	nullHash [HashSize]byte
}

// NewMpf creates the MPF scheme on top of the given hash function.
func NewMpf(hash HashFunction) *Mpf {
	return &Mpf{hash: hash}
}

// DefaultMpf is the scheme used by the on-chain verifier.
func DefaultMpf() *Mpf {
	return NewMpf(Blake2b256)
}

func (m *Mpf) HashFunction() HashFunction {
	return m.hash
}

func (m *Mpf) NullHash() []byte {
	res := m.nullHash
	return res[:]
}

func (m *Mpf) CommitLeaf(suffix nibble.Path, valueHash []byte) []byte {
	return m.hash(EncodeSuffix(suffix), valueHash)
}

func (m *Mpf) CommitBranch(skip nibble.Path, children *[Radix][]byte, valueHash []byte) []byte {
	root := m.MerkleRoot(children[:])
	if valueHash == nil {
		return m.hash(skip.NibbleBytes(), root)
	}
	return m.hash(skip.NibbleBytes(), root, valueHash)
}

func (m *Mpf) MerkleRoot(children [][]byte) []byte {
	layer := make([][]byte, len(children))
	for i, child := range children {
		if child == nil {
			layer[i] = m.NullHash()
		} else {
			layer[i] = child
		}
	}
	for len(layer) > 1 {
		next := make([][]byte, len(layer)/2)
		for i := range next {
			next[i] = m.hash(layer[2*i], layer[2*i+1])
		}
		layer = next
	}
	if len(layer) == 0 {
		return m.NullHash()
	}
	return layer[0]
}

func (m *Mpf) Neighbors(children *[Radix][]byte, index int) [4][]byte {
	var res [4][]byte
	pivot, n := 8, 8
	for i := 0; n >= 1; i++ {
		if index < pivot {
			res[i] = m.MerkleRoot(children[pivot : pivot+n])
			pivot -= n / 2
		} else {
			res[i] = m.MerkleRoot(children[pivot-n : pivot])
			pivot += n / 2
		}
		n /= 2
	}
	return res
}

func (m *Mpf) RootFromNeighbors(index int, child []byte, neighbors [4][]byte) []byte {
	// neighbors are ordered from the top of the merkle tree down to the
	// immediate sibling; fold them bottom-up
	current := child
	for level := 0; level < 4; level++ {
		sibling := neighbors[3-level]
		if (index>>level)&1 == 0 {
			current = m.hash(current, sibling)
		} else {
			current = m.hash(sibling, current)
		}
	}
	return current
}

// SparseRoot computes the merkle root over 16 slots with only the two given
// slots occupied.
func (m *Mpf) SparseRoot(indexA int, a []byte, indexB int, b []byte) []byte {
	var children [Radix][]byte
	children[indexA] = a
	children[indexB] = b
	return m.MerkleRoot(children[:])
}

// EncodeSuffix produces the path encoding used in leaf commitments.
func EncodeSuffix(suffix nibble.Path) []byte {
	if suffix.Len()%2 == 0 {
		return append([]byte{0xff}, suffix.Bytes()...)
	}
	rest, _ := suffix.Suffix(1) // < never fails for non-empty paths
	res := make([]byte, 0, 2+rest.Len()/2)
	res = append(res, 0x00, suffix.At(0))
	return append(res, rest.Bytes()...)
}
