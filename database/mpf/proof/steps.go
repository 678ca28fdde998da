// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package proof implements authentication paths for MPF tries: the step
// model, its CBOR wire format, root recomputation and verification, and
// exports into JSON, Aiken literals and Plutus data.
package proof

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
)

var (
	ErrMalformedProof = errors.New("proof: malformed proof")
	ErrInvalidProof   = errors.New("proof: proof does not describe a valid path")
)

// NeighborsSize is the size of the neighbor list of a branch step: four
// sibling hashes of the 16-slot merkle tree.
const NeighborsSize = 4 * commit.HashSize

// Proof is an authentication path from the root of a trie towards a key.
// Steps are ordered root first.
type Proof struct {
	Steps []Step
}

// Step is one branch traversed by a proof. It is implemented by *BranchStep,
// *ForkStep and *LeafStep only.
type Step interface {
	// SkipLen returns the number of nibbles shared by all keys below the
	// traversed branch, not counting the nibble selecting the child.
	SkipLen() int
	fmt.Stringer
	isStep()
}

// BranchStep describes a branch with more than two children by the roots of
// the sibling sub-trees of the 16-slot merkle tree, from the top level down
// to the immediate sibling.
type BranchStep struct {
	Skip      int
	Neighbors [4][]byte
	ValueHash []byte // < optional value hash of the branch
}

// Neighbor is the other child of a branch with exactly two children when
// that child is a branch itself.
type Neighbor struct {
	Nibble byte
	Prefix []byte // < skip of the neighbor, one byte per nibble
	Root   []byte // < merkle root of the neighbor's children
}

// ForkStep describes a branch with two children, the other one being a
// branch.
type ForkStep struct {
	Skip     int
	Neighbor Neighbor
}

// LeafStep describes a branch with two children, the other one being a leaf
// identified by its full key hash and its value hash.
type LeafStep struct {
	Skip  int
	Key   []byte
	Value []byte
}

func (s *BranchStep) SkipLen() int { return s.Skip }
func (s *ForkStep) SkipLen() int   { return s.Skip }
func (s *LeafStep) SkipLen() int   { return s.Skip }

func (*BranchStep) isStep() {}
func (*ForkStep) isStep()   {}
func (*LeafStep) isStep()   {}

// NeighborBytes concatenates the four neighbor hashes as used on the wire.
func (s *BranchStep) NeighborBytes() []byte {
	res := make([]byte, 0, NeighborsSize)
	for _, n := range s.Neighbors {
		res = append(res, n...)
	}
	return res
}

func (s *BranchStep) String() string {
	if s.ValueHash != nil {
		return fmt.Sprintf("Branch{skip: %d, neighbors: %x, value: %x}", s.Skip, s.NeighborBytes(), s.ValueHash)
	}
	return fmt.Sprintf("Branch{skip: %d, neighbors: %x}", s.Skip, s.NeighborBytes())
}

func (s *ForkStep) String() string {
	return fmt.Sprintf("Fork{skip: %d, neighbor: {nibble: %d, prefix: %x, root: %x}}",
		s.Skip, s.Neighbor.Nibble, s.Neighbor.Prefix, s.Neighbor.Root)
}

func (s *LeafStep) String() string {
	return fmt.Sprintf("Leaf{skip: %d, key: %x, value: %x}", s.Skip, s.Key, s.Value)
}

func (p *Proof) String() string {
	res := "["
	for i, step := range p.Steps {
		if i > 0 {
			res += ", "
		}
		res += step.String()
	}
	return res + "]"
}

func splitNeighbors(data []byte) ([4][]byte, error) {
	var res [4][]byte
	if len(data) != NeighborsSize {
		return res, fmt.Errorf("%w: neighbors must have %d bytes, got %d", ErrMalformedProof, NeighborsSize, len(data))
	}
	for i := range res {
		res[i] = data[i*commit.HashSize : (i+1)*commit.HashSize]
	}
	return res, nil
}
