// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package node defines the immutable nodes of a compressed radix-16 trie, their
// binary encoding, and the persistence of nodes in a content addressed store.
package node

import (
	"fmt"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
)

// Node is a trie node. It is implemented by *Leaf and *Branch only. Nodes are
// never modified once they have been persisted; updates create new nodes.
type Node interface {
	// Commit computes the content hash of the node under the given scheme.
	Commit(scheme commit.Scheme) []byte

	// ChildHashes lists the hashes of all referenced child nodes.
	ChildHashes() [][]byte

	fmt.Stringer

	sealed()
}

// ---- Leaf nodes ----

// Leaf terminates a path. It stores the remaining nibbles of the hashed key
// and the raw value. Only the hash of the value enters the commitment.
type Leaf struct {
	Suffix nibble.Path
	Value  []byte
}

func (l *Leaf) Commit(scheme commit.Scheme) []byte {
	return scheme.CommitLeaf(l.Suffix, l.ValueHash(scheme.HashFunction()))
}

// ValueHash is the hash of the stored value.
func (l *Leaf) ValueHash(hash commit.HashFunction) []byte {
	return hash(l.Value)
}

func (l *Leaf) ChildHashes() [][]byte {
	return nil
}

func (l *Leaf) String() string {
	return fmt.Sprintf("Leaf{suffix: %s, value: %x}", l.Suffix.Hex(), l.Value)
}

func (*Leaf) sealed() {}

// ---- Branch nodes ----

// Branch is an inner node. All keys below a branch share the Skip prefix
// following the path leading to the branch; the next nibble selects the child.
type Branch struct {
	Skip      nibble.Path
	Children  [commit.Radix][]byte // < nil for empty slots
	ValueHash []byte               // < optional, nil if absent
}

func (b *Branch) Commit(scheme commit.Scheme) []byte {
	return scheme.CommitBranch(b.Skip, &b.Children, b.ValueHash)
}

func (b *Branch) ChildHashes() [][]byte {
	res := make([][]byte, 0, commit.Radix)
	for _, child := range b.Children {
		if child != nil {
			res = append(res, child)
		}
	}
	return res
}

// ChildCount returns the number of non-empty child slots.
func (b *Branch) ChildCount() int {
	return maskOf(&b.Children).popCount()
}

// OnlyChild returns the position of the single child of this branch. The
// result is false if the branch has no or more than one child.
func (b *Branch) OnlyChild() (byte, bool) {
	mask := maskOf(&b.Children)
	if mask.popCount() != 1 {
		return 0, false
	}
	for i := byte(0); i < commit.Radix; i++ {
		if mask.get(i) {
			return i, true
		}
	}
	return 0, false
}

func (b *Branch) String() string {
	res := fmt.Sprintf("Branch{skip: %s, children: {", b.Skip.Hex())
	first := true
	for i, child := range b.Children {
		if child == nil {
			continue
		}
		if !first {
			res += ", "
		}
		first = false
		res += fmt.Sprintf("%x: %x", i, child)
	}
	res += "}"
	if b.ValueHash != nil {
		res += fmt.Sprintf(", valueHash: %x", b.ValueHash)
	}
	return res + "}"
}

func (*Branch) sealed() {}
