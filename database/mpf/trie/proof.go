// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"bytes"
	"fmt"

	"github.com/0xsoniclabs/statetrees/database/mpf/node"
	"github.com/0xsoniclabs/statetrees/database/mpf/proof"
)

// Proof creates the authentication path for the given key. If the key is
// present, the proof authenticates its value; otherwise it is the proof of
// the key's absence, which equals the path the key would have if inserted.
func (t *Trie) Proof(key []byte) (*proof.Proof, error) {
	path := t.keyPath(key)
	res := &proof.Proof{}
	hash := t.root
	cursor := 0
	for hash != nil {
		n, err := t.load(hash)
		if err != nil {
			return nil, err
		}
		rest := path[cursor:]

		switch n := n.(type) {
		case *node.Leaf:
			suffix := n.Suffix.Nibbles()
			if bytes.Equal(suffix, rest) {
				return res, nil
			}
			// the key would split this leaf into a branch
			keyPath := append(bytes.Clone(path[:cursor]), suffix...)
			res.Steps = append(res.Steps, &proof.LeafStep{
				Skip:  commonPrefixLen(suffix, rest),
				Key:   toPath(keyPath).Bytes(),
				Value: n.ValueHash(t.config.Hash),
			})
			return res, nil

		case *node.Branch:
			skip := n.Skip.Nibbles()
			pos := commonPrefixLen(skip, rest)
			if pos < len(skip) {
				// the key would split the skip path of this branch
				res.Steps = append(res.Steps, &proof.ForkStep{
					Skip: pos,
					Neighbor: proof.Neighbor{
						Nibble: skip[pos],
						Prefix: skip[pos+1:],
						Root:   t.config.Scheme.MerkleRoot(n.Children[:]),
					},
				})
				return res, nil
			}
			if len(rest) == len(skip) {
				return nil, fmt.Errorf("trie: inconsistent path length in branch %x", hash)
			}

			next := rest[len(skip)]
			step, err := t.branchStep(n, path[:cursor+len(skip)], next)
			if err != nil {
				return nil, err
			}
			res.Steps = append(res.Steps, step)
			hash = n.Children[next]
			cursor += len(skip) + 1
		}
	}
	return res, nil
}

// branchStep describes the siblings of position next in the given branch.
// Branches with exactly two children, one of them at next, are described by
// the other child alone.
func (t *Trie) branchStep(branch *node.Branch, prefix []byte, next byte) (proof.Step, error) {
	skip := branch.Skip.Len()
	if branch.Children[next] == nil || branch.ChildCount() != 2 || branch.ValueHash != nil {
		return &proof.BranchStep{
			Skip:      skip,
			Neighbors: t.config.Scheme.Neighbors(&branch.Children, int(next)),
			ValueHash: branch.ValueHash,
		}, nil
	}

	var other byte
	for i, child := range branch.Children {
		if child != nil && byte(i) != next {
			other = byte(i)
		}
	}
	neighbor, err := t.load(branch.Children[other])
	if err != nil {
		return nil, err
	}
	switch n := neighbor.(type) {
	case *node.Leaf:
		keyPath := make([]byte, 0, len(prefix)+1+n.Suffix.Len())
		keyPath = append(keyPath, prefix...)
		keyPath = append(keyPath, other)
		keyPath = append(keyPath, n.Suffix.Nibbles()...)
		return &proof.LeafStep{
			Skip:  skip,
			Key:   toPath(keyPath).Bytes(),
			Value: n.ValueHash(t.config.Hash),
		}, nil
	case *node.Branch:
		if n.ValueHash != nil {
			// a fork can not describe branch values
			return &proof.BranchStep{
				Skip:      skip,
				Neighbors: t.config.Scheme.Neighbors(&branch.Children, int(next)),
			}, nil
		}
		return &proof.ForkStep{
			Skip: skip,
			Neighbor: proof.Neighbor{
				Nibble: other,
				Prefix: n.Skip.NibbleBytes(),
				Root:   t.config.Scheme.MerkleRoot(n.Children[:]),
			},
		}, nil
	}
	return nil, fmt.Errorf("trie: unsupported node type %T", neighbor)
}

// ProofWire returns the wire encoding of the proof for the given key.
func (t *Trie) ProofWire(key []byte) ([]byte, error) {
	p, err := t.Proof(key)
	if err != nil {
		return nil, err
	}
	return proof.Encode(p)
}

// ProofJSON returns the JSON rendering of the proof for the given key.
func (t *Trie) ProofJSON(key []byte) ([]byte, error) {
	p, err := t.Proof(key)
	if err != nil {
		return nil, err
	}
	return proof.ToJSON(p)
}

// ProofAiken returns the proof for the given key as an Aiken literal.
func (t *Trie) ProofAiken(key []byte) (string, error) {
	p, err := t.Proof(key)
	if err != nil {
		return "", err
	}
	return proof.ToAiken(p), nil
}

// ProofPlutusData returns the proof for the given key as Plutus data.
func (t *Trie) ProofPlutusData(key []byte) (proof.List, error) {
	p, err := t.Proof(key)
	if err != nil {
		return nil, err
	}
	return proof.ToPlutusData(p)
}

// VerifyProofWire checks a wire encoded proof against the given root using
// the hashing conventions of this trie.
func (t *Trie) VerifyProofWire(expectedRoot, key, value []byte, including bool, wire []byte) (bool, error) {
	return proof.VerifyWire(expectedRoot, key, value, including, wire, t.config.Hash, t.config.Scheme)
}
