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
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/0xsoniclabs/statetrees/database/mpf/node"
)

// Entries visits all entries of the trie in the order of their key hashes.
// Since the trie only retains hashes of keys, entries are reported by key
// hash. Visiting stops at the first error returned by the visitor.
func (t *Trie) Entries(visit func(keyHash, value []byte) error) error {
	return t.EntriesWithPrefix(nibble.Empty, visit)
}

// EntriesWithPrefix visits all entries whose key hashes start with the given
// nibble prefix.
func (t *Trie) EntriesWithPrefix(prefix nibble.Path, visit func(keyHash, value []byte) error) error {
	return t.scan(t.root, nil, prefix.Nibbles(), visit)
}

// Size returns the number of entries in the trie.
func (t *Trie) Size() (int, error) {
	count := 0
	err := t.Entries(func([]byte, []byte) error {
		count++
		return nil
	})
	return count, err
}

func (t *Trie) scan(hash []byte, path []byte, prefix []byte, visit func(keyHash, value []byte) error) error {
	if hash == nil {
		return nil
	}
	n, err := t.load(hash)
	if err != nil {
		return err
	}
	switch n := n.(type) {
	case *node.Leaf:
		full := append(bytes.Clone(path), n.Suffix.Nibbles()...)
		if !bytes.HasPrefix(full, prefix) {
			return nil
		}
		return visit(toPath(full).Bytes(), bytes.Clone(n.Value))
	case *node.Branch:
		path = append(bytes.Clone(path), n.Skip.Nibbles()...)
		if !compatible(path, prefix) {
			return nil
		}
		for i, child := range n.Children {
			if child == nil {
				continue
			}
			childPath := append(bytes.Clone(path), byte(i))
			if !compatible(childPath, prefix) {
				continue
			}
			if err := t.scan(child, childPath, prefix, visit); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("trie: unsupported node type %T", n)
}

// compatible reports whether keys below path may start with prefix.
func compatible(path, prefix []byte) bool {
	n := min(len(path), len(prefix))
	return bytes.Equal(path[:n], prefix[:n])
}

// TreeDump is a structural snapshot of a trie for debugging.
type TreeDump struct {
	Hash     string               `json:"hash"`
	Type     string               `json:"type"`
	Path     string               `json:"path,omitempty"`
	Value    string               `json:"value,omitempty"`
	Children map[string]*TreeDump `json:"children,omitempty"`
}

// Dump captures the structure of the trie. The result is nil for the empty
// trie.
func (t *Trie) Dump() (*TreeDump, error) {
	if t.root == nil {
		return nil, nil
	}
	return t.dump(t.root)
}

// DumpJSON renders the structure of the trie as JSON.
func (t *Trie) DumpJSON() ([]byte, error) {
	dump, err := t.Dump()
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(dump, "", "  ")
}

func (t *Trie) dump(hash []byte) (*TreeDump, error) {
	n, err := t.load(hash)
	if err != nil {
		return nil, err
	}
	res := &TreeDump{Hash: hex.EncodeToString(hash)}
	switch n := n.(type) {
	case *node.Leaf:
		res.Type = "leaf"
		res.Path = n.Suffix.Hex()
		res.Value = hex.EncodeToString(n.Value)
	case *node.Branch:
		res.Type = "branch"
		res.Path = n.Skip.Hex()
		if n.ValueHash != nil {
			res.Value = hex.EncodeToString(n.ValueHash)
		}
		res.Children = map[string]*TreeDump{}
		for i, child := range n.Children {
			if child == nil {
				continue
			}
			if res.Children[fmt.Sprintf("%x", i)], err = t.dump(child); err != nil {
				return nil, err
			}
		}
	}
	return res, nil
}
