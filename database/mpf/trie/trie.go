// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package trie implements a secure Merkle Patricia Forestry trie: a compressed
// radix-16 trie indexed by the hashes of keys, authenticating key and value
// hashes under a single root hash.
package trie

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/nodestore"
	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/0xsoniclabs/statetrees/database/mpf/node"
)

var (
	ErrNilValue    = errors.New("trie: nil values are not supported")
	ErrMissingNode = errors.New("trie: referenced node not found")
)

// Trie is a secure MPF trie on top of a node store. Nodes are immutable and
// content addressed; updates persist new nodes and move the root, leaving
// previous versions intact until they are garbage collected.
//
// A trie supports a single writer. Reads may run concurrently with each other
// on any retained root.
type Trie struct {
	config MpfConfig
	store  nodestore.NodeStore
	nodes  *node.Persistence
	root   []byte // < nil for the empty trie
}

// New creates an empty trie on the given store.
func New(store nodestore.NodeStore, config MpfConfig) *Trie {
	return &Trie{
		config: config,
		store:  store,
		nodes:  node.NewPersistence(store, config.Scheme),
	}
}

// NewWithRoot creates a trie on the given store positioned at an existing
// root.
func NewWithRoot(store nodestore.NodeStore, config MpfConfig, root []byte) *Trie {
	res := New(store, config)
	res.SetRootHash(root)
	return res
}

// Store returns the node store backing this trie.
func (t *Trie) Store() nodestore.NodeStore {
	return t.store
}

func (t *Trie) Config() MpfConfig {
	return t.config
}

// RootHash returns the current root, or nil if the trie is empty.
func (t *Trie) RootHash() []byte {
	return bytes.Clone(t.root)
}

// SetRootHash moves the trie to the given root. Nil and the null hash denote
// the empty trie. The root is not checked for existence.
func (t *Trie) SetRootHash(root []byte) {
	if len(root) == 0 || bytes.Equal(root, t.config.Scheme.NullHash()) {
		t.root = nil
		return
	}
	t.root = bytes.Clone(root)
}

// Get returns the value stored for the given key.
func (t *Trie) Get(key []byte) ([]byte, bool, error) {
	path := t.keyPath(key)
	hash := t.root
	for hash != nil {
		n, err := t.load(hash)
		if err != nil {
			return nil, false, err
		}
		switch n := n.(type) {
		case *node.Leaf:
			if bytes.Equal(n.Suffix.Nibbles(), path) {
				return bytes.Clone(n.Value), true, nil
			}
			return nil, false, nil
		case *node.Branch:
			skip := n.Skip.Nibbles()
			if len(path) <= len(skip) || !bytes.HasPrefix(path, skip) {
				return nil, false, nil
			}
			hash = n.Children[path[len(skip)]]
			path = path[len(skip)+1:]
		}
	}
	return nil, false, nil
}

// Put stores the value for the given key, replacing any previous value. Empty
// values are allowed, nil values are rejected.
func (t *Trie) Put(key, value []byte) error {
	if value == nil {
		return ErrNilValue
	}
	root, err := t.put(t.root, t.keyPath(key), value)
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

// Delete removes the given key. Deleting a missing key has no effect.
func (t *Trie) Delete(key []byte) error {
	root, _, err := t.delete(t.root, t.keyPath(key))
	if err != nil {
		return err
	}
	t.root = root
	return nil
}

func (t *Trie) keyPath(key []byte) []byte {
	return nibble.FromBytes(t.config.Hash(key)).Nibbles()
}

func (t *Trie) load(hash []byte) (node.Node, error) {
	n, err := t.nodes.Load(hash)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %x", ErrMissingNode, hash)
	}
	return n, nil
}

func (t *Trie) persist(n node.Node) ([]byte, error) {
	return t.nodes.PersistIfAbsent(n)
}

func (t *Trie) persistLeaf(suffix []byte, value []byte) ([]byte, error) {
	return t.persist(&node.Leaf{Suffix: toPath(suffix), Value: value})
}

// put inserts the value into the sub-trie rooted by hash, where path is the
// remaining part of the key path, and returns the new root of the sub-trie.
func (t *Trie) put(hash []byte, path []byte, value []byte) ([]byte, error) {
	if hash == nil {
		return t.persistLeaf(path, value)
	}
	n, err := t.load(hash)
	if err != nil {
		return nil, err
	}

	switch n := n.(type) {
	case *node.Leaf:
		suffix := n.Suffix.Nibbles()
		if bytes.Equal(suffix, path) {
			if bytes.Equal(n.Value, value) {
				return hash, nil
			}
			return t.persistLeaf(path, value)
		}
		// all keys have the same length, so the paths differ at some position
		pos := commonPrefixLen(suffix, path)
		if pos == len(suffix) || pos == len(path) {
			return nil, fmt.Errorf("trie: inconsistent path length in leaf %x", hash)
		}
		branch := &node.Branch{Skip: toPath(path[:pos])}
		if branch.Children[suffix[pos]], err = t.persistLeaf(suffix[pos+1:], n.Value); err != nil {
			return nil, err
		}
		if branch.Children[path[pos]], err = t.persistLeaf(path[pos+1:], value); err != nil {
			return nil, err
		}
		return t.persist(branch)

	case *node.Branch:
		skip := n.Skip.Nibbles()
		pos := commonPrefixLen(skip, path)
		if pos < len(skip) {
			if pos == len(path) {
				return nil, fmt.Errorf("trie: inconsistent path length in branch %x", hash)
			}
			// the new key leaves the skip path; split the branch
			inner := &node.Branch{
				Skip:      toPath(skip[pos+1:]),
				Children:  n.Children,
				ValueHash: n.ValueHash,
			}
			branch := &node.Branch{Skip: toPath(skip[:pos])}
			if branch.Children[skip[pos]], err = t.persist(inner); err != nil {
				return nil, err
			}
			if branch.Children[path[pos]], err = t.persistLeaf(path[pos+1:], value); err != nil {
				return nil, err
			}
			return t.persist(branch)
		}
		if len(path) == len(skip) {
			return nil, fmt.Errorf("trie: inconsistent path length in branch %x", hash)
		}

		next := path[len(skip)]
		child := n.Children[next]
		newChild, err := t.put(child, path[len(skip)+1:], value)
		if err != nil {
			return nil, err
		}
		if bytes.Equal(child, newChild) {
			return hash, nil
		}
		updated := *n
		updated.Children[next] = newChild
		return t.persist(&updated)
	}
	return nil, fmt.Errorf("trie: unsupported node type %T", n)
}

// delete removes the entry with the given remaining path from the sub-trie
// rooted by hash. It returns the new root of the sub-trie and whether
// anything was removed.
func (t *Trie) delete(hash []byte, path []byte) ([]byte, bool, error) {
	if hash == nil {
		return nil, false, nil
	}
	n, err := t.load(hash)
	if err != nil {
		return nil, false, err
	}

	switch n := n.(type) {
	case *node.Leaf:
		if bytes.Equal(n.Suffix.Nibbles(), path) {
			return nil, true, nil
		}
		return hash, false, nil

	case *node.Branch:
		skip := n.Skip.Nibbles()
		if len(path) <= len(skip) || !bytes.HasPrefix(path, skip) {
			return hash, false, nil
		}
		next := path[len(skip)]
		newChild, changed, err := t.delete(n.Children[next], path[len(skip)+1:])
		if err != nil || !changed {
			return hash, false, err
		}
		updated := *n
		updated.Children[next] = newChild
		if updated.ValueHash == nil {
			if remaining, single := updated.OnlyChild(); single {
				merged, err := t.merge(skip, remaining, updated.Children[remaining])
				return merged, true, err
			}
			if updated.ChildCount() == 0 {
				return nil, true, nil
			}
		}
		res, err := t.persist(&updated)
		return res, true, err
	}
	return nil, false, fmt.Errorf("trie: unsupported node type %T", n)
}

// merge replaces a branch with a single remaining child by that child,
// extending the child's path by the branch skip and the child's position.
func (t *Trie) merge(skip []byte, position byte, childHash []byte) ([]byte, error) {
	child, err := t.load(childHash)
	if err != nil {
		return nil, err
	}
	prefix := make([]byte, 0, len(skip)+1)
	prefix = append(prefix, skip...)
	prefix = append(prefix, position)

	switch c := child.(type) {
	case *node.Leaf:
		return t.persistLeaf(append(prefix, c.Suffix.Nibbles()...), c.Value)
	case *node.Branch:
		return t.persist(&node.Branch{
			Skip:      toPath(append(prefix, c.Skip.Nibbles()...)),
			Children:  c.Children,
			ValueHash: c.ValueHash,
		})
	}
	return nil, fmt.Errorf("trie: unsupported node type %T", child)
}

func commonPrefixLen(a, b []byte) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}

func toPath(nibbles []byte) nibble.Path {
	res, _ := nibble.FromNibbles(nibbles...) // < all paths are derived from key hashes
	return res
}
