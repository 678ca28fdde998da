// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package node

import (
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/nodestore"
	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
)

// StorageError is produced when the underlying node store fails. It names the
// failed operation and retains the cause.
type StorageError struct {
	Op   string // < one of persist, load, exists, delete
	Hash []byte
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("node: failed to %s node %x: %v", e.Op, e.Hash, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Persistence maps nodes to their content hashes in a node store.
type Persistence struct {
	store  nodestore.NodeStore
	scheme commit.Scheme
}

func NewPersistence(store nodestore.NodeStore, scheme commit.Scheme) *Persistence {
	return &Persistence{store: store, scheme: scheme}
}

// Hash computes the key under which the given node is stored.
func (p *Persistence) Hash(n Node) []byte {
	return n.Commit(p.scheme)
}

// Persist stores the node and returns its hash. Storing the same node twice
// is harmless.
func (p *Persistence) Persist(n Node) ([]byte, error) {
	hash := p.Hash(n)
	data, err := Encode(n)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(hash, data); err != nil {
		return nil, &StorageError{Op: "persist", Hash: hash, Err: err}
	}
	return hash, nil
}

// PersistIfAbsent is like Persist but skips the write if a node with the same
// hash is already present.
func (p *Persistence) PersistIfAbsent(n Node) ([]byte, error) {
	hash := p.Hash(n)
	present, err := p.exists(hash, "persist")
	if err != nil {
		return nil, err
	}
	if present {
		return hash, nil
	}
	data, err := Encode(n)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(hash, data); err != nil {
		return nil, &StorageError{Op: "persist", Hash: hash, Err: err}
	}
	return hash, nil
}

// Load fetches and decodes the node with the given hash. If there is no such
// node, nil is returned without an error. Corrupted data results in an error
// wrapping ErrDecode.
func (p *Persistence) Load(hash []byte) (Node, error) {
	data, err := p.store.Get(hash)
	if err != nil {
		return nil, &StorageError{Op: "load", Hash: hash, Err: err}
	}
	if data == nil {
		return nil, nil
	}
	n, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("node %x: %w", hash, err)
	}
	return n, nil
}

func (p *Persistence) Exists(hash []byte) (bool, error) {
	return p.exists(hash, "exists")
}

func (p *Persistence) exists(hash []byte, op string) (bool, error) {
	data, err := p.store.Get(hash)
	if err != nil {
		return false, &StorageError{Op: op, Hash: hash, Err: err}
	}
	return data != nil, nil
}

func (p *Persistence) Delete(hash []byte) error {
	if err := p.store.Delete(hash); err != nil {
		return &StorageError{Op: "delete", Hash: hash, Err: err}
	}
	return nil
}
