// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package nodestore provides content addressed stores for encoded trie
// nodes, mapping node hashes to node data.
package nodestore

//go:generate mockgen -source nodestore.go -destination nodestore_mocks.go -package nodestore

// NodeStore is a map from node hashes to encoded nodes. Implementations are
// safe for concurrent use.
type NodeStore interface {
	// Get returns the data stored for the given hash, or nil if absent.
	Get(hash []byte) ([]byte, error)
	// Put stores data under the given hash. Storing the same entry twice is
	// harmless.
	Put(hash, data []byte) error
	// Delete removes the entry with the given hash, if present.
	Delete(hash []byte) error
}
