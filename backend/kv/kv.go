// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kv defines the ordered key/value stores backing node stores and
// root indexes, together with prefix based views partitioning a single store
// into independent tables.
package kv

import "io"

// Reader provides read access to a key/value store.
type Reader interface {
	// Get returns the value stored for the given key, or nil if there is none.
	Get(key []byte) ([]byte, error)

	// Has reports whether a value is stored for the given key.
	Has(key []byte) (bool, error)

	// Iterate visits all entries whose keys start with the given prefix in
	// ascending key order. Keys and values passed to the visitor are copies
	// owned by the visitor. Iteration stops at the first error returned by
	// the visitor, which is then forwarded to the caller.
	Iterate(prefix []byte, visit func(key, value []byte) error) error
}

// Writer provides write access to a key/value store.
type Writer interface {
	Put(key, value []byte) error
	Delete(key []byte) error
}

// Store is an ordered key/value store. Implementations are safe for
// concurrent use.
type Store interface {
	Reader
	Writer

	// NewBatch creates a batch of updates applied atomically by Write.
	NewBatch() Batch

	io.Closer
}

// Batch collects updates to be applied atomically. Batches are not safe for
// concurrent use.
type Batch interface {
	Writer

	// Len returns the number of buffered updates.
	Len() int

	// Write applies all buffered updates to the store.
	Write() error
}

// UpperBound returns the smallest key greater than all keys with the given
// prefix, or nil if there is no such key.
func UpperBound(prefix []byte) (limit []byte) {
	for i := len(prefix) - 1; i >= 0; i-- {
		c := prefix[i]
		if c == 0xff {
			continue
		}
		limit = make([]byte, i+1)
		copy(limit, prefix)
		limit[i] = c + 1
		break
	}
	return limit
}
