// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package nodestore

import (
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/golang/snappy"
)

// Options configure a NodeStore on top of a key/value store.
type Options struct {
	Compress bool // < snappy-compress node data
}

// KvStore is a NodeStore keeping nodes in a key/value table.
type KvStore struct {
	table    kv.Store
	compress bool
}

// NewKvStore creates a node store on the given table. The table should be a
// namespaced view exclusively holding nodes.
func NewKvStore(table kv.Store, options Options) *KvStore {
	return &KvStore{table: table, compress: options.Compress}
}

func (s *KvStore) Get(hash []byte) ([]byte, error) {
	data, err := s.table.Get(hash)
	if err != nil || data == nil || !s.compress {
		return data, err
	}
	res, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress node %x: %w", hash, err)
	}
	return res, nil
}

func (s *KvStore) Put(hash, data []byte) error {
	if s.compress {
		data = snappy.Encode(nil, data)
	}
	return s.table.Put(hash, data)
}

func (s *KvStore) Delete(hash []byte) error {
	return s.table.Delete(hash)
}

// Encode converts node data into its stored representation. It allows
// writing nodes through batches bypassing the store.
func (s *KvStore) Encode(data []byte) []byte {
	if s.compress {
		return snappy.Encode(nil, data)
	}
	return data
}
