// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package memory

import (
	"bytes"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/ethereum/go-ethereum/ethdb"
	"github.com/ethereum/go-ethereum/ethdb/memorydb"
)

// Store is an in-memory kv.Store keeping all entries in a sorted key space.
// It is intended for tests and short lived tries.
type Store struct {
	db *memorydb.Database
}

func New() *Store {
	return &Store{db: memorydb.New()}
}

func (s *Store) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key)
	if err != nil {
		// memorydb does not export its not-found error
		if present, hasErr := s.db.Has(key); hasErr == nil && !present {
			return nil, nil
		}
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key)
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key)
}

func (s *Store) Iterate(prefix []byte, visit func(key, value []byte) error) error {
	iter := s.db.NewIterator(prefix, nil)
	defer iter.Release()
	for iter.Next() {
		if err := visit(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{batch: s.db.NewBatch()}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type batch struct {
	batch ethdb.Batch
	size  int
}

func (b *batch) Put(key, value []byte) error {
	b.size++
	return b.batch.Put(key, value)
}

func (b *batch) Delete(key []byte) error {
	b.size++
	return b.batch.Delete(key)
}

func (b *batch) Len() int {
	return b.size
}

func (b *batch) Write() error {
	return b.batch.Write()
}
