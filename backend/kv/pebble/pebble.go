// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package pebble

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/cockroachdb/pebble"
)

// Single writes are not synced to disk. Batches are, since they carry the
// commits of roots and reference counts.
var (
	writeOptions = pebble.NoSync
	batchOptions = pebble.Sync
)

// Store is a kv.Store persisted in a Pebble LSM tree.
type Store struct {
	db *pebble.DB
}

// Open opens or creates a Pebble database in the given directory.
func Open(directory string) (*Store, error) {
	db, err := pebble.Open(directory, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open Pebble in %s: %w", directory, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	value, closer, err := s.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	res := bytes.Clone(value)
	if res == nil {
		res = []byte{}
	}
	return res, closer.Close()
}

func (s *Store) Has(key []byte) (bool, error) {
	value, err := s.Get(key)
	return value != nil, err
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Set(key, value, writeOptions)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, writeOptions)
}

func (s *Store) Iterate(prefix []byte, visit func(key, value []byte) error) error {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: kv.UpperBound(prefix),
	})
	if err != nil {
		return err
	}
	for valid := iter.First(); valid; valid = iter.Next() {
		if err := visit(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())); err != nil {
			return errors.Join(err, iter.Close())
		}
	}
	return errors.Join(iter.Error(), iter.Close())
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{batch: s.db.NewBatch()}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type batch struct {
	batch *pebble.Batch
}

func (b *batch) Put(key, value []byte) error {
	return b.batch.Set(key, value, nil)
}

func (b *batch) Delete(key []byte) error {
	return b.batch.Delete(key, nil)
}

func (b *batch) Len() int {
	return int(b.batch.Count())
}

func (b *batch) Write() error {
	return errors.Join(b.batch.Commit(batchOptions), b.batch.Close())
}
