// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package ldb

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// Single writes are not synced to disk. Batches are, since they carry the
// commits of roots and reference counts.
var (
	writeOptions = &opt.WriteOptions{}
	batchOptions = &opt.WriteOptions{Sync: true}
)

// Store is a kv.Store persisted in a LevelDB instance.
type Store struct {
	db *leveldb.DB
}

// Open opens or creates a LevelDB database in the given directory.
func Open(directory string) (*Store, error) {
	db, err := leveldb.OpenFile(directory, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open LevelDB in %s: %w", directory, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	value, err := s.db.Get(key, nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if value == nil {
		value = []byte{}
	}
	return value, nil
}

func (s *Store) Has(key []byte) (bool, error) {
	return s.db.Has(key, nil)
}

func (s *Store) Put(key, value []byte) error {
	return s.db.Put(key, value, writeOptions)
}

func (s *Store) Delete(key []byte) error {
	return s.db.Delete(key, writeOptions)
}

func (s *Store) Iterate(prefix []byte, visit func(key, value []byte) error) error {
	iter := s.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if err := visit(bytes.Clone(iter.Key()), bytes.Clone(iter.Value())); err != nil {
			return err
		}
	}
	return iter.Error()
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{db: s.db, batch: new(leveldb.Batch)}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type batch struct {
	db    *leveldb.DB
	batch *leveldb.Batch
}

func (b *batch) Put(key, value []byte) error {
	b.batch.Put(key, value)
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.batch.Delete(key)
	return nil
}

func (b *batch) Len() int {
	return b.batch.Len()
}

func (b *batch) Write() error {
	return b.db.Write(b.batch, batchOptions)
}
