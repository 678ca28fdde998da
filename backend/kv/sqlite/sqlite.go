// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package sqlite

import (
	"bytes"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS kv (
	k BLOB PRIMARY KEY,
	v BLOB NOT NULL
) WITHOUT ROWID;
`

// iterationPageSize is the number of rows fetched per query while iterating.
// Rows are fully read before visiting them, so visitors may modify the store.
const iterationPageSize = 256

// Store is a kv.Store persisted in a single SQLite table.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database file kv.sqlite in the given directory.
func Open(directory string) (*Store, error) {
	dsn := fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", filepath.Join(directory, "kv.sqlite"))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		return nil, errors.Join(fmt.Errorf("apply schema: %w", err), db.Close())
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(key []byte) ([]byte, error) {
	var value []byte
	err := s.db.QueryRow("SELECT v FROM kv WHERE k = ?", nonNil(key)).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
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
	value, err := s.Get(key)
	return value != nil, err
}

func (s *Store) Put(key, value []byte) error {
	_, err := s.db.Exec("INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)", nonNil(key), nonNil(value))
	return err
}

func (s *Store) Delete(key []byte) error {
	_, err := s.db.Exec("DELETE FROM kv WHERE k = ?", nonNil(key))
	return err
}

func (s *Store) Iterate(prefix []byte, visit func(key, value []byte) error) error {
	upper := kv.UpperBound(prefix)
	from := nonNil(prefix)
	inclusive := true
	for {
		page, err := s.page(from, inclusive, upper)
		if err != nil {
			return err
		}
		for _, entry := range page {
			if err := visit(entry[0], entry[1]); err != nil {
				return err
			}
		}
		if len(page) < iterationPageSize {
			return nil
		}
		from = page[len(page)-1][0]
		inclusive = false
	}
}

func (s *Store) page(from []byte, inclusive bool, upper []byte) ([][2][]byte, error) {
	query := "SELECT k, v FROM kv WHERE k > ?"
	if inclusive {
		query = "SELECT k, v FROM kv WHERE k >= ?"
	}
	args := []any{from}
	if upper != nil {
		query += " AND k < ?"
		args = append(args, upper)
	}
	query += " ORDER BY k LIMIT ?"
	args = append(args, iterationPageSize)

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res [][2][]byte
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		res = append(res, [2][]byte{bytes.Clone(nonNil(key)), bytes.Clone(nonNil(value))})
	}
	return res, rows.Err()
}

func (s *Store) NewBatch() kv.Batch {
	return &batch{db: s.db}
}

func (s *Store) Close() error {
	return s.db.Close()
}

type operation struct {
	key, value []byte
	delete     bool
}

// batch buffers updates and applies them in a single transaction.
type batch struct {
	db         *sql.DB
	operations []operation
}

func (b *batch) Put(key, value []byte) error {
	b.operations = append(b.operations, operation{key: bytes.Clone(key), value: bytes.Clone(value)})
	return nil
}

func (b *batch) Delete(key []byte) error {
	b.operations = append(b.operations, operation{key: bytes.Clone(key), delete: true})
	return nil
}

func (b *batch) Len() int {
	return len(b.operations)
}

func (b *batch) Write() error {
	tx, err := b.db.Begin()
	if err != nil {
		return err
	}
	for _, op := range b.operations {
		if op.delete {
			_, err = tx.Exec("DELETE FROM kv WHERE k = ?", nonNil(op.key))
		} else {
			_, err = tx.Exec("INSERT OR REPLACE INTO kv(k, v) VALUES(?, ?)", nonNil(op.key), nonNil(op.value))
		}
		if err != nil {
			return errors.Join(err, tx.Rollback())
		}
	}
	return tx.Commit()
}

// nonNil avoids binding nil slices, which SQLite would store as NULL.
func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}
