// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package kv

import (
	"bytes"
	"errors"
	"fmt"
)

var (
	ErrReservedNamespace = errors.New("kv: namespace 0xFF is reserved")
	ErrForeignKey        = errors.New("kv: key does not belong to namespace")
)

// ---- Namespaces ----

// ReservedNamespace may not be used for data; it is kept free for future
// extensions of the key layout.
const ReservedNamespace = 0xFF

// KeyPrefixer maps keys into a one-byte namespace. Prefix and Unprefix are
// exact inverses for every key, including the empty key.
type KeyPrefixer struct {
	namespace byte
}

func NewKeyPrefixer(namespace byte) (KeyPrefixer, error) {
	if namespace == ReservedNamespace {
		return KeyPrefixer{}, ErrReservedNamespace
	}
	return KeyPrefixer{namespace: namespace}, nil
}

func (p KeyPrefixer) Namespace() byte {
	return p.namespace
}

func (p KeyPrefixer) Prefix(key []byte) []byte {
	res := make([]byte, 1+len(key))
	res[0] = p.namespace
	copy(res[1:], key)
	return res
}

func (p KeyPrefixer) Unprefix(key []byte) ([]byte, error) {
	if len(key) == 0 || key[0] != p.namespace {
		return nil, fmt.Errorf("%w: %x not in namespace %#02x", ErrForeignKey, key, p.namespace)
	}
	return bytes.Clone(key[1:]), nil
}

// NamespaceOptions select the part of a shared store used by one set of
// tables. Column families are emulated by table names prefixed by
// ColumnFamilyPrefix; within each family, keys are prefixed by Namespace.
type NamespaceOptions struct {
	Namespace          byte
	ColumnFamilyPrefix string
}

func (o NamespaceOptions) Validate() error {
	if o.Namespace == ReservedNamespace {
		return ErrReservedNamespace
	}
	return nil
}

// Open returns the namespaced view of the given column family.
func (o NamespaceOptions) Open(store Store, family string) (*Table, error) {
	prefixer, err := NewKeyPrefixer(o.Namespace)
	if err != nil {
		return nil, err
	}
	return ColumnFamily(store, o.ColumnFamilyPrefix+family).Sub(prefixer.Prefix(nil)), nil
}

// ---- Tables ----

// Table is a view on the part of a store whose keys start with a fixed
// prefix. Keys passed to and returned by a table exclude the prefix.
type Table struct {
	store  Store
	prefix []byte
}

// NewTable creates a view on all keys of store starting with prefix.
func NewTable(store Store, prefix []byte) *Table {
	return &Table{store: store, prefix: bytes.Clone(prefix)}
}

// ColumnFamily creates a table holding all keys of the named family. The name
// is terminated by a zero byte such that no family is a prefix of another.
func ColumnFamily(store Store, name string) *Table {
	prefix := make([]byte, 0, len(name)+1)
	prefix = append(prefix, name...)
	return NewTable(store, append(prefix, 0))
}

// Sub creates a nested view on the keys of this table starting with prefix.
func (t *Table) Sub(prefix []byte) *Table {
	return NewTable(t.store, t.key(prefix))
}

// Prefix returns the full key prefix of this table in the underlying store.
func (t *Table) Prefix() []byte {
	return bytes.Clone(t.prefix)
}

func (t *Table) key(key []byte) []byte {
	res := make([]byte, len(t.prefix)+len(key))
	copy(res, t.prefix)
	copy(res[len(t.prefix):], key)
	return res
}

func (t *Table) Get(key []byte) ([]byte, error) {
	return t.store.Get(t.key(key))
}

func (t *Table) Has(key []byte) (bool, error) {
	return t.store.Has(t.key(key))
}

func (t *Table) Put(key, value []byte) error {
	return t.store.Put(t.key(key), value)
}

func (t *Table) Delete(key []byte) error {
	return t.store.Delete(t.key(key))
}

func (t *Table) Iterate(prefix []byte, visit func(key, value []byte) error) error {
	return t.store.Iterate(t.key(prefix), func(key, value []byte) error {
		return visit(key[len(t.prefix):], value)
	})
}

func (t *Table) NewBatch() Batch {
	return t.Wrap(t.store.NewBatch())
}

// Wrap returns a batch adding this table's prefix to all keys before
// forwarding updates to base. Wrapping one base batch by several tables of
// the same store enables atomic updates spanning tables.
func (t *Table) Wrap(base Batch) Batch {
	return &tableBatch{table: t, base: base}
}

// Close does nothing; the underlying store is owned by the creator of the
// table.
func (t *Table) Close() error {
	return nil
}

type tableBatch struct {
	table *Table
	base  Batch
}

func (b *tableBatch) Put(key, value []byte) error {
	return b.base.Put(b.table.key(key), value)
}

func (b *tableBatch) Delete(key []byte) error {
	return b.base.Delete(b.table.key(key))
}

func (b *tableBatch) Len() int {
	return b.base.Len()
}

func (b *tableBatch) Write() error {
	return b.base.Write()
}
