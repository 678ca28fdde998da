// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package statetrees

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/kv"
)

var (
	latestKey      = []byte("LATEST")
	lastVersionKey = []byte("VERSION")
	storageModeKey = []byte("_storage_mode")
)

// errStop ends an iteration early without reporting an error.
var errStop = errors.New("stop")

// VersionedRoot is an entry of the roots index.
type VersionedRoot struct {
	Version uint64
	Root    []byte
}

// RootsIndex maps versions to root hashes. Besides the per-version entries
// it tracks the most recently recorded root and the highest version ever
// assigned, which is never reused.
type RootsIndex struct {
	table *kv.Table
}

func newRootsIndex(table *kv.Table) *RootsIndex {
	return &RootsIndex{table: table}
}

func versionKey(version uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, version)
}

// Put records the root of the given version and makes it the latest root.
func (r *RootsIndex) Put(version uint64, root []byte) error {
	batch := r.table.NewBatch()
	if err := r.put(batch, version, root); err != nil {
		return err
	}
	return batch.Write()
}

func (r *RootsIndex) put(w kv.Writer, version uint64, root []byte) error {
	if err := w.Put(versionKey(version), root); err != nil {
		return err
	}
	if err := w.Put(latestKey, root); err != nil {
		return err
	}
	last, found, err := r.LastVersion()
	if err != nil {
		return err
	}
	if found && last > version {
		return nil
	}
	return w.Put(lastVersionKey, versionKey(version))
}

// Get returns the root of the given version, or nil if there is none.
func (r *RootsIndex) Get(version uint64) ([]byte, error) {
	return r.table.Get(versionKey(version))
}

// Latest returns the most recently recorded root, or nil if there is none.
func (r *RootsIndex) Latest() ([]byte, error) {
	return r.table.Get(latestKey)
}

// LastVersion returns the highest version ever recorded. The result is false
// if no version has been recorded yet.
func (r *RootsIndex) LastVersion() (uint64, bool, error) {
	data, err := r.table.Get(lastVersionKey)
	if err != nil || data == nil {
		return 0, false, err
	}
	if len(data) != 8 {
		return 0, false, fmt.Errorf("corrupted last version entry: %x", data)
	}
	return binary.BigEndian.Uint64(data), true, nil
}

// NextVersion returns the version to be assigned to the next root.
func (r *RootsIndex) NextVersion() (uint64, error) {
	last, found, err := r.LastVersion()
	if err != nil || !found {
		return 0, err
	}
	return last + 1, nil
}

// ListAll returns all retained versions in ascending order.
func (r *RootsIndex) ListAll() ([]VersionedRoot, error) {
	return r.ListRange(0, ^uint64(0))
}

// ListRange returns the retained versions in [from, to] in ascending order.
func (r *RootsIndex) ListRange(from, to uint64) ([]VersionedRoot, error) {
	var res []VersionedRoot
	err := r.table.Iterate(nil, func(key, value []byte) error {
		if len(key) != 8 {
			return nil
		}
		version := binary.BigEndian.Uint64(key)
		if version > to {
			return errStop
		}
		if version >= from {
			res = append(res, VersionedRoot{Version: version, Root: value})
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStop) {
		return nil, err
	}
	return res, nil
}

// remove drops the given version. If no higher version is retained, the
// root of the highest remaining version becomes the latest root.
func (r *RootsIndex) remove(w kv.Writer, version uint64) error {
	if err := w.Delete(versionKey(version)); err != nil {
		return err
	}
	var highest *VersionedRoot
	err := r.table.Iterate(nil, func(key, value []byte) error {
		if len(key) != 8 {
			return nil
		}
		if v := binary.BigEndian.Uint64(key); v != version {
			highest = &VersionedRoot{Version: v, Root: value}
		}
		return nil
	})
	if err != nil {
		return err
	}
	switch {
	case highest == nil:
		return w.Delete(latestKey)
	case highest.Version < version:
		return w.Put(latestKey, highest.Root)
	}
	return nil
}

func (r *RootsIndex) storageMode() (StorageMode, bool, error) {
	data, err := r.table.Get(storageModeKey)
	if err != nil || data == nil {
		return 0, false, err
	}
	var mode StorageMode
	if err := mode.UnmarshalText(data); err != nil {
		return 0, false, fmt.Errorf("corrupted storage mode entry: %w", err)
	}
	return mode, true, nil
}

func (r *RootsIndex) setStorageMode(mode StorageMode) error {
	data, err := mode.MarshalText()
	if err != nil {
		return err
	}
	return r.table.Put(storageModeKey, data)
}
