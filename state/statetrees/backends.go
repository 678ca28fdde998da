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
	"fmt"
	"slices"
	"sync"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/0xsoniclabs/statetrees/backend/kv/ldb"
	"github.com/0xsoniclabs/statetrees/backend/kv/memory"
	"github.com/0xsoniclabs/statetrees/backend/kv/pebble"
	"github.com/0xsoniclabs/statetrees/backend/kv/sqlite"
)

// Backend names a physical key/value store implementation.
type Backend string

const (
	BackendMemory  Backend = "memory"
	BackendLevelDb Backend = "ldb"
	BackendPebble  Backend = "pebble"
	BackendSqlite  Backend = "sqlite"
)

// BackendFactory opens a key/value store in the given directory. In-memory
// backends ignore the directory.
type BackendFactory func(directory string) (kv.Store, error)

var (
	backendsMutex sync.Mutex
	backends      = map[Backend]BackendFactory{}
)

// RegisterBackend makes a backend available by name. Registering the same
// name twice panics.
func RegisterBackend(name Backend, factory BackendFactory) {
	backendsMutex.Lock()
	defer backendsMutex.Unlock()
	if _, found := backends[name]; found {
		panic(fmt.Sprintf("backend %q already registered", name))
	}
	backends[name] = factory
}

// OpenBackend opens a store using the backend registered under the given
// name.
func OpenBackend(name Backend, directory string) (kv.Store, error) {
	backendsMutex.Lock()
	factory, found := backends[name]
	backendsMutex.Unlock()
	if !found {
		return nil, fmt.Errorf("unknown backend %q, supported: %v", name, GetAllBackends())
	}
	return factory(directory)
}

// GetAllBackends lists the names of all registered backends in sorted order.
func GetAllBackends() []Backend {
	backendsMutex.Lock()
	defer backendsMutex.Unlock()
	res := make([]Backend, 0, len(backends))
	for name := range backends {
		res = append(res, name)
	}
	slices.Sort(res)
	return res
}

func init() {
	RegisterBackend(BackendMemory, func(string) (kv.Store, error) {
		return memory.New(), nil
	})
	RegisterBackend(BackendLevelDb, func(directory string) (kv.Store, error) {
		store, err := ldb.Open(directory)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	RegisterBackend(BackendPebble, func(directory string) (kv.Store, error) {
		store, err := pebble.Open(directory)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
	RegisterBackend(BackendSqlite, func(directory string) (kv.Store, error) {
		store, err := sqlite.Open(directory)
		if err != nil {
			return nil, err
		}
		return store, nil
	})
}
