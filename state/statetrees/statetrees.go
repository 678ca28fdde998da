// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package statetrees persists the nodes and roots of MPF tries in a shared
// key/value store and manages the lifecycle of nodes, either by reference
// counting over retained versions or by mark and sweep from a single current
// root.
package statetrees

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/0xsoniclabs/statetrees/backend/nodestore"
	"github.com/0xsoniclabs/statetrees/database/mpf/node"
	"github.com/0xsoniclabs/statetrees/database/mpf/trie"
)

var (
	ErrEmptyRoot      = errors.New("statetrees: empty roots can not be recorded")
	ErrIllegalState   = errors.New("statetrees: illegal state")
	ErrModeMismatch   = fmt.Errorf("%w: storage mode mismatch", ErrIllegalState)
	ErrClosed         = fmt.Errorf("%w: closed", ErrIllegalState)
	ErrMissingNode    = errors.New("statetrees: referenced node not found")
	ErrUnknownVersion = errors.New("statetrees: unknown version")
)

// Column families of a StateTrees instance.
const (
	nodesFamily = "nodes"
	rootsFamily = "roots"
	refsFamily  = "refs"
)

// StateTrees bundles the node store and roots index of one namespace in a
// shared key/value store. Reads are safe for concurrent use; updates of the
// roots index and node lifecycle are serialized.
type StateTrees struct {
	store     kv.Store
	ownsStore bool
	mode      StorageMode
	namespace byte

	nodeTable *kv.Table
	refTable  *kv.Table
	rootTable *kv.Table

	nodes nodestore.NodeStore
	cache *nodestore.Cached // < nil if caching is disabled
	roots *RootsIndex

	metrics *Metrics

	writeMutex sync.Mutex
	closeOnce  sync.Once
	closed     atomic.Bool
}

// Open creates a StateTrees instance on the given store. The storage mode is
// recorded on first use of a namespace; opening it later in a different mode
// fails with ErrModeMismatch. The store remains owned by the caller.
func Open(store kv.Store, options Options) (*StateTrees, error) {
	if err := options.Validate(); err != nil {
		return nil, err
	}
	tables := make([]*kv.Table, 0, 3)
	for _, family := range []string{nodesFamily, rootsFamily, refsFamily} {
		table, err := options.Namespace.Open(store, family)
		if err != nil {
			return nil, err
		}
		tables = append(tables, table)
	}
	metrics, err := NewMetrics(options.Registerer)
	if err != nil {
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	res := &StateTrees{
		store:     store,
		mode:      options.Mode,
		namespace: options.Namespace.Namespace,
		nodeTable: tables[0],
		rootTable: tables[1],
		refTable:  tables[2],
		roots:     newRootsIndex(tables[1]),
		metrics:   metrics,
	}
	res.nodes = nodestore.NewKvStore(res.nodeTable, nodestore.Options{Compress: options.Compress})
	if options.CacheSize > 0 {
		res.cache = nodestore.NewCached(res.nodes, options.CacheSize)
		res.nodes = res.cache
	}

	if err := res.checkStorageMode(options.Mode); err != nil {
		metrics.unregister()
		return nil, err
	}
	return res, nil
}

// checkStorageMode records the mode of a new namespace or verifies the mode
// of an existing one.
func (s *StateTrees) checkStorageMode(mode StorageMode) error {
	stored, found, err := s.roots.storageMode()
	if err != nil {
		return err
	}
	if !found {
		return s.roots.setStorageMode(mode)
	}
	if stored != mode {
		return fmt.Errorf("%w: namespace %#02x uses %v, requested %v",
			ErrModeMismatch, s.namespace, stored, mode)
	}
	return nil
}

// NodeStore returns the store holding the nodes of this namespace.
func (s *StateTrees) NodeStore() nodestore.NodeStore {
	return s.nodes
}

func (s *StateTrees) RootsIndex() *RootsIndex {
	return s.roots
}

func (s *StateTrees) StorageMode() StorageMode {
	return s.mode
}

// Trie creates a trie on the node store of this namespace positioned at the
// given root.
func (s *StateTrees) Trie(config trie.MpfConfig, root []byte) *trie.Trie {
	return trie.NewWithRoot(s.nodes, config, root)
}

// PutRootWithRefcount records the given root under the next version and
// increments the reference counts of all nodes reachable from it. Children
// are counted when their parent is referenced for the first time. All
// updates are applied in one atomic batch. Only valid in multi-version mode.
func (s *StateTrees) PutRootWithRefcount(root []byte) (uint64, error) {
	if err := s.check(MultiVersion, "PutRootWithRefcount"); err != nil {
		return 0, err
	}
	if isEmptyRoot(root) {
		return 0, ErrEmptyRoot
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	version, err := s.roots.NextVersion()
	if err != nil {
		return 0, err
	}
	batch := s.store.NewBatch()
	counter := s.newRefCounter(batch)
	if err := counter.increment(root); err != nil {
		return 0, err
	}
	if err := s.roots.put(s.rootTable.Wrap(batch), version, root); err != nil {
		return 0, err
	}
	if err := batch.Write(); err != nil {
		return 0, err
	}
	s.metrics.rootsCommitted.Inc()
	return version, nil
}

// PutRootSnapshot makes the given root the current root. Only valid in
// single-version mode.
func (s *StateTrees) PutRootSnapshot(root []byte) error {
	if err := s.check(SingleVersion, "PutRootSnapshot"); err != nil {
		return err
	}
	if isEmptyRoot(root) {
		return ErrEmptyRoot
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	if err := s.roots.Put(0, root); err != nil {
		return err
	}
	s.metrics.rootsCommitted.Inc()
	return nil
}

// GetCurrentRoot returns the current root in single-version mode and the
// latest recorded root in multi-version mode, or nil if there is none.
func (s *StateTrees) GetCurrentRoot() ([]byte, error) {
	if s.closed.Load() {
		return nil, ErrClosed
	}
	if s.mode == SingleVersion {
		return s.roots.Get(0)
	}
	return s.roots.Latest()
}

// Close releases the instance and unregisters its metrics. Only the first
// call has an effect; later calls return nil.
func (s *StateTrees) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.metrics.unregister()
		if s.ownsStore {
			err = s.store.Close()
		}
	})
	return err
}

func (s *StateTrees) check(mode StorageMode, operation string) error {
	if s.closed.Load() {
		return ErrClosed
	}
	if s.mode != mode {
		return fmt.Errorf("%w: %s requires %v mode, instance uses %v", ErrIllegalState, operation, mode, s.mode)
	}
	return nil
}

// children returns the hashes of the children of the given node.
func (s *StateTrees) children(hash []byte) ([][]byte, error) {
	data, err := s.nodes.Get(hash)
	if err != nil {
		return nil, &node.StorageError{Op: "load", Hash: hash, Err: err}
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %x", ErrMissingNode, hash)
	}
	n, err := node.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("node %x: %w", hash, err)
	}
	return n.ChildHashes(), nil
}

// evict drops deleted nodes from the read cache.
func (s *StateTrees) evict(hashes [][]byte) {
	if s.cache == nil {
		return
	}
	for _, hash := range hashes {
		s.cache.Evict(hash)
	}
}

func isEmptyRoot(root []byte) bool {
	return len(root) == 0 || bytes.Equal(root, make([]byte, len(root)))
}
