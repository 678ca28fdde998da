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
	"fmt"

	"github.com/0xsoniclabs/statetrees/backend/kv"
)

// ReleaseVersion removes the given version from the roots index and
// decrements the reference counts of the nodes reachable from its root.
// Nodes whose count drops to zero are deleted. The number of deleted nodes
// is returned. Only valid in multi-version mode.
//
// Uncommitted tries may share nodes with the released version without
// holding a reference to them. Writers must commit their root with
// PutRootWithRefcount before older versions are released.
func (s *StateTrees) ReleaseVersion(version uint64) (int, error) {
	if err := s.check(MultiVersion, "ReleaseVersion"); err != nil {
		return 0, err
	}
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	root, err := s.roots.Get(version)
	if err != nil {
		return 0, err
	}
	if root == nil {
		return 0, fmt.Errorf("%w: %d", ErrUnknownVersion, version)
	}
	batch := s.store.NewBatch()
	counter := s.newRefCounter(batch)
	if err := counter.decrement(root); err != nil {
		return 0, err
	}
	if err := s.roots.remove(s.rootTable.Wrap(batch), version); err != nil {
		return 0, err
	}
	if err := batch.Write(); err != nil {
		return 0, err
	}
	s.evict(counter.deleted)
	s.metrics.versionsFreed.Inc()
	s.metrics.nodesDeleted.Add(float64(len(counter.deleted)))
	return len(counter.deleted), nil
}

// RefCount returns the number of references to the node with the given hash.
// Nodes are referenced by retained roots and by their parents.
func (s *StateTrees) RefCount(hash []byte) (uint64, error) {
	if s.closed.Load() {
		return 0, ErrClosed
	}
	return readCount(s.refTable, hash)
}

func readCount(table *kv.Table, hash []byte) (uint64, error) {
	data, err := table.Get(hash)
	if err != nil || data == nil {
		return 0, err
	}
	if len(data) != 8 {
		return 0, fmt.Errorf("corrupted reference count of node %x: %x", hash, data)
	}
	return binary.BigEndian.Uint64(data), nil
}

// refCounter updates reference counts within a batch. Counts modified in the
// batch are tracked to make them visible to later reads of the same batch.
type refCounter struct {
	s       *StateTrees
	refs    kv.Writer
	nodes   kv.Writer
	pending map[string]uint64
	deleted [][]byte
}

func (s *StateTrees) newRefCounter(batch kv.Batch) *refCounter {
	return &refCounter{
		s:       s,
		refs:    s.refTable.Wrap(batch),
		nodes:   s.nodeTable.Wrap(batch),
		pending: map[string]uint64{},
	}
}

func (c *refCounter) get(hash []byte) (uint64, error) {
	if count, found := c.pending[string(hash)]; found {
		return count, nil
	}
	return readCount(c.s.refTable, hash)
}

func (c *refCounter) set(hash []byte, count uint64) error {
	c.pending[string(hash)] = count
	if count == 0 {
		return c.refs.Delete(hash)
	}
	return c.refs.Put(hash, binary.BigEndian.AppendUint64(nil, count))
}

func (c *refCounter) increment(root []byte) error {
	stack := [][]byte{root}
	for len(stack) > 0 {
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count, err := c.get(hash)
		if err != nil {
			return err
		}
		if count == 0 {
			children, err := c.s.children(hash)
			if err != nil {
				return err
			}
			stack = append(stack, children...)
		}
		if err := c.set(hash, count+1); err != nil {
			return err
		}
	}
	return nil
}

func (c *refCounter) decrement(root []byte) error {
	stack := [][]byte{root}
	for len(stack) > 0 {
		hash := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		count, err := c.get(hash)
		if err != nil {
			return err
		}
		if count == 0 {
			return fmt.Errorf("%w: node %x is not referenced", ErrIllegalState, hash)
		}
		if err := c.set(hash, count-1); err != nil {
			return err
		}
		if count > 1 {
			continue
		}
		children, err := c.s.children(hash)
		if err != nil {
			return err
		}
		if err := c.nodes.Delete(hash); err != nil {
			return err
		}
		c.deleted = append(c.deleted, hash)
		stack = append(stack, children...)
	}
	return nil
}
