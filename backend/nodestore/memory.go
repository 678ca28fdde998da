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
	"bytes"
	"sync"
)

// Memory is a NodeStore keeping all nodes in a map.
type Memory struct {
	nodes map[string][]byte
	mutex sync.RWMutex
}

func NewMemory() *Memory {
	return &Memory{nodes: map[string][]byte{}}
}

func (m *Memory) Get(hash []byte) ([]byte, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return bytes.Clone(m.nodes[string(hash)]), nil
}

func (m *Memory) Put(hash, data []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.nodes[string(hash)] = bytes.Clone(data)
	return nil
}

func (m *Memory) Delete(hash []byte) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.nodes, string(hash))
	return nil
}

// Len returns the number of stored nodes.
func (m *Memory) Len() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.nodes)
}
