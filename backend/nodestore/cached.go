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

	"github.com/ethereum/go-ethereum/common/lru"
)

// Cached is a NodeStore serving repeated reads of the same nodes from an LRU
// cache. Writes and deletes go through to the underlying store.
type Cached struct {
	store NodeStore
	cache *lru.Cache[string, []byte]
}

func NewCached(store NodeStore, capacity int) *Cached {
	return &Cached{
		store: store,
		cache: lru.NewCache[string, []byte](capacity),
	}
}

func (c *Cached) Get(hash []byte) ([]byte, error) {
	if data, found := c.cache.Get(string(hash)); found {
		return bytes.Clone(data), nil
	}
	data, err := c.store.Get(hash)
	if err != nil || data == nil {
		return data, err
	}
	c.cache.Add(string(hash), bytes.Clone(data))
	return data, nil
}

func (c *Cached) Put(hash, data []byte) error {
	if err := c.store.Put(hash, data); err != nil {
		return err
	}
	c.cache.Add(string(hash), bytes.Clone(data))
	return nil
}

func (c *Cached) Delete(hash []byte) error {
	c.cache.Remove(string(hash))
	return c.store.Delete(hash)
}

// Contains reports whether the node with the given hash is cached.
func (c *Cached) Contains(hash []byte) bool {
	return c.cache.Contains(string(hash))
}

// Evict drops the node with the given hash from the cache only. It is used
// when nodes are deleted from the underlying store directly.
func (c *Cached) Evict(hash []byte) {
	c.cache.Remove(string(hash))
}
