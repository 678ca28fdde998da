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
	"errors"
	"testing"

	"github.com/0xsoniclabs/statetrees/backend/kv"
	"github.com/0xsoniclabs/statetrees/backend/kv/memory"
	"github.com/golang/snappy"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func initNodeStoresMap() map[string]func(t *testing.T) NodeStore {
	return map[string]func(t *testing.T) NodeStore{
		"memory": func(t *testing.T) NodeStore {
			return NewMemory()
		},
		"kv": func(t *testing.T) NodeStore {
			return NewKvStore(memory.New(), Options{})
		},
		"kv-compressed": func(t *testing.T) NodeStore {
			return NewKvStore(memory.New(), Options{Compress: true})
		},
		"cached": func(t *testing.T) NodeStore {
			return NewCached(NewMemory(), 16)
		},
	}
}

func TestNodeStore_PutGetDelete(t *testing.T) {
	for name, factory := range initNodeStoresMap() {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			store := factory(t)
			hash := []byte{1, 2, 3}

			data, err := store.Get(hash)
			require.NoError(err)
			require.Nil(data)

			require.NoError(store.Put(hash, []byte("node")))
			require.NoError(store.Put(hash, []byte("node")), "puts are idempotent")
			data, err = store.Get(hash)
			require.NoError(err)
			require.Equal([]byte("node"), data)

			require.NoError(store.Delete(hash))
			data, err = store.Get(hash)
			require.NoError(err)
			require.Nil(data)

			require.NoError(store.Delete(hash))
		})
	}
}

func TestNodeStore_ReturnedDataIsNotShared(t *testing.T) {
	for name, factory := range initNodeStoresMap() {
		t.Run(name, func(t *testing.T) {
			store := factory(t)
			input := []byte{1, 2, 3}
			require.NoError(t, store.Put([]byte{1}, input))
			input[0] = 9

			data, err := store.Get([]byte{1})
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3}, data)
			data[1] = 9

			data, err = store.Get([]byte{1})
			require.NoError(t, err)
			require.Equal(t, []byte{1, 2, 3}, data)
		})
	}
}

func TestKvStore_CompressesStoredData(t *testing.T) {
	require := require.New(t)
	table := memory.New()
	store := NewKvStore(table, Options{Compress: true})
	data := make([]byte, 1024)
	require.NoError(store.Put([]byte{1}, data))

	raw, err := table.Get([]byte{1})
	require.NoError(err)
	require.Less(len(raw), len(data))
	decoded, err := snappy.Decode(nil, raw)
	require.NoError(err)
	require.Equal(data, decoded)
	require.Equal(raw, store.Encode(data))
}

func TestKvStore_CorruptCompressedDataIsReported(t *testing.T) {
	table := memory.New()
	require.NoError(t, table.Put([]byte{1}, []byte{0xff, 0xff, 0xff}))
	store := NewKvStore(table, Options{Compress: true})
	_, err := store.Get([]byte{1})
	require.Error(t, err)
}

func TestKvStore_UsesOnlyItsTable(t *testing.T) {
	require := require.New(t)
	base := memory.New()
	a := NewKvStore(kv.ColumnFamily(base, "a"), Options{})
	b := NewKvStore(kv.ColumnFamily(base, "b"), Options{})
	require.NoError(a.Put([]byte{1}, []byte{1}))
	data, err := b.Get([]byte{1})
	require.NoError(err)
	require.Nil(data)
}

func TestCached_ServesRepeatedReadsFromCache(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := NewMockNodeStore(ctrl)
	inner.EXPECT().Get([]byte{1}).Return([]byte{42}, nil).Times(1)

	store := NewCached(inner, 4)
	for range 3 {
		data, err := store.Get([]byte{1})
		require.NoError(t, err)
		require.Equal(t, []byte{42}, data)
	}
	require.True(t, store.Contains([]byte{1}))
}

func TestCached_DoesNotCacheMissesOrErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := NewMockNodeStore(ctrl)
	injected := errors.New("injected")
	gomock.InOrder(
		inner.EXPECT().Get([]byte{1}).Return(nil, nil),
		inner.EXPECT().Get([]byte{1}).Return(nil, injected),
		inner.EXPECT().Get([]byte{1}).Return([]byte{7}, nil),
	)

	store := NewCached(inner, 4)
	data, err := store.Get([]byte{1})
	require.NoError(t, err)
	require.Nil(t, data)
	_, err = store.Get([]byte{1})
	require.ErrorIs(t, err, injected)
	data, err = store.Get([]byte{1})
	require.NoError(t, err)
	require.Equal(t, []byte{7}, data)
}

func TestCached_DeleteEvictsEntry(t *testing.T) {
	require := require.New(t)
	inner := NewMemory()
	store := NewCached(inner, 4)
	require.NoError(store.Put([]byte{1}, []byte{1}))
	require.True(store.Contains([]byte{1}))
	require.NoError(store.Delete([]byte{1}))
	require.False(store.Contains([]byte{1}))
	require.Equal(0, inner.Len())
}

func TestCached_FailedWritesAreNotCached(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := NewMockNodeStore(ctrl)
	injected := errors.New("injected")
	inner.EXPECT().Put([]byte{1}, []byte{2}).Return(injected)

	store := NewCached(inner, 4)
	require.ErrorIs(t, store.Put([]byte{1}, []byte{2}), injected)
	require.False(t, store.Contains([]byte{1}))
}

func TestCached_EvictKeepsUnderlyingStore(t *testing.T) {
	require := require.New(t)
	inner := NewMemory()
	store := NewCached(inner, 4)
	require.NoError(store.Put([]byte{1}, []byte{1}))
	store.Evict([]byte{1})
	require.False(store.Contains([]byte{1}))
	require.Equal(1, inner.Len())
}
