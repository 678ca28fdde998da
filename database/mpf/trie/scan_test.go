// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package trie

import (
	"bytes"
	"encoding/json"
	"errors"
	"sort"
	"testing"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/stretchr/testify/require"
)

func TestScan_EntriesAreVisitedInKeyHashOrder(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, fruits...)

	want := map[string]string{}
	for _, e := range fruits {
		want[string(MpfBlake2b.Hash([]byte(e.key)))] = e.value
	}

	var keys [][]byte
	require.NoError(trie.Entries(func(keyHash, value []byte) error {
		require.Equal(want[string(keyHash)], string(value))
		keys = append(keys, keyHash)
		return nil
	}))
	require.Len(keys, len(fruits))
	require.True(sort.SliceIsSorted(keys, func(i, j int) bool {
		return bytes.Compare(keys[i], keys[j]) < 0
	}))
}

func TestScan_EntriesOfEmptyTrie(t *testing.T) {
	trie := newTestTrie(t)
	require.NoError(t, trie.Entries(func([]byte, []byte) error {
		t.Fatal("unexpected entry")
		return nil
	}))
}

func TestScan_VisitorErrorsStopTheScan(t *testing.T) {
	trie := newTestTrie(t, fruits...)
	injected := errors.New("injected")
	count := 0
	err := trie.Entries(func([]byte, []byte) error {
		count++
		return injected
	})
	require.ErrorIs(t, err, injected)
	require.Equal(t, 1, count)
}

func TestScan_EntriesWithPrefixSelectsSubTrie(t *testing.T) {
	trie := newTestTrie(t, fruits...)
	for _, prefix := range [][]byte{nil, {0}, {0xa}, {0xf}, {3, 0xc}, {0xf, 0xf}} {
		path, err := nibble.FromNibbles(prefix...)
		require.NoError(t, err)
		want := 0
		for _, e := range fruits {
			if nibble.FromBytes(MpfBlake2b.Hash([]byte(e.key))).HasPrefix(path) {
				want++
			}
		}
		got := 0
		require.NoError(t, trie.EntriesWithPrefix(path, func(keyHash, _ []byte) error {
			require.True(t, nibble.FromBytes(keyHash).HasPrefix(path))
			got++
			return nil
		}))
		require.Equal(t, want, got, "prefix %v", prefix)
	}
}

func TestScan_DumpOfEmptyTrieIsNil(t *testing.T) {
	dump, err := newTestTrie(t).Dump()
	require.NoError(t, err)
	require.Nil(t, dump)
}

func TestScan_DumpReflectsTrieStructure(t *testing.T) {
	require := require.New(t)
	trie := newTestTrie(t, fruits...)
	dump, err := trie.Dump()
	require.NoError(err)
	require.Equal(fruitsRoot, dump.Hash)
	require.Equal("branch", dump.Type)

	var leaves func(d *TreeDump) int
	leaves = func(d *TreeDump) int {
		if d.Type == "leaf" {
			return 1
		}
		res := 0
		for _, child := range d.Children {
			res += leaves(child)
		}
		return res
	}
	require.Equal(len(fruits), leaves(dump))

	data, err := trie.DumpJSON()
	require.NoError(err)
	var restored TreeDump
	require.NoError(json.Unmarshal(data, &restored))
	require.Equal(*dump, restored)
}
