// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package commit

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/stretchr/testify/require"
)

func TestHashFunctions_ProduceDigestsOfHashSize(t *testing.T) {
	for name, hash := range map[string]HashFunction{
		"blake2b": Blake2b256,
		"blake3":  Blake3,
	} {
		t.Run(name, func(t *testing.T) {
			require := require.New(t)
			a := hash([]byte("hello"), []byte("world"))
			b := hash([]byte("helloworld"))
			require.Len(a, HashSize)
			require.Equal(a, b, "inputs must be concatenated")
			require.NotEqual(a, hash([]byte("hello")))
		})
	}
}

func TestHashFunctions_AreDistinct(t *testing.T) {
	require.NotEqual(t, Blake2b256([]byte{1}), Blake3([]byte{1}))
}

func TestBlake2b256_KnownDigest(t *testing.T) {
	// blake2b-256 of the empty input
	want := "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"
	require.Equal(t, want, fmt.Sprintf("%x", Blake2b256()))
}

func TestMpf_NullHashIsZeroAndNotShared(t *testing.T) {
	scheme := DefaultMpf()
	a := scheme.NullHash()
	require.Equal(t, make([]byte, HashSize), a)
	a[0] = 1
	require.Equal(t, make([]byte, HashSize), scheme.NullHash())
}

func TestEncodeSuffix_EvenAndOddLengths(t *testing.T) {
	tests := []struct {
		suffix string
		want   []byte
	}{
		{"", []byte{0xff}},
		{"ab", []byte{0xff, 0xab}},
		{"abcd", []byte{0xff, 0xab, 0xcd}},
		{"a", []byte{0x00, 0x0a}},
		{"abc", []byte{0x00, 0x0a, 0xbc}},
	}
	for _, test := range tests {
		nibbles := make([]byte, len(test.suffix))
		for i := range test.suffix {
			nibbles[i] = nibble.MustFromHex(string(test.suffix[i])).At(1)
		}
		path, err := nibble.FromNibbles(nibbles...)
		require.NoError(t, err)
		require.Equal(t, test.want, EncodeSuffix(path), "suffix %q", test.suffix)
	}
}

func TestMpf_CommitLeaf_HashesEncodedSuffixAndValueHash(t *testing.T) {
	scheme := DefaultMpf()
	suffix := nibble.MustFromHex("1234")
	valueHash := Blake2b256([]byte("value"))
	want := Blake2b256([]byte{0xff, 0x12, 0x34}, valueHash)
	require.Equal(t, want, scheme.CommitLeaf(suffix, valueHash))
}

func TestMpf_CommitBranch_CoversSkipChildrenAndValueHash(t *testing.T) {
	require := require.New(t)
	scheme := DefaultMpf()
	var children [Radix][]byte
	children[3] = Blake2b256([]byte{3})
	children[12] = Blake2b256([]byte{12})

	skip := nibble.MustFromHex("0a")
	root := scheme.MerkleRoot(children[:])
	require.Equal(Blake2b256([]byte{0, 0xa}, root), scheme.CommitBranch(skip, &children, nil))

	valueHash := Blake2b256([]byte("v"))
	require.Equal(Blake2b256([]byte{0, 0xa}, root, valueHash), scheme.CommitBranch(skip, &children, valueHash))

	require.NotEqual(
		scheme.CommitBranch(nibble.Empty, &children, nil),
		scheme.CommitBranch(skip, &children, nil),
	)
}

func TestMpf_MerkleRoot_OfEmptySlotsCombinesNullHashes(t *testing.T) {
	scheme := DefaultMpf()
	null := scheme.NullHash()
	pair := Blake2b256(null, null)
	require.Equal(t, pair, scheme.MerkleRoot(make([][]byte, 2)))
	require.Equal(t, Blake2b256(pair, pair), scheme.MerkleRoot(make([][]byte, 4)))
	require.Equal(t, []byte{7}, scheme.MerkleRoot([][]byte{{7}}))
}

func TestMpf_Neighbors_RestoreMerkleRootForEveryIndex(t *testing.T) {
	for name, scheme := range map[string]*Mpf{
		"blake2b": DefaultMpf(),
		"blake3":  NewMpf(Blake3),
	} {
		t.Run(name, func(t *testing.T) {
			var children [Radix][]byte
			for i := 0; i < Radix; i += 3 {
				children[i] = scheme.HashFunction()([]byte{byte(i)})
			}
			want := scheme.MerkleRoot(children[:])
			for i := 0; i < Radix; i++ {
				neighbors := scheme.Neighbors(&children, i)
				child := children[i]
				if child == nil {
					child = scheme.NullHash()
				}
				got := scheme.RootFromNeighbors(i, child, neighbors)
				require.Equal(t, want, got, "index %d", i)
			}
		})
	}
}

func TestMpf_Neighbors_OrderedFromTopToImmediateSibling(t *testing.T) {
	require := require.New(t)
	scheme := DefaultMpf()
	var children [Radix][]byte
	for i := range children {
		children[i] = bytes.Repeat([]byte{byte(i)}, HashSize)
	}
	neighbors := scheme.Neighbors(&children, 0)
	require.Equal(scheme.MerkleRoot(children[8:16]), neighbors[0])
	require.Equal(scheme.MerkleRoot(children[4:8]), neighbors[1])
	require.Equal(scheme.MerkleRoot(children[2:4]), neighbors[2])
	require.Equal(children[1], neighbors[3])

	neighbors = scheme.Neighbors(&children, 15)
	require.Equal(scheme.MerkleRoot(children[0:8]), neighbors[0])
	require.Equal(scheme.MerkleRoot(children[8:12]), neighbors[1])
	require.Equal(scheme.MerkleRoot(children[12:14]), neighbors[2])
	require.Equal(children[14], neighbors[3])
}

func TestMpf_SparseRoot_MatchesFullMerkleRoot(t *testing.T) {
	scheme := DefaultMpf()
	a, b := Blake2b256([]byte("a")), Blake2b256([]byte("b"))
	var children [Radix][]byte
	children[2] = a
	children[9] = b
	require.Equal(t, scheme.MerkleRoot(children[:]), scheme.SparseRoot(9, b, 2, a))
}
