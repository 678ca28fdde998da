// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package proof

import (
	"fmt"
	"testing"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
	"github.com/stretchr/testify/require"
)

var (
	testHash   = commit.Blake2b256
	testScheme = commit.DefaultMpf()
)

func keyPath(key string) nibble.Path {
	return nibble.FromBytes(testHash([]byte(key)))
}

func suffix(p nibble.Path, start int) nibble.Path {
	res, err := p.Suffix(start)
	if err != nil {
		panic(err)
	}
	return res
}

func leafRoot(key, value string, from int) []byte {
	return testScheme.CommitLeaf(suffix(keyPath(key), from), testHash([]byte(value)))
}

// keysWithDistinctFirstNibbles returns n keys whose hashes start with
// pairwise different nibbles.
func keysWithDistinctFirstNibbles(n int) []string {
	seen := map[byte]bool{}
	var res []string
	for i := 0; len(res) < n; i++ {
		key := fmt.Sprintf("key-%d", i)
		first := keyPath(key).At(0)
		if !seen[first] {
			seen[first] = true
			res = append(res, key)
		}
	}
	return res
}

func TestVerify_EmptyProofs(t *testing.T) {
	require := require.New(t)
	p := &Proof{}

	root, err := ComputeRoot(p, []byte("key"), []byte("value"), true, testHash, testScheme)
	require.NoError(err)
	require.Equal(leafRoot("key", "value", 0), root)
	require.True(Verify(p, root, []byte("key"), []byte("value"), true, testHash, testScheme))

	root, err = ComputeRoot(p, []byte("key"), nil, false, testHash, testScheme)
	require.NoError(err)
	require.Nil(root)
	require.True(Verify(p, nil, []byte("key"), nil, false, testHash, testScheme))
	require.True(Verify(p, testScheme.NullHash(), []byte("key"), nil, false, testHash, testScheme))
	require.False(Verify(p, leafRoot("key", "value", 0), []byte("key"), nil, false, testHash, testScheme))
}

func TestVerify_LeafStepAuthenticatesBothKeys(t *testing.T) {
	require := require.New(t)
	p1, p2 := keyPath("a"), keyPath("b")
	d := p1.CommonPrefixLen(p2)
	skip, err := p1.Prefix(d)
	require.NoError(err)

	var children [commit.Radix][]byte
	children[p1.At(d)] = leafRoot("a", "1", d+1)
	children[p2.At(d)] = leafRoot("b", "2", d+1)
	root := testScheme.CommitBranch(skip, &children, nil)

	p := &Proof{Steps: []Step{&LeafStep{Skip: d, Key: testHash([]byte("b")), Value: testHash([]byte("2"))}}}
	require.True(Verify(p, root, []byte("a"), []byte("1"), true, testHash, testScheme))
	require.False(Verify(p, root, []byte("a"), []byte("2"), true, testHash, testScheme))

	// without "a", the trie is the single leaf "b"
	require.True(Verify(p, leafRoot("b", "2", 0), []byte("a"), nil, false, testHash, testScheme))
	require.False(Verify(p, root, []byte("a"), nil, false, testHash, testScheme))
}

func TestVerify_BranchStepAuthenticatesEntries(t *testing.T) {
	require := require.New(t)
	keys := keysWithDistinctFirstNibbles(3)

	var children [commit.Radix][]byte
	for i, key := range keys {
		children[keyPath(key).At(0)] = leafRoot(key, fmt.Sprint(i), 1)
	}
	root := testScheme.CommitBranch(nibble.Empty, &children, nil)

	for i, key := range keys {
		pos := int(keyPath(key).At(0))
		p := &Proof{Steps: []Step{&BranchStep{Neighbors: testScheme.Neighbors(&children, pos)}}}
		require.True(Verify(p, root, []byte(key), []byte(fmt.Sprint(i)), true, testHash, testScheme))

		without := children
		without[pos] = nil
		require.True(Verify(p, testScheme.CommitBranch(nibble.Empty, &without, nil), []byte(key), nil, false, testHash, testScheme))
	}
}

func TestVerify_ForkStepAuthenticatesEntries(t *testing.T) {
	require := require.New(t)
	keys := keysWithDistinctFirstNibbles(3)
	p0 := keyPath(keys[0])
	n1, n2 := keyPath(keys[1]).At(0), keyPath(keys[2]).At(0)

	// the neighbor is a branch without skip holding keys[1] and keys[2]
	var inner [commit.Radix][]byte
	inner[n1] = leafRoot(keys[1], "1", 1)
	inner[n2] = leafRoot(keys[2], "2", 1)
	innerRoot := testScheme.MerkleRoot(inner[:])

	neighborNibble := (p0.At(0) + 1) % 16
	var top [commit.Radix][]byte
	top[p0.At(0)] = leafRoot(keys[0], "0", 1)
	top[neighborNibble] = testHash([]byte{}, innerRoot)
	root := testHash(testScheme.MerkleRoot(top[:]))

	p := &Proof{Steps: []Step{&ForkStep{Neighbor: Neighbor{Nibble: neighborNibble, Prefix: []byte{}, Root: innerRoot}}}}
	require.True(Verify(p, root, []byte(keys[0]), []byte("0"), true, testHash, testScheme))
	require.False(Verify(p, root, []byte(keys[0]), []byte("1"), true, testHash, testScheme))

	// without keys[0], the neighbor absorbs the nibble into its skip path
	excluded := testHash([]byte{neighborNibble}, innerRoot)
	require.True(Verify(p, excluded, []byte(keys[0]), nil, false, testHash, testScheme))
}

func TestVerify_InconsistentProofsAreInvalid(t *testing.T) {
	key := []byte("key")
	path := keyPath("key")
	other := testHash([]byte("other"))
	tests := map[string]Step{
		"skip beyond key": &BranchStep{Skip: 64, Neighbors: [4][]byte{
			testScheme.NullHash(), testScheme.NullHash(), testScheme.NullHash(), testScheme.NullHash(),
		}},
		"fork in key slot":   &ForkStep{Neighbor: Neighbor{Nibble: path.At(0), Root: other}},
		"fork nibble range":  &ForkStep{Neighbor: Neighbor{Nibble: 16, Root: other}},
		"short leaf key":     &LeafStep{Key: []byte{1, 2, 3}, Value: other},
		"leaf in key slot":   &LeafStep{Key: testHash(key), Value: other},
		"leaf off the path":  &LeafStep{Skip: 2, Key: make([]byte, commit.HashSize), Value: other},
		"negative skip fork": &ForkStep{Skip: -1, Neighbor: Neighbor{Nibble: 1, Root: other}},
	}
	if path.At(0) == 0 && path.At(1) == 0 {
		delete(tests, "leaf off the path")
	}
	for name, step := range tests {
		t.Run(name, func(t *testing.T) {
			for _, including := range []bool{true, false} {
				_, err := ComputeRoot(&Proof{Steps: []Step{step}}, key, []byte("value"), including, testHash, testScheme)
				require.ErrorIs(t, err, ErrInvalidProof)
			}
		})
	}
}

func TestVerify_ProofsAreBoundToHashingConventions(t *testing.T) {
	blake3 := commit.NewMpf(commit.Blake3)
	root := blake3.CommitLeaf(nibble.FromBytes(commit.Blake3([]byte("key"))), commit.Blake3([]byte("value")))
	require.True(t, Verify(&Proof{}, root, []byte("key"), []byte("value"), true, commit.Blake3, blake3))
	require.False(t, Verify(&Proof{}, root, []byte("key"), []byte("value"), true, testHash, testScheme))
}

func TestVerify_VerifyWireReportsMalformedInput(t *testing.T) {
	require := require.New(t)
	_, err := VerifyWire(nil, []byte("key"), nil, false, []byte{0xff}, testHash, testScheme)
	require.ErrorIs(err, ErrMalformedProof)

	ok, err := VerifyWire(nil, []byte("key"), nil, false, []byte{0x80}, testHash, testScheme)
	require.NoError(err)
	require.True(ok)
}
