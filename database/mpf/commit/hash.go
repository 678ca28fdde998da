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
	"golang.org/x/crypto/blake2b"
	"lukechampine.com/blake3"
)

// HashSize is the size of all digests produced by the hash functions of this
// package and the size of node hashes.
const HashSize = 32

// HashFunction is the digest primitive used for keys, values and node
// commitments. Implementations must be safe for concurrent use.
type HashFunction func(data ...[]byte) []byte

// Blake2b256 is the default hash function, matching the on-chain MPF
// verifier.
func Blake2b256(data ...[]byte) []byte {
	h, _ := blake2b.New256(nil) // < only fails for invalid keys
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}

// Blake3 is an alternative hash function. Tries committed with it are not
// accepted by the on-chain verifier but are useful for off-chain deployments.
func Blake3(data ...[]byte) []byte {
	h := blake3.New(HashSize, nil)
	for _, d := range data {
		h.Write(d)
	}
	return h.Sum(nil)
}
