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
	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
)

// MpfConfig defines the hashing conventions of a trie. Tries and proofs are
// only compatible if they agree on their configuration.
type MpfConfig struct {
	Name   string
	Hash   commit.HashFunction // < used for keys and values
	Scheme commit.ProofScheme  // < used for nodes
}

// MpfBlake2b is the configuration compatible with the on-chain verifier.
var MpfBlake2b = MpfConfig{
	Name:   "MPF-Blake2b",
	Hash:   commit.Blake2b256,
	Scheme: commit.NewMpf(commit.Blake2b256),
}

// MpfBlake3 uses the MPF node layout with Blake3 digests.
var MpfBlake3 = MpfConfig{
	Name:   "MPF-Blake3",
	Hash:   commit.Blake3,
	Scheme: commit.NewMpf(commit.Blake3),
}

var configurations = map[string]MpfConfig{
	MpfBlake2b.Name: MpfBlake2b,
	MpfBlake3.Name:  MpfBlake3,
}

// GetConfigByName returns the configuration with the given name.
func GetConfigByName(name string) (MpfConfig, bool) {
	config, found := configurations[name]
	return config, found
}

// GetAllConfigurations lists all known configurations.
func GetAllConfigurations() []MpfConfig {
	return []MpfConfig{MpfBlake2b, MpfBlake3}
}
