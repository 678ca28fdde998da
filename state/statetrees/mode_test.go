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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStorageMode_String(t *testing.T) {
	require.Equal(t, "MULTI_VERSION", MultiVersion.String())
	require.Equal(t, "SINGLE_VERSION", SingleVersion.String())
	require.Equal(t, "StorageMode(7)", StorageMode(7).String())
}

func TestStorageMode_Parse(t *testing.T) {
	tests := map[string]StorageMode{
		"MULTI_VERSION":  MultiVersion,
		"multi_version":  MultiVersion,
		"multi":          MultiVersion,
		" Single ":       SingleVersion,
		"SINGLE_VERSION": SingleVersion,
	}
	for input, want := range tests {
		mode, err := ParseStorageMode(input)
		require.NoError(t, err, input)
		require.Equal(t, want, mode, input)
	}
	_, err := ParseStorageMode("both")
	require.Error(t, err)
}

func TestStorageMode_TextEncoding(t *testing.T) {
	require := require.New(t)
	for _, mode := range []StorageMode{MultiVersion, SingleVersion} {
		text, err := mode.MarshalText()
		require.NoError(err)
		var restored StorageMode
		require.NoError(restored.UnmarshalText(text))
		require.Equal(mode, restored)
	}
	_, err := StorageMode(-1).MarshalText()
	require.Error(err)
}
