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
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/fxamacker/cbor/v2"
	"github.com/stretchr/testify/require"
)

func TestPlutusData_KnownEncodings(t *testing.T) {
	tests := map[string]struct {
		data PlutusData
		want string
	}{
		"empty constructor":   {Constr{Alternative: 0}, "d87980"},
		"constructor 6":       {Constr{Alternative: 6}, "d87f80"},
		"constructor 7":       {Constr{Alternative: 7}, "d9050080"},
		"constructor 127":     {Constr{Alternative: 127}, "d9057880"},
		"constructor 128":     {Constr{Alternative: 128}, "d86682188080"},
		"constructor fields":  {Constr{Alternative: 1, Fields: []PlutusData{Integer(1)}}, "d87a9f01ff"},
		"negative integer":    {Integer(-1), "20"},
		"empty bytes":         {Bytes(nil), "40"},
		"short bytes":         {Bytes{0xab}, "41ab"},
		"empty list":          {List{}, "80"},
		"list":                {List{Integer(1), Integer(2)}, "9f0102ff"},
		"nested lists":        {List{List{}}, "9f80ff"},
		"constructor of list": {Constr{Alternative: 0, Fields: []PlutusData{List{Bytes{}}}}, "d8799f9f40ffff"},
	}
	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			data, err := cbor.Marshal(test.data)
			require.NoError(t, err)
			require.Equal(t, test.want, hex.EncodeToString(data))
		})
	}
}

func TestPlutusData_LongBytesAreChunked(t *testing.T) {
	require := require.New(t)
	data, err := cbor.Marshal(Bytes(filled(1, 100)))
	require.NoError(err)

	want := "5f" + "5840" + strings.Repeat("01", 64) + "5824" + strings.Repeat("01", 36) + "ff"
	require.Equal(want, hex.EncodeToString(data))

	var restored []byte
	require.NoError(cbor.Unmarshal(data, &restored))
	require.Equal(filled(1, 100), restored)

	// exactly one chunk remains a plain byte string
	data, err = cbor.Marshal(Bytes(filled(1, 64)))
	require.NoError(err)
	require.Equal("5840", hex.EncodeToString(data[:2]))
}

func TestPlutusData_JSONUsesDetailedSchema(t *testing.T) {
	require := require.New(t)
	data, err := PlutusJSON(Constr{Alternative: 2, Fields: []PlutusData{
		Integer(3), Bytes{0xab}, List{Integer(-4)},
	}})
	require.NoError(err)
	require.JSONEq(`{
		"constructor": 2,
		"fields": [
			{"int": 3},
			{"bytes": "ab"},
			{"list": [{"int": -4}]}
		]
	}`, string(data))
}

func TestPlutusData_ProofConversion(t *testing.T) {
	require := require.New(t)
	p := sampleProof()
	data, err := ToPlutusData(p)
	require.NoError(err)
	require.Len(data, len(p.Steps))

	branch := data[0].(Constr)
	require.Equal(uint64(0), branch.Alternative)
	require.Len(branch.Fields, 2)
	require.Len(data[1].(Constr).Fields, 3, "value hashes are an extra field")

	fork := data[2].(Constr)
	require.Equal(uint64(1), fork.Alternative)
	neighbor := fork.Fields[1].(Constr)
	require.Equal(uint64(0), neighbor.Alternative)
	require.Equal(Integer(7), neighbor.Fields[0])
	require.Equal(Bytes{1, 2, 3}, neighbor.Fields[1])

	leaf := data[4].(Constr)
	require.Equal(uint64(2), leaf.Alternative)
	require.Equal([]PlutusData{Integer(3), Bytes(filled(0xc, 32)), Bytes(filled(0xd, 32))}, leaf.Fields)

	encoded, err := PlutusJSON(data)
	require.NoError(err)
	var parsed map[string][]map[string]any
	require.NoError(json.Unmarshal(encoded, &parsed))
	require.Len(parsed["list"], len(p.Steps))
}
