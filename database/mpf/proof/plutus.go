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
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// PlutusData is the generic data representation of Cardano smart contracts.
// Its CBOR encoding follows the conventions of the Cardano ledger: indefinite
// length lists and byte strings split into chunks of at most 64 bytes.
type PlutusData interface {
	cbor.Marshaler
	jsonValue() any
}

// Constr is a constructor application.
type Constr struct {
	Alternative uint64
	Fields      []PlutusData
}

// Integer is a (small) integer.
type Integer int64

// Bytes is a byte string.
type Bytes []byte

// List is a list of data items.
type List []PlutusData

const bytesChunkSize = 64

func (c Constr) MarshalCBOR() ([]byte, error) {
	fields, err := encodeList(c.Fields)
	if err != nil {
		return nil, err
	}
	switch {
	case c.Alternative <= 6:
		return cbor.Marshal(&cbor.RawTag{Number: 121 + c.Alternative, Content: fields})
	case c.Alternative <= 127:
		return cbor.Marshal(&cbor.RawTag{Number: 1280 + c.Alternative - 7, Content: fields})
	}
	content, err := cbor.Marshal([]any{c.Alternative, cbor.RawMessage(fields)})
	if err != nil {
		return nil, err
	}
	return cbor.Marshal(&cbor.RawTag{Number: 102, Content: content})
}

func (i Integer) MarshalCBOR() ([]byte, error) {
	return cbor.Marshal(int64(i))
}

func (b Bytes) MarshalCBOR() ([]byte, error) {
	if len(b) <= bytesChunkSize {
		return cbor.Marshal([]byte(nonNil(b)))
	}
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	if err := enc.StartIndefiniteByteString(); err != nil {
		return nil, err
	}
	for start := 0; start < len(b); start += bytesChunkSize {
		end := min(start+bytesChunkSize, len(b))
		if err := enc.Encode([]byte(b[start:end])); err != nil {
			return nil, err
		}
	}
	if err := enc.EndIndefinite(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (l List) MarshalCBOR() ([]byte, error) {
	return encodeList(l)
}

func encodeList(items []PlutusData) ([]byte, error) {
	if len(items) == 0 {
		return cbor.Marshal([]any{})
	}
	var buf bytes.Buffer
	enc := cbor.NewEncoder(&buf)
	if err := enc.StartIndefiniteArray(); err != nil {
		return nil, err
	}
	for _, item := range items {
		if err := enc.Encode(item); err != nil {
			return nil, err
		}
	}
	if err := enc.EndIndefinite(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Constr) jsonValue() any {
	fields := make([]any, 0, len(c.Fields))
	for _, f := range c.Fields {
		fields = append(fields, f.jsonValue())
	}
	return map[string]any{"constructor": c.Alternative, "fields": fields}
}

func (i Integer) jsonValue() any {
	return map[string]any{"int": int64(i)}
}

func (b Bytes) jsonValue() any {
	return map[string]any{"bytes": hex.EncodeToString(b)}
}

func (l List) jsonValue() any {
	items := make([]any, 0, len(l))
	for _, item := range l {
		items = append(items, item.jsonValue())
	}
	return map[string]any{"list": items}
}

// PlutusJSON renders data in the detailed JSON schema of the Cardano CLI.
func PlutusJSON(data PlutusData) ([]byte, error) {
	return json.Marshal(data.jsonValue())
}

// ToPlutusData converts a proof into the data representation of the on-chain
// proof type: a list of steps with Branch, Fork and Leaf as constructors 0, 1
// and 2 and the fork neighbor as constructor 0.
func ToPlutusData(p *Proof) (List, error) {
	res := make(List, 0, len(p.Steps))
	for _, step := range p.Steps {
		switch s := step.(type) {
		case *BranchStep:
			fields := []PlutusData{Integer(s.Skip), Bytes(s.NeighborBytes())}
			if s.ValueHash != nil {
				fields = append(fields, Bytes(s.ValueHash))
			}
			res = append(res, Constr{Alternative: 0, Fields: fields})
		case *ForkStep:
			neighbor := Constr{Alternative: 0, Fields: []PlutusData{
				Integer(s.Neighbor.Nibble), Bytes(s.Neighbor.Prefix), Bytes(s.Neighbor.Root),
			}}
			res = append(res, Constr{Alternative: 1, Fields: []PlutusData{Integer(s.Skip), neighbor}})
		case *LeafStep:
			res = append(res, Constr{Alternative: 2, Fields: []PlutusData{
				Integer(s.Skip), Bytes(s.Key), Bytes(s.Value),
			}})
		default:
			return nil, fmt.Errorf("proof: unsupported step type %T", step)
		}
	}
	return res, nil
}
