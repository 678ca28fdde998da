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
	"math"

	"github.com/fxamacker/cbor/v2"
)

// CBOR tags of the step variants, matching the Plutus data constructors 0, 1
// and 2 of the on-chain proof type.
const (
	tagBranch   = 121
	tagFork     = 122
	tagLeaf     = 123
	tagNeighbor = 121
)

// Encode produces the wire format of a proof: a CBOR array of tagged steps
// using definite lengths throughout.
//
//	Branch  121([skip, neighbors (, value hash)])
//	Fork    122([skip, 121([nibble, prefix, root])])
//	Leaf    123([skip, key, value])
func Encode(p *Proof) ([]byte, error) {
	steps := make([]any, 0, len(p.Steps))
	for _, step := range p.Steps {
		switch s := step.(type) {
		case *BranchStep:
			fields := []any{uint64(s.Skip), s.NeighborBytes()}
			if s.ValueHash != nil {
				fields = append(fields, s.ValueHash)
			}
			steps = append(steps, cbor.Tag{Number: tagBranch, Content: fields})
		case *ForkStep:
			neighbor := cbor.Tag{Number: tagNeighbor, Content: []any{
				uint64(s.Neighbor.Nibble), nonNil(s.Neighbor.Prefix), nonNil(s.Neighbor.Root),
			}}
			steps = append(steps, cbor.Tag{Number: tagFork, Content: []any{uint64(s.Skip), neighbor}})
		case *LeafStep:
			steps = append(steps, cbor.Tag{Number: tagLeaf, Content: []any{uint64(s.Skip), nonNil(s.Key), nonNil(s.Value)}})
		default:
			return nil, fmt.Errorf("proof: unsupported step type %T", step)
		}
	}
	return cbor.Marshal(steps)
}

// Decode parses the wire format of a proof. Indefinite length arrays and
// chunked byte strings are accepted. All failures wrap ErrMalformedProof.
func Decode(data []byte) (*Proof, error) {
	var raw any
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedProof, err)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected array of steps, got %T", ErrMalformedProof, raw)
	}
	res := &Proof{Steps: make([]Step, 0, len(list))}
	for i, item := range list {
		step, err := decodeStep(item)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", i, err)
		}
		res.Steps = append(res.Steps, step)
	}
	return res, nil
}

func decodeStep(item any) (Step, error) {
	tag, ok := item.(cbor.Tag)
	if !ok {
		return nil, fmt.Errorf("%w: expected tagged step, got %T", ErrMalformedProof, item)
	}
	fields, ok := tag.Content.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: expected step fields, got %T", ErrMalformedProof, tag.Content)
	}
	switch tag.Number {
	case tagBranch:
		if len(fields) != 2 && len(fields) != 3 {
			return nil, fmt.Errorf("%w: branch step with %d fields", ErrMalformedProof, len(fields))
		}
		skip, err := decodeSkip(fields[0])
		if err != nil {
			return nil, err
		}
		neighbors, err := decodeBytes(fields[1], "neighbors")
		if err != nil {
			return nil, err
		}
		res := &BranchStep{Skip: skip}
		if res.Neighbors, err = splitNeighbors(neighbors); err != nil {
			return nil, err
		}
		if len(fields) == 3 {
			if res.ValueHash, err = decodeBytes(fields[2], "value hash"); err != nil {
				return nil, err
			}
		}
		return res, nil

	case tagFork:
		if len(fields) != 2 {
			return nil, fmt.Errorf("%w: fork step with %d fields", ErrMalformedProof, len(fields))
		}
		skip, err := decodeSkip(fields[0])
		if err != nil {
			return nil, err
		}
		neighbor, err := decodeNeighbor(fields[1])
		if err != nil {
			return nil, err
		}
		return &ForkStep{Skip: skip, Neighbor: neighbor}, nil

	case tagLeaf:
		if len(fields) != 3 {
			return nil, fmt.Errorf("%w: leaf step with %d fields", ErrMalformedProof, len(fields))
		}
		skip, err := decodeSkip(fields[0])
		if err != nil {
			return nil, err
		}
		key, err := decodeBytes(fields[1], "key")
		if err != nil {
			return nil, err
		}
		value, err := decodeBytes(fields[2], "value")
		if err != nil {
			return nil, err
		}
		return &LeafStep{Skip: skip, Key: key, Value: value}, nil
	}
	return nil, fmt.Errorf("%w: unknown step tag %d", ErrMalformedProof, tag.Number)
}

func decodeNeighbor(item any) (Neighbor, error) {
	tag, ok := item.(cbor.Tag)
	if !ok || tag.Number != tagNeighbor {
		return Neighbor{}, fmt.Errorf("%w: expected neighbor tagged %d", ErrMalformedProof, tagNeighbor)
	}
	fields, ok := tag.Content.([]any)
	if !ok || len(fields) != 3 {
		return Neighbor{}, fmt.Errorf("%w: neighbor must have 3 fields", ErrMalformedProof)
	}
	nibble, ok := fields[0].(uint64)
	if !ok || nibble > 15 {
		return Neighbor{}, fmt.Errorf("%w: invalid neighbor nibble %v", ErrMalformedProof, fields[0])
	}
	prefix, err := decodeBytes(fields[1], "prefix")
	if err != nil {
		return Neighbor{}, err
	}
	root, err := decodeBytes(fields[2], "root")
	if err != nil {
		return Neighbor{}, err
	}
	return Neighbor{Nibble: byte(nibble), Prefix: prefix, Root: root}, nil
}

func decodeSkip(item any) (int, error) {
	skip, ok := item.(uint64)
	if !ok || skip > math.MaxInt32 {
		return 0, fmt.Errorf("%w: invalid skip %v", ErrMalformedProof, item)
	}
	return int(skip), nil
}

func decodeBytes(item any, field string) ([]byte, error) {
	data, ok := item.([]byte)
	if !ok {
		return nil, fmt.Errorf("%w: %s must be a byte string, got %T", ErrMalformedProof, field, item)
	}
	return nonNil(data), nil
}

func nonNil(data []byte) []byte {
	if data == nil {
		return []byte{}
	}
	return data
}
