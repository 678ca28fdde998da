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
	"fmt"
	"strings"
)

type jsonForkNeighbor struct {
	Nibble byte   `json:"nibble"`
	Prefix string `json:"prefix"`
	Root   string `json:"root"`
}

type jsonLeafNeighbor struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type jsonStep struct {
	Type      string `json:"type"`
	Skip      int    `json:"skip"`
	Neighbors string `json:"neighbors,omitempty"`
	Value     string `json:"value,omitempty"`
	Neighbor  any    `json:"neighbor,omitempty"`
}

// ToJSON renders the proof as a JSON array of steps, with all binary data
// hex encoded.
func ToJSON(p *Proof) ([]byte, error) {
	steps := make([]jsonStep, 0, len(p.Steps))
	for _, step := range p.Steps {
		switch s := step.(type) {
		case *BranchStep:
			res := jsonStep{Type: "branch", Skip: s.Skip, Neighbors: hex.EncodeToString(s.NeighborBytes())}
			if s.ValueHash != nil {
				res.Value = hex.EncodeToString(s.ValueHash)
			}
			steps = append(steps, res)
		case *ForkStep:
			steps = append(steps, jsonStep{Type: "fork", Skip: s.Skip, Neighbor: jsonForkNeighbor{
				Nibble: s.Neighbor.Nibble,
				Prefix: hex.EncodeToString(s.Neighbor.Prefix),
				Root:   hex.EncodeToString(s.Neighbor.Root),
			}})
		case *LeafStep:
			steps = append(steps, jsonStep{Type: "leaf", Skip: s.Skip, Neighbor: jsonLeafNeighbor{
				Key:   hex.EncodeToString(s.Key),
				Value: hex.EncodeToString(s.Value),
			}})
		default:
			return nil, fmt.Errorf("proof: unsupported step type %T", step)
		}
	}
	return json.MarshalIndent(steps, "", "  ")
}

// ToAiken renders the proof as an Aiken literal of the on-chain proof type,
// suitable for embedding in validator tests.
func ToAiken(p *Proof) string {
	var b strings.Builder
	b.WriteString("[\n")
	for _, step := range p.Steps {
		switch s := step.(type) {
		case *BranchStep:
			fmt.Fprintf(&b, "  Branch { skip: %d, neighbors: #\"%x\" },\n", s.Skip, s.NeighborBytes())
		case *ForkStep:
			fmt.Fprintf(&b, "  Fork { skip: %d, neighbor: Neighbor { nibble: %d, prefix: #\"%x\", root: #\"%x\" } },\n",
				s.Skip, s.Neighbor.Nibble, s.Neighbor.Prefix, s.Neighbor.Root)
		case *LeafStep:
			fmt.Fprintf(&b, "  Leaf { skip: %d, key: #\"%x\", value: #\"%x\" },\n", s.Skip, s.Key, s.Value)
		}
	}
	b.WriteString("]")
	return b.String()
}
