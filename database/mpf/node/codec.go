// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package node

import (
	"errors"
	"fmt"

	"github.com/0xsoniclabs/statetrees/common/nibble"
	"github.com/0xsoniclabs/statetrees/database/mpf/commit"
	"github.com/fxamacker/cbor/v2"
)

// ErrDecode is returned for stored node data that can not be parsed.
var ErrDecode = errors.New("node: failed to decode node")

const (
	kindLeaf   = 1
	kindBranch = 2
)

// encodedNode is the storage layout of nodes. Paths are packed two nibbles per
// byte with their length kept separately, and only occupied child slots are
// listed, in slot order, as flagged by the mask.
type encodedNode struct {
	_        struct{} `cbor:",toarray"`
	Kind     uint8
	Path     []byte
	PathLen  uint16
	Value    []byte // < leaf value or optional branch value hash
	Mask     uint16
	Children [][]byte
}

var encMode = func() cbor.EncMode {
	mode, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("invalid cbor encoding options: %v", err))
	}
	return mode
}()

// Encode produces the binary representation of a node.
func Encode(n Node) ([]byte, error) {
	var enc encodedNode
	switch n := n.(type) {
	case *Leaf:
		enc.Kind = kindLeaf
		enc.Path = n.Suffix.Bytes()
		enc.PathLen = uint16(n.Suffix.Len())
		enc.Value = n.Value
		if enc.Value == nil {
			enc.Value = []byte{}
		}
	case *Branch:
		enc.Kind = kindBranch
		enc.Path = n.Skip.Bytes()
		enc.PathLen = uint16(n.Skip.Len())
		enc.Value = n.ValueHash
		mask := maskOf(&n.Children)
		enc.Mask = uint16(mask)
		enc.Children = make([][]byte, 0, mask.popCount())
		for _, child := range n.Children {
			if child != nil {
				enc.Children = append(enc.Children, child)
			}
		}
	default:
		return nil, fmt.Errorf("node: unsupported node type %T", n)
	}
	return encMode.Marshal(enc)
}

// Decode parses data produced by Encode. All failures wrap ErrDecode.
func Decode(data []byte) (Node, error) {
	var enc encodedNode
	if err := cbor.Unmarshal(data, &enc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	path, err := unpackPath(enc.Path, int(enc.PathLen))
	if err != nil {
		return nil, err
	}
	switch enc.Kind {
	case kindLeaf:
		if enc.Mask != 0 || len(enc.Children) != 0 {
			return nil, fmt.Errorf("%w: leaf with children", ErrDecode)
		}
		value := enc.Value
		if value == nil {
			value = []byte{}
		}
		return &Leaf{Suffix: path, Value: value}, nil
	case kindBranch:
		mask := childMask(enc.Mask)
		if mask.popCount() != len(enc.Children) {
			return nil, fmt.Errorf("%w: mask lists %d children, found %d", ErrDecode, mask.popCount(), len(enc.Children))
		}
		if enc.Value != nil && len(enc.Value) != commit.HashSize {
			return nil, fmt.Errorf("%w: invalid value hash length %d", ErrDecode, len(enc.Value))
		}
		res := &Branch{Skip: path, ValueHash: enc.Value}
		next := 0
		for i := byte(0); i < commit.Radix; i++ {
			if !mask.get(i) {
				continue
			}
			child := enc.Children[next]
			next++
			if len(child) != commit.HashSize {
				return nil, fmt.Errorf("%w: invalid hash length %d of child %d", ErrDecode, len(child), i)
			}
			res.Children[i] = child
		}
		return res, nil
	default:
		return nil, fmt.Errorf("%w: unknown node kind %d", ErrDecode, enc.Kind)
	}
}

func unpackPath(packed []byte, length int) (nibble.Path, error) {
	if len(packed) != (length+1)/2 {
		return nibble.Empty, fmt.Errorf("%w: %d bytes can not hold a path of %d nibbles", ErrDecode, len(packed), length)
	}
	path := nibble.FromBytes(packed)
	if length%2 == 0 {
		return path, nil
	}
	if path.At(0) != 0 {
		return nibble.Empty, fmt.Errorf("%w: non-zero path padding", ErrDecode)
	}
	return path.Suffix(1)
}
