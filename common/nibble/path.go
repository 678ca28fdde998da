// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package nibble provides an immutable path of half-byte values used to
// address nodes in radix-16 tries.
package nibble

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidNibble = errors.New("nibble: value out of range [0,15]")
	ErrInvalidHex    = errors.New("nibble: invalid hex string")
	ErrOutOfRange    = errors.New("nibble: index out of range")
)

const hexDigits = "0123456789abcdef"

// Path is an immutable sequence of nibbles. The zero value is the empty path.
// All operations producing slices return copies, so a Path can be shared
// freely between goroutines.
type Path struct {
	nibbles []byte // < one nibble per byte, never modified after construction
}

// Empty is the path of length zero.
var Empty = Path{}

// FromNibbles creates a path from raw nibble values. Every value must be in
// the range [0,15].
func FromNibbles(nibbles ...byte) (Path, error) {
	for i, n := range nibbles {
		if n > 15 {
			return Empty, fmt.Errorf("%w: %d at position %d", ErrInvalidNibble, n, i)
		}
	}
	return Path{nibbles: bytes.Clone(nibbles)}, nil
}

// FromBytes splits every byte into its high and low nibble.
func FromBytes(data []byte) Path {
	res := make([]byte, 2*len(data))
	for i, b := range data {
		res[2*i] = b >> 4
		res[2*i+1] = b & 0x0f
	}
	return Path{nibbles: res}
}

// FromHex parses a hex string, optionally prefixed by 0x, into a path. An odd
// number of digits is padded by a leading zero nibble.
func FromHex(s string) (Path, error) {
	s = strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	res := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		pos := strings.IndexByte(hexDigits, s[i])
		if pos < 0 {
			return Empty, fmt.Errorf("%w: character %q at position %d", ErrInvalidHex, s[i], i)
		}
		res[i] = byte(pos)
	}
	return Path{nibbles: res}, nil
}

// MustFromHex is like FromHex but panics on malformed input. Intended for
// constants and tests.
func MustFromHex(s string) Path {
	p, err := FromHex(s)
	if err != nil {
		panic(err)
	}
	return p
}

// Len returns the number of nibbles in the path.
func (p Path) Len() int {
	return len(p.nibbles)
}

// IsEmpty is true for paths of length zero.
func (p Path) IsEmpty() bool {
	return len(p.nibbles) == 0
}

// At returns the nibble at the given position. Like slice indexing, it panics
// if the index is out of range.
func (p Path) At(i int) byte {
	return p.nibbles[i]
}

// Slice returns the sub-path [start,end).
func (p Path) Slice(start, end int) (Path, error) {
	if start < 0 || end > len(p.nibbles) || start > end {
		return Empty, fmt.Errorf("%w: slice [%d,%d) of path with length %d", ErrOutOfRange, start, end, len(p.nibbles))
	}
	return Path{nibbles: bytes.Clone(p.nibbles[start:end])}, nil
}

// Prefix returns the first n nibbles.
func (p Path) Prefix(n int) (Path, error) {
	return p.Slice(0, n)
}

// Suffix returns the path starting at the given position.
func (p Path) Suffix(start int) (Path, error) {
	return p.Slice(start, len(p.nibbles))
}

// Concat returns a new path consisting of p followed by all given paths.
func (p Path) Concat(others ...Path) Path {
	size := len(p.nibbles)
	for _, o := range others {
		size += len(o.nibbles)
	}
	res := make([]byte, 0, size)
	res = append(res, p.nibbles...)
	for _, o := range others {
		res = append(res, o.nibbles...)
	}
	return Path{nibbles: res}
}

// Append returns a new path with the given nibbles added at the end.
func (p Path) Append(nibbles ...byte) (Path, error) {
	tail, err := FromNibbles(nibbles...)
	if err != nil {
		return Empty, err
	}
	return p.Concat(tail), nil
}

// CommonPrefixLen returns the number of leading nibbles shared by both paths.
func (p Path) CommonPrefixLen(other Path) int {
	n := min(len(p.nibbles), len(other.nibbles))
	for i := 0; i < n; i++ {
		if p.nibbles[i] != other.nibbles[i] {
			return i
		}
	}
	return n
}

// HasPrefix reports whether the path starts with the given prefix.
func (p Path) HasPrefix(prefix Path) bool {
	return bytes.HasPrefix(p.nibbles, prefix.nibbles)
}

// Equal reports whether both paths contain the same nibbles.
func (p Path) Equal(other Path) bool {
	return bytes.Equal(p.nibbles, other.nibbles)
}

// Compare orders paths lexicographically, shorter paths first on ties.
func (p Path) Compare(other Path) int {
	return bytes.Compare(p.nibbles, other.nibbles)
}

// Nibbles returns a copy of the nibble values.
func (p Path) Nibbles() []byte {
	return bytes.Clone(p.nibbles)
}

// NibbleBytes is an alias of Nibbles emphasizing the one-byte-per-nibble
// layout used by MPF commitments and proofs.
func (p Path) NibbleBytes() []byte {
	if len(p.nibbles) == 0 {
		return []byte{}
	}
	return bytes.Clone(p.nibbles)
}

// Bytes packs the path into bytes, two nibbles per byte. Paths of odd length
// are padded by a leading zero nibble, thus FromBytes only restores paths of
// even length.
func (p Path) Bytes() []byte {
	src := p.nibbles
	if len(src)%2 == 1 {
		src = append([]byte{0}, src...)
	}
	res := make([]byte, len(src)/2)
	for i := range res {
		res[i] = src[2*i]<<4 | src[2*i+1]
	}
	return res
}

// Hex renders one hex digit per nibble, without padding.
func (p Path) Hex() string {
	var b strings.Builder
	b.Grow(len(p.nibbles))
	for _, n := range p.nibbles {
		b.WriteByte(hexDigits[n])
	}
	return b.String()
}

func (p Path) String() string {
	return "NibblePath{" + p.Hex() + "}"
}
