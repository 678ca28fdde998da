// Copyright (c) 2025 Sonic Operations Ltd
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at soniclabs.com/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

package nibble

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPath_FromNibbles_RejectsOutOfRangeValues(t *testing.T) {
	_, err := FromNibbles(1, 2, 16)
	require.ErrorIs(t, err, ErrInvalidNibble)

	p, err := FromNibbles(0, 15, 7)
	require.NoError(t, err)
	require.Equal(t, 3, p.Len())
	require.Equal(t, byte(15), p.At(1))
}

func TestPath_FromNibbles_CopiesInput(t *testing.T) {
	require := require.New(t)
	input := []byte{1, 2, 3}
	p, err := FromNibbles(input...)
	require.NoError(err)
	input[0] = 9
	require.Equal(byte(1), p.At(0))

	out := p.Nibbles()
	out[1] = 9
	require.Equal(byte(2), p.At(1))
}

func TestPath_FromBytes_SplitsHighAndLowNibbles(t *testing.T) {
	p := FromBytes([]byte{0xab, 0x01})
	require.Equal(t, []byte{0xa, 0xb, 0x0, 0x1}, p.Nibbles())
	require.Equal(t, "ab01", p.Hex())
}

func TestPath_FromHex_PadsOddLengthWithLeadingZero(t *testing.T) {
	require := require.New(t)
	p, err := FromHex("abc")
	require.NoError(err)
	require.Equal([]byte{0, 0xa, 0xb, 0xc}, p.Nibbles())

	p, err = FromHex("0xFF")
	require.NoError(err)
	require.Equal([]byte{0xf, 0xf}, p.Nibbles())

	_, err = FromHex("zz")
	require.ErrorIs(err, ErrInvalidHex)
}

func TestPath_Bytes_RoundTripsEvenLengthPaths(t *testing.T) {
	data := []byte{0x12, 0x34, 0xff, 0x00}
	require.Equal(t, data, FromBytes(data).Bytes())
	require.True(t, FromBytes(FromBytes(data).Bytes()).Equal(FromBytes(data)))
}

func TestPath_Bytes_PadsOddLengthPaths(t *testing.T) {
	p, err := FromNibbles(1, 2, 3)
	require.NoError(t, err)
	require.Equal(t, []byte{0x01, 0x23}, p.Bytes())
	// the padding nibble can not be recovered
	require.False(t, FromBytes(p.Bytes()).Equal(p))
}

func TestPath_Slice_ValidatesBounds(t *testing.T) {
	require := require.New(t)
	p := MustFromHex("012345")

	s, err := p.Slice(1, 4)
	require.NoError(err)
	require.Equal("123", s.Hex())

	for _, bounds := range [][2]int{{-1, 2}, {2, 1}, {0, 7}} {
		_, err := p.Slice(bounds[0], bounds[1])
		require.ErrorIs(err, ErrOutOfRange, "bounds %v", bounds)
	}

	prefix, err := p.Prefix(2)
	require.NoError(err)
	require.Equal("01", prefix.Hex())

	suffix, err := p.Suffix(4)
	require.NoError(err)
	require.Equal("45", suffix.Hex())

	_, err = p.Suffix(7)
	require.ErrorIs(err, ErrOutOfRange)

	empty, err := p.Suffix(6)
	require.NoError(err)
	require.True(empty.IsEmpty())
}

func TestPath_CommonPrefixLen_IsSymmetricAndBounded(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"12", "", 0},
		{"1234", "1299", 2},
		{"1234", "12", 2},
		{"abcd", "abcd", 4},
		{"0123", "1123", 0},
	}
	for _, test := range tests {
		a, b := MustFromHex(test.a), MustFromHex(test.b)
		// MustFromHex pads odd input, all inputs here are even
		require.Equal(t, test.want, a.CommonPrefixLen(b), "%s vs %s", test.a, test.b)
		require.Equal(t, test.want, b.CommonPrefixLen(a), "%s vs %s", test.b, test.a)
	}
}

func TestPath_HasPrefix(t *testing.T) {
	p := MustFromHex("abcdef")
	require.True(t, p.HasPrefix(Empty))
	require.True(t, p.HasPrefix(MustFromHex("abcd")))
	require.False(t, p.HasPrefix(MustFromHex("abce")))
	require.False(t, MustFromHex("ab").HasPrefix(p))
}

func TestPath_Concat_PreservesOrder(t *testing.T) {
	a := MustFromHex("12")
	b := MustFromHex("34")
	c, err := FromNibbles(5)
	require.NoError(t, err)
	require.Equal(t, "12345", a.Concat(b, c).Hex())
	require.Equal(t, "12", a.Hex())

	d, err := a.Append(7, 8)
	require.NoError(t, err)
	require.Equal(t, "1278", d.Hex())

	_, err = a.Append(99)
	require.ErrorIs(t, err, ErrInvalidNibble)
}

func TestPath_Compare_OrdersLexicographically(t *testing.T) {
	require.Negative(t, MustFromHex("12").Compare(MustFromHex("13")))
	require.Negative(t, MustFromHex("12").Compare(MustFromHex("1200")))
	require.Zero(t, MustFromHex("12").Compare(MustFromHex("12")))
	require.Positive(t, MustFromHex("20").Compare(MustFromHex("1f")))
}

func TestPath_ZeroValueIsEmpty(t *testing.T) {
	var p Path
	require.True(t, p.IsEmpty())
	require.True(t, p.Equal(Empty))
	require.Equal(t, []byte{}, p.Bytes())
	require.Equal(t, []byte{}, p.NibbleBytes())
	require.Equal(t, "NibblePath{}", p.String())
}
