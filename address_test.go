package tvmsym_test

import (
	"strings"
	"testing"

	"github.com/benbjohnson/tvmsym"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

func TestStdAddress(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		for _, addr := range []tvmsym.StdAddress{
			{Workchain: 0},
			{Workchain: -1, Account: *uint256.NewInt(0xabc)},
			{Workchain: 127, Account: *new(uint256.Int).SetAllOne()},
			{Workchain: 1, Account: *new(uint256.Int).Lsh(uint256.NewInt(0x80), 248)},
		} {
			bits := addr.Bits()
			require.Len(t, bits, 267)
			require.True(t, strings.HasPrefix(bits, "100"))

			other, err := tvmsym.ParseStdAddress(bits)
			require.NoError(t, err)
			require.Equal(t, addr, other)
		}
	})

	t.Run("String", func(t *testing.T) {
		addr := tvmsym.StdAddress{Workchain: -1, Account: *uint256.NewInt(0xabc)}
		require.Equal(t, "-1:"+strings.Repeat("0", 61)+"abc", addr.String())
	})

	t.Run("AccountBits", func(t *testing.T) {
		addr, err := tvmsym.ParseStdAddress("100" + "11111111" + "1" + strings.Repeat("0", 254) + "1")
		require.NoError(t, err)
		require.Equal(t, int8(-1), addr.Workchain)

		want := new(uint256.Int).Lsh(uint256.NewInt(1), 255)
		want.Or(want, uint256.NewInt(1))
		require.Equal(t, *want, addr.Account)
	})

	t.Run("TrailingBits", func(t *testing.T) {
		addr := tvmsym.StdAddress{Account: *uint256.NewInt(7)}
		other, err := tvmsym.ParseStdAddress(addr.Bits() + "1101")
		require.NoError(t, err)
		require.Equal(t, addr, other)
	})

	t.Run("Slice", func(t *testing.T) {
		addr := tvmsym.StdAddress{Workchain: 0, Account: *uint256.NewInt(1)}
		s := &tvmsym.TestSlice{Cell: &tvmsym.TestDataCell{Data: "0110" + addr.Bits()}, DataPos: 4}
		other, err := s.StdAddress()
		require.NoError(t, err)
		require.Equal(t, addr, other)
	})

	for _, tt := range []struct {
		name string
		bits string
		err  string
	}{
		{"Short", "100", "std address too short: 3 bits"},
		{"Tag", "11" + strings.Repeat("0", 265), "not a std address: tag 11"},
		{"Anycast", "101" + strings.Repeat("0", 264), "anycast std addresses are not supported"},
		{"Bits", "10x" + strings.Repeat("0", 264), "invalid bit string"},
	} {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tvmsym.ParseStdAddress(tt.bits)
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.err)
		})
	}
}
