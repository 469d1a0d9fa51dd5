package tvmsym

import (
	"fmt"
	"strconv"

	"github.com/holiman/uint256"
	"github.com/pkg/errors"
)

// StdAddress is a standard internal message address without anycast.
type StdAddress struct {
	Workchain int8
	Account   uint256.Int
}

// ParseStdAddress decodes a bit string holding a serialized std address.
// Trailing bits are ignored.
func ParseStdAddress(bits string) (StdAddress, error) {
	if len(bits) < addrStdBits {
		return StdAddress{}, errors.Errorf("std address too short: %d bits", len(bits))
	} else if err := validateBits(bits); err != nil {
		return StdAddress{}, err
	}

	if tag := bits[:addrTagBits]; tag != "10" {
		return StdAddress{}, errors.Errorf("not a std address: tag %s", tag)
	} else if bits[addrTagBits] != '0' {
		return StdAddress{}, errors.New("anycast std addresses are not supported")
	}
	off := addrTagBits + addrAnycastBits

	wc, err := strconv.ParseUint(bits[off:off+addrWorkchainBits], 2, 8)
	if err != nil {
		return StdAddress{}, errors.Wrap(err, "workchain")
	}
	off += addrWorkchainBits

	var addr StdAddress
	addr.Workchain = int8(uint8(wc))
	account, err := bitsToBytes(bits[off : off+addrAccountBits])
	if err != nil {
		return StdAddress{}, errors.Wrap(err, "account")
	}
	addr.Account.SetBytes(account)
	return addr, nil
}

// String returns the address in raw "workchain:hex" form.
func (a StdAddress) String() string {
	b := a.Account.Bytes32()
	return fmt.Sprintf("%d:%x", a.Workchain, b[:])
}

// Bits returns the serialized address.
func (a StdAddress) Bits() string {
	b := a.Account.Bytes32()
	s := fmt.Sprintf("100%08b", uint8(a.Workchain))
	for _, v := range b {
		s += fmt.Sprintf("%08b", v)
	}
	return s
}

// StdAddress decodes the remaining bits of the slice as a std address.
func (s *TestSlice) StdAddress() (StdAddress, error) {
	return ParseStdAddress(s.Remaining())
}

// bitsToBytes packs a bit string whose length is a multiple of 8.
func bitsToBytes(bits string) ([]byte, error) {
	if len(bits)%8 != 0 {
		return nil, errors.Errorf("bit string length not a multiple of 8: %d", len(bits))
	}
	b := make([]byte, len(bits)/8)
	for i := range b {
		v, err := strconv.ParseUint(bits[i*8:i*8+8], 2, 8)
		if err != nil {
			return nil, err
		}
		b[i] = byte(v)
	}
	return b, nil
}
