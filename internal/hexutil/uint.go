package hexutil

import (
	"encoding/hex"
	"math/big"

	"github.com/holiman/uint256"
	"github.com/umbracle/ethgo"
)

// addressMask keeps the low 160 bits of a 256-bit word.
var addressMask = new(uint256.Int).Sub(
	new(uint256.Int).Lsh(uint256.NewInt(1), 160),
	uint256.NewInt(1),
)

// ParseUint validates value as a hex string of at most maxDigits digits and
// parses it into an unsigned 256-bit integer.
//
// maxDigits selects the width: Uint32Digits, Uint64Digits, Uint128Digits or
// Uint256Digits. maxDigits above 64 is clamped to 64.
func ParseUint(value string, maxDigits int) (*uint256.Int, error) {
	if maxDigits > Uint256Digits {
		maxDigits = Uint256Digits
	}
	if err := ValidateHexString(value, maxDigits); err != nil {
		return nil, err
	}

	b, ok := new(big.Int).SetString(StripHexPrefix(value), 16)
	if !ok {
		return nil, newValidationError(value, RuleCharset, maxDigits)
	}

	u, overflow := uint256.FromBig(b)
	if overflow {
		return nil, newValidationError(value, RuleOverflow, maxDigits)
	}
	return u, nil
}

// DeriveAddressFromPackedUID recovers the address embedded in the low 160
// bits of a packed 256-bit token uid.
//
// The result is always "0x" followed by exactly 40 lowercase hex digits; the
// high 96 bits of the uid are discarded uninterpreted.
//
// Example:
//
//	DeriveAddressFromPackedUID("0x00000000000000000000000100000000000000000000000000000000000000ff")
//	// "0x00000000000000000000000000000000000000ff", nil
func DeriveAddressFromPackedUID(uid string) (string, error) {
	u, err := ParseUint(uid, Uint256Digits)
	if err != nil {
		return "", err
	}

	low := new(uint256.Int).And(u, addressMask)
	raw := low.Bytes20()
	return "0x" + hex.EncodeToString(raw[:]), nil
}

// AddressFromUID is DeriveAddressFromPackedUID for a uid already decoded from
// chain state.
func AddressFromUID(uid *big.Int) (ethgo.Address, error) {
	u, overflow := uint256.FromBig(uid)
	if overflow || uid.Sign() < 0 {
		return ethgo.Address{}, newValidationError(uid.Text(16), RuleOverflow, Uint256Digits)
	}
	low := new(uint256.Int).And(u, addressMask)
	return ethgo.Address(low.Bytes20()), nil
}

// NormalizeAddress validates, pads and checksums an operator-supplied address.
//
// It is the validate -> FormatAddress -> checksum sequence every contract
// call applies before using an address.
func NormalizeAddress(value string) (ethgo.Address, error) {
	if err := ValidateHexString(value, AddressHexLength); err != nil {
		return ethgo.Address{}, err
	}

	formatted, err := FormatAddress(value)
	if err != nil {
		return ethgo.Address{}, err
	}

	return ethgo.HexToAddress(formatted), nil
}
