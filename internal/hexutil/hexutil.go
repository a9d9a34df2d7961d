// Package hexutil normalizes hexadecimal values typed by an operator or read
// from chain state.
//
// Every administrative operation passes its raw inputs through this package
// before it opens a network call. All functions are pure: they hold no state,
// never touch the network and are safe for concurrent use.
package hexutil

import (
	"strings"
)

const (
	// DefaultMaxHexLength is the default digit limit of ValidateHex, one 256-bit word.
	DefaultMaxHexLength = 64

	// AddressHexLength is the number of hex digits of a 160-bit address.
	AddressHexLength = 40

	// MaxIndex is the largest value accepted by ValidateIndex (uint32).
	MaxIndex = 1<<32 - 1
)

// Digit limits for the unsigned integer widths used by contract parameters.
const (
	Uint32Digits  = 8
	Uint64Digits  = 16
	Uint128Digits = 32
	Uint256Digits = 64
)

// StripHexPrefix removes a leading "0x" or "0X" from value.
//
// The prefix is matched case-insensitively; the remaining digits are returned
// unchanged. No validation is performed, so the result may be empty or contain
// non-hex characters.
//
// Example:
//
//	StripHexPrefix("0xAB") // "AB"
//	StripHexPrefix("AB")   // "AB"
//	StripHexPrefix("0x")   // ""
func StripHexPrefix(value string) string {
	if hasHexPrefix(value) {
		return value[2:]
	}
	return value
}

// ValidateHexString checks that value is a hex string of 1 to maxLength digits.
//
// An optional "0x"/"0X" prefix is not counted. Empty digit sequences, any
// non-hex character (whitespace included) and more than maxLength digits are
// rejected with a *ValidationError carrying value and maxLength.
//
// Parameters:
//   - value: The string to check
//   - maxLength: Maximum number of hex digits, excluding the prefix
//
// Returns:
//   - error: nil if valid, *ValidationError otherwise
func ValidateHexString(value string, maxLength int) error {
	digits := StripHexPrefix(value)

	if digits == "" {
		return newValidationError(value, RuleEmpty, maxLength)
	}

	for _, c := range digits {
		if !isHexDigit(c) {
			return newValidationError(value, RuleCharset, maxLength)
		}
	}

	if len(digits) > maxLength {
		return newValidationError(value, RuleTooLong, maxLength)
	}

	return nil
}

// ValidateHex is ValidateHexString with DefaultMaxHexLength.
func ValidateHex(value string) error {
	return ValidateHexString(value, DefaultMaxHexLength)
}

// FormatAddress left-pads address with zeros to 40 hex digits and re-attaches
// the "0x" prefix.
//
// The character set is not checked here; callers validate with
// ValidateHexString(address, AddressHexLength) first. Inputs longer than 40
// digits are rejected rather than truncated.
//
// Example:
//
//	FormatAddress("1") // "0x0000000000000000000000000000000000000001", nil
func FormatAddress(address string) (string, error) {
	digits := StripHexPrefix(address)

	if len(digits) > AddressHexLength {
		return "", newValidationError(address, RuleAddressLength, AddressHexLength)
	}

	return "0x" + strings.Repeat("0", AddressHexLength-len(digits)) + digits, nil
}

// ValidateIndex reports whether index fits an unsigned 32-bit token index.
func ValidateIndex(index int64) bool {
	return index >= 0 && index <= MaxIndex
}

// CheckIndex is the error-returning form of ValidateIndex.
func CheckIndex(index int64) error {
	if !ValidateIndex(index) {
		return &ValidationError{
			Value:     formatInt(index),
			Rule:      RuleIndexRange,
			MaxLength: Uint32Digits,
		}
	}
	return nil
}

func hasHexPrefix(value string) bool {
	return len(value) >= 2 && value[0] == '0' && (value[1] == 'x' || value[1] == 'X')
}

// isHexDigit checks if a rune is a valid hexadecimal digit (0-9, a-f, A-F).
func isHexDigit(c rune) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
