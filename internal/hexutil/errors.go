package hexutil

import (
	"errors"
	"fmt"
	"strconv"
)

// Rule names the constraint a rejected value violated.
type Rule string

const (
	// RuleEmpty: no hex digits after the optional prefix.
	RuleEmpty Rule = "empty"
	// RuleCharset: a character outside [0-9a-fA-F].
	RuleCharset Rule = "charset"
	// RuleTooLong: more digits than the configured maximum.
	RuleTooLong Rule = "too_long"
	// RuleAddressLength: cannot be padded to exactly 40 digits.
	RuleAddressLength Rule = "address_length"
	// RuleIndexRange: outside [0, 2^32).
	RuleIndexRange Rule = "index_range"
	// RuleOverflow: numeric value does not fit the target width.
	RuleOverflow Rule = "overflow"
)

// ValidationError is returned by every validator in this package.
type ValidationError struct {
	Value     string
	Rule      Rule
	MaxLength int
}

func newValidationError(value string, rule Rule, maxLength int) *ValidationError {
	return &ValidationError{Value: value, Rule: rule, MaxLength: maxLength}
}

// Error 实现 error 接口
func (e *ValidationError) Error() string {
	switch e.Rule {
	case RuleAddressLength:
		return fmt.Sprintf("invalid address %q: cannot pad to %d hex characters", e.Value, e.MaxLength)
	case RuleIndexRange:
		return fmt.Sprintf("invalid index %s: must be a valid uint32 value (0 to %d)", e.Value, uint64(MaxIndex))
	case RuleOverflow:
		return fmt.Sprintf("invalid value %q: does not fit in %d hex digits", e.Value, e.MaxLength)
	default:
		return fmt.Sprintf("invalid input %q (%s): must be a valid hex string with up to %d characters", e.Value, e.Rule, e.MaxLength)
	}
}

// IsValidationError reports whether err is, or wraps, a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func formatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}
