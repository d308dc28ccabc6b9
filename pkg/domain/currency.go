package domain

import dErrors "payguard/pkg/domain-errors"

// Currency is an ISO-4217-like alphabetic code. Amounts are always carried in
// minor units (cents, pence, ...) as int64 alongside a Currency; this package
// does no conversion.
//
// Invariant: exactly three ASCII letters, stored uppercase.
type Currency string

// ParseCurrency constructs a Currency from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or not a
// three-letter code; no other errors are expected.
func ParseCurrency(s string) (Currency, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "currency cannot be empty")
	}
	if len(s) != 3 {
		return "", dErrors.New(dErrors.CodeInvalidInput, "currency must be a three-letter code")
	}
	out := [3]byte{}
	for i := 0; i < 3; i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
			out[i] = c
		case c >= 'a' && c <= 'z':
			out[i] = c - ('a' - 'A')
		default:
			return "", dErrors.New(dErrors.CodeInvalidInput, "currency must be a three-letter code")
		}
	}
	return Currency(out[:]), nil
}

func (c Currency) String() string {
	return string(c)
}
