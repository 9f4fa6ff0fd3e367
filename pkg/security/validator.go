package security

import (
	"errors"
	"unicode/utf8"
)

const (
	// MaxLookupLength is the longest username or email accepted as a lookup key.
	// It matches the maximum length of an email address.
	MaxLookupLength = 254
)

var ErrLookupTooLong = errors.New("lookup value too long")

// ValidateLookupValue bounds a username or email taken from a query string
// before it is used as an exact-match key. Any characters are allowed: the
// value is bound as a query parameter and an unknown value simply matches
// nothing. Empty values are left for the caller to interpret.
func ValidateLookupValue(value string) error {
	if utf8.RuneCountInString(value) > MaxLookupLength {
		return ErrLookupTooLong
	}
	return nil
}
