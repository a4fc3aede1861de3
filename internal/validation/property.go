package validation

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxAddressLength = 255

// ValidateAddress checks a property address.
func ValidateAddress(address string) error {
	if strings.TrimSpace(address) == "" {
		return fmt.Errorf("address is required")
	}
	if len(address) > maxAddressLength {
		return fmt.Errorf("address must not exceed %d characters", maxAddressLength)
	}
	return nil
}

// ValidateActivityPath checks an activity path against the column width.
func ValidateActivityPath(path string, max int) error {
	if strings.TrimSpace(path) == "" {
		return fmt.Errorf("path is required")
	}
	if utf8.RuneCountInString(path) > max {
		return fmt.Errorf("path must not exceed %d characters", max)
	}
	return nil
}

// TruncateRunes cuts s to at most max characters without splitting a
// multi-byte sequence.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}
