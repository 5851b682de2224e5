package parse

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var accountSuffixRe = regexp.MustCompile(`^\d{4}$`)

// MaskPhoneNumber hides the middle of a caller number. Numbers of four
// characters or fewer are masked entirely; longer than seven keep the first
// three and last four; anything in between keeps two on each side.
func MaskPhoneNumber(raw string) string {
	r := []rune(raw)
	n := len(r)
	switch {
	case n <= 4:
		return strings.Repeat("*", n)
	case n > 7:
		return string(r[:3]) + strings.Repeat("*", n-7) + string(r[n-4:])
	default:
		return string(r[:2]) + strings.Repeat("*", n-4) + string(r[n-2:])
	}
}

// HashPhoneNumber returns the hex SHA-256 of the number as given, used to
// search calls without storing the number itself.
func HashPhoneNumber(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// IsAccountSuffix reports whether s is exactly four ASCII digits.
func IsAccountSuffix(s string) bool {
	return accountSuffixRe.MatchString(s)
}

// MatchesAccountSuffix reports whether the stored account id ends with suffix.
func MatchesAccountSuffix(accountID, suffix string) bool {
	return suffix != "" && strings.HasSuffix(strings.TrimSpace(accountID), suffix)
}
