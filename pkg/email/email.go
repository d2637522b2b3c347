// Package email holds the small amount of email handling this service does:
// canonicalizing addresses for case-insensitive lookup and deriving a
// display name for freshly provisioned profiles.
package email

import (
	"strings"
	"unicode"
)

// Normalize canonicalizes an address for lookup: trimmed and case-folded.
// Principal email uniqueness is case-insensitive throughout.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// DeriveDisplayName builds a "First Last" display name from the local part
// of an address. Used when a profile is provisioned before the principal has
// supplied any personal data.
func DeriveDisplayName(address string) string {
	local := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		local = address[:at]
	}

	parts := strings.FieldsFunc(local, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Member"
	}

	first := capitalize(parts[0])
	if len(parts) == 1 {
		return first
	}
	return first + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
