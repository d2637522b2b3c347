// Package ownership implements the two pure resolvers the secured
// controller composes: parsing indirection identifiers out of route
// segments and deriving the owning principal from a populated record graph.
package ownership

import (
	"net/url"
	"regexp"
	"strings"
)

// DefaultIndirectionKey is the key of the indirection identifier grammar:
// a route segment of the form "user=<percent-encoded-email>".
const DefaultIndirectionKey = "user"

var indirectPattern = regexp.MustCompile(`(?i)^([a-z]+)=(.+)$`)

// ParseIndirectIdentifier matches raw against "<key>=<value>" with a
// case-insensitive key. On match it returns the percent-decoded, trimmed
// value; malformed percent-encoding degrades to the raw captured value
// rather than failing the request. A false result means raw should be
// treated as a direct record identifier.
func ParseIndirectIdentifier(raw, key string) (string, bool) {
	if key == "" {
		key = DefaultIndirectionKey
	}
	m := indirectPattern.FindStringSubmatch(raw)
	if m == nil || !strings.EqualFold(m[1], key) {
		return "", false
	}
	value := m[2]
	// The identifier is a path segment, so "+" is literal and only
	// percent-escapes decode.
	if decoded, err := url.PathUnescape(value); err == nil {
		value = decoded
	}
	return strings.TrimSpace(value), true
}
