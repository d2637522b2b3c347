package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIndirectIdentifier(t *testing.T) {
	cases := []struct {
		name  string
		raw   string
		key   string
		want  string
		match bool
	}{
		{"plain email", "user=jane@example.com", "user", "jane@example.com", true},
		{"case-insensitive key", "USER=jane@example.com", "user", "jane@example.com", true},
		{"percent-encoded value", "user=jane%40example.com", "user", "jane@example.com", true},
		{"encoded whitespace decodes then trims", "user=%20jane@example.com%20", "user", "jane@example.com", true},
		{"plus-addressed email stays literal", "user=jane+tag@example.com", "user", "jane+tag@example.com", true},
		{"malformed encoding degrades to raw", "user=jane%ZZ@example.com", "user", "jane%ZZ@example.com", true},
		{"default key when empty", "user=a@b.c", "", "a@b.c", true},
		{"different key does not match", "profile=jane@example.com", "user", "", false},
		{"direct numeric id", "301", "user", "", false},
		{"bare key without value", "user=", "user", "", false},
		{"empty string", "", "user", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseIndirectIdentifier(tc.raw, tc.key)
			assert.Equal(t, tc.match, ok)
			if tc.match {
				assert.Equal(t, tc.want, got)
			}
		})
	}
}
