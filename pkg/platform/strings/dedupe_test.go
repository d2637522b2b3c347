package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	assert.Equal(t,
		[]string{"profile", "profile.user"},
		DedupeAndTrim([]string{" profile ", "profile.user", "profile", "", "  "}))

	assert.Empty(t, DedupeAndTrim(nil))
}
