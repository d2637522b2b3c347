package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "member-vault/pkg/domain-errors"
)

// TestParseIDs_Invariants validates the parsing invariant: identifiers from
// untrusted sources must be positive integers.
func TestParseIDs_Invariants(t *testing.T) {
	t.Run("rejects empty string", func(t *testing.T) {
		_, err := ParseUserID("")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects non-numeric", func(t *testing.T) {
		_, err := ParseRecordID("user=a@b.com")
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	t.Run("rejects zero and negatives", func(t *testing.T) {
		_, err := ParseProfileID("0")
		require.Error(t, err)
		_, err = ParseUserID("-7")
		require.Error(t, err)
	})

	t.Run("accepts valid ids", func(t *testing.T) {
		id, err := ParseUserID("42")
		require.NoError(t, err)
		assert.Equal(t, UserID(42), id)

		rid, err := ParseRecordID("301")
		require.NoError(t, err)
		assert.Equal(t, int64(301), rid)
	})
}

// TestTypeDistinction verifies the compiler enforces id type safety.
// This is a compile-time check; if it compiles, the invariant holds.
func TestTypeDistinction(t *testing.T) {
	userID := UserID(1)
	profileID := ProfileID(1)

	// These would fail to compile if the types were interchangeable:
	// var _ UserID = profileID   // compile error
	// var _ ProfileID = userID   // compile error

	assert.Equal(t, "1", userID.String())
	assert.Equal(t, "1", profileID.String())
}
