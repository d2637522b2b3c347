package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"member-vault/pkg/domain"
)

func TestOwnerPrincipalID(t *testing.T) {
	t.Run("populated owner with populated principal", func(t *testing.T) {
		rec := map[string]any{
			"profile": map[string]any{
				"id":   int64(12),
				"user": map[string]any{"id": int64(7), "email": "jane@example.com"},
			},
		}
		id, ok := OwnerPrincipalID(rec, "profile")
		assert.True(t, ok)
		assert.Equal(t, domain.UserID(7), id)
	})

	t.Run("populated owner with bare principal id", func(t *testing.T) {
		rec := map[string]any{
			"profile": map[string]any{"id": int64(12), "user": int64(7)},
		}
		id, ok := OwnerPrincipalID(rec, "profile")
		assert.True(t, ok)
		assert.Equal(t, domain.UserID(7), id)
	})

	t.Run("unpopulated owner relation is indeterminate", func(t *testing.T) {
		rec := map[string]any{"profile": int64(12)}
		_, ok := OwnerPrincipalID(rec, "profile")
		assert.False(t, ok)
	})

	t.Run("missing owner relation", func(t *testing.T) {
		_, ok := OwnerPrincipalID(map[string]any{"firstName": "X"}, "profile")
		assert.False(t, ok)
	})

	t.Run("owner without principal reference", func(t *testing.T) {
		rec := map[string]any{"profile": map[string]any{"id": int64(12)}}
		_, ok := OwnerPrincipalID(rec, "profile")
		assert.False(t, ok)
	})

	t.Run("float-encoded ids from JSON decode", func(t *testing.T) {
		rec := map[string]any{
			"profile": map[string]any{"id": float64(12), "user": float64(7)},
		}
		id, ok := OwnerPrincipalID(rec, "profile")
		assert.True(t, ok)
		assert.Equal(t, domain.UserID(7), id)
	})
}
