package identity_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member-vault/internal/identity"
	"member-vault/internal/record"
	"member-vault/pkg/domain"
)

func seedUser(t *testing.T, store *record.Memory, address string) int64 {
	t.Helper()
	rec, err := store.Create(context.Background(), identity.KindUser,
		map[string]any{"email": address}, record.StatusPublished)
	require.NoError(t, err)
	return rec.ID
}

func TestByEmailMatchesCaseInsensitively(t *testing.T) {
	store := record.NewMemory(record.NewSchema())
	id := seedUser(t, store, "jane.doe@example.com")
	directory := identity.NewStoreDirectory(store)

	for _, address := range []string{
		"jane.doe@example.com",
		"Jane.Doe@Example.COM",
		"  jane.doe@example.com  ",
	} {
		p, err := directory.ByEmail(context.Background(), address)
		require.NoError(t, err, address)
		assert.Equal(t, domain.UserID(id), p.ID)
		assert.Equal(t, "jane.doe@example.com", p.Email)
	}
}

func TestByEmailUnknownAddress(t *testing.T) {
	store := record.NewMemory(record.NewSchema())
	seedUser(t, store, "jane.doe@example.com")
	directory := identity.NewStoreDirectory(store)

	_, err := directory.ByEmail(context.Background(), "nobody@example.com")
	assert.True(t, identity.IsNotFound(err))

	_, err = directory.ByEmail(context.Background(), "   ")
	assert.True(t, identity.IsNotFound(err))
}

func TestByID(t *testing.T) {
	store := record.NewMemory(record.NewSchema())
	id := seedUser(t, store, "jane.doe@example.com")
	directory := identity.NewStoreDirectory(store)

	p, err := directory.ByID(context.Background(), domain.UserID(id))
	require.NoError(t, err)
	assert.Equal(t, "jane.doe@example.com", p.Email)

	_, err = directory.ByID(context.Background(), domain.UserID(id+100))
	assert.True(t, identity.IsNotFound(err))
}
