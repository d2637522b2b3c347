//go:build integration

package profile_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"member-vault/internal/profile"
	"member-vault/pkg/domain"
	"member-vault/pkg/testutil/containers"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()
	rc := containers.NewRedisContainer(t)
	require.NoError(t, rc.FlushAll(ctx))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cache := profile.NewRedisCache(rc.Client, logger)

	_, ok := cache.GetProfileID(ctx, domain.UserID(42))
	assert.False(t, ok)

	cache.SetProfileID(ctx, domain.UserID(42), domain.ProfileID(7))

	id, ok := cache.GetProfileID(ctx, domain.UserID(42))
	require.True(t, ok)
	assert.Equal(t, domain.ProfileID(7), id)

	// Entries are keyed per principal.
	_, ok = cache.GetProfileID(ctx, domain.UserID(43))
	assert.False(t, ok)
}
