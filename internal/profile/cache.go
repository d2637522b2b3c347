package profile

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"member-vault/pkg/domain"
)

const cacheTTL = time.Hour

// RedisCache maps principal ids to profile ids in Redis. All failures are
// logged and swallowed; the cache only ever short-circuits a lookup, never
// the correctness of provisioning.
type RedisCache struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisCache(client *redis.Client, logger *slog.Logger) *RedisCache {
	return &RedisCache{client: client, logger: logger}
}

func cacheKey(userID domain.UserID) string {
	return fmt.Sprintf("member-vault:profile:%s", userID)
}

func (c *RedisCache) GetProfileID(ctx context.Context, userID domain.UserID) (domain.ProfileID, bool) {
	raw, err := c.client.Get(ctx, cacheKey(userID)).Result()
	if err == redis.Nil {
		return 0, false
	}
	if err != nil {
		c.logger.WarnContext(ctx, "profile cache read failed", "error", err)
		return 0, false
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return domain.ProfileID(n), true
}

func (c *RedisCache) SetProfileID(ctx context.Context, userID domain.UserID, profileID domain.ProfileID) {
	if err := c.client.Set(ctx, cacheKey(userID), profileID.String(), cacheTTL).Err(); err != nil {
		c.logger.WarnContext(ctx, "profile cache write failed", "error", err)
	}
}
