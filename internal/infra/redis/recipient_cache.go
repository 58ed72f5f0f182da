package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/kursadbilgin/push-engine/internal/cache"
	"github.com/kursadbilgin/push-engine/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	recipientKeyPrefix = "recipients:"
	clearScanCount     = 200
)

var _ cache.RecipientCache = (*RecipientCache)(nil)

// RecipientCache is a Redis-backed resolution cache. Entries are whole
// ResolutionResult snapshots; they are replaced wholesale, never patched.
type RecipientCache struct {
	client *goredis.Client
}

func NewRecipientCache(client *goredis.Client) (*RecipientCache, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &RecipientCache{client: client}, nil
}

func (c *RecipientCache) Get(ctx context.Context, key domain.ResolutionKey) (*domain.ResolutionResult, bool, error) {
	if err := key.Validate(); err != nil {
		return nil, false, err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	raw, err := c.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read recipient cache: %w", err)
	}

	var result domain.ResolutionResult
	if err := json.Unmarshal(raw, &result); err != nil {
		// A corrupt entry behaves like a miss; the next resolve replaces it.
		return nil, false, nil
	}

	return &result, true, nil
}

func (c *RecipientCache) Set(ctx context.Context, key domain.ResolutionKey, result *domain.ResolutionResult, ttl time.Duration) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if result == nil {
		return fmt.Errorf("%w: resolution result is required", domain.ErrValidation)
	}
	if ttl <= 0 {
		return fmt.Errorf("%w: cache ttl must be positive", domain.ErrValidation)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal resolution result: %w", err)
	}

	if err := c.client.Set(ctx, key.String(), raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to write recipient cache: %w", err)
	}
	return nil
}

func (c *RecipientCache) ClearClient(ctx context.Context, clientID string) error {
	if clientID == "" {
		return fmt.Errorf("%w: client id is required", domain.ErrValidation)
	}
	return c.clearPattern(ctx, fmt.Sprintf("%s%s:*", recipientKeyPrefix, clientID))
}

func (c *RecipientCache) ClearAll(ctx context.Context) error {
	return c.clearPattern(ctx, recipientKeyPrefix+"*")
}

func (c *RecipientCache) clearPattern(ctx context.Context, pattern string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var cursor uint64
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, clearScanCount).Result()
		if err != nil {
			return fmt.Errorf("failed to scan recipient cache: %w", err)
		}

		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to delete recipient cache keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
