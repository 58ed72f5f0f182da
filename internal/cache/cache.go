package cache

import (
	"context"
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
)

// RecipientCache stores resolution results keyed by (client, project,
// recipient type). Entries expire by TTL; explicit clears must be visible to
// the very next Get.
type RecipientCache interface {
	Get(ctx context.Context, key domain.ResolutionKey) (*domain.ResolutionResult, bool, error)
	Set(ctx context.Context, key domain.ResolutionKey, result *domain.ResolutionResult, ttl time.Duration) error
	ClearClient(ctx context.Context, clientID string) error
	ClearAll(ctx context.Context) error
}
