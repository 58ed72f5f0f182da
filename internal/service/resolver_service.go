package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kursadbilgin/push-engine/internal/cache"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/observability"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"go.uber.org/zap"
)

// ResolverService answers "who should receive this notification" for a
// (client, project, recipient type) scope. Results are cached; resolution
// degrades through fallback to an empty success rather than failing the
// caller.
type ResolverService struct {
	directory repository.DirectoryRepository
	tokens    repository.TokenRepository
	cache     cache.RecipientCache

	cacheTTL          time.Duration
	healthScoreCutoff int

	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewResolverService(
	directory repository.DirectoryRepository,
	tokens repository.TokenRepository,
	recipientCache cache.RecipientCache,
	cacheTTL time.Duration,
	healthScoreCutoff int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*ResolverService, error) {
	if directory == nil {
		return nil, fmt.Errorf("directory repository is required")
	}
	if tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if recipientCache == nil {
		return nil, fmt.Errorf("recipient cache is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ResolverService{
		directory:         directory,
		tokens:            tokens,
		cache:             recipientCache,
		cacheTTL:          cacheTTL,
		healthScoreCutoff: healthScoreCutoff,
		metrics:           metrics,
		logger:            logger,
		now:               time.Now,
	}, nil
}

// Resolve returns the deduplicated recipient set for the scope. A store error
// or an empty project-narrowed result triggers one fallback pass with the
// project narrowing dropped; if that also fails the result is an empty
// success carrying the diagnostics.
func (s *ResolverService) Resolve(
	ctx context.Context,
	clientID string,
	projectID string,
	recipientType domain.UserType,
	skipCache bool,
) (*domain.ResolutionResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	key := domain.ResolutionKey{
		ClientID:      strings.TrimSpace(clientID),
		ProjectID:     strings.TrimSpace(projectID),
		RecipientType: recipientType,
	}
	if err := key.Validate(); err != nil {
		return nil, err
	}

	start := s.now()

	if !skipCache {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("recipient cache read failed",
				zap.String("key", key.String()),
				zap.Error(err),
			)
		} else if ok {
			cached.Source = domain.SourceCache
			cached.ResolutionTimeMs = s.elapsedMs(start)
			s.metrics.IncResolution(domain.SourceCache.String())
			return cached, nil
		}
	}

	var diagnostics []string
	source := domain.SourcePrimary

	recipients, dedupCount, err := s.resolveScoped(ctx, key)
	switch {
	case err != nil:
		diagnostics = append(diagnostics, fmt.Sprintf("primary resolution failed: %v", err))
		source = domain.SourceFallback
		recipients, dedupCount, err = s.resolveFallback(ctx, key)
	case len(recipients) == 0 && projectNarrowed(key):
		diagnostics = append(diagnostics, "primary resolution found no recipients, broadened to client scope")
		source = domain.SourceFallback
		recipients, dedupCount, err = s.resolveFallback(ctx, key)
	}
	if err != nil {
		diagnostics = append(diagnostics, fmt.Sprintf("fallback resolution failed: %v", err))
		s.logger.Error("recipient resolution degraded to empty result",
			zap.String("key", key.String()),
			zap.Strings("diagnostics", diagnostics),
		)
		recipients = nil
		dedupCount = 0
	}

	result := &domain.ResolutionResult{
		Key:                key,
		Recipients:         recipients,
		Source:             source,
		Errors:             diagnostics,
		ResolutionTimeMs:   s.elapsedMs(start),
		RecipientCount:     len(recipients),
		DeduplicationCount: dedupCount,
	}

	if err := s.cache.Set(ctx, key, result, s.cacheTTL); err != nil {
		s.logger.Warn("recipient cache write failed",
			zap.String("key", key.String()),
			zap.Error(err),
		)
	}

	s.metrics.IncResolution(source.String())

	return result, nil
}

// ClearRecipientCache removes cached resolutions for one client, or all
// clients when clientID is empty. The clear is visible to the next Resolve.
func (s *ResolverService) ClearRecipientCache(ctx context.Context, clientID string) error {
	if ctx == nil {
		ctx = context.Background()
	}

	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return s.cache.ClearAll(ctx)
	}
	return s.cache.ClearClient(ctx, clientID)
}

// resolveScoped is the primary lookup honoring the full key, including the
// project narrowing for staff scopes.
func (s *ResolverService) resolveScoped(ctx context.Context, key domain.ResolutionKey) ([]domain.Recipient, int, error) {
	var (
		users []domain.DirectoryUser
		err   error
	)
	if projectNarrowed(key) {
		users, err = s.directory.StaffForProject(ctx, key.ClientID, key.ProjectID)
	} else {
		users, err = s.directory.UsersForClient(ctx, key.ClientID, key.RecipientType)
	}
	if err != nil {
		return nil, 0, err
	}

	return s.recipientsForUsers(ctx, users)
}

// projectNarrowed reports whether the primary lookup for the key is narrower
// than the client scope. Only these scopes have a fallback to broaden to.
func projectNarrowed(key domain.ResolutionKey) bool {
	return key.RecipientType == domain.UserTypeStaff && key.ProjectID != ""
}

// resolveFallback broadens the scope by dropping the project narrowing.
func (s *ResolverService) resolveFallback(ctx context.Context, key domain.ResolutionKey) ([]domain.Recipient, int, error) {
	users, err := s.directory.UsersForClient(ctx, key.ClientID, key.RecipientType)
	if err != nil {
		return nil, 0, err
	}
	return s.recipientsForUsers(ctx, users)
}

// recipientsForUsers joins directory users with their healthy tokens, keeping
// one token per user. Tokens arrive ordered most recently used first within a
// user, so the kept token is the freshest.
func (s *ResolverService) recipientsForUsers(ctx context.Context, users []domain.DirectoryUser) ([]domain.Recipient, int, error) {
	if len(users) == 0 {
		return nil, 0, nil
	}

	userIDs := make([]string, 0, len(users))
	byID := make(map[string]domain.DirectoryUser, len(users))
	for _, u := range users {
		if _, seen := byID[u.UserID]; seen {
			continue
		}
		byID[u.UserID] = u
		userIDs = append(userIDs, u.UserID)
	}

	tokens, err := s.tokens.FindHealthyForUsers(ctx, userIDs, s.healthScoreCutoff)
	if err != nil {
		return nil, 0, err
	}

	recipients := make([]domain.Recipient, 0, len(userIDs))
	seen := make(map[string]struct{}, len(userIDs))
	deduplicated := 0
	for _, t := range tokens {
		if _, dup := seen[t.UserID]; dup {
			deduplicated++
			continue
		}
		seen[t.UserID] = struct{}{}

		user := byID[t.UserID]
		recipients = append(recipients, domain.Recipient{
			UserID:   t.UserID,
			FullName: user.FullName,
			UserType: user.UserType,
			Token:    t.Token,
			Platform: t.Platform,
			Format:   t.Format,
		})
	}

	return recipients, deduplicated, nil
}

func (s *ResolverService) elapsedMs(start time.Time) int64 {
	elapsed := s.now().Sub(start).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
