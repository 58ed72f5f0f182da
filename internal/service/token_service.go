package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"github.com/kursadbilgin/push-engine/internal/validation"
	"go.uber.org/zap"
)

const defaultDeactivationReason = "deactivated by user request"

// TokenService manages the registration lifecycle of device tokens. Format
// validation and health scoring happen here, before anything reaches the
// store.
type TokenService struct {
	tokens            repository.TokenRepository
	healthScoreCutoff int
	logger            *zap.Logger
	now               func() time.Time
}

type RegisterTokenInput struct {
	UserID     string
	UserType   domain.UserType
	Token      string
	Platform   domain.Platform
	DeviceID   string
	DeviceName string
}

func NewTokenService(
	tokens repository.TokenRepository,
	healthScoreCutoff int,
	logger *zap.Logger,
) (*TokenService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TokenService{
		tokens:            tokens,
		healthScoreCutoff: healthScoreCutoff,
		logger:            logger,
		now:               time.Now,
	}, nil
}

// Register validates the token value, scores it, and upserts the record.
// A token that fails format validation never reaches the store.
func (s *TokenService) Register(ctx context.Context, input RegisterTokenInput) (*domain.PushToken, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	tokenValue := strings.TrimSpace(input.Token)
	result := validation.Validate(tokenValue)
	if !result.IsValid {
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(result.Errors, "; "))
	}

	now := s.now().UTC()
	score := validation.HealthScore(now, validation.ScoreInput{
		CreatedAt:  now,
		DeviceID:   strings.TrimSpace(input.DeviceID),
		DeviceName: strings.TrimSpace(input.DeviceName),
	}, result)

	token := &domain.PushToken{
		ID:              uuid.NewString(),
		UserID:          strings.TrimSpace(input.UserID),
		UserType:        input.UserType,
		Token:           tokenValue,
		Platform:        input.Platform,
		DeviceID:        strings.TrimSpace(input.DeviceID),
		DeviceName:      strings.TrimSpace(input.DeviceName),
		IsActive:        true,
		ValidationScore: score,
		IsHealthy:       score >= s.healthScoreCutoff,
		LastHealthCheck: &now,
		Format:          result.Format,
		IsLegacy:        result.Metadata.IsLegacy,
	}
	if err := token.Validate(); err != nil {
		return nil, err
	}

	if err := s.tokens.Register(ctx, token); err != nil {
		return nil, fmt.Errorf("failed to register token: %w", err)
	}

	s.logger.Info("token registered",
		zap.String("userId", token.UserID),
		zap.String("platform", token.Platform.String()),
		zap.String("format", token.Format.String()),
		zap.Int("score", token.ValidationScore),
	)

	return token, nil
}

// RecordUse bumps last_used for an active token.
func (s *TokenService) RecordUse(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token value is required", domain.ErrValidation)
	}
	return s.tokens.RecordUse(ctx, token)
}

// Deactivate marks a token inactive with the caller's reason. Re-deactivating
// an already inactive token is a no-op.
func (s *TokenService) Deactivate(ctx context.Context, token string, reason string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: token value is required", domain.ErrValidation)
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultDeactivationReason
	}
	return s.tokens.Deactivate(ctx, token, reason)
}
