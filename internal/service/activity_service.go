package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/queue"
	"go.uber.org/zap"
)

// ActivityService accepts activities and hands them to the worker through the
// broker. Acceptance is synchronous validation plus publish; delivery happens
// asynchronously.
type ActivityService struct {
	publisher queue.Publisher
	logger    *zap.Logger
}

func NewActivityService(publisher queue.Publisher, logger *zap.Logger) (*ActivityService, error) {
	if publisher == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ActivityService{
		publisher: publisher,
		logger:    logger,
	}, nil
}

// Ingest validates the activity and publishes it for asynchronous delivery.
// It returns the assigned activity id.
func (s *ActivityService) Ingest(ctx context.Context, activity *domain.Activity, correlationID string) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if activity == nil {
		return "", fmt.Errorf("%w: activity is required", domain.ErrValidation)
	}
	if err := activity.Validate(); err != nil {
		return "", err
	}

	msg := queue.ActivityMessage{
		ActivityID:    uuid.NewString(),
		CorrelationID: strings.TrimSpace(correlationID),
		Activity:      *activity,
	}

	if err := s.publisher.Publish(ctx, queue.ActivitiesQueue, msg); err != nil {
		return "", fmt.Errorf("failed to publish activity: %w", err)
	}

	s.logger.Info("activity accepted",
		zap.String("activityId", msg.ActivityID),
		zap.String("kind", activity.Kind.String()),
	)

	return msg.ActivityID, nil
}
