package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/gateway"
	"github.com/kursadbilgin/push-engine/internal/observability"
	"github.com/kursadbilgin/push-engine/internal/ratelimit"
	"github.com/kursadbilgin/push-engine/internal/repository"
	"github.com/kursadbilgin/push-engine/internal/validation"
	"go.uber.org/zap"
)

// gatewayScope keys the rate-limit window for outbound gateway submissions.
const gatewayScope = "expo"

// DeliveryService pushes one payload to a recipient set through the gateway
// in bounded chunks. A failure anywhere marks the affected messages failed
// and keeps going; the caller always gets a complete accounting.
type DeliveryService struct {
	tokens   repository.TokenRepository
	resolver *ResolverService
	gw       gateway.Gateway
	limiter  ratelimit.RateLimiter

	chunkSize int

	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

func NewDeliveryService(
	tokens repository.TokenRepository,
	resolver *ResolverService,
	gw gateway.Gateway,
	limiter ratelimit.RateLimiter,
	chunkSize int,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*DeliveryService, error) {
	if tokens == nil {
		return nil, fmt.Errorf("token repository is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("resolver service is required")
	}
	if gw == nil {
		return nil, fmt.Errorf("gateway is required")
	}
	if limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &DeliveryService{
		tokens:    tokens,
		resolver:  resolver,
		gw:        gw,
		limiter:   limiter,
		chunkSize: chunkSize,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// Deliver sends payload to every recipient except the performing user.
// Recipients with invalid tokens are counted failed without touching the
// gateway. deliveredCount+failedCount always equals recipientCount.
func (s *DeliveryService) Deliver(
	ctx context.Context,
	recipients []domain.Recipient,
	payload domain.PushPayload,
	performingUserID string,
) (*domain.NotificationDeliveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}

	start := s.now()
	result := &domain.NotificationDeliveryResult{
		NotificationID: uuid.NewString(),
	}

	performingUserID = strings.TrimSpace(performingUserID)
	targets := make([]domain.Recipient, 0, len(recipients))
	for _, r := range recipients {
		if performingUserID != "" && r.UserID == performingUserID {
			continue
		}
		targets = append(targets, r)
	}
	result.RecipientCount = len(targets)

	valid := make([]domain.Recipient, 0, len(targets))
	for _, r := range targets {
		check := validation.Validate(r.Token)
		if !check.IsValid {
			result.FailedCount++
			result.Errors = append(result.Errors,
				fmt.Sprintf("user %s: invalid token: %s", r.UserID, strings.Join(check.Errors, "; ")))
			s.metrics.IncPushFailed(r.Platform.String(), "invalid_token")
			continue
		}
		valid = append(valid, r)
	}

	for offset := 0; offset < len(valid); offset += s.chunkSize {
		end := offset + s.chunkSize
		if end > len(valid) {
			end = len(valid)
		}
		s.deliverChunk(ctx, valid[offset:end], payload, result)
	}

	result.ProcessingTimeMs = s.elapsedMs(start)
	s.metrics.ObservePushDeliveryDuration(gatewayScope, time.Duration(result.ProcessingTimeMs)*time.Millisecond)

	s.logger.Info("delivery completed",
		zap.String("notificationId", result.NotificationID),
		zap.Int("recipients", result.RecipientCount),
		zap.Int("delivered", result.DeliveredCount),
		zap.Int("failed", result.FailedCount),
	)

	return result, nil
}

// deliverChunk submits one chunk and books its tickets. A transport-level
// failure marks only this chunk's messages failed.
func (s *DeliveryService) deliverChunk(
	ctx context.Context,
	chunk []domain.Recipient,
	payload domain.PushPayload,
	result *domain.NotificationDeliveryResult,
) {
	if err := s.limiter.Wait(ctx, gatewayScope); err != nil {
		s.failChunk(chunk, result, fmt.Sprintf("rate limit wait aborted: %v", err))
		return
	}

	messages := make([]gateway.Message, len(chunk))
	for i, r := range chunk {
		messages[i] = gateway.Message{
			To:       r.Token,
			Title:    payload.Title,
			Body:     payload.Body,
			Data:     payload.Data,
			Priority: gateway.PriorityValue(payload.Priority),
		}
	}

	tickets, err := s.gw.Send(ctx, messages)
	if err != nil {
		s.logger.Error("gateway chunk submission failed",
			zap.Int("chunkSize", len(chunk)),
			zap.Error(err),
		)
		s.failChunk(chunk, result, fmt.Sprintf("gateway submission failed: %v", err))
		return
	}

	for i, ticket := range tickets {
		recipient := chunk[i]
		if ticket.Status == gateway.TicketOK {
			result.DeliveredCount++
			s.metrics.IncPushDelivered(recipient.Platform.String())
			if err := s.tokens.RecordUse(ctx, recipient.Token); err != nil {
				s.logger.Warn("failed to record token use",
					zap.String("userId", recipient.UserID),
					zap.Error(err),
				)
			}
			continue
		}

		result.FailedCount++
		result.Errors = append(result.Errors,
			fmt.Sprintf("user %s: %s", recipient.UserID, ticket.Message))
		s.metrics.IncPushFailed(recipient.Platform.String(), ticket.Message)
		s.recordTicketFailure(ctx, recipient, ticket.Message)
	}
}

// failChunk books a whole chunk as failed without feeding the per-token
// failure counter. Transport problems say nothing about token health.
func (s *DeliveryService) failChunk(chunk []domain.Recipient, result *domain.NotificationDeliveryResult, reason string) {
	result.FailedCount += len(chunk)
	result.Errors = append(result.Errors, reason)
	for _, r := range chunk {
		s.metrics.IncPushFailed(r.Platform.String(), "chunk_failed")
	}
}

// recordTicketFailure counts a gateway-reported failure against the token and
// reports a resulting auto-deactivation.
func (s *DeliveryService) recordTicketFailure(ctx context.Context, recipient domain.Recipient, message string) {
	token, err := s.tokens.RecordFailure(ctx, recipient.Token, message)
	if err != nil {
		s.logger.Warn("failed to record delivery failure",
			zap.String("userId", recipient.UserID),
			zap.Error(err),
		)
		return
	}
	if token != nil && !token.IsActive {
		s.metrics.IncTokensDeactivated("delivery_failures", 1)
		s.logger.Info("token auto-deactivated",
			zap.String("userId", recipient.UserID),
			zap.Int("failureCount", token.FailureCount),
		)
	}
}

// NotifyActivityCreated resolves and delivers the notifications an activity
// implies. Transfers fan out into two independent deliveries; the combined
// result succeeds only when every delivery finished without failures.
func (s *DeliveryService) NotifyActivityCreated(ctx context.Context, activity *domain.Activity) (*domain.ActivityDeliveryResult, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if activity == nil {
		return nil, fmt.Errorf("%w: activity is required", domain.ErrValidation)
	}

	plan, err := activity.Plan()
	if err != nil {
		return nil, err
	}

	primary, err := s.deliverPlan(ctx, plan, activity)
	if err != nil {
		return nil, err
	}

	out := &domain.ActivityDeliveryResult{
		Primary: primary,
		Success: primary.FailedCount == 0,
	}

	if secondaryPlan, ok := activity.SecondaryPlan(); ok {
		secondary, err := s.deliverPlan(ctx, secondaryPlan, activity)
		if err != nil {
			return nil, err
		}
		out.Secondary = secondary
		out.Success = out.Success && secondary.FailedCount == 0
	}

	return out, nil
}

func (s *DeliveryService) deliverPlan(ctx context.Context, plan domain.NotificationPlan, activity *domain.Activity) (*domain.NotificationDeliveryResult, error) {
	resolution, err := s.resolver.Resolve(ctx, plan.ClientID, plan.ProjectID, plan.RecipientType, false)
	if err != nil {
		return nil, err
	}

	payload := domain.PushPayload{
		Title:    plan.Title,
		Body:     plan.Body,
		Priority: activityPriority(activity.Kind),
		Data: map[string]string{
			"activityKind": activity.Kind.String(),
			"clientId":     plan.ClientID,
		},
	}
	if plan.ProjectID != "" {
		payload.Data["projectId"] = plan.ProjectID
	}

	return s.Deliver(ctx, resolution.Recipients, payload, activity.User.UserID)
}

func activityPriority(kind domain.ActivityKind) domain.Priority {
	if kind == domain.ActivityTransfer {
		return domain.PriorityHigh
	}
	return domain.PriorityNormal
}

func (s *DeliveryService) elapsedMs(start time.Time) int64 {
	elapsed := s.now().Sub(start).Milliseconds()
	if elapsed < 0 {
		return 0
	}
	return elapsed
}
