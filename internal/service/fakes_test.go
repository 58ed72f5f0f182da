package service

import (
	"context"
	"time"

	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/gateway"
	"github.com/kursadbilgin/push-engine/internal/queue"
)

type fakeTokenRepo struct {
	registerFn            func(ctx context.Context, t *domain.PushToken) error
	getByTokenFn          func(ctx context.Context, token string) (*domain.PushToken, error)
	recordUseFn           func(ctx context.Context, token string) error
	recordFailureFn       func(ctx context.Context, token string, errorMsg string) (*domain.PushToken, error)
	deactivateFn          func(ctx context.Context, token string, reason string) error
	validationErrorsFn    func(ctx context.Context, tokenID string) ([]domain.TokenValidationError, error)
	findHealthyForUsersFn func(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error)
	findStaleFn           func(ctx context.Context, maxAgeDays int) ([]domain.PushToken, error)
	findActiveFn          func(ctx context.Context) ([]domain.PushToken, error)
	updateHealthFn        func(ctx context.Context, tokenID string, score int, healthy bool, checkedAt time.Time) error
	deleteByIDsFn         func(ctx context.Context, tokenIDs []string) (int64, error)
	analyticsFn           func(ctx context.Context) (*domain.TokenAnalytics, error)
}

func (f *fakeTokenRepo) Register(ctx context.Context, t *domain.PushToken) error {
	if f.registerFn != nil {
		return f.registerFn(ctx, t)
	}
	return nil
}

func (f *fakeTokenRepo) GetByToken(ctx context.Context, token string) (*domain.PushToken, error) {
	if f.getByTokenFn != nil {
		return f.getByTokenFn(ctx, token)
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTokenRepo) RecordUse(ctx context.Context, token string) error {
	if f.recordUseFn != nil {
		return f.recordUseFn(ctx, token)
	}
	return nil
}

func (f *fakeTokenRepo) RecordFailure(ctx context.Context, token string, errorMsg string) (*domain.PushToken, error) {
	if f.recordFailureFn != nil {
		return f.recordFailureFn(ctx, token, errorMsg)
	}
	return &domain.PushToken{Token: token, IsActive: true, FailureCount: 1}, nil
}

func (f *fakeTokenRepo) Deactivate(ctx context.Context, token string, reason string) error {
	if f.deactivateFn != nil {
		return f.deactivateFn(ctx, token, reason)
	}
	return nil
}

func (f *fakeTokenRepo) ValidationErrors(ctx context.Context, tokenID string) ([]domain.TokenValidationError, error) {
	if f.validationErrorsFn != nil {
		return f.validationErrorsFn(ctx, tokenID)
	}
	return nil, nil
}

func (f *fakeTokenRepo) FindHealthyForUsers(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error) {
	if f.findHealthyForUsersFn != nil {
		return f.findHealthyForUsersFn(ctx, userIDs, minScore)
	}
	return nil, nil
}

func (f *fakeTokenRepo) FindStaleOrUnhealthy(ctx context.Context, maxAgeDays int) ([]domain.PushToken, error) {
	if f.findStaleFn != nil {
		return f.findStaleFn(ctx, maxAgeDays)
	}
	return nil, nil
}

func (f *fakeTokenRepo) FindActive(ctx context.Context) ([]domain.PushToken, error) {
	if f.findActiveFn != nil {
		return f.findActiveFn(ctx)
	}
	return nil, nil
}

func (f *fakeTokenRepo) UpdateHealth(ctx context.Context, tokenID string, score int, healthy bool, checkedAt time.Time) error {
	if f.updateHealthFn != nil {
		return f.updateHealthFn(ctx, tokenID, score, healthy, checkedAt)
	}
	return nil
}

func (f *fakeTokenRepo) DeleteByIDs(ctx context.Context, tokenIDs []string) (int64, error) {
	if f.deleteByIDsFn != nil {
		return f.deleteByIDsFn(ctx, tokenIDs)
	}
	return int64(len(tokenIDs)), nil
}

func (f *fakeTokenRepo) Analytics(ctx context.Context) (*domain.TokenAnalytics, error) {
	if f.analyticsFn != nil {
		return f.analyticsFn(ctx)
	}
	return &domain.TokenAnalytics{}, nil
}

type fakeDirectoryRepo struct {
	usersForClientFn  func(ctx context.Context, clientID string, userType domain.UserType) ([]domain.DirectoryUser, error)
	staffForProjectFn func(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error)
}

func (f *fakeDirectoryRepo) UsersForClient(ctx context.Context, clientID string, userType domain.UserType) ([]domain.DirectoryUser, error) {
	if f.usersForClientFn != nil {
		return f.usersForClientFn(ctx, clientID, userType)
	}
	return nil, nil
}

func (f *fakeDirectoryRepo) StaffForProject(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error) {
	if f.staffForProjectFn != nil {
		return f.staffForProjectFn(ctx, clientID, projectID)
	}
	return nil, nil
}

type fakeRecipientCache struct {
	getFn         func(ctx context.Context, key domain.ResolutionKey) (*domain.ResolutionResult, bool, error)
	setFn         func(ctx context.Context, key domain.ResolutionKey, result *domain.ResolutionResult, ttl time.Duration) error
	clearClientFn func(ctx context.Context, clientID string) error
	clearAllFn    func(ctx context.Context) error
}

func (f *fakeRecipientCache) Get(ctx context.Context, key domain.ResolutionKey) (*domain.ResolutionResult, bool, error) {
	if f.getFn != nil {
		return f.getFn(ctx, key)
	}
	return nil, false, nil
}

func (f *fakeRecipientCache) Set(ctx context.Context, key domain.ResolutionKey, result *domain.ResolutionResult, ttl time.Duration) error {
	if f.setFn != nil {
		return f.setFn(ctx, key, result, ttl)
	}
	return nil
}

func (f *fakeRecipientCache) ClearClient(ctx context.Context, clientID string) error {
	if f.clearClientFn != nil {
		return f.clearClientFn(ctx, clientID)
	}
	return nil
}

func (f *fakeRecipientCache) ClearAll(ctx context.Context) error {
	if f.clearAllFn != nil {
		return f.clearAllFn(ctx)
	}
	return nil
}

type fakeGateway struct {
	sendFn func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error)
}

func (f *fakeGateway) Send(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
	if f.sendFn != nil {
		return f.sendFn(ctx, messages)
	}
	tickets := make([]gateway.Ticket, len(messages))
	for i := range tickets {
		tickets[i] = gateway.Ticket{Status: gateway.TicketOK, ID: "ticket"}
	}
	return tickets, nil
}

type fakeLimiter struct {
	allowFn func(ctx context.Context, scope string) (bool, error)
	waitFn  func(ctx context.Context, scope string) error
}

func (f *fakeLimiter) Allow(ctx context.Context, scope string) (bool, error) {
	if f.allowFn != nil {
		return f.allowFn(ctx, scope)
	}
	return true, nil
}

func (f *fakeLimiter) Wait(ctx context.Context, scope string) error {
	if f.waitFn != nil {
		return f.waitFn(ctx, scope)
	}
	return nil
}

type fakePublisher struct {
	publishFn func(ctx context.Context, queueName string, msg queue.ActivityMessage) error
	closeFn   func() error
}

func (f *fakePublisher) Publish(ctx context.Context, queueName string, msg queue.ActivityMessage) error {
	if f.publishFn != nil {
		return f.publishFn(ctx, queueName, msg)
	}
	return nil
}

func (f *fakePublisher) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}

type fakeConsumer struct {
	consumeFn func(ctx context.Context, queueName string, handler queue.MessageHandler) error
	closeFn   func() error
}

func (f *fakeConsumer) Consume(ctx context.Context, queueName string, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, queueName, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error {
	if f.closeFn != nil {
		return f.closeFn()
	}
	return nil
}
