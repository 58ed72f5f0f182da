package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kursadbilgin/push-engine/internal/domain"
	"github.com/kursadbilgin/push-engine/internal/gateway"
)

func newTestDelivery(
	t *testing.T,
	tokens *fakeTokenRepo,
	directory *fakeDirectoryRepo,
	gw *fakeGateway,
	limiter *fakeLimiter,
	chunkSize int,
) *DeliveryService {
	t.Helper()

	resolver := newTestResolver(t, directory, tokens, &fakeRecipientCache{})
	svc, err := NewDeliveryService(tokens, resolver, gw, limiter, chunkSize, nil, nil)
	if err != nil {
		t.Fatalf("NewDeliveryService() error = %v", err)
	}
	return svc
}

func staffRecipients(userIDs ...string) []domain.Recipient {
	recipients := make([]domain.Recipient, len(userIDs))
	for i, id := range userIDs {
		recipients[i] = domain.Recipient{
			UserID:   id,
			UserType: domain.UserTypeStaff,
			Token:    "ExponentPushToken[" + id + "-device]",
			Platform: domain.PlatformIOS,
			Format:   domain.FormatExpo,
		}
	}
	return recipients
}

func TestDeliveryServiceDeliverHappyPath(t *testing.T) {
	t.Parallel()

	usedTokens := make([]string, 0, 3)
	tokens := &fakeTokenRepo{
		recordUseFn: func(ctx context.Context, token string) error {
			usedTokens = append(usedTokens, token)
			return nil
		},
	}

	svc := newTestDelivery(t, tokens, &fakeDirectoryRepo{}, &fakeGateway{}, &fakeLimiter{}, 100)

	result, err := svc.Deliver(context.Background(),
		staffRecipients("u1", "u2", "u3"),
		domain.PushPayload{Title: "Material update", Body: "3 materials added"},
		"",
	)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if result.RecipientCount != 3 || result.DeliveredCount != 3 || result.FailedCount != 0 {
		t.Fatalf("counts = %d/%d/%d, want 3/3/0", result.RecipientCount, result.DeliveredCount, result.FailedCount)
	}
	if len(usedTokens) != 3 {
		t.Fatalf("recorded uses = %d, want 3", len(usedTokens))
	}
}

func TestDeliveryServiceDeliverFiltersPerformingUser(t *testing.T) {
	t.Parallel()

	var sentTo []string
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			for _, m := range messages {
				sentTo = append(sentTo, m.To)
			}
			tickets := make([]gateway.Ticket, len(messages))
			for i := range tickets {
				tickets[i] = gateway.Ticket{Status: gateway.TicketOK}
			}
			return tickets, nil
		},
	}

	svc := newTestDelivery(t, &fakeTokenRepo{}, &fakeDirectoryRepo{}, gw, &fakeLimiter{}, 100)

	result, err := svc.Deliver(context.Background(),
		staffRecipients("u1", "u2", "u3"),
		domain.PushPayload{Title: "Staff assigned"},
		"u2",
	)
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if result.RecipientCount != 2 {
		t.Fatalf("recipientCount = %d, want 2 after self filter", result.RecipientCount)
	}
	for _, to := range sentTo {
		if strings.Contains(to, "u2") {
			t.Fatalf("performing user received their own notification: %s", to)
		}
	}
}

func TestDeliveryServiceDeliverInvalidTokenSkipsGateway(t *testing.T) {
	t.Parallel()

	gatewayCalled := false
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			gatewayCalled = true
			return nil, nil
		},
	}

	svc := newTestDelivery(t, &fakeTokenRepo{}, &fakeDirectoryRepo{}, gw, &fakeLimiter{}, 100)

	recipients := []domain.Recipient{
		{UserID: "u1", Token: "bad!", Platform: domain.PlatformIOS},
	}
	result, err := svc.Deliver(context.Background(), recipients,
		domain.PushPayload{Title: "Material update"}, "")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if result.FailedCount != 1 || result.DeliveredCount != 0 {
		t.Fatalf("counts = %d/%d, want 0 delivered 1 failed", result.DeliveredCount, result.FailedCount)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("errors = %v, want one invalid-token error", result.Errors)
	}
	if gatewayCalled {
		t.Fatal("invalid token must never reach the gateway")
	}
}

func TestDeliveryServiceDeliverPartialFailure(t *testing.T) {
	t.Parallel()

	failedTokens := make([]string, 0, 1)
	tokens := &fakeTokenRepo{
		recordFailureFn: func(ctx context.Context, token string, errorMsg string) (*domain.PushToken, error) {
			failedTokens = append(failedTokens, token)
			if errorMsg != "DeviceNotRegistered" {
				t.Fatalf("recorded error = %q, want ticket message", errorMsg)
			}
			return &domain.PushToken{Token: token, IsActive: false, FailureCount: 5}, nil
		},
	}

	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			tickets := make([]gateway.Ticket, len(messages))
			for i := range tickets {
				tickets[i] = gateway.Ticket{Status: gateway.TicketOK}
			}
			tickets[1] = gateway.Ticket{Status: gateway.TicketError, Message: "DeviceNotRegistered"}
			return tickets, nil
		},
	}

	svc := newTestDelivery(t, tokens, &fakeDirectoryRepo{}, gw, &fakeLimiter{}, 100)

	result, err := svc.Deliver(context.Background(),
		staffRecipients("u1", "u2", "u3"),
		domain.PushPayload{Title: "Material update"}, "")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if result.DeliveredCount != 2 || result.FailedCount != 1 {
		t.Fatalf("counts = %d/%d, want 2 delivered 1 failed", result.DeliveredCount, result.FailedCount)
	}
	if result.DeliveredCount+result.FailedCount != result.RecipientCount {
		t.Fatal("delivered+failed must equal recipientCount")
	}
	if len(failedTokens) != 1 || !strings.Contains(failedTokens[0], "u2") {
		t.Fatalf("failure recorded for %v, want only the errored ticket's token", failedTokens)
	}
}

func TestDeliveryServiceDeliverChunkTransportFailureIsolated(t *testing.T) {
	t.Parallel()

	recordFailureCalled := false
	tokens := &fakeTokenRepo{
		recordFailureFn: func(ctx context.Context, token string, errorMsg string) (*domain.PushToken, error) {
			recordFailureCalled = true
			return nil, nil
		},
	}

	calls := 0
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			calls++
			if calls == 1 {
				return nil, errors.New("gateway unreachable")
			}
			tickets := make([]gateway.Ticket, len(messages))
			for i := range tickets {
				tickets[i] = gateway.Ticket{Status: gateway.TicketOK}
			}
			return tickets, nil
		},
	}

	svc := newTestDelivery(t, tokens, &fakeDirectoryRepo{}, gw, &fakeLimiter{}, 2)

	result, err := svc.Deliver(context.Background(),
		staffRecipients("u1", "u2", "u3", "u4"),
		domain.PushPayload{Title: "Material update"}, "")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if calls != 2 {
		t.Fatalf("gateway calls = %d, want 2 chunks", calls)
	}
	if result.DeliveredCount != 2 || result.FailedCount != 2 {
		t.Fatalf("counts = %d/%d, want failure confined to the first chunk", result.DeliveredCount, result.FailedCount)
	}
	if recordFailureCalled {
		t.Fatal("transport failure must not count against individual tokens")
	}
}

func TestDeliveryServiceDeliverRateLimitWaitAborted(t *testing.T) {
	t.Parallel()

	gatewayCalled := false
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			gatewayCalled = true
			return nil, nil
		},
	}
	limiter := &fakeLimiter{
		waitFn: func(ctx context.Context, scope string) error {
			if scope != "expo" {
				t.Fatalf("scope = %q, want expo", scope)
			}
			return context.DeadlineExceeded
		},
	}

	svc := newTestDelivery(t, &fakeTokenRepo{}, &fakeDirectoryRepo{}, gw, limiter, 100)

	result, err := svc.Deliver(context.Background(),
		staffRecipients("u1", "u2"),
		domain.PushPayload{Title: "Material update"}, "")
	if err != nil {
		t.Fatalf("Deliver() error = %v", err)
	}
	if result.FailedCount != 2 {
		t.Fatalf("failedCount = %d, want whole chunk failed", result.FailedCount)
	}
	if gatewayCalled {
		t.Fatal("aborted rate limit wait must skip the gateway")
	}
}

func TestDeliveryServiceDeliverRejectsEmptyPayload(t *testing.T) {
	t.Parallel()

	svc := newTestDelivery(t, &fakeTokenRepo{}, &fakeDirectoryRepo{}, &fakeGateway{}, &fakeLimiter{}, 100)

	_, err := svc.Deliver(context.Background(), staffRecipients("u1"), domain.PushPayload{}, "")
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Deliver() error = %v, want ErrValidation", err)
	}
}

func TestDeliveryServiceNotifyActivityCreatedMaterial(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectoryRepo{
		staffForProjectFn: func(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error) {
			return []domain.DirectoryUser{
				{UserID: "staff-1", ClientID: clientID, UserType: domain.UserTypeStaff},
			}, nil
		},
	}
	tokens := &fakeTokenRepo{
		findHealthyForUsersFn: func(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error) {
			return staffTokens(userIDs), nil
		},
	}

	var sentTitles []string
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			tickets := make([]gateway.Ticket, len(messages))
			for i, m := range messages {
				sentTitles = append(sentTitles, m.Title)
				tickets[i] = gateway.Ticket{Status: gateway.TicketOK}
			}
			return tickets, nil
		},
	}

	svc := newTestDelivery(t, tokens, directory, gw, &fakeLimiter{}, 100)

	result, err := svc.NotifyActivityCreated(context.Background(), &domain.Activity{
		Kind:      domain.ActivityMaterial,
		ClientID:  "client-1",
		ProjectID: "project-1",
		User:      domain.ActivityUser{UserID: "actor-1", FullName: "Aylin Demir"},
		Materials: []string{"cement", "rebar"},
	})
	if err != nil {
		t.Fatalf("NotifyActivityCreated() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.Secondary != nil {
		t.Fatal("material activity must not produce a secondary delivery")
	}
	if len(sentTitles) != 1 || sentTitles[0] != "Material update" {
		t.Fatalf("titles = %v, want one material update", sentTitles)
	}
}

func TestDeliveryServiceNotifyActivityCreatedTransferNotifiesBothScopes(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectoryRepo{
		staffForProjectFn: func(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error) {
			return []domain.DirectoryUser{
				{UserID: "staff-" + clientID, ClientID: clientID, UserType: domain.UserTypeStaff},
			}, nil
		},
		usersForClientFn: func(ctx context.Context, clientID string, userType domain.UserType) ([]domain.DirectoryUser, error) {
			return []domain.DirectoryUser{
				{UserID: "staff-" + clientID, ClientID: clientID, UserType: userType},
			}, nil
		},
	}
	tokens := &fakeTokenRepo{
		findHealthyForUsersFn: func(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error) {
			return staffTokens(userIDs), nil
		},
	}

	var sentTitles []string
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			tickets := make([]gateway.Ticket, len(messages))
			for i, m := range messages {
				sentTitles = append(sentTitles, m.Title)
				tickets[i] = gateway.Ticket{Status: gateway.TicketOK}
			}
			return tickets, nil
		},
	}

	svc := newTestDelivery(t, tokens, directory, gw, &fakeLimiter{}, 100)

	result, err := svc.NotifyActivityCreated(context.Background(), &domain.Activity{
		Kind:            domain.ActivityTransfer,
		ClientID:        "dest-client",
		ProjectID:       "dest-project",
		SourceClientID:  "source-client",
		SourceProjectID: "source-project",
		User:            domain.ActivityUser{UserID: "actor-1", FullName: "Mert Kaya"},
		Description:     "tower crane",
	})
	if err != nil {
		t.Fatalf("NotifyActivityCreated() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("result = %+v, want success", result)
	}
	if result.Secondary == nil {
		t.Fatal("transfer must deliver to the source scope as well")
	}
	if len(sentTitles) != 2 {
		t.Fatalf("titles = %v, want both transfer notifications", sentTitles)
	}
	if sentTitles[0] != "Property transferred in" || sentTitles[1] != "Property transferred out" {
		t.Fatalf("titles = %v, want in/out pair", sentTitles)
	}
}

func TestDeliveryServiceNotifyActivityCreatedSecondaryFailureFailsWhole(t *testing.T) {
	t.Parallel()

	directory := &fakeDirectoryRepo{
		staffForProjectFn: func(ctx context.Context, clientID, projectID string) ([]domain.DirectoryUser, error) {
			return []domain.DirectoryUser{
				{UserID: "staff-" + clientID, ClientID: clientID, UserType: domain.UserTypeStaff},
			}, nil
		},
	}
	tokens := &fakeTokenRepo{
		findHealthyForUsersFn: func(ctx context.Context, userIDs []string, minScore int) ([]domain.PushToken, error) {
			return staffTokens(userIDs), nil
		},
	}

	calls := 0
	gw := &fakeGateway{
		sendFn: func(ctx context.Context, messages []gateway.Message) ([]gateway.Ticket, error) {
			calls++
			tickets := make([]gateway.Ticket, len(messages))
			for i := range tickets {
				if calls == 2 {
					tickets[i] = gateway.Ticket{Status: gateway.TicketError, Message: "DeviceNotRegistered"}
				} else {
					tickets[i] = gateway.Ticket{Status: gateway.TicketOK}
				}
			}
			return tickets, nil
		},
	}

	svc := newTestDelivery(t, tokens, directory, gw, &fakeLimiter{}, 100)

	result, err := svc.NotifyActivityCreated(context.Background(), &domain.Activity{
		Kind:            domain.ActivityTransfer,
		ClientID:        "dest-client",
		ProjectID:       "dest-project",
		SourceClientID:  "source-client",
		SourceProjectID: "source-project",
		User:            domain.ActivityUser{UserID: "actor-1"},
	})
	if err != nil {
		t.Fatalf("NotifyActivityCreated() error = %v", err)
	}
	if result.Success {
		t.Fatal("transfer with a failed secondary delivery must not succeed")
	}
	if result.Primary.FailedCount != 0 {
		t.Fatalf("primary failed = %d, want 0", result.Primary.FailedCount)
	}
	if result.Secondary == nil || result.Secondary.FailedCount == 0 {
		t.Fatalf("secondary = %+v, want recorded failures", result.Secondary)
	}
}

func staffTokens(userIDs []string) []domain.PushToken {
	tokens := make([]domain.PushToken, len(userIDs))
	for i, id := range userIDs {
		tokens[i] = domain.PushToken{
			UserID:   id,
			Token:    "ExponentPushToken[" + id + "-device]",
			Platform: domain.PlatformIOS,
			Format:   domain.FormatExpo,
		}
	}
	return tokens
}
