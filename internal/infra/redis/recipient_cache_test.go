package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/kursadbilgin/push-engine/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

func newTestRecipientCache(t *testing.T) (*RecipientCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run() error = %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		_ = rdb.Close()
	})

	c, err := NewRecipientCache(rdb)
	if err != nil {
		t.Fatalf("NewRecipientCache() error = %v", err)
	}
	return c, mr
}

func staffKey(clientID, projectID string) domain.ResolutionKey {
	return domain.ResolutionKey{
		ClientID:      clientID,
		ProjectID:     projectID,
		RecipientType: domain.UserTypeStaff,
	}
}

func sampleResolution(key domain.ResolutionKey) *domain.ResolutionResult {
	return &domain.ResolutionResult{
		Key: key,
		Recipients: []domain.Recipient{
			{
				UserID:   "u1",
				FullName: "Aylin Demir",
				UserType: domain.UserTypeStaff,
				Token:    "ExponentPushToken[u1-device]",
				Platform: domain.PlatformIOS,
			},
		},
		Source:         domain.SourcePrimary,
		RecipientCount: 1,
	}
}

func TestRecipientCacheSetAndGet(t *testing.T) {
	c, _ := newTestRecipientCache(t)
	ctx := context.Background()

	key := staffKey("client-1", "project-1")
	if err := c.Set(ctx, key, sampleResolution(key), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !hit {
		t.Fatal("Get() hit = false, want true")
	}
	if got.RecipientCount != 1 || len(got.Recipients) != 1 {
		t.Fatalf("Get() recipients = %d/%d, want 1/1", got.RecipientCount, len(got.Recipients))
	}
	if got.Recipients[0].Token != "ExponentPushToken[u1-device]" {
		t.Fatalf("Get() token = %q", got.Recipients[0].Token)
	}
	if got.Source != domain.SourcePrimary {
		t.Fatalf("Get() source = %q, want PRIMARY", got.Source)
	}
}

func TestRecipientCacheMiss(t *testing.T) {
	c, _ := newTestRecipientCache(t)

	_, hit, err := c.Get(context.Background(), staffKey("client-1", ""))
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Fatal("Get() hit = true for an absent key")
	}
}

func TestRecipientCacheCorruptEntryBehavesLikeMiss(t *testing.T) {
	c, mr := newTestRecipientCache(t)

	key := staffKey("client-1", "project-1")
	if err := mr.Set(key.String(), "{not json"); err != nil {
		t.Fatalf("miniredis Set() error = %v", err)
	}

	_, hit, err := c.Get(context.Background(), key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Fatal("corrupt entry should read as a miss")
	}
}

func TestRecipientCacheEntryExpires(t *testing.T) {
	c, mr := newTestRecipientCache(t)
	ctx := context.Background()

	key := staffKey("client-1", "project-1")
	if err := c.Set(ctx, key, sampleResolution(key), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	mr.FastForward(2 * time.Minute)

	_, hit, err := c.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if hit {
		t.Fatal("entry should have expired")
	}
}

func TestRecipientCacheSetRejectsBadInput(t *testing.T) {
	c, _ := newTestRecipientCache(t)
	ctx := context.Background()

	key := staffKey("client-1", "")
	if err := c.Set(ctx, key, nil, time.Minute); err == nil {
		t.Fatal("Set() should reject a nil result")
	}
	if err := c.Set(ctx, key, sampleResolution(key), 0); err == nil {
		t.Fatal("Set() should reject a non-positive ttl")
	}
	if err := c.Set(ctx, domain.ResolutionKey{}, sampleResolution(key), time.Minute); err == nil {
		t.Fatal("Set() should reject an invalid key")
	}
}

func TestRecipientCacheClearClient(t *testing.T) {
	c, _ := newTestRecipientCache(t)
	ctx := context.Background()

	keyA := staffKey("client-a", "project-1")
	keyA2 := staffKey("client-a", "")
	keyB := staffKey("client-b", "project-1")

	for _, key := range []domain.ResolutionKey{keyA, keyA2, keyB} {
		if err := c.Set(ctx, key, sampleResolution(key), time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := c.ClearClient(ctx, "client-a"); err != nil {
		t.Fatalf("ClearClient() error = %v", err)
	}

	for _, key := range []domain.ResolutionKey{keyA, keyA2} {
		if _, hit, _ := c.Get(ctx, key); hit {
			t.Fatalf("key %s should have been cleared", key)
		}
	}
	if _, hit, _ := c.Get(ctx, keyB); !hit {
		t.Fatal("other clients' entries should survive a scoped clear")
	}

	if err := c.ClearClient(ctx, ""); err == nil {
		t.Fatal("ClearClient() should reject an empty client id")
	}
}

func TestRecipientCacheClearAll(t *testing.T) {
	c, _ := newTestRecipientCache(t)
	ctx := context.Background()

	keys := []domain.ResolutionKey{
		staffKey("client-a", "project-1"),
		staffKey("client-b", "project-2"),
	}
	for _, key := range keys {
		if err := c.Set(ctx, key, sampleResolution(key), time.Minute); err != nil {
			t.Fatalf("Set(%s) error = %v", key, err)
		}
	}

	if err := c.ClearAll(ctx); err != nil {
		t.Fatalf("ClearAll() error = %v", err)
	}

	for _, key := range keys {
		if _, hit, _ := c.Get(ctx, key); hit {
			t.Fatalf("key %s should have been cleared", key)
		}
	}
}
