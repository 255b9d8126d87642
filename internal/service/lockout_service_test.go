package service

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/vocab-service/internal/config"
	"github.com/spec-kit/vocab-service/internal/events"
	apperrors "github.com/spec-kit/vocab-service/pkg/util/errorutil"
)

func testLockoutConfig() config.LockoutConfig {
	return config.LockoutConfig{
		MaxAttempts:          5,
		AttemptWindowMinutes: 15,
		LockoutMinutes:       15,
		IPAttemptMultiplier:  2,
	}
}

func TestTrackFailedAttemptLocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	for i := 1; i <= 4; i++ {
		status, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1")
		if err != nil {
			t.Fatalf("attempt %d: %v", i, err)
		}
		if status.Locked {
			t.Fatalf("locked after %d attempts", i)
		}
		if status.Attempts != i {
			t.Fatalf("attempts = %d, want %d", status.Attempts, i)
		}
		if status.RemainingAttempts != 5-i {
			t.Fatalf("remaining = %d, want %d", status.RemainingAttempts, 5-i)
		}
	}

	status, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("fifth attempt: %v", err)
	}
	if !status.Locked {
		t.Fatal("expected lock at fifth attempt")
	}

	record, err := guard.IsAccountLocked(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("is locked: %v", err)
	}
	if record == nil {
		t.Fatal("expected lock record")
	}
	if record.Attempts != 5 {
		t.Errorf("record attempts = %d, want 5", record.Attempts)
	}
	if record.IPAddress != "10.0.0.1" {
		t.Errorf("record ip = %q, want 10.0.0.1", record.IPAddress)
	}
	minutes := record.RemainingMinutes(time.Now())
	if minutes < 1 || minutes > 15 {
		t.Errorf("remaining minutes = %d, want within [1,15]", minutes)
	}
}

func TestLockIsIdempotentUnderRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	dispatcher := events.NewInMemoryDispatcher()
	var locks []events.Event
	dispatcher.Subscribe(events.EventAccountLocked, func(_ context.Context, event events.Event) error {
		locks = append(locks, event)
		return nil
	})
	guard := NewLockoutService(client, testLockoutConfig(), dispatcher, zap.NewNop())

	for i := 0; i < 5; i++ {
		if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1"); err != nil {
			t.Fatalf("attempt: %v", err)
		}
	}
	first, err := guard.IsAccountLocked(ctx, "a@x.com")
	if err != nil || first == nil {
		t.Fatalf("expected lock record, err=%v", err)
	}

	// further failures during an active lock must not re-lock or extend
	if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("sixth attempt: %v", err)
	}
	second, err := guard.IsAccountLocked(ctx, "a@x.com")
	if err != nil || second == nil {
		t.Fatalf("expected lock record, err=%v", err)
	}
	if !second.LockedUntil.Equal(first.LockedUntil) {
		t.Errorf("lock extended: %v -> %v", first.LockedUntil, second.LockedUntil)
	}
	if len(locks) != 1 {
		t.Errorf("published %d lock events, want 1", len(locks))
	}
}

func TestAttemptWindowAnchoredAtFirstFailure(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	server.FastForward(5 * time.Minute)
	if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", ""); err != nil {
		t.Fatalf("second attempt: %v", err)
	}

	// the second increment must not refresh the TTL
	ttl := server.TTL(attemptKeyPrefix + "a@x.com")
	if ttl > 10*time.Minute {
		t.Errorf("window TTL refreshed: %v", ttl)
	}
	if ttl <= 0 {
		t.Errorf("window TTL missing: %v", ttl)
	}
}

func TestLockExpiresByTTLWithoutExplicitClear(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	for i := 0; i < 5; i++ {
		if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", ""); err != nil {
			t.Fatalf("attempt: %v", err)
		}
	}
	if record, _ := guard.IsAccountLocked(ctx, "a@x.com"); record == nil {
		t.Fatal("expected active lock")
	}

	server.FastForward(15*time.Minute + time.Second)

	record, err := guard.IsAccountLocked(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("is locked after expiry: %v", err)
	}
	if record != nil {
		t.Fatal("expected lock to expire via TTL")
	}
}

func TestClearAttemptsResetsCounters(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1"); err != nil {
			t.Fatalf("attempt: %v", err)
		}
	}
	if err := guard.ClearAttempts(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("clear: %v", err)
	}

	status, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1")
	if err != nil {
		t.Fatalf("attempt after clear: %v", err)
	}
	if status.Attempts != 1 {
		t.Errorf("attempts after clear = %d, want 1", status.Attempts)
	}

	// clearing twice is fine
	if err := guard.ClearAttempts(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("second clear: %v", err)
	}
}

func TestCheckLoginAttemptsGate(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	if err := guard.CheckLoginAttempts(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("clean account gated: %v", err)
	}

	for i := 0; i < 5; i++ {
		if _, err := guard.TrackFailedAttempt(ctx, "a@x.com", "10.0.0.1"); err != nil {
			t.Fatalf("attempt: %v", err)
		}
	}

	err := guard.CheckLoginAttempts(ctx, "a@x.com", "10.0.0.1")
	if err == nil {
		t.Fatal("expected lock response")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "ACCOUNT_LOCKED" {
		t.Errorf("code = %q, want ACCOUNT_LOCKED", domainErr.Code)
	}
	if domainErr.HTTPStatus != 429 {
		t.Errorf("status = %d, want 429", domainErr.HTTPStatus)
	}
	minutes, ok := domainErr.Details["remaining_minutes"].(int)
	if !ok || minutes < 1 || minutes > 15 {
		t.Errorf("remaining_minutes = %v, want within [1,15]", domainErr.Details["remaining_minutes"])
	}
}

func TestCheckLoginAttemptsIPCutoff(t *testing.T) {
	ctx := context.Background()
	_, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	// distributed attack: one IP across many accounts, none individually locked
	emails := []string{"a@x.com", "b@x.com", "c@x.com", "d@x.com"}
	for i := 0; i < 10; i++ {
		email := emails[i%len(emails)]
		if _, err := guard.TrackFailedAttempt(ctx, email, "10.0.0.9"); err != nil {
			t.Fatalf("attempt: %v", err)
		}
	}

	err := guard.CheckLoginAttempts(ctx, "fresh@x.com", "10.0.0.9")
	if err == nil {
		t.Fatal("expected rate limit response")
	}
	domainErr := apperrors.ToDomainError(err)
	if domainErr.Code != "RATE_LIMITED" {
		t.Errorf("code = %q, want RATE_LIMITED", domainErr.Code)
	}

	// other IPs remain unaffected
	if err := guard.CheckLoginAttempts(ctx, "fresh@x.com", "10.0.0.10"); err != nil {
		t.Fatalf("unrelated ip gated: %v", err)
	}
}

func TestCheckLoginAttemptsFailsOpenWhenStoreDown(t *testing.T) {
	ctx := context.Background()
	server, client := newRedisClientForTest(t)
	guard := NewLockoutService(client, testLockoutConfig(), nil, zap.NewNop())

	server.Close()

	if err := guard.CheckLoginAttempts(ctx, "a@x.com", "10.0.0.1"); err != nil {
		t.Fatalf("gate did not fail open: %v", err)
	}
}
