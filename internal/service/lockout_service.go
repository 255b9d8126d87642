package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/vocab-service/internal/config"
	"github.com/spec-kit/vocab-service/internal/domain"
	"github.com/spec-kit/vocab-service/internal/events"
	apperrors "github.com/spec-kit/vocab-service/pkg/util/errorutil"
)

// ErrLockoutStoreUnavailable wraps Redis failures inside the guard.
var ErrLockoutStoreUnavailable = errors.New("lockout store unavailable")

const (
	attemptKeyPrefix = "lockout:attempts:"
	ipKeyPrefix      = "lockout:ip:"
	lockKeyPrefix    = "lockout:lock:"
)

// LockoutService tracks failed login attempts per email and per client IP
// and locks accounts that cross the threshold. Counters and lock records
// live in Redis under the lockout: namespace; expiry is enforced by Redis
// TTLs, never by re-checking timestamps here.
type LockoutService struct {
	redis      *redis.Client
	cfg        config.LockoutConfig
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewLockoutService builds the guard.
func NewLockoutService(client *redis.Client, cfg config.LockoutConfig, dispatcher events.Dispatcher, logger *zap.Logger) *LockoutService {
	return &LockoutService{redis: client, cfg: cfg, dispatcher: dispatcher, logger: logger}
}

// TrackFailedAttempt increments both counters and locks the account when
// the email-scoped count reaches the threshold. The attempt window TTL is
// anchored at the first failure: it is set only when the key is created,
// not refreshed on later increments.
func (s *LockoutService) TrackFailedAttempt(ctx context.Context, email, ip string) (*domain.AttemptStatus, error) {
	attempts, err := s.incrementWithWindow(ctx, attemptKeyPrefix+email)
	if err != nil {
		return nil, err
	}

	ipAttempts := 0
	if ip != "" {
		ipAttempts, err = s.incrementWithWindow(ctx, ipKeyPrefix+ip)
		if err != nil {
			return nil, err
		}
	}

	status := &domain.AttemptStatus{
		Attempts:          attempts,
		IPAttempts:        ipAttempts,
		RemainingAttempts: s.cfg.MaxAttempts - attempts,
	}
	if status.RemainingAttempts < 0 {
		status.RemainingAttempts = 0
	}

	if attempts >= s.cfg.MaxAttempts {
		status.Locked = true
		if err := s.lockAccount(ctx, email, ip, attempts); err != nil {
			return nil, err
		}
	}
	return status, nil
}

// IsAccountLocked reports the active lock record, or nil when no record
// exists (including after natural TTL expiry).
func (s *LockoutService) IsAccountLocked(ctx context.Context, email string) (*domain.LockRecord, error) {
	raw, err := s.redis.Get(ctx, lockKeyPrefix+email).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockoutStoreUnavailable, err)
	}

	var record domain.LockRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, fmt.Errorf("malformed lock record for %s: %w", email, err)
	}
	return &record, nil
}

// ClearAttempts removes both counters and any lock record. Idempotent;
// called after a successful login.
func (s *LockoutService) ClearAttempts(ctx context.Context, email, ip string) error {
	keys := []string{attemptKeyPrefix + email, lockKeyPrefix + email}
	if ip != "" {
		keys = append(keys, ipKeyPrefix+ip)
	}
	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutStoreUnavailable, err)
	}
	return nil
}

// CheckLoginAttempts gates a login before any credential check. A locked
// account short-circuits with ACCOUNT_LOCKED; an IP past the coarse
// cutoff short-circuits with RATE_LIMITED. When the store itself fails
// the gate fails open: availability wins over this defense layer, so the
// error is logged and login proceeds.
func (s *LockoutService) CheckLoginAttempts(ctx context.Context, email, ip string) error {
	record, err := s.IsAccountLocked(ctx, email)
	if err != nil {
		s.logger.Warn("lockout gate unavailable, failing open", zap.Error(err), zap.String("email", email))
		return nil
	}
	if record != nil {
		return apperrors.NewAccountLocked(record.RemainingMinutes(time.Now()))
	}

	if ip != "" {
		ipAttempts, err := s.redis.Get(ctx, ipKeyPrefix+ip).Int()
		if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn("lockout gate unavailable, failing open", zap.Error(err), zap.String("ip", ip))
			return nil
		}
		if ipAttempts >= s.cfg.IPAttemptMultiplier*s.cfg.MaxAttempts {
			return apperrors.NewRateLimited()
		}
	}
	return nil
}

func (s *LockoutService) incrementWithWindow(ctx context.Context, key string) (int, error) {
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrLockoutStoreUnavailable, err)
	}
	if count == 1 {
		if err := s.redis.Expire(ctx, key, s.cfg.AttemptWindow()).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrLockoutStoreUnavailable, err)
		}
	}
	return int(count), nil
}

// lockAccount writes the lock record unless one already exists, so two
// racing attempts past the threshold produce a single lock and later
// attempts during an active lock never extend it.
func (s *LockoutService) lockAccount(ctx context.Context, email, ip string, attempts int) error {
	existing, err := s.IsAccountLocked(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	now := time.Now()
	record := domain.LockRecord{
		Attempts:    attempts,
		IPAddress:   ip,
		LockedAt:    now,
		LockedUntil: now.Add(s.cfg.LockoutDuration()),
		Reason:      "too many failed login attempts",
	}
	encoded, err := json.Marshal(record)
	if err != nil {
		return err
	}
	if err := s.redis.SetNX(ctx, lockKeyPrefix+email, encoded, s.cfg.LockoutDuration()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutStoreUnavailable, err)
	}

	s.logger.Warn("account locked",
		zap.String("email", email),
		zap.String("ip", ip),
		zap.Int("attempts", attempts),
		zap.Time("locked_until", record.LockedUntil))

	// Notification is fire-and-forget after the lock decision commits;
	// a failed publish never fails the lock.
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventAccountLocked,
			Email:     email,
			Timestamp: now,
			Payload: events.AccountLockedPayload{
				Attempts:    attempts,
				IPAddress:   ip,
				LockedUntil: record.LockedUntil,
				Reason:      record.Reason,
			},
		})
	}
	return nil
}
