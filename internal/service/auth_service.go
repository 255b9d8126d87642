package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/vocab-service/internal/auth"
	"github.com/spec-kit/vocab-service/internal/config"
	"github.com/spec-kit/vocab-service/internal/directory"
	"github.com/spec-kit/vocab-service/internal/domain"
	"github.com/spec-kit/vocab-service/internal/events"
	"github.com/spec-kit/vocab-service/internal/repository"
	apperrors "github.com/spec-kit/vocab-service/pkg/util/errorutil"
)

// Profile provisioning runs as a trigger on identity creation; the
// re-read below retries briefly before declaring provisioning failed.
const (
	provisionRetries    = 3
	provisionRetryDelay = 100 * time.Millisecond
)

// RegisterInput is the registration payload.
type RegisterInput struct {
	DisplayName string
	Email       string
	Password    string
	Role        domain.Role
}

// AuthService coordinates registration, login and password-reset flows
// across the credential directory, profile store, lockout guard and
// token issuer.
type AuthService struct {
	dir         directory.Directory
	profiles    repository.ProfileRepository
	teachers    repository.TeacherRepository
	lockout     *LockoutService
	tokens      *auth.TokenManager
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	frontendURL string
}

// AuthDependencies encapsulates collaborator requirements for auth service.
type AuthDependencies struct {
	Directory   directory.Directory
	ProfileRepo repository.ProfileRepository
	TeacherRepo repository.TeacherRepository
	Lockout     *LockoutService
	Tokens      *auth.TokenManager
	Dispatcher  events.Dispatcher
	Logger      *zap.Logger
}

// NewAuthService builds the service.
func NewAuthService(cfg config.Config, deps AuthDependencies) *AuthService {
	return &AuthService{
		dir:         deps.Directory,
		profiles:    deps.ProfileRepo,
		teachers:    deps.TeacherRepo,
		lockout:     deps.Lockout,
		tokens:      deps.Tokens,
		dispatcher:  deps.Dispatcher,
		logger:      deps.Logger,
		frontendURL: cfg.Frontend.BaseURL,
	}
}

// Register creates a directory identity and returns the provisioned
// profile with a session token. The account stays pending_verification
// until the out-of-band email confirmation completes.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Profile, string, time.Time, error) {
	role := in.Role
	if role == "" {
		role = domain.RoleLearner
	}
	if role != domain.RoleLearner && role != domain.RoleTeacher {
		return nil, "", time.Time{}, apperrors.NewValidationError("role must be learner or teacher", nil)
	}

	if _, err := s.dir.FindByEmail(ctx, in.Email); err == nil {
		return nil, "", time.Time{}, apperrors.NewDuplicateRegistration()
	} else if !errors.Is(err, directory.ErrIdentityNotFound) {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	identity, err := s.dir.CreateIdentity(ctx, directory.NewIdentity{
		Email:       in.Email,
		Password:    in.Password,
		DisplayName: in.DisplayName,
		Role:        role,
	})
	if err != nil {
		if errors.Is(err, directory.ErrDuplicateIdentity) {
			return nil, "", time.Time{}, apperrors.NewDuplicateRegistration()
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	profile, err := s.fetchProvisionedProfile(ctx, identity.ID)
	if err != nil {
		s.logger.Error("profile provisioning failed",
			zap.String("identity_id", identity.ID),
			zap.String("email", in.Email),
			zap.Error(err))
		return nil, "", time.Time{}, apperrors.NewProfileProvisioningFailed(err)
	}

	if role == domain.RoleTeacher {
		if err := s.teachers.Create(ctx, &repository.TeacherExtension{ProfileID: profile.ID}); err != nil {
			return nil, "", time.Time{}, apperrors.MapError(err)
		}
	}

	token, exp, err := s.tokens.Issue(profile.ID, identity.Email, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventAccountRegistered,
		Email:     identity.Email,
		SubjectID: profile.ID,
		Timestamp: time.Now(),
		Payload: events.AccountRegisteredPayload{
			DisplayName: profile.DisplayName,
			Role:        string(profile.Role),
		},
	})
	return profile, token, exp, nil
}

// Login authenticates an email/password pair. The lockout gate runs
// before any credential check; rejected statuses count as tracked failed
// attempts; success clears the counters.
func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*domain.Profile, string, time.Time, error) {
	if err := s.lockout.CheckLoginAttempts(ctx, email, ip); err != nil {
		return nil, "", time.Time{}, err
	}

	identity, err := s.dir.VerifyPassword(ctx, email, password)
	if err != nil {
		if errors.Is(err, directory.ErrInvalidCredentials) {
			s.trackFailure(ctx, email, ip)
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		// Directory outage is a hard error; login correctness never
		// fails open.
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.trackFailure(ctx, email, ip)
			return nil, "", time.Time{}, apperrors.NewInvalidCredentials()
		}
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	switch profile.Status {
	case domain.StatusSuspended:
		s.trackFailure(ctx, email, ip)
		return nil, "", time.Time{}, apperrors.NewAccountSuspended()
	case domain.StatusPendingVerification:
		s.trackFailure(ctx, email, ip)
		return nil, "", time.Time{}, apperrors.NewEmailNotVerified()
	}

	if err := s.lockout.ClearAttempts(ctx, email, ip); err != nil {
		s.logger.Warn("failed to clear lockout counters", zap.Error(err), zap.String("email", email))
	}

	now := time.Now()
	if err := s.profiles.TouchLastSeen(ctx, profile.ID, now); err != nil {
		s.logger.Warn("failed to update last seen", zap.Error(err), zap.String("profile_id", profile.ID))
	} else {
		profile.LastSeenAt = &now
	}

	token, exp, err := s.tokens.Issue(profile.ID, identity.Email, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}

	s.publish(ctx, events.Event{
		ID:        uuid.NewString(),
		Type:      events.EventLoginSucceeded,
		Email:     identity.Email,
		SubjectID: profile.ID,
		Timestamp: now,
		Payload:   events.LoginSucceededPayload{IPAddress: ip},
	})
	return profile, token, exp, nil
}

// Logout invalidates the external session when one exists. Session
// tokens themselves are stateless; clients discard them.
func (s *AuthService) Logout(ctx context.Context, sessionToken string) error {
	if err := s.dir.SignOut(ctx, sessionToken); err != nil {
		s.logger.Warn("directory sign-out failed", zap.Error(err))
	}
	return nil
}

// ForgotPassword always reports success so responses never reveal
// whether the email is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	redirect := s.frontendURL + "/reset-password"
	if err := s.dir.SendPasswordReset(ctx, email, redirect); err != nil {
		s.logger.Warn("password reset request failed", zap.Error(err), zap.String("email", email))
	}
	return nil
}

// ResendVerification delegates to the directory with the same
// non-enumerating response policy as ForgotPassword.
func (s *AuthService) ResendVerification(ctx context.Context, email string) error {
	if err := s.dir.ResendVerification(ctx, email); err != nil {
		s.logger.Warn("verification resend failed", zap.Error(err), zap.String("email", email))
	}
	return nil
}

func (s *AuthService) fetchProvisionedProfile(ctx context.Context, id string) (*domain.Profile, error) {
	var lastErr error
	for attempt := 0; attempt < provisionRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(provisionRetryDelay):
			}
		}
		profile, err := s.profiles.GetByID(ctx, id)
		if err == nil {
			return profile, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

// trackFailure records a failed attempt; guard failures are logged and
// swallowed so infrastructure trouble never changes the login outcome.
func (s *AuthService) trackFailure(ctx context.Context, email, ip string) {
	if _, err := s.lockout.TrackFailedAttempt(ctx, email, ip); err != nil {
		s.logger.Warn("failed to track login attempt", zap.Error(err), zap.String("email", email))
	}
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	_ = s.dispatcher.Publish(ctx, event)
}
