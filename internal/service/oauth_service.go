package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/spec-kit/vocab-service/internal/auth"
	"github.com/spec-kit/vocab-service/internal/config"
	"github.com/spec-kit/vocab-service/internal/directory"
	"github.com/spec-kit/vocab-service/internal/domain"
	"github.com/spec-kit/vocab-service/internal/repository"
	apperrors "github.com/spec-kit/vocab-service/pkg/util/errorutil"
)

const (
	oauthStateKeyPrefix = "oauth:state:"
	googleUserinfoURL   = "https://openidconnect.googleapis.com/v1/userinfo"
)

// OAuthService handles the Google authorization-code flow and reconciles
// the external identity with the credential directory and profile store,
// keeping them 1:1.
type OAuthService struct {
	oauth       *oauth2.Config
	redis       *redis.Client
	dir         directory.Directory
	profiles    repository.ProfileRepository
	tokens      *auth.TokenManager
	logger      *zap.Logger
	stateTTL    time.Duration
	userinfoURL string
}

// NewOAuthService builds the service from provider credentials.
func NewOAuthService(cfg config.OAuthConfig, client *redis.Client, dir directory.Directory, profiles repository.ProfileRepository, tokens *auth.TokenManager, logger *zap.Logger) *OAuthService {
	return &OAuthService{
		oauth: &oauth2.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		redis:       client,
		dir:         dir,
		profiles:    profiles,
		tokens:      tokens,
		logger:      logger,
		stateTTL:    time.Duration(cfg.StateTTLSeconds) * time.Second,
		userinfoURL: googleUserinfoURL,
	}
}

// AuthCodeURL returns the provider redirect URL with a one-time state
// nonce stored in Redis.
func (s *OAuthService) AuthCodeURL(ctx context.Context) (string, error) {
	state := uuid.NewString()
	if err := s.redis.Set(ctx, oauthStateKeyPrefix+state, "1", s.stateTTL).Err(); err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

type externalIdentity struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
}

// HandleCallback verifies the state nonce, exchanges the code, fetches
// the provider userinfo and returns the reconciled profile with a
// session token.
func (s *OAuthService) HandleCallback(ctx context.Context, state, code string) (*domain.Profile, string, time.Time, error) {
	if err := s.consumeState(ctx, state); err != nil {
		return nil, "", time.Time{}, err
	}

	providerToken, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("oauth code exchange failed")
	}

	external, err := s.fetchUserinfo(ctx, providerToken)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	if external.Email == "" || !external.EmailVerified {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("provider email not verified")
	}

	profile, err := s.Reconcile(ctx, external.Email, external.Name)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokens.Issue(profile.ID, external.Email, profile.Role)
	if err != nil {
		return nil, "", time.Time{}, apperrors.MapError(err)
	}
	return profile, token, exp, nil
}

// Reconcile finds or creates the directory identity and its profile for
// a provider-verified email. Identity and profile creation are not
// transactional in the external store, so an identity without a profile
// is a partial-failure state this step explicitly repairs.
func (s *OAuthService) Reconcile(ctx context.Context, email, displayName string) (*domain.Profile, error) {
	identity, err := s.dir.FindByEmail(ctx, email)
	if errors.Is(err, directory.ErrIdentityNotFound) {
		identity, err = s.dir.CreateIdentity(ctx, directory.NewIdentity{
			Email:       email,
			DisplayName: displayName,
			Role:        domain.RoleLearner,
			External:    true,
		})
	}
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	profile, err := s.profiles.GetByID(ctx, identity.ID)
	if errors.Is(err, pgx.ErrNoRows) {
		// Identity exists without a profile: upstream drift worth
		// alerting on, healed here rather than surfaced as an error.
		s.logger.Warn("healing identity without profile",
			zap.String("identity_id", identity.ID),
			zap.String("email", email))
		profile = &domain.Profile{
			ID:          identity.ID,
			DisplayName: displayName,
			Role:        domain.RoleLearner,
			Status:      domain.StatusActive,
		}
		if createErr := s.profiles.Create(ctx, profile); createErr != nil {
			return nil, apperrors.MapError(createErr)
		}
	} else if err != nil {
		return nil, apperrors.MapError(err)
	}

	if profile.Status == domain.StatusSuspended {
		return nil, apperrors.NewAccountSuspended()
	}

	now := time.Now()
	if err := s.profiles.TouchLastSeen(ctx, profile.ID, now); err != nil {
		s.logger.Warn("failed to update last seen", zap.Error(err), zap.String("profile_id", profile.ID))
	} else {
		profile.LastSeenAt = &now
	}
	return profile, nil
}

func (s *OAuthService) consumeState(ctx context.Context, state string) error {
	if state == "" {
		return apperrors.NewUnauthorized("missing oauth state")
	}
	if err := s.redis.GetDel(ctx, oauthStateKeyPrefix+state).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return apperrors.NewUnauthorized("invalid oauth state")
		}
		return apperrors.MapError(err)
	}
	return nil
}

func (s *OAuthService) fetchUserinfo(ctx context.Context, token *oauth2.Token) (*externalIdentity, error) {
	resp, err := s.oauth.Client(ctx, token).Get(s.userinfoURL)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("userinfo: status %d", resp.StatusCode)
	}

	var external externalIdentity
	if err := json.NewDecoder(resp.Body).Decode(&external); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	return &external, nil
}
