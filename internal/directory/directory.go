package directory

import (
	"context"
	"errors"

	"github.com/spec-kit/vocab-service/internal/domain"
)

// Sentinel errors shared by all directory implementations.
var (
	ErrIdentityNotFound   = errors.New("identity not found")
	ErrDuplicateIdentity  = errors.New("identity already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// NewIdentity describes an identity to create. External identities come
// from an OAuth provider: they carry no password and their email counts
// as already confirmed.
type NewIdentity struct {
	Email       string
	Password    string
	DisplayName string
	Role        domain.Role
	External    bool
}

// Directory is the credential-directory port. Implementations store
// credentials and verified-email state; this service never sees password
// hashes from the hosted backend.
type Directory interface {
	CreateIdentity(ctx context.Context, in NewIdentity) (*domain.Identity, error)
	VerifyPassword(ctx context.Context, email, password string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	SendPasswordReset(ctx context.Context, email, redirectURL string) error
	ResendVerification(ctx context.Context, email string) error
	SignOut(ctx context.Context, sessionToken string) error
}
