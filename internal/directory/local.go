package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/spec-kit/vocab-service/internal/auth"
	"github.com/spec-kit/vocab-service/internal/domain"
)

// LocalDirectory stores credentials in the service's own Postgres,
// for running without the hosted identity provider. Profile rows are
// provisioned by the same trigger mechanism the hosted backend uses,
// so orchestrator semantics are identical in both modes.
type LocalDirectory struct {
	pool       *pgxpool.Pool
	bcryptCost int
	logger     *zap.Logger
}

// NewLocalDirectory returns a Postgres-backed directory.
func NewLocalDirectory(pool *pgxpool.Pool, bcryptCost int, logger *zap.Logger) *LocalDirectory {
	return &LocalDirectory{pool: pool, bcryptCost: bcryptCost, logger: logger}
}

// CreateIdentity inserts a new identity row. External identities have no
// password and a pre-confirmed email.
func (d *LocalDirectory) CreateIdentity(ctx context.Context, in NewIdentity) (*domain.Identity, error) {
	if _, err := d.FindByEmail(ctx, in.Email); err == nil {
		return nil, ErrDuplicateIdentity
	} else if !errors.Is(err, ErrIdentityNotFound) {
		return nil, err
	}

	var passwordHash *string
	if !in.External {
		hash, err := auth.HashPassword(in.Password, d.bcryptCost)
		if err != nil {
			return nil, err
		}
		passwordHash = &hash
	}

	identity := &domain.Identity{
		ID:             uuid.NewString(),
		Email:          in.Email,
		EmailConfirmed: in.External,
	}

	const query = `
        INSERT INTO identities (id, email, password_hash, email_confirmed, display_name, requested_role)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at`
	if err := d.pool.QueryRow(ctx, query,
		identity.ID,
		identity.Email,
		passwordHash,
		identity.EmailConfirmed,
		in.DisplayName,
		string(in.Role),
	).Scan(&identity.CreatedAt); err != nil {
		return nil, err
	}
	return identity, nil
}

// VerifyPassword checks credentials, returning ErrInvalidCredentials on
// any mismatch so callers cannot distinguish unknown email from wrong
// password.
func (d *LocalDirectory) VerifyPassword(ctx context.Context, email, password string) (*domain.Identity, error) {
	const query = `
        SELECT id, email, password_hash, email_confirmed, created_at
        FROM identities WHERE email=$1`

	var identity domain.Identity
	var passwordHash *string
	if err := d.pool.QueryRow(ctx, query, email).Scan(
		&identity.ID,
		&identity.Email,
		&passwordHash,
		&identity.EmailConfirmed,
		&identity.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if passwordHash == nil {
		// external identity, no password login
		return nil, ErrInvalidCredentials
	}
	if err := auth.ComparePassword(*passwordHash, password); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &identity, nil
}

// FindByEmail looks up an identity by email.
func (d *LocalDirectory) FindByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	const query = `
        SELECT id, email, email_confirmed, created_at
        FROM identities WHERE email=$1`

	var identity domain.Identity
	if err := d.pool.QueryRow(ctx, query, email).Scan(
		&identity.ID,
		&identity.Email,
		&identity.EmailConfirmed,
		&identity.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}
	return &identity, nil
}

// SendPasswordReset logs the reset request. Email delivery is out of
// scope for local mode; the hosted backend owns token generation and
// delivery in production.
func (d *LocalDirectory) SendPasswordReset(ctx context.Context, email, redirectURL string) error {
	if _, err := d.FindByEmail(ctx, email); err != nil {
		return err
	}
	d.logger.Info("password reset requested",
		zap.String("email", email),
		zap.String("redirect_url", redirectURL))
	return nil
}

// ResendVerification logs the resend request, same policy as reset.
func (d *LocalDirectory) ResendVerification(ctx context.Context, email string) error {
	identity, err := d.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if identity.EmailConfirmed {
		return nil
	}
	d.logger.Info("verification email resend requested", zap.String("email", email))
	return nil
}

// SignOut is a no-op locally; session tokens are stateless.
func (d *LocalDirectory) SignOut(ctx context.Context, sessionToken string) error {
	return nil
}
