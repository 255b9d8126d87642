package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/vocab-service/internal/domain"
)

// ProfileRepository defines persistence access for application profiles.
type ProfileRepository interface {
	Create(ctx context.Context, profile *domain.Profile) error
	Update(ctx context.Context, profile *domain.Profile) error
	GetByID(ctx context.Context, id string) (*domain.Profile, error)
	TouchLastSeen(ctx context.Context, id string, at time.Time) error
}

type profileRepository struct {
	pool *pgxpool.Pool
}

// NewProfileRepository returns a Postgres-backed implementation.
func NewProfileRepository(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepository{pool: pool}
}

func (r *profileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	const query = `
        INSERT INTO profiles (id, display_name, role, account_status)
        VALUES ($1, $2, $3, $4)
        RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		profile.ID,
		profile.DisplayName,
		string(profile.Role),
		string(profile.Status),
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
}

func (r *profileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	const query = `
        UPDATE profiles SET display_name=$1, role=$2, account_status=$3, updated_at=NOW()
        WHERE id=$4`

	cmd, err := r.pool.Exec(ctx, query,
		profile.DisplayName,
		string(profile.Role),
		string(profile.Status),
		profile.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *profileRepository) GetByID(ctx context.Context, id string) (*domain.Profile, error) {
	const query = `
        SELECT id, display_name, role, account_status, last_seen_at, created_at, updated_at
        FROM profiles WHERE id=$1`

	var profile domain.Profile
	var rawRole, rawStatus string
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&profile.ID,
		&profile.DisplayName,
		&rawRole,
		&rawStatus,
		&profile.LastSeenAt,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}

	// Enum validation happens at the store boundary so invalid values
	// never propagate into the service layer.
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, err
	}
	status, err := domain.ParseAccountStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	profile.Role = role
	profile.Status = status
	return &profile, nil
}

func (r *profileRepository) TouchLastSeen(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE profiles SET last_seen_at=$1, updated_at=NOW()
        WHERE id=$2`
	_, err := r.pool.Exec(ctx, query, at, id)
	return err
}
