package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TeacherExtension stores the extra record created when a registration
// requests the teacher role.
type TeacherExtension struct {
	ProfileID string
	Bio       string
	CreatedAt time.Time
}

// TeacherRepository manages teacher-extension persistence.
type TeacherRepository interface {
	Create(ctx context.Context, ext *TeacherExtension) error
	GetByProfileID(ctx context.Context, profileID string) (*TeacherExtension, error)
}

type teacherRepository struct {
	pool *pgxpool.Pool
}

// NewTeacherRepository constructs repository.
func NewTeacherRepository(pool *pgxpool.Pool) TeacherRepository {
	return &teacherRepository{pool: pool}
}

func (r *teacherRepository) Create(ctx context.Context, ext *TeacherExtension) error {
	const query = `
        INSERT INTO teacher_profiles (profile_id, bio)
        VALUES ($1, $2)
        ON CONFLICT (profile_id) DO NOTHING
        RETURNING created_at`
	err := r.pool.QueryRow(ctx, query, ext.ProfileID, ext.Bio).Scan(&ext.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		// already present; idempotent
		return nil
	}
	return err
}

func (r *teacherRepository) GetByProfileID(ctx context.Context, profileID string) (*TeacherExtension, error) {
	const query = `
        SELECT profile_id, bio, created_at
        FROM teacher_profiles WHERE profile_id=$1`
	var ext TeacherExtension
	if err := r.pool.QueryRow(ctx, query, profileID).Scan(
		&ext.ProfileID,
		&ext.Bio,
		&ext.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &ext, nil
}
