package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/vocab-service/internal/directory"
	"github.com/spec-kit/vocab-service/internal/domain"
	"github.com/spec-kit/vocab-service/internal/repository"
)

// fakeDirectory is an in-memory credential directory. When provisionTo is
// set it mimics the provisioning trigger by inserting a profile row on
// identity creation.
type fakeDirectory struct {
	identities  map[string]*domain.Identity // keyed by email
	passwords   map[string]string
	provisionTo *fakeProfileRepo

	verifyCalls  int
	resetCalls   []string
	resendCalls  []string
	signOutCalls int
}

func newFakeDirectory(provisionTo *fakeProfileRepo) *fakeDirectory {
	return &fakeDirectory{
		identities:  make(map[string]*domain.Identity),
		passwords:   make(map[string]string),
		provisionTo: provisionTo,
	}
}

func (f *fakeDirectory) CreateIdentity(_ context.Context, in directory.NewIdentity) (*domain.Identity, error) {
	if _, ok := f.identities[in.Email]; ok {
		return nil, directory.ErrDuplicateIdentity
	}
	identity := &domain.Identity{
		ID:             uuid.NewString(),
		Email:          in.Email,
		EmailConfirmed: in.External,
		CreatedAt:      time.Now(),
	}
	f.identities[in.Email] = identity
	if !in.External {
		f.passwords[in.Email] = in.Password
	}

	if f.provisionTo != nil {
		role := in.Role
		if role == "" {
			role = domain.RoleLearner
		}
		status := domain.StatusPendingVerification
		if in.External {
			status = domain.StatusActive
		}
		f.provisionTo.put(&domain.Profile{
			ID:          identity.ID,
			DisplayName: in.DisplayName,
			Role:        role,
			Status:      status,
		})
	}
	return identity, nil
}

func (f *fakeDirectory) VerifyPassword(_ context.Context, email, password string) (*domain.Identity, error) {
	f.verifyCalls++
	identity, ok := f.identities[email]
	if !ok {
		return nil, directory.ErrInvalidCredentials
	}
	if stored, ok := f.passwords[email]; !ok || stored != password {
		return nil, directory.ErrInvalidCredentials
	}
	return identity, nil
}

func (f *fakeDirectory) FindByEmail(_ context.Context, email string) (*domain.Identity, error) {
	identity, ok := f.identities[email]
	if !ok {
		return nil, directory.ErrIdentityNotFound
	}
	return identity, nil
}

func (f *fakeDirectory) SendPasswordReset(_ context.Context, email, _ string) error {
	if _, ok := f.identities[email]; !ok {
		return directory.ErrIdentityNotFound
	}
	f.resetCalls = append(f.resetCalls, email)
	return nil
}

func (f *fakeDirectory) ResendVerification(_ context.Context, email string) error {
	if _, ok := f.identities[email]; !ok {
		return directory.ErrIdentityNotFound
	}
	f.resendCalls = append(f.resendCalls, email)
	return nil
}

func (f *fakeDirectory) SignOut(_ context.Context, _ string) error {
	f.signOutCalls++
	return nil
}

func directoryNewIdentity(email, password string) directory.NewIdentity {
	return directory.NewIdentity{
		Email:       email,
		Password:    password,
		DisplayName: "Seeded",
		Role:        domain.RoleLearner,
	}
}

// fakeProfileRepo is an in-memory profile store.
type fakeProfileRepo struct {
	profiles    map[string]*domain.Profile
	createCalls int
}

func newFakeProfileRepo() *fakeProfileRepo {
	return &fakeProfileRepo{profiles: make(map[string]*domain.Profile)}
}

func (f *fakeProfileRepo) put(profile *domain.Profile) {
	copied := *profile
	f.profiles[profile.ID] = &copied
}

func (f *fakeProfileRepo) Create(_ context.Context, profile *domain.Profile) error {
	if _, ok := f.profiles[profile.ID]; ok {
		return errors.New("duplicate profile")
	}
	f.createCalls++
	now := time.Now()
	profile.CreatedAt = now
	profile.UpdatedAt = now
	f.put(profile)
	return nil
}

func (f *fakeProfileRepo) Update(_ context.Context, profile *domain.Profile) error {
	if _, ok := f.profiles[profile.ID]; !ok {
		return pgx.ErrNoRows
	}
	profile.UpdatedAt = time.Now()
	f.put(profile)
	return nil
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*domain.Profile, error) {
	profile, ok := f.profiles[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *profile
	return &copied, nil
}

func (f *fakeProfileRepo) TouchLastSeen(_ context.Context, id string, at time.Time) error {
	profile, ok := f.profiles[id]
	if !ok {
		return pgx.ErrNoRows
	}
	profile.LastSeenAt = &at
	return nil
}

// fakeTeacherRepo records teacher-extension creations.
type fakeTeacherRepo struct {
	extensions map[string]*repository.TeacherExtension
}

func newFakeTeacherRepo() *fakeTeacherRepo {
	return &fakeTeacherRepo{extensions: make(map[string]*repository.TeacherExtension)}
}

func (f *fakeTeacherRepo) Create(_ context.Context, ext *repository.TeacherExtension) error {
	if _, ok := f.extensions[ext.ProfileID]; ok {
		return nil
	}
	ext.CreatedAt = time.Now()
	f.extensions[ext.ProfileID] = ext
	return nil
}

func (f *fakeTeacherRepo) GetByProfileID(_ context.Context, profileID string) (*repository.TeacherExtension, error) {
	ext, ok := f.extensions[profileID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return ext, nil
}
