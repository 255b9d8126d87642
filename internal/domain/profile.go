package domain

import (
	"fmt"
	"time"
)

// Role enumerates application roles for authenticated subjects.
type Role string

const (
	RoleLearner Role = "learner"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// ParseRole validates a raw role value at the store boundary.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleLearner, RoleTeacher, RoleAdmin:
		return Role(raw), nil
	}
	return "", fmt.Errorf("unknown role: %q", raw)
}

// AccountStatus enumerates lifecycle states for a profile.
type AccountStatus string

const (
	StatusPendingVerification AccountStatus = "pending_verification"
	StatusActive              AccountStatus = "active"
	StatusSuspended           AccountStatus = "suspended"
)

// ParseAccountStatus validates a raw status value at the store boundary.
func ParseAccountStatus(raw string) (AccountStatus, error) {
	switch AccountStatus(raw) {
	case StatusPendingVerification, StatusActive, StatusSuspended:
		return AccountStatus(raw), nil
	}
	return "", fmt.Errorf("unknown account status: %q", raw)
}

// Profile is the application-level record for an authenticated subject.
// ID equals the credential-directory subject id; exactly one profile exists
// per directory identity.
type Profile struct {
	ID          string
	DisplayName string
	Role        Role
	Status      AccountStatus
	LastSeenAt  *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
