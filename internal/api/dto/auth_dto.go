package dto

import (
	"time"

	"github.com/spec-kit/vocab-service/internal/domain"
)

// RegisterRequest payload for new accounts.
type RegisterRequest struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Role        string `json:"role,omitempty"`
}

// LoginRequest payload for login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// EmailRequest payload for forgot-password and verification resend.
type EmailRequest struct {
	Email string `json:"email"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ProfileResponse is the user payload returned by auth endpoints.
type ProfileResponse struct {
	ID          string     `json:"id"`
	DisplayName string     `json:"display_name"`
	Email       string     `json:"email,omitempty"`
	Role        string     `json:"role"`
	Status      string     `json:"status"`
	LastSeenAt  *time.Time `json:"last_seen_at,omitempty"`
}

// NewProfileResponse maps a domain profile into the response shape.
func NewProfileResponse(profile *domain.Profile, email string) ProfileResponse {
	return ProfileResponse{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Email:       email,
		Role:        string(profile.Role),
		Status:      string(profile.Status),
		LastSeenAt:  profile.LastSeenAt,
	}
}
