package errorutil

import (
	"errors"
	"fmt"
	"net/http"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError("VALIDATION_FAILED", message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       "NOT_FOUND",
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError("UNAUTHORIZED", message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError("FORBIDDEN", message, http.StatusForbidden, nil)
}

// NewInvalidCredentials is deliberately generic: it never reveals which
// field was wrong or whether the account exists.
func NewInvalidCredentials() error {
	return NewDomainError("INVALID_CREDENTIALS", "invalid email or password", http.StatusUnauthorized, nil)
}

func NewTokenExpired() error {
	return NewDomainError("TOKEN_EXPIRED", "session token expired", http.StatusUnauthorized, nil)
}

func NewTokenInvalid() error {
	return NewDomainError("TOKEN_INVALID", "invalid session token", http.StatusUnauthorized, nil)
}

func NewAccountSuspended() error {
	return NewDomainError("ACCOUNT_SUSPENDED", "account is suspended", http.StatusForbidden, nil)
}

func NewEmailNotVerified() error {
	return NewDomainError("EMAIL_NOT_VERIFIED", "email address not verified", http.StatusForbidden, nil)
}

// NewAccountLocked reports a temporary lock with minutes remaining.
func NewAccountLocked(remainingMinutes int) error {
	return NewDomainError("ACCOUNT_LOCKED",
		fmt.Sprintf("account temporarily locked, try again in %d minutes", remainingMinutes),
		http.StatusTooManyRequests,
		map[string]any{"remaining_minutes": remainingMinutes})
}

func NewRateLimited() error {
	return NewDomainError("RATE_LIMITED", "too many attempts, try again later", http.StatusTooManyRequests, nil)
}

func NewDuplicateRegistration() error {
	return NewDomainError("DUPLICATE_REGISTRATION", "email already registered", http.StatusConflict, nil)
}

// NewProfileProvisioningFailed signals that the directory created an
// identity but no profile row appeared, i.e. the provisioning trigger
// did not run.
func NewProfileProvisioningFailed(err error) error {
	return &DomainError{
		Code:       "PROFILE_PROVISIONING_FAILED",
		Message:    "account provisioning failed",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError("CONFLICT", message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return &DomainError{
		Code:       "INTERNAL_ERROR",
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func MapError(err error) error {
	return ToDomainError(err)
}
