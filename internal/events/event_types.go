package events

import "time"

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventAccountLocked     EventType = "account_locked"
	EventAccountRegistered EventType = "account_registered"
	EventLoginSucceeded    EventType = "login_succeeded"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Email     string      `json:"email"`
	SubjectID string      `json:"subject_id,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// AccountLockedPayload payload.
type AccountLockedPayload struct {
	Attempts    int       `json:"attempts"`
	IPAddress   string    `json:"ip_address"`
	LockedUntil time.Time `json:"locked_until"`
	Reason      string    `json:"reason"`
}

// AccountRegisteredPayload payload.
type AccountRegisteredPayload struct {
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

// LoginSucceededPayload payload.
type LoginSucceededPayload struct {
	IPAddress string `json:"ip_address"`
}
