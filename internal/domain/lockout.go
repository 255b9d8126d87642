package domain

import "time"

// LockRecord marks an account as temporarily locked after repeated
// failed logins. Stored in Redis with a TTL equal to the lockout
// duration, so expiry is enforced by the store.
type LockRecord struct {
	Attempts    int       `json:"attempts"`
	IPAddress   string    `json:"ip_address"`
	LockedAt    time.Time `json:"locked_at"`
	LockedUntil time.Time `json:"locked_until"`
	Reason      string    `json:"reason"`
}

// RemainingMinutes reports whole minutes until the lock expires, never
// less than 1 while the record still exists.
func (r LockRecord) RemainingMinutes(now time.Time) int {
	remaining := r.LockedUntil.Sub(now)
	minutes := int((remaining + time.Minute - 1) / time.Minute)
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}

// AttemptStatus summarizes the counters after a tracked failed attempt.
type AttemptStatus struct {
	Attempts          int
	IPAttempts        int
	RemainingAttempts int
	Locked            bool
}
