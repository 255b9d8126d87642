package domain

import "time"

// Identity is a credential-directory record. Credentials themselves stay
// inside the directory; only the id/email pair crosses into this service.
type Identity struct {
	ID             string
	Email          string
	EmailConfirmed bool
	CreatedAt      time.Time
}
