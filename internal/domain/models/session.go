package models

import "time"

// User roles.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User is an identity record. Lifecycle (signup, password, refresh) is owned
// by the auth layer; this service only reads it.
type User struct {
	ID           int64  `db:"id" json:"id"`
	Role         string `db:"role" json:"role"`
	FullName     string `db:"full_name" json:"full_name"`
	Subscription string `db:"subscription" json:"subscription"` // opaque plan identifier
}

// Session maps an opaque token to a user with an expiry.
type Session struct {
	Token     string    `db:"token" json:"-"`
	UserID    int64     `db:"user_id" json:"user_id"`
	ExpiresAt time.Time `db:"expires_at" json:"expires_at"`
}

// Expired reports whether the session is past its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
