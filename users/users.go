// Package users holds the user aggregate and the pure account-lockout logic
// that gates sign-in attempts.
package users

import (
	"time"
)

// AuthProviderType identifies how the account was created.
type AuthProviderType string

const (
	ProviderEmail  AuthProviderType = "email"
	ProviderGoogle AuthProviderType = "google"
)

// StatusType is the account lifecycle state.
type StatusType string

const (
	StatusActive    StatusType = "active"
	StatusSuspended StatusType = "suspended"
	StatusDeleted   StatusType = "deleted"
)

// User is the account aggregate. It is an owned, single-writer value per
// request; cross-request concurrency is handled at the persistence layer.
type User struct {
	ID           string           `json:"id,omitempty"`         // Unique identifier for the user
	Email        string           `json:"email,omitempty"`      // User's email address
	FirstName    string           `json:"first_name,omitempty"` // First name of the user
	LastName     string           `json:"last_name,omitempty"`  // Last name of the user
	PasswordHash string           `json:"-"`                    // Hashed version of the user's password - never serialize
	AuthProvider AuthProviderType `json:"auth_provider,omitempty"`
	GoogleID     string           `json:"google_id,omitempty"`
	Status       StatusType       `json:"status,omitempty"`

	LoginAttempts int        `json:"login_attempts,omitempty"` // Consecutive failed password attempts
	LockedUntil   *time.Time `json:"locked_until,omitempty"`   // Non-nil only while a lock is pending or active

	LastLoginAt time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time `json:"created_at,omitempty"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}

// New creates an active user with zeroed lockout state.
func New(firstName, lastName, email, passwordHash string, provider AuthProviderType) *User {
	now := time.Now()
	return &User{
		FirstName:    firstName,
		LastName:     lastName,
		Email:        email,
		PasswordHash: passwordHash,
		AuthProvider: provider,
		Status:       StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// IsLocked reports whether a timed lock is currently in effect.
func (u *User) IsLocked() bool {
	if u.LockedUntil == nil {
		return false
	}
	return time.Now().Before(*u.LockedUntil)
}

// RecordLogin marks a successful login: the attempt counter and any lock are
// reset, and the login timestamp is updated.
func (u *User) RecordLogin() {
	u.LoginAttempts = 0
	u.LockedUntil = nil
	u.LastLoginAt = time.Now()
	u.UpdatedAt = time.Now()
}

// RecordFailedLogin increments the failed-attempt counter and, once it
// reaches maxAttempts, sets a lock that expires after lockWindow.
func (u *User) RecordFailedLogin(maxAttempts int, lockWindow time.Duration) {
	u.LoginAttempts++
	u.UpdatedAt = time.Now()

	if u.LoginAttempts >= maxAttempts {
		until := time.Now().Add(lockWindow)
		u.LockedUntil = &until
	}
}

// IsActive reports whether the account may authenticate at all.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}
