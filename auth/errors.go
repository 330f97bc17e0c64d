package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jrsteele09/go-account-service/users"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password alike,
	// so callers cannot probe which emails exist.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidRefreshToken is returned when a refresh token fails
	// verification or its session no longer exists.
	ErrInvalidRefreshToken = errors.New("invalid refresh token")

	// ErrSessionNotFound is returned when the session named by a token
	// does not exist.
	ErrSessionNotFound = errors.New("session not found")

	// ErrRefreshTokenMismatch signals a token whose jti is not the
	// session's current one. The session has been invalidated.
	ErrRefreshTokenMismatch = errors.New("refresh token mismatch")

	// ErrUserNotFound is returned when a session's user no longer exists.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidOtp covers wrong codes and unknown or expired reset tokens.
	ErrInvalidOtp = errors.New("invalid otp")

	// ErrEmailAlreadyExists is returned on sign-up with a taken email.
	ErrEmailAlreadyExists = errors.New("email already exists")

	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email")

	// ErrAccountLocked is the target for AccountLockedError.
	ErrAccountLocked = errors.New("account locked")

	// ErrAccountInactive is the target for AccountInactiveError.
	ErrAccountInactive = errors.New("account inactive")

	// ErrInvalidPassword is the target for InvalidPasswordError.
	ErrInvalidPassword = errors.New("invalid password")
)

// AccountLockedError is returned when sign-in is refused because the account
// is locked out after repeated failures. Until is when the lock expires.
type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked until %s", e.Until.Format(time.RFC3339))
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// AccountInactiveError is returned when an operation is refused because the
// account is suspended or deleted.
type AccountInactiveError struct {
	Status users.StatusType
}

func (e *AccountInactiveError) Error() string {
	return fmt.Sprintf("account inactive: %s", e.Status)
}

func (e *AccountInactiveError) Is(target error) bool {
	return target == ErrAccountInactive
}

// InvalidPasswordError carries the strength rules a candidate password broke.
type InvalidPasswordError struct {
	Rules []string
}

func (e *InvalidPasswordError) Error() string {
	return "invalid password: " + strings.Join(e.Rules, "; ")
}

func (e *InvalidPasswordError) Is(target error) bool {
	return target == ErrInvalidPassword
}
