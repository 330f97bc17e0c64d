// Package otp stores the one-time codes and opaque reset tokens used by the
// password-reset flow. Both record kinds are single-use and TTL-bound; no
// state survives beyond the cache.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"time"

	"github.com/jrsteele09/go-account-service/cache"
	"github.com/pkg/errors"
)

const (
	otpKeyPrefix        = "reset-otp:"
	resetTokenKeyPrefix = "reset-otp-token:"
)

// CodePattern matches a well-formed OTP: exactly six digits.
var CodePattern = regexp.MustCompile(`^\d{6}$`)

// GenerateCode returns a cryptographically random 6-digit code.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", errors.Wrap(err, "[GenerateCode] rand.Int")
	}
	return fmt.Sprintf("%d", n.Int64()+100000), nil
}

// Store keeps email→OTP and reset-token→email records with independent TTLs.
type Store struct {
	cache         cache.Store
	otpTTL        time.Duration
	resetTokenTTL time.Duration
}

// NewStore creates an OTP store with the two record lifetimes.
func NewStore(cacheStore cache.Store, otpTTL, resetTokenTTL time.Duration) *Store {
	return &Store{
		cache:         cacheStore,
		otpTTL:        otpTTL,
		resetTokenTTL: resetTokenTTL,
	}
}

// SetOTP stores the current code for an email, replacing any previous one.
func (s *Store) SetOTP(ctx context.Context, email, code string) error {
	if err := s.cache.Set(ctx, otpKeyPrefix+email, []byte(code), s.otpTTL); err != nil {
		return errors.Wrap(err, "[Store.SetOTP] cache.Set")
	}
	return nil
}

// GetOTP returns the stored code for an email, or "" when none exists.
func (s *Store) GetOTP(ctx context.Context, email string) (string, error) {
	raw, err := s.cache.Get(ctx, otpKeyPrefix+email)
	if errors.Is(err, cache.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.GetOTP] cache.Get")
	}
	return string(raw), nil
}

// DeleteOTP removes the code for an email; codes are single-use.
func (s *Store) DeleteOTP(ctx context.Context, email string) error {
	if err := s.cache.Delete(ctx, otpKeyPrefix+email); err != nil {
		return errors.Wrap(err, "[Store.DeleteOTP] cache.Delete")
	}
	return nil
}

// SetResetToken binds an opaque reset token to the email it was issued for.
func (s *Store) SetResetToken(ctx context.Context, token, email string) error {
	if err := s.cache.Set(ctx, resetTokenKeyPrefix+token, []byte(email), s.resetTokenTTL); err != nil {
		return errors.Wrap(err, "[Store.SetResetToken] cache.Set")
	}
	return nil
}

// GetResetToken returns the email a reset token was issued for, or "" when
// the token is unknown or expired.
func (s *Store) GetResetToken(ctx context.Context, token string) (string, error) {
	raw, err := s.cache.Get(ctx, resetTokenKeyPrefix+token)
	if errors.Is(err, cache.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", errors.Wrap(err, "[Store.GetResetToken] cache.Get")
	}
	return string(raw), nil
}

// DeleteResetToken removes a reset token; tokens are single-use.
func (s *Store) DeleteResetToken(ctx context.Context, token string) error {
	if err := s.cache.Delete(ctx, resetTokenKeyPrefix+token); err != nil {
		return errors.Wrap(err, "[Store.DeleteResetToken] cache.Delete")
	}
	return nil
}
