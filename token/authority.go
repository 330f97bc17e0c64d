// Package token issues and verifies the signed access and refresh tokens that
// carry a session's identity. Access and refresh tokens are signed with
// independent secrets so possession of one can never be used to forge the
// other.
package token

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrInvalidToken is returned by the Verify methods for any token that fails
// signature, structure, or expiry checks. Invalid input is an expected
// outcome, not a defect; no partial claims are ever returned alongside it.
var ErrInvalidToken = errors.New("invalid token")

// AccessClaims are the claims carried by an access token. The token id (jti)
// lives in RegisteredClaims.ID and the user id in RegisteredClaims.Subject.
type AccessClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
	Email     string `json:"email"`
}

// RefreshClaims are the claims carried by a refresh token. The jti binds the
// token to its session record; the session store holds the one jti that is
// currently valid for each session.
type RefreshClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// Authority mints and verifies token pairs.
type Authority struct {
	accessSigner  Signer
	refreshSigner Signer
	accessExpiry  time.Duration
	refreshExpiry time.Duration
	nowFunc       func() time.Time
}

// AuthorityOption defines a function type to modify the Authority instance.
type AuthorityOption func(*Authority)

// WithTokenExpiry sets the access and refresh token lifetimes.
func WithTokenExpiry(accessExpiry, refreshExpiry time.Duration) AuthorityOption {
	return func(a *Authority) {
		a.accessExpiry = accessExpiry
		a.refreshExpiry = refreshExpiry
	}
}

// WithNowFunc sets the clock (primarily for testing).
func WithNowFunc(now func() time.Time) AuthorityOption {
	return func(a *Authority) {
		a.nowFunc = now
	}
}

// NewAuthority creates an Authority from the two signing secrets. Missing or
// shared secrets are a configuration defect and fail here, at startup, rather
// than on a per-request basis.
func NewAuthority(accessSecret, refreshSecret string, options ...AuthorityOption) (*Authority, error) {
	if strings.TrimSpace(accessSecret) == "" {
		return nil, errors.New("[NewAuthority] access token secret is required")
	}
	if strings.TrimSpace(refreshSecret) == "" {
		return nil, errors.New("[NewAuthority] refresh token secret is required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("[NewAuthority] access and refresh secrets must differ")
	}

	a := &Authority{
		accessSigner:  NewHMACSigner(accessSecret),
		refreshSigner: NewHMACSigner(refreshSecret),
		nowFunc:       time.Now,
	}

	for _, opt := range options {
		opt(a)
	}

	if a.accessExpiry == 0 {
		a.accessExpiry = 15 * time.Minute
	}
	if a.refreshExpiry == 0 {
		a.refreshExpiry = 7 * 24 * time.Hour
	}

	return a, nil
}

// IssueAccessToken signs an access token for the user. An empty jti is
// replaced with a fresh one.
func (a *Authority) IssueAccessToken(jti, sessionID, userID, email string) (string, error) {
	if jti == "" {
		jti = uuid.New().String()
	}
	now := a.nowFunc()
	claims := AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.accessExpiry)),
		},
		SessionID: sessionID,
		Email:     email,
	}

	signed, err := a.accessSigner.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Authority.IssueAccessToken] Sign")
	}
	return signed, nil
}

// IssueRefreshToken signs a refresh token bound to the session via sid and to
// the session's stored jti.
func (a *Authority) IssueRefreshToken(jti, sessionID, userID string) (string, error) {
	if jti == "" {
		jti = uuid.New().String()
	}
	now := a.nowFunc()
	claims := RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.refreshExpiry)),
		},
		SessionID: sessionID,
	}

	signed, err := a.refreshSigner.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Authority.IssueRefreshToken] Sign")
	}
	return signed, nil
}

// VerifyAccessToken checks signature and expiry and returns the claims, or
// ErrInvalidToken for anything an attacker could have supplied.
func (a *Authority) VerifyAccessToken(rawToken string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := a.verify(rawToken, a.accessSigner, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken checks signature and expiry and returns the claims, or
// ErrInvalidToken.
func (a *Authority) VerifyRefreshToken(rawToken string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := a.verify(rawToken, a.refreshSigner, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

func (a *Authority) verify(rawToken string, signer Signer, claims jwt.Claims) error {
	if strings.TrimSpace(rawToken) == "" {
		return ErrInvalidToken
	}

	parsed, err := jwt.ParseWithClaims(rawToken, claims, signer.GetVerificationKey,
		jwt.WithValidMethods([]string{signer.GetSigningMethod().Alg()}),
		jwt.WithTimeFunc(a.nowFunc),
	)
	if err != nil || !parsed.Valid {
		return ErrInvalidToken
	}
	return nil
}

// AccessTokenTTL exposes the configured access token lifetime so callers can
// compute absolute expiry timestamps without re-deriving configuration.
func (a *Authority) AccessTokenTTL() time.Duration {
	return a.accessExpiry
}

// RefreshTokenTTL exposes the configured refresh token lifetime.
func (a *Authority) RefreshTokenTTL() time.Duration {
	return a.refreshExpiry
}
