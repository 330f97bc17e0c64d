// Package auth orchestrates the account lifecycle: sign-up, sign-in with
// lockout, refresh-token rotation, sign-out, OTP password reset and OAuth
// linking. It owns the user-facing error taxonomy; the stores it drives live
// in the sub-packages.
package auth

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/auth/otp"
	"github.com/jrsteele09/go-account-service/auth/sessions"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/jrsteele09/go-account-service/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

const (
	defaultMaxLoginAttempts = 5
	defaultLockoutWindow    = 15 * time.Minute
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ClientInfo is the client fingerprint captured at session creation and
// checked on every refresh.
type ClientInfo struct {
	IPAddress string
	UserAgent string
}

// TokenPair is a freshly minted access/refresh token pair and the session
// they are bound to.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	SessionID    string `json:"session_id"`
}

// Mailer delivers the forgot-password email. Delivery failures do not fail
// the reset request; the adapter is expected to retry on its own.
type Mailer interface {
	SendForgotPasswordEmail(ctx context.Context, to, code string) error
}

// Repos holds all store dependencies for the Service.
type Repos struct {
	Users    users.UserRepo  // User directory
	Sessions *sessions.Store // Session records, user index, token blacklist
	Reset    *otp.Store      // OTP and reset-token records
}

// Service provides the account authentication operations.
type Service struct {
	repos          Repos
	authority      *token.Authority
	mailer         Mailer
	logger         zerolog.Logger
	nowTime        func() time.Time // nowTime function (injectable for testing)
	maxAttempts    int
	lockWindow     time.Duration
	matchIPAddress bool
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithMailer sets the forgot-password mail dispatcher.
func WithMailer(mailer Mailer) ServiceOption {
	return func(s *Service) {
		s.mailer = mailer
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithLockoutPolicy overrides the failed-attempt threshold and lock window.
func WithLockoutPolicy(maxAttempts int, lockWindow time.Duration) ServiceOption {
	return func(s *Service) {
		s.maxAttempts = maxAttempts
		s.lockWindow = lockWindow
	}
}

// WithIPBinding makes refresh reject tokens presented from a different IP
// than the one the session was created with. Off by default: mobile clients
// change address on every network handoff.
func WithIPBinding(match bool) ServiceOption {
	return func(s *Service) {
		s.matchIPAddress = match
	}
}

// NewService initializes a Service with required dependencies.
// Optional configuration can be provided via options (e.g. WithNowTime for testing).
func NewService(repos Repos, authority *token.Authority, options ...ServiceOption) (*Service, error) {
	if repos.Users == nil {
		return nil, errors.New("[NewService] Users repo is required")
	}
	if repos.Sessions == nil {
		return nil, errors.New("[NewService] Sessions store is required")
	}
	if repos.Reset == nil {
		return nil, errors.New("[NewService] Reset store is required")
	}
	if authority == nil {
		return nil, errors.New("[NewService] authority is required")
	}

	service := &Service{
		repos:       repos,
		authority:   authority,
		logger:      zerolog.Nop(),
		nowTime:     time.Now,
		maxAttempts: defaultMaxLoginAttempts,
		lockWindow:  defaultLockoutWindow,
	}

	for _, opt := range options {
		opt(service)
	}

	return service, nil
}

// SignUp registers a new email/password account and signs it in.
func (s *Service) SignUp(ctx context.Context, firstName, lastName, email, password string, client ClientInfo) (*users.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, nil, ErrInvalidEmail
	}
	if rules := users.ValidatePasswordStrength(password); len(rules) > 0 {
		return nil, nil, &InvalidPasswordError{Rules: rules}
	}

	exists, err := s.repos.Users.ExistsByEmail(ctx, email)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.SignUp] users.ExistsByEmail")
	}
	if exists {
		return nil, nil, ErrEmailAlreadyExists
	}

	hash, err := users.HashPassword(password)
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.SignUp] users.HashPassword")
	}

	user := users.New(firstName, lastName, email, hash, users.ProviderEmail)
	if err := s.repos.Users.Save(ctx, user); err != nil {
		return nil, nil, errors.Wrap(err, "[Service.SignUp] users.Save")
	}

	pair, err := s.issuePair(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Msg("user signed up")
	return user, pair, nil
}

// SignIn authenticates an email/password pair and creates a session.
// Unknown emails and wrong passwords both yield ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, email, password string, client ClientInfo) (*users.User, *TokenPair, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return nil, nil, ErrInvalidEmail
	}

	user, err := s.repos.Users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "[Service.SignIn] users.FindByEmail")
	}

	if user.IsLocked() {
		return nil, nil, &AccountLockedError{Until: *user.LockedUntil}
	}
	if !user.IsActive() {
		return nil, nil, &AccountInactiveError{Status: user.Status}
	}

	if !users.CheckPasswordHash(password, user.PasswordHash) {
		user.RecordFailedLogin(s.maxAttempts, s.lockWindow)
		if err := s.repos.Users.Save(ctx, user); err != nil {
			return nil, nil, errors.Wrap(err, "[Service.SignIn] users.Save")
		}
		s.logger.Warn().Str("user_id", user.ID).Int("attempts", user.LoginAttempts).Msg("failed sign-in attempt")
		if user.IsLocked() {
			return nil, nil, &AccountLockedError{Until: *user.LockedUntil}
		}
		return nil, nil, ErrInvalidCredentials
	}

	user.RecordLogin()
	if err := s.repos.Users.Save(ctx, user); err != nil {
		return nil, nil, errors.Wrap(err, "[Service.SignIn] users.Save")
	}

	pair, err := s.issuePair(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("session_id", pair.SessionID).Msg("user signed in")
	return user, pair, nil
}

// issuePair creates a session for the user and mints the token pair bound to
// it. Both tokens carry the same jti, which the session stores as its current
// one.
func (s *Service) issuePair(ctx context.Context, user *users.User, client ClientInfo) (*TokenPair, error) {
	jti := uuid.NewString()

	sessionID, err := s.repos.Sessions.Create(ctx, sessions.Data{
		UserID:    user.ID,
		Email:     user.Email,
		JTI:       jti,
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	})
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issuePair] sessions.Create")
	}

	accessToken, err := s.authority.IssueAccessToken(jti, sessionID, user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issuePair] authority.IssueAccessToken")
	}
	refreshToken, err := s.authority.IssueRefreshToken(jti, sessionID, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.issuePair] authority.IssueRefreshToken")
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		SessionID:    sessionID,
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
