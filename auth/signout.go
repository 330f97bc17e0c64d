package auth

import (
	"context"

	"github.com/jrsteele09/go-account-service/token"
	"github.com/jrsteele09/go-account-service/users"
	"github.com/pkg/errors"
)

// SignOut ends the session an access token belongs to and blacklists the
// token for whatever lifetime it has left.
func (s *Service) SignOut(ctx context.Context, accessToken string) error {
	claims, err := s.authority.VerifyAccessToken(accessToken)
	if err != nil {
		return token.ErrInvalidToken
	}

	if err := s.repos.Sessions.BlacklistToken(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return errors.Wrap(err, "[Service.SignOut] sessions.BlacklistToken")
	}
	if err := s.repos.Sessions.Invalidate(ctx, claims.SessionID); err != nil {
		return errors.Wrap(err, "[Service.SignOut] sessions.Invalidate")
	}

	s.logger.Info().Str("session_id", claims.SessionID).Msg("user signed out")
	return nil
}

// SignOutEverywhere ends every live session the user has.
func (s *Service) SignOutEverywhere(ctx context.Context, userID string) error {
	if err := s.repos.Sessions.InvalidateAllForUser(ctx, userID); err != nil {
		return errors.Wrap(err, "[Service.SignOutEverywhere] sessions.InvalidateAllForUser")
	}

	s.logger.Info().Str("user_id", userID).Msg("user signed out everywhere")
	return nil
}

// CurrentUser resolves an access token to its user, rejecting blacklisted
// tokens.
func (s *Service) CurrentUser(ctx context.Context, accessToken string) (*users.User, error) {
	claims, err := s.authority.VerifyAccessToken(accessToken)
	if err != nil {
		return nil, token.ErrInvalidToken
	}

	blacklisted, err := s.repos.Sessions.IsTokenBlacklisted(ctx, claims.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CurrentUser] sessions.IsTokenBlacklisted")
	}
	if blacklisted {
		return nil, token.ErrInvalidToken
	}

	user, err := s.repos.Users.FindByEmail(ctx, claims.Email)
	if errors.Is(err, users.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.CurrentUser] users.FindByEmail")
	}

	return user, nil
}
