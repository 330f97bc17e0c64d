package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/auth/sessions"
	"github.com/jrsteele09/go-account-service/users"
	"github.com/pkg/errors"
)

// Refresh rotates a refresh token: the session's current jti is replaced and
// a new token pair is issued for the same session. A token whose jti is not
// the session's current one is treated as a replay; the session is destroyed
// and the caller must authenticate again. Fingerprint and user checks that
// fail are terminal in the same way.
func (s *Service) Refresh(ctx context.Context, refreshToken string, client ClientInfo) (*TokenPair, error) {
	claims, err := s.authority.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	session, err := s.repos.Sessions.Get(ctx, claims.SessionID)
	if errors.Is(err, sessions.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] sessions.Get")
	}

	if session.JTI != claims.ID {
		s.revokeSession(ctx, session.SessionID)
		s.logger.Warn().Str("session_id", session.SessionID).Msg("refresh token replay detected")
		return nil, ErrRefreshTokenMismatch
	}

	if session.UserAgent != client.UserAgent || (s.matchIPAddress && session.IPAddress != client.IPAddress) {
		s.revokeSession(ctx, session.SessionID)
		s.logger.Warn().Str("session_id", session.SessionID).Msg("refresh fingerprint mismatch")
		return nil, ErrRefreshTokenMismatch
	}

	user, err := s.repos.Users.FindByEmail(ctx, session.Email)
	if errors.Is(err, users.ErrNotFound) {
		s.revokeSession(ctx, session.SessionID)
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] users.FindByEmail")
	}
	if !user.IsActive() {
		s.revokeSession(ctx, session.SessionID)
		return nil, &AccountInactiveError{Status: user.Status}
	}

	jti := uuid.NewString()
	expiresAt := s.nowTime().Add(s.repos.Sessions.SessionTTL())
	if err := s.repos.Sessions.Extend(ctx, session.SessionID, jti, client.IPAddress, client.UserAgent, expiresAt); err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] sessions.Extend")
	}

	accessToken, err := s.authority.IssueAccessToken(jti, session.SessionID, user.ID, user.Email)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] authority.IssueAccessToken")
	}
	newRefreshToken, err := s.authority.IssueRefreshToken(jti, session.SessionID, user.ID)
	if err != nil {
		return nil, errors.Wrap(err, "[Service.Refresh] authority.IssueRefreshToken")
	}

	s.logger.Info().Str("session_id", session.SessionID).Msg("session refreshed")
	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		SessionID:    session.SessionID,
	}, nil
}

// revokeSession destroys a session as a corrective side effect of a failed
// refresh. The refresh outcome is already decided; a failed delete only gets
// logged.
func (s *Service) revokeSession(ctx context.Context, sessionID string) {
	if err := s.repos.Sessions.Invalidate(ctx, sessionID); err != nil {
		s.logger.Error().Err(err).Str("session_id", sessionID).Msg("session invalidation failed")
	}
}
