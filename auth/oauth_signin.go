package auth

import (
	"context"

	"github.com/jrsteele09/go-account-service/auth/oauth"
	"github.com/jrsteele09/go-account-service/users"
	"github.com/pkg/errors"
)

// SignInWithOAuth links a verified external identity to an account and signs
// it in. A matching email attaches the provider id to the existing account; a
// new email creates a passwordless account for the provider.
func (s *Service) SignInWithOAuth(ctx context.Context, identity *oauth.Identity, client ClientInfo) (*users.User, *TokenPair, error) {
	if identity == nil || identity.Email == "" || !identity.EmailVerified {
		return nil, nil, ErrInvalidEmail
	}
	email := normalizeEmail(identity.Email)
	if !emailPattern.MatchString(email) {
		return nil, nil, ErrInvalidEmail
	}

	user, err := s.repos.Users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, users.ErrNotFound):
		user = users.New(identity.FirstName, identity.LastName, email, "", users.ProviderGoogle)
		user.GoogleID = identity.Subject
	case err != nil:
		return nil, nil, errors.Wrap(err, "[Service.SignInWithOAuth] users.FindByEmail")
	default:
		if !user.IsActive() {
			return nil, nil, &AccountInactiveError{Status: user.Status}
		}
		if user.GoogleID == "" {
			user.GoogleID = identity.Subject
		}
	}

	user.RecordLogin()
	if err := s.repos.Users.Save(ctx, user); err != nil {
		return nil, nil, errors.Wrap(err, "[Service.SignInWithOAuth] users.Save")
	}

	pair, err := s.issuePair(ctx, user, client)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info().Str("user_id", user.ID).Str("session_id", pair.SessionID).Msg("oauth sign-in")
	return user, pair, nil
}
