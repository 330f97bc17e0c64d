package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-account-service/auth/otp"
	"github.com/jrsteele09/go-account-service/users"
	"github.com/pkg/errors"
)

// RequestPasswordReset starts the OTP flow for an email. Unknown emails
// return success without doing anything, so the endpoint cannot be used to
// probe which accounts exist.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return ErrInvalidEmail
	}

	user, err := s.repos.Users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "[Service.RequestPasswordReset] users.FindByEmail")
	}
	if !user.IsActive() {
		return &AccountInactiveError{Status: user.Status}
	}

	code, err := otp.GenerateCode()
	if err != nil {
		return errors.Wrap(err, "[Service.RequestPasswordReset] otp.GenerateCode")
	}
	if err := s.repos.Reset.SetOTP(ctx, email, code); err != nil {
		return errors.Wrap(err, "[Service.RequestPasswordReset] reset.SetOTP")
	}

	if s.mailer != nil {
		if err := s.mailer.SendForgotPasswordEmail(ctx, email, code); err != nil {
			s.logger.Error().Err(err).Msg("forgot-password email dispatch failed")
		}
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset requested")
	return nil
}

// VerifyPasswordReset consumes an OTP and returns an opaque single-use reset
// token bound to the email. Wrong, expired and malformed codes all yield
// ErrInvalidOtp.
func (s *Service) VerifyPasswordReset(ctx context.Context, email, code string) (string, error) {
	email = normalizeEmail(email)
	if !emailPattern.MatchString(email) {
		return "", ErrInvalidEmail
	}
	if !otp.CodePattern.MatchString(code) {
		return "", ErrInvalidOtp
	}

	stored, err := s.repos.Reset.GetOTP(ctx, email)
	if err != nil {
		return "", errors.Wrap(err, "[Service.VerifyPasswordReset] reset.GetOTP")
	}
	if stored == "" || stored != code {
		return "", ErrInvalidOtp
	}

	if err := s.repos.Reset.DeleteOTP(ctx, email); err != nil {
		return "", errors.Wrap(err, "[Service.VerifyPasswordReset] reset.DeleteOTP")
	}

	resetToken := uuid.NewString()
	if err := s.repos.Reset.SetResetToken(ctx, resetToken, email); err != nil {
		return "", errors.Wrap(err, "[Service.VerifyPasswordReset] reset.SetResetToken")
	}

	return resetToken, nil
}

// ConfirmPasswordReset exchanges a reset token for a password change. The
// token is consumed whether or not it is reused later; unknown and expired
// tokens yield the same ErrInvalidOtp as a wrong code.
func (s *Service) ConfirmPasswordReset(ctx context.Context, resetToken, newPassword string) error {
	email, err := s.repos.Reset.GetResetToken(ctx, resetToken)
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmPasswordReset] reset.GetResetToken")
	}
	if email == "" {
		return ErrInvalidOtp
	}

	if rules := users.ValidatePasswordStrength(newPassword); len(rules) > 0 {
		return &InvalidPasswordError{Rules: rules}
	}

	hash, err := users.HashPassword(newPassword)
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmPasswordReset] users.HashPassword")
	}

	user, err := s.repos.Users.FindByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return errors.Wrap(err, "[Service.ConfirmPasswordReset] users.FindByEmail")
	}

	user.PasswordHash = hash
	user.UpdatedAt = s.nowTime()
	if err := s.repos.Users.Save(ctx, user); err != nil {
		return errors.Wrap(err, "[Service.ConfirmPasswordReset] users.Save")
	}

	if err := s.repos.Reset.DeleteResetToken(ctx, resetToken); err != nil {
		return errors.Wrap(err, "[Service.ConfirmPasswordReset] reset.DeleteResetToken")
	}

	s.logger.Info().Str("user_id", user.ID).Msg("password reset confirmed")
	return nil
}
