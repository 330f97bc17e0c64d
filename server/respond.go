package server

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-account-service/auth"
	"github.com/jrsteele09/go-account-service/token"
	"github.com/pkg/errors"
)

const refreshTokenCookieName = "refreshToken"

// Stable machine-readable error codes, mapped 1:1 from the domain taxonomy.
const (
	codeInvalidCredentials   = "invalid_credentials"
	codeAccountLocked        = "account_locked"
	codeAccountInactive      = "account_inactive"
	codeInvalidToken         = "invalid_token"
	codeInvalidRefreshToken  = "invalid_refresh_token"
	codeSessionNotFound      = "session_not_found"
	codeRefreshTokenMismatch = "refresh_token_mismatch"
	codeUserNotFound         = "user_not_found"
	codeInvalidOtp           = "invalid_otp"
	codeEmailAlreadyExists   = "email_already_exists"
	codeInvalidEmail         = "invalid_email"
	codeInvalidPassword      = "invalid_password"
	codeBadRequest           = "bad_request"
	codeInternalError        = "internal_error"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			s.logger.Error().Err(err).Msg("response encoding failed")
		}
	}
}

func (s *Server) respondError(w http.ResponseWriter, status int, code, message string, details any) {
	s.respondJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message, Details: details}})
}

// respondDomainError maps a service error onto a status code and stable error
// code. Anything outside the taxonomy is an infrastructure failure and is
// reported as a generic internal error.
func (s *Server) respondDomainError(w http.ResponseWriter, err error) {
	var lockedErr *auth.AccountLockedError
	var inactiveErr *auth.AccountInactiveError
	var passwordErr *auth.InvalidPasswordError

	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		s.respondError(w, http.StatusUnauthorized, codeInvalidCredentials, "invalid credentials", nil)
	case errors.As(err, &lockedErr):
		s.respondError(w, http.StatusForbidden, codeAccountLocked, "account locked", map[string]any{"locked_until": lockedErr.Until})
	case errors.As(err, &inactiveErr):
		s.respondError(w, http.StatusForbidden, codeAccountInactive, "account inactive", map[string]any{"status": inactiveErr.Status})
	case errors.Is(err, auth.ErrInvalidRefreshToken):
		s.respondError(w, http.StatusUnauthorized, codeInvalidRefreshToken, "invalid refresh token", nil)
	case errors.Is(err, auth.ErrSessionNotFound):
		s.respondError(w, http.StatusUnauthorized, codeSessionNotFound, "session not found", nil)
	case errors.Is(err, auth.ErrRefreshTokenMismatch):
		s.respondError(w, http.StatusUnauthorized, codeRefreshTokenMismatch, "refresh token mismatch", nil)
	case errors.Is(err, auth.ErrUserNotFound):
		s.respondError(w, http.StatusUnauthorized, codeUserNotFound, "user not found", nil)
	case errors.Is(err, token.ErrInvalidToken):
		s.respondError(w, http.StatusUnauthorized, codeInvalidToken, "invalid token", nil)
	case errors.Is(err, auth.ErrInvalidOtp):
		s.respondError(w, http.StatusBadRequest, codeInvalidOtp, "invalid or expired code", nil)
	case errors.Is(err, auth.ErrEmailAlreadyExists):
		s.respondError(w, http.StatusConflict, codeEmailAlreadyExists, "email already exists", nil)
	case errors.Is(err, auth.ErrInvalidEmail):
		s.respondError(w, http.StatusBadRequest, codeInvalidEmail, "invalid email", nil)
	case errors.As(err, &passwordErr):
		s.respondError(w, http.StatusBadRequest, codeInvalidPassword, "invalid password", map[string]any{"rules": passwordErr.Rules})
	default:
		s.logger.Error().Err(err).Msg("request failed")
		s.respondError(w, http.StatusInternalServerError, codeInternalError, "internal error", nil)
	}
}

func decodeBody(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// clientInfo builds the fingerprint the session layer binds tokens to.
func clientInfo(r *http.Request) auth.ClientInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		ip = strings.TrimSpace(strings.Split(ip, ",")[0])
	} else if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	} else {
		ip = r.RemoteAddr
	}

	return auth.ClientInfo{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
	}
}

// bearerToken extracts the access token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "Bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

func (s *Server) setRefreshTokenCookie(w http.ResponseWriter, r *http.Request, refreshToken string) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    refreshToken,
		Path:     "/auth",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.config.Security.RefreshTokenTTL.Seconds()),
	})
}

func (s *Server) clearRefreshTokenCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshTokenCookieName,
		Value:    "",
		Path:     "/auth",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
