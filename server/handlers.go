package server

import (
	"net/http"

	"github.com/jrsteele09/go-account-service/users"
)

type signUpRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type signInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type resetRequestRequest struct {
	Email string `json:"email"`
}

type resetVerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type resetConfirmRequest struct {
	ResetToken  string `json:"reset_token"`
	NewPassword string `json:"new_password"`
}

type authResponse struct {
	User        *users.User `json:"user"`
	AccessToken string      `json:"access_token"`
	SessionID   string      `json:"session_id"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signUpRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", nil)
			return
		}

		user, pair, err := s.auth.SignUp(r.Context(), req.FirstName, req.LastName, req.Email, req.Password, clientInfo(r))
		if err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.setRefreshTokenCookie(w, r, pair.RefreshToken)
		s.respondJSON(w, http.StatusCreated, authResponse{User: user, AccessToken: pair.AccessToken, SessionID: pair.SessionID})
	}
}

func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signInRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", nil)
			return
		}

		user, pair, err := s.auth.SignIn(r.Context(), req.Email, req.Password, clientInfo(r))
		if err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.setRefreshTokenCookie(w, r, pair.RefreshToken)
		s.respondJSON(w, http.StatusOK, authResponse{User: user, AccessToken: pair.AccessToken, SessionID: pair.SessionID})
	}
}

// RefreshHandler rotates a refresh token. The token arrives in the HttpOnly
// cookie; a JSON body works as a fallback for non-browser clients.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		refreshToken := ""
		if cookie, err := r.Cookie(refreshTokenCookieName); err == nil {
			refreshToken = cookie.Value
		}
		if refreshToken == "" {
			var req refreshRequest
			if err := decodeBody(r, &req); err == nil {
				refreshToken = req.RefreshToken
			}
		}
		if refreshToken == "" {
			s.respondError(w, http.StatusUnauthorized, codeInvalidRefreshToken, "missing refresh token", nil)
			return
		}

		pair, err := s.auth.Refresh(r.Context(), refreshToken, clientInfo(r))
		if err != nil {
			s.clearRefreshTokenCookie(w, r)
			s.respondDomainError(w, err)
			return
		}

		s.setRefreshTokenCookie(w, r, pair.RefreshToken)
		s.respondJSON(w, http.StatusOK, map[string]string{
			"access_token": pair.AccessToken,
			"session_id":   pair.SessionID,
		})
	}
}

func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			s.respondError(w, http.StatusUnauthorized, codeInvalidToken, "missing access token", nil)
			return
		}

		if err := s.auth.SignOut(r.Context(), accessToken); err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.clearRefreshTokenCookie(w, r)
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
	}
}

func (s *Server) SignOutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			s.respondError(w, http.StatusUnauthorized, codeInvalidToken, "missing access token", nil)
			return
		}

		user, err := s.auth.CurrentUser(r.Context(), accessToken)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}
		if err := s.auth.SignOutEverywhere(r.Context(), user.ID); err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.clearRefreshTokenCookie(w, r)
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "signed out everywhere"})
	}
}

func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		accessToken := bearerToken(r)
		if accessToken == "" {
			s.respondError(w, http.StatusUnauthorized, codeInvalidToken, "missing access token", nil)
			return
		}

		user, err := s.auth.CurrentUser(r.Context(), accessToken)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]*users.User{"user": user})
	}
}

func (s *Server) ResetRequestHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetRequestRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", nil)
			return
		}

		if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
			s.respondDomainError(w, err)
			return
		}

		// Identical response whether or not the account exists.
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "reset code sent if the account exists"})
	}
}

func (s *Server) ResetVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetVerifyRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", nil)
			return
		}

		resetToken, err := s.auth.VerifyPasswordReset(r.Context(), req.Email, req.Code)
		if err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]string{"reset_token": resetToken})
	}
}

func (s *Server) ResetConfirmHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetConfirmRequest
		if err := decodeBody(r, &req); err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "malformed request body", nil)
			return
		}

		if err := s.auth.ConfirmPasswordReset(r.Context(), req.ResetToken, req.NewPassword); err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.respondJSON(w, http.StatusOK, map[string]string{"status": "password updated"})
	}
}
