package server

import (
	"fmt"
	"net/http"

	"github.com/jrsteele09/go-account-service/auth/oauth"
)

const (
	oauthStateCookieName = "oauth_state"
	oauthNonceCookieName = "oauth_nonce"
	oauthFlowMaxAge      = 600 // seconds; the consent screen round trip
)

// OAuthStartHandler redirects the browser to the provider's consent screen.
// State and nonce travel in short-lived HttpOnly cookies so the callback can
// check them against what the provider echoes back.
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		state, err := oauth.GenerateState()
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, codeInternalError, "internal error", nil)
			return
		}
		nonce, err := oauth.GenerateState()
		if err != nil {
			s.respondError(w, http.StatusInternalServerError, codeInternalError, "internal error", nil)
			return
		}

		s.setFlowCookie(w, r, oauthStateCookieName, state)
		s.setFlowCookie(w, r, oauthNonceCookieName, nonce)

		http.Redirect(w, r, s.oauth.AuthCodeURL(state, nonce), http.StatusFound)
	}
}

func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// r.FormValue works for both query params and POST form data
		state := r.FormValue("state")
		code := r.FormValue("code")
		errorParam := r.FormValue("error")
		errorDesc := r.FormValue("error_description")

		if errorParam != "" {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, fmt.Sprintf("authorization failed: %s - %s", errorParam, errorDesc), nil)
			return
		}
		if code == "" || state == "" {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "missing code or state parameter", nil)
			return
		}

		stateCookie, err := r.Cookie(oauthStateCookieName)
		if err != nil || stateCookie.Value != state {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "invalid state parameter", nil)
			return
		}
		nonceCookie, err := r.Cookie(oauthNonceCookieName)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, codeBadRequest, "missing nonce", nil)
			return
		}

		// Clean up flow cookies after use
		s.clearFlowCookie(w, r, oauthStateCookieName)
		s.clearFlowCookie(w, r, oauthNonceCookieName)

		identity, err := s.oauth.Exchange(r.Context(), code, nonceCookie.Value)
		if err != nil {
			s.logger.Warn().Err(err).Msg("oauth exchange failed")
			s.respondError(w, http.StatusUnauthorized, codeBadRequest, "authorization failed", nil)
			return
		}

		user, pair, err := s.auth.SignInWithOAuth(r.Context(), identity, clientInfo(r))
		if err != nil {
			s.respondDomainError(w, err)
			return
		}

		s.setRefreshTokenCookie(w, r, pair.RefreshToken)
		s.respondJSON(w, http.StatusOK, map[string]any{
			"user":         user,
			"access_token": pair.AccessToken,
			"session_id":   pair.SessionID,
		})
	}
}

func (s *Server) setFlowCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     RouteOAuthCallback,
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   oauthFlowMaxAge,
	})
}

func (s *Server) clearFlowCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     RouteOAuthCallback,
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}
