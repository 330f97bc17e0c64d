// Package server is the HTTP boundary. It translates requests into auth
// service calls and renders results and domain errors to JSON, cookies and
// status codes; no business rules live here.
package server

import (
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-account-service/auth"
	"github.com/jrsteele09/go-account-service/auth/oauth"
	"github.com/jrsteele09/go-account-service/internal/config"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
)

type Server struct {
	env     string // Environment (e.g. "DEV", "PROD")
	mux     *http.ServeMux
	routes  []string
	handler http.Handler
	config  *config.Config
	auth    *auth.Service
	oauth   oauth.Provider // nil when Google sign-in is not configured
	logger  zerolog.Logger
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithOAuthProvider enables the OAuth sign-in routes.
func WithOAuthProvider(provider oauth.Provider) Option {
	return func(s *Server) {
		s.oauth = provider
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

func New(cfg *config.Config, authService *auth.Service, options ...Option) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		config: cfg,
		auth:   authService,
		logger: zerolog.Nop(),
	}
	s.env = cfg.Server.Env

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Cors.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	s.handler = corsHandler.Handler(s.mux)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Printf("[%-19s] %s\n", displayMethod, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
