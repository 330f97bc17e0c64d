package server

const (
	RouteSignUp        = "/auth/signup"
	RouteSignIn        = "/auth/signin"
	RouteRefresh       = "/auth/refresh"
	RouteSignOut       = "/auth/signout"
	RouteSignOutAll    = "/auth/signout-all"
	RouteMe            = "/auth/me"
	RouteResetRequest  = "/auth/password-reset/request"
	RouteResetVerify   = "/auth/password-reset/verify"
	RouteResetConfirm  = "/auth/password-reset/confirm"
	RouteOAuthGoogle   = "/auth/oauth/google"
	RouteOAuthCallback = "/auth/callback"
	RouteHealth        = "/healthz"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	s.RegisterRouteHandler("POST "+RouteSignUp, ChainMiddleware(s.SignUpHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignIn, ChainMiddleware(s.SignInHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignOut, ChainMiddleware(s.SignOutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteSignOutAll, ChainMiddleware(s.SignOutAllHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("POST "+RouteResetRequest, ChainMiddleware(s.ResetRequestHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResetVerify, ChainMiddleware(s.ResetVerifyHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteResetConfirm, ChainMiddleware(s.ResetConfirmHandler(), s.APIMiddleware()...))

	if s.oauth != nil {
		s.RegisterRouteHandler("GET "+RouteOAuthGoogle, ChainMiddleware(s.OAuthStartHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("GET "+RouteOAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...))
		s.RegisterRouteHandler("POST "+RouteOAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.APIMiddleware()...)) // For form_post response mode
	}
}
