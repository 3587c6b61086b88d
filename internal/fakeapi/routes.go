package fakeapi

const (
	RouteAuthLogin              = "/api/auth/login"
	RouteAuthRegister           = "/api/auth/register"
	RouteAuthGoogle             = "/api/auth/google"
	RouteAuthRefresh            = "/api/auth/refresh"
	RouteAuthLogout             = "/api/auth/logout"
	RouteAuthResendVerification = "/api/auth/resend-verification"
	RouteAuthVerifyEmail        = "/api/auth/verify-email"
	RouteAuthPassword           = "/api/auth/account/password"
	RouteAuthAccount            = "/api/auth/account"
	RouteUsersAccount           = "/api/users/account"
	RouteUsersPlan              = "/api/users/account/plan"

	RefreshCookieName = "VIDOPS_REFRESH"
	refreshCookiePath = "/api/auth"
)

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("POST "+RouteAuthRegister, s.RegisterHandler())
	s.RegisterRouteFunc("POST "+RouteAuthLogin, s.LoginHandler())
	s.RegisterRouteFunc("POST "+RouteAuthGoogle, s.GoogleLoginHandler())
	s.RegisterRouteFunc("POST "+RouteAuthRefresh, s.RefreshHandler())
	s.RegisterRouteFunc("POST "+RouteAuthLogout, s.LogoutHandler())
	s.RegisterRouteFunc("POST "+RouteAuthResendVerification, s.ResendVerificationHandler())
	s.RegisterRouteFunc("POST "+RouteAuthVerifyEmail, s.VerifyEmailHandler())

	s.RegisterRouteFunc("PATCH "+RouteAuthPassword, ChainMiddleware(s.ChangePasswordHandler(), s.RequireAuth()))
	s.RegisterRouteFunc("DELETE "+RouteAuthAccount, ChainMiddleware(s.DeleteAccountHandler(), s.RequireAuth()))

	s.RegisterRouteFunc("GET "+RouteUsersAccount, ChainMiddleware(s.AccountHandler(), s.RequireAuth()))
	s.RegisterRouteFunc("PATCH "+RouteUsersAccount, ChainMiddleware(s.UpdateAccountHandler(), s.RequireAuth()))
	s.RegisterRouteFunc("PATCH "+RouteUsersPlan, ChainMiddleware(s.ChangePlanHandler(), s.RequireAuth()))
}
