package auth

// Backend routes. Paths are fixed by the server.
const (
	RouteLogin              = "/api/auth/login"
	RouteRegister           = "/api/auth/register"
	RouteGoogle             = "/api/auth/google"
	RouteLogout             = "/api/auth/logout"
	RouteResendVerification = "/api/auth/resend-verification"
	RouteVerifyEmail        = "/api/auth/verify-email"
	RoutePassword           = "/api/auth/account/password"
	RouteDeleteAccount      = "/api/auth/account"
	RouteAccount            = "/api/users/account"
	RoutePlan               = "/api/users/account/plan"
)
