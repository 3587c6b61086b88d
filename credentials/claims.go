package credentials

import (
	jwtlib "github.com/golang-jwt/jwt/v5"
)

// providerFromClaims reads the provider claim from a bearer token without
// verifying it. The result only seeds the cached tag; the server remains
// the authority.
func providerFromClaims(token string) Provider {
	if token == "" {
		return ProviderUnknown
	}

	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(token, claims); err != nil {
		return ProviderUnknown
	}

	p, _ := claims["provider"].(string)
	return ParseProvider(p)
}
