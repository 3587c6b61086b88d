package fakeapi

import (
	"context"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// GoogleIdentity is what the backend extracts from a Google ID token.
type GoogleIdentity struct {
	Email         string
	Name          string
	EmailVerified bool
}

// GoogleVerifier checks an ID token presented to /api/auth/google.
type GoogleVerifier func(ctx context.Context, idToken string) (*GoogleIdentity, error)

type googleClaims struct {
	Email         string `json:"email"`
	Name          string `json:"name"`
	EmailVerified bool   `json:"email_verified"`
	jwtlib.RegisteredClaims
}

// GoogleIDToken mints an ID token the default verifier accepts.
func (s *Server) GoogleIDToken(email, name string, emailVerified bool) (string, error) {
	now := s.nowTime()
	claims := googleClaims{
		Email:         email,
		Name:          name,
		EmailVerified: emailVerified,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Issuer:    "https://accounts.google.com",
			Subject:   email,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(time.Hour)),
		},
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.googleSecret)
	if err != nil {
		return "", errors.Wrap(err, "[Server GoogleIDToken] failed to sign id token")
	}
	return signed, nil
}

func (s *Server) verifyGoogleIDToken(_ context.Context, idToken string) (*GoogleIdentity, error) {
	claims := &googleClaims{}
	_, err := jwtlib.ParseWithClaims(idToken, claims,
		func(*jwtlib.Token) (any, error) { return s.googleSecret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithIssuer("https://accounts.google.com"),
		jwtlib.WithTimeFunc(s.nowTime),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Server verifyGoogleIDToken] invalid id token")
	}
	return &GoogleIdentity{Email: claims.Email, Name: claims.Name, EmailVerified: claims.EmailVerified}, nil
}
