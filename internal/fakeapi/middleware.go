package fakeapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

type contextKey string

const contextKeyUserID contextKey = "user_id"

func ChainMiddleware(routeFunction http.HandlerFunc, mw ...func(http.HandlerFunc) http.HandlerFunc) http.HandlerFunc {
	chainedHandler := routeFunction
	// Apply middleware in reverse order
	for i := len(mw) - 1; i >= 0; i-- {
		chainedHandler = mw[i](chainedHandler)
	}
	return chainedHandler
}

func (s *Server) LoggingMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Msg("fakeapi request")
		next(w, r)
	}
}

// RequireAuth validates the bearer token and puts its subject on the context.
// A token whose user no longer exists is rejected like an expired one.
func (s *Server) RequireAuth() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
				s.writeError(w, http.StatusUnauthorized, codeUnauthorized, "Missing or malformed Authorization header.")
				return
			}

			claims, err := s.issuer.Verify(parts[1])
			if err != nil {
				s.writeError(w, http.StatusUnauthorized, codeUnauthorized, "Access token invalid or expired.")
				return
			}
			if _, err := s.users.GetByID(claims.Subject); err != nil {
				s.writeError(w, http.StatusUnauthorized, codeUnauthorized, "Access token invalid or expired.")
				return
			}

			ctx := context.WithValue(r.Context(), contextKeyUserID, claims.Subject)
			next(w, r.WithContext(ctx))
		}
	}
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(contextKeyUserID).(string)
	return id
}
