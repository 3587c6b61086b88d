// Package fakeapi is an in-process implementation of the backend HTTP surface
// the client talks to. It keeps users, refresh tokens and verification tokens
// in memory and exposes hooks that count, fail or delay individual routes.
package fakeapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/pkg/errors"
)

const (
	defaultAccessTokenTTL  = 15 * time.Minute
	defaultRefreshTTL      = 30 * 24 * time.Hour
	defaultVerificationTTL = 24 * time.Hour
)

type Server struct {
	mux    *http.ServeMux
	routes []string

	users         *userRepo
	issuer        *tokenIssuer
	refresh       *refreshManager
	verifications *verificationStore
	hooks         *hooks

	google       GoogleVerifier
	googleSecret []byte

	accessTTL       time.Duration
	refreshTTL      time.Duration
	verificationTTL time.Duration
	nowTime         func() time.Time
}

type Option func(*Server)

// WithNowTime sets the clock used for token expiry.
func WithNowTime(nowFunc func() time.Time) Option {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

func WithAccessTokenTTL(d time.Duration) Option {
	return func(s *Server) {
		s.accessTTL = d
	}
}

func WithVerificationTTL(d time.Duration) Option {
	return func(s *Server) {
		s.verificationTTL = d
	}
}

// WithGoogleVerifier replaces the default identity token check.
func WithGoogleVerifier(v GoogleVerifier) Option {
	return func(s *Server) {
		s.google = v
	}
}

func New(options ...Option) *Server {
	s := &Server{
		mux:             http.NewServeMux(),
		users:           newUserRepo(),
		hooks:           newHooks(),
		googleSecret:    []byte("fakeapi-google-secret"),
		accessTTL:       defaultAccessTokenTTL,
		refreshTTL:      defaultRefreshTTL,
		verificationTTL: defaultVerificationTTL,
		nowTime:         time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	now := func() time.Time { return s.nowTime() }
	s.issuer = &tokenIssuer{secret: []byte("fakeapi-access-secret"), ttl: s.accessTTL, now: now}
	s.refresh = newRefreshManager(s.refreshTTL, now)
	s.verifications = newVerificationStore(s.verificationTTL, now)
	if s.google == nil {
		s.google = s.verifyGoogleIDToken
	}

	s.initRoutes()
	return s
}

// NewTestServer starts the fake on a local listener that is closed when the
// test ends.
func NewTestServer(t testing.TB, options ...Option) (*Server, *httptest.Server) {
	t.Helper()
	s := New(options...)
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)
	return s, ts
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler http.HandlerFunc) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, ChainMiddleware(handler, s.LoggingMiddleware, s.hooks.middleware(pattern)))
}

// Routes lists the registered route patterns.
func (s *Server) Routes() []string {
	return append([]string(nil), s.routes...)
}

// AddUser seeds a local account.
func (s *Server) AddUser(email, password, fullName string, verified bool) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, errors.Wrap(err, "[Server AddUser] failed to hash password")
	}
	return s.insertUser(&User{
		Email:        email,
		FullName:     fullName,
		PasswordHash: hash,
		Provider:     ProviderLocal,
		Verified:     verified,
	})
}

// AddGoogleUser seeds a federated account.
func (s *Server) AddGoogleUser(email, fullName string) (*User, error) {
	return s.insertUser(&User{
		Email:    email,
		FullName: fullName,
		Provider: ProviderGoogle,
		Verified: true,
	})
}

func (s *Server) insertUser(u *User) (*User, error) {
	now := s.nowTime()
	u.Plan = PlanFree
	u.CreatedAt = now
	u.UpdatedAt = now
	if err := s.users.Insert(u); err != nil {
		return nil, err
	}
	return s.users.GetByEmail(u.Email)
}

// User returns the stored account for email.
func (s *Server) User(email string) (*User, bool) {
	u, err := s.users.GetByEmail(email)
	return u, err == nil
}

// VerificationToken returns the most recent verification token mailed to
// email, or "".
func (s *Server) VerificationToken(email string) string {
	return s.verifications.Latest(email)
}

// RefreshTokens returns how many live refresh tokens userID holds.
func (s *Server) RefreshTokens(userID string) int {
	return s.refresh.Count(userID)
}

// IssueAccessToken mints a bearer token for an existing user without a login.
func (s *Server) IssueAccessToken(email string) (string, error) {
	u, err := s.users.GetByEmail(email)
	if err != nil {
		return "", errors.Wrap(err, "[Server IssueAccessToken]")
	}
	return s.issuer.Issue(u)
}
