// Package google obtains a verified Google ID token for federated sign-in.
// The token is what POST /api/auth/google expects as its idToken.
package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const Issuer = "https://accounts.google.com"

// Identity is the subset of ID token claims the client uses.
type Identity struct {
	Subject       string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Nonce         string `json:"nonce"`
}

// Flow runs the OAuth2 authorization-code flow with PKCE against Google and
// verifies the returned ID token.
type Flow struct {
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
	client   *http.Client
}

type options struct {
	issuer string
	client *http.Client
}

type Option func(*options)

// WithIssuer points discovery at another OpenID provider.
func WithIssuer(issuer string) Option {
	return func(o *options) {
		o.issuer = issuer
	}
}

func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// New discovers the provider configuration and builds the flow.
func New(ctx context.Context, cfg config.GoogleConfig, opts ...Option) (*Flow, error) {
	o := options{issuer: Issuer}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.GetGoogleClientID() == "" {
		return nil, errors.New("[google New] client id is not configured")
	}

	if o.client != nil {
		ctx = oidc.ClientContext(ctx, o.client)
	}
	provider, err := oidc.NewProvider(ctx, o.issuer)
	if err != nil {
		return nil, errors.Wrap(err, "[google New] failed to discover provider")
	}

	return &Flow{
		oauth: &oauth2.Config{
			ClientID:     cfg.GetGoogleClientID(),
			ClientSecret: cfg.GetGoogleClientSecret(),
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.GetGoogleRedirectURL(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.GetGoogleClientID()}),
		client:   o.client,
	}, nil
}

// AuthCodeURL returns the consent page URL. verifier is the PKCE code
// verifier, sent as its S256 challenge.
func (f *Flow) AuthCodeURL(state, verifier, nonce string) string {
	return authCodeURL(f.oauth, state, verifier, nonce)
}

func authCodeURL(cfg *oauth2.Config, state, verifier, nonce string) string {
	return cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier), oidc.Nonce(nonce))
}

// Exchange trades the authorization code for tokens and returns the raw,
// verified ID token with its claims.
func (f *Flow) Exchange(ctx context.Context, code, verifier, nonce string) (string, *Identity, error) {
	return f.exchange(ctx, f.oauth, code, verifier, nonce)
}

func (f *Flow) exchange(ctx context.Context, cfg *oauth2.Config, code, verifier, nonce string) (string, *Identity, error) {
	if f.client != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	}

	token, err := cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", nil, errors.Wrap(err, "[Flow Exchange] token exchange failed")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return "", nil, errors.New("[Flow Exchange] no id_token in token response")
	}

	if f.client != nil {
		ctx = oidc.ClientContext(ctx, f.client)
	}
	idToken, err := f.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Flow Exchange] id token verification failed")
	}

	var identity Identity
	if err := idToken.Claims(&identity); err != nil {
		return "", nil, errors.Wrap(err, "[Flow Exchange] failed to read claims")
	}
	if identity.Nonce != nonce {
		return "", nil, errors.New("[Flow Exchange] nonce mismatch")
	}
	return rawIDToken, &identity, nil
}

// Login drives the whole flow for a terminal: it listens on the loopback
// redirect address, hands the consent URL to open and waits for the browser
// to come back. A redirect URL with port 0 listens on any free port.
func (f *Flow) Login(ctx context.Context, open func(authURL string) error) (string, *Identity, error) {
	redirect, err := url.Parse(f.oauth.RedirectURL)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Flow Login] invalid redirect url")
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return "", nil, errors.Wrap(err, "[Flow Login] failed to listen for the redirect")
	}
	redirect.Host = listener.Addr().String()

	cfg := *f.oauth
	cfg.RedirectURL = redirect.String()

	state := randomString(24)
	nonce := randomString(24)
	verifier := oauth2.GenerateVerifier()

	result := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc(redirect.Path, func(w http.ResponseWriter, r *http.Request) {
		cb := readCallback(r, state)
		if cb.err != nil {
			http.Error(w, cb.err.Error(), http.StatusBadRequest)
		} else {
			_, _ = w.Write([]byte("Signed in. You can close this window."))
		}
		select {
		case result <- cb:
		default:
		}
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Msg("loopback redirect server stopped")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := open(authCodeURL(&cfg, state, verifier, nonce)); err != nil {
		return "", nil, errors.Wrap(err, "[Flow Login] failed to open the consent page")
	}

	select {
	case <-ctx.Done():
		return "", nil, ctx.Err()
	case cb := <-result:
		if cb.err != nil {
			return "", nil, cb.err
		}
		return f.exchange(ctx, &cfg, cb.code, verifier, nonce)
	}
}

type callbackResult struct {
	code string
	err  error
}

func readCallback(r *http.Request, state string) callbackResult {
	q := r.URL.Query()
	if e := q.Get("error"); e != "" {
		return callbackResult{err: errors.Errorf("[Flow Login] authorization failed: %s %s", e, q.Get("error_description"))}
	}
	if q.Get("state") != state {
		return callbackResult{err: errors.New("[Flow Login] invalid state parameter")}
	}
	code := q.Get("code")
	if code == "" {
		return callbackResult{err: errors.New("[Flow Login] missing code parameter")}
	}
	return callbackResult{code: code}
}

func randomString(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}
