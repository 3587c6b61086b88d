// Package guard decides whether a credential-protected view may be entered.
//
// Each entry starts in StateBooting and ends in StateAuthenticated with a
// fresh principal, StateRedirecting to the sign-in page with a reason, or
// StateCancelled when the caller went away before the outcome was applied.
package guard

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
)

const (
	RouteAccount = "/api/users/account"
	RouteLogout  = "/api/auth/logout"
)

type State int

const (
	StateBooting State = iota
	StateAuthenticated
	StateRedirecting
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateAuthenticated:
		return "authenticated"
	case StateRedirecting:
		return "redirecting"
	case StateCancelled:
		return "cancelled"
	default:
		return "booting"
	}
}

// Reason explains a redirect to the sign-in page.
type Reason string

const (
	ReasonNone    Reason = "none"    // there was no session
	ReasonExpired Reason = "expired" // the backend refused the session
	ReasonError   Reason = "error"   // the profile could not be loaded
	ReasonLogout  Reason = "logout"
)

// Outcome is the result of one guard evaluation.
type Outcome struct {
	State     State
	Reason    Reason                 // set when State is StateRedirecting
	Target    string                 // sign-in URL when State is StateRedirecting
	Principal *credentials.Principal // set when State is StateAuthenticated
	Err       error                  // the failure behind an expired or error redirect
}

type Guard struct {
	exec    *client.Executor
	store   *credentials.Store
	metrics *metrics.Metrics

	signInPath  string
	defaultNext string
	retries     uint64
	backoff     time.Duration
}

type Option func(*Guard)

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Guard) {
		g.metrics = m
	}
}

// WithRetry overrides the bounded retry of transient profile failures.
// Zero retries drops the session on the first transient failure.
func WithRetry(retries uint64, backoff time.Duration) Option {
	return func(g *Guard) {
		g.retries = retries
		g.backoff = backoff
	}
}

func New(exec *client.Executor, store *credentials.Store, cfg config.SessionConfig, opts ...Option) (*Guard, error) {
	if exec == nil || store == nil {
		return nil, errors.New("[guard New] executor and credential store are required")
	}

	g := &Guard{
		exec:        exec,
		store:       store,
		signInPath:  cfg.GetSignInPath(),
		defaultNext: cfg.GetDefaultNext(),
		retries:     cfg.GetBootstrapRetries(),
		backoff:     cfg.GetBootstrapBackoff(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.backoff <= 0 {
		g.backoff = time.Millisecond
	}
	return g, nil
}

// Enter evaluates entry into the view at requestedPath. Nothing is written to
// the store once ctx is done.
func (g *Guard) Enter(ctx context.Context, requestedPath string) Outcome {
	if !g.store.HasToken() {
		return g.finish(ctx, g.redirect(ReasonNone, requestedPath, nil), g.store.Clear)
	}

	me, err := g.loadProfile(ctx)
	switch {
	case err == nil:
		return g.finish(ctx, Outcome{State: StateAuthenticated, Principal: me}, func() {
			g.store.SetPrincipal(me)
		})
	case isSessionRefused(err):
		return g.finish(ctx, g.redirect(ReasonExpired, requestedPath, err), g.store.Clear)
	default:
		return g.finish(ctx, g.redirect(ReasonError, requestedPath, err), g.store.Clear)
	}
}

// Logout ends the session: a best-effort server logout followed by an
// unconditional local clear. It runs even if ctx is already done.
func (g *Guard) Logout(ctx context.Context) Outcome {
	if _, err := g.exec.Do(ctx, client.Request{Method: http.MethodPost, Path: RouteLogout}); err != nil {
		log.Debug().Err(err).Msg("server logout failed, clearing local session anyway")
	}
	g.store.Clear()

	out := Outcome{State: StateRedirecting, Reason: ReasonLogout, Target: g.target(ReasonLogout, "")}
	g.record(out)
	return out
}

// finish applies the outcome's side effect unless ctx is done, in which case
// the evaluation is reported as cancelled with no effect.
func (g *Guard) finish(ctx context.Context, out Outcome, apply func()) Outcome {
	if ctx.Err() != nil {
		out = Outcome{State: StateCancelled, Err: ctx.Err()}
		g.record(out)
		return out
	}

	apply()
	if out.State == StateRedirecting {
		log.Info().Str("reason", string(out.Reason)).Str("target", out.Target).Msg("redirecting to sign-in")
	}
	g.record(out)
	return out
}

func (g *Guard) loadProfile(ctx context.Context) (*credentials.Principal, error) {
	var me *credentials.Principal
	backoff := retry.WithMaxRetries(g.retries, retry.NewExponential(g.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		p, err := client.Call[*credentials.Principal](ctx, g.exec, client.Request{Method: http.MethodGet, Path: RouteAccount})
		if err != nil {
			if isTransient(ctx, err) {
				log.Debug().Err(err).Msg("transient profile failure, retrying")
				return retry.RetryableError(err)
			}
			return err
		}
		if p == nil {
			return errors.New("[Guard loadProfile] empty profile response")
		}
		me = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return me, nil
}

func (g *Guard) redirect(reason Reason, requestedPath string, err error) Outcome {
	return Outcome{
		State:  StateRedirecting,
		Reason: reason,
		Target: g.target(reason, requestedPath),
		Err:    err,
	}
}

// target builds the sign-in URL. The reason is omitted when there was no
// session at all; next is omitted on logout.
func (g *Guard) target(reason Reason, next string) string {
	q := url.Values{}
	if reason != ReasonNone {
		q.Set("reason", string(reason))
	}
	if next != "" && reason != ReasonLogout {
		q.Set("next", next)
	}
	if len(q) == 0 {
		return g.signInPath
	}
	return g.signInPath + "?" + q.Encode()
}

func (g *Guard) record(out Outcome) {
	g.metrics.Guard(out.State.String(), string(out.Reason))
}

// SafeNext returns next when it is a local, non-auth page and fallback
// otherwise. Auth pages would bounce the user straight back to sign-in.
func SafeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return fallback
	}
	for _, p := range []string{"/login", "/register", "/verify-email"} {
		if strings.HasPrefix(next, p) {
			return fallback
		}
	}
	return next
}

// isSessionRefused reports a 401 or 403: the backend no longer accepts the
// session.
func isSessionRefused(err error) bool {
	status := client.StatusOf(err)
	return status == http.StatusUnauthorized || status == http.StatusForbidden
}

// isTransient reports failures worth retrying: no response at all, or a 5xx.
func isTransient(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var transportErr *client.TransportError
	if errors.As(err, &transportErr) {
		return true
	}
	return client.StatusOf(err) >= 500
}
