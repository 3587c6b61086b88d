package guard_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/memory"
	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/fakeapi"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const (
	testEmail   = "grace@example.com"
	accountCall = "GET " + fakeapi.RouteUsersAccount
)

type testFixture struct {
	fake    *fakeapi.Server
	backend *memory.Backend
	store   *credentials.Store
	metrics *metrics.Metrics
	guard   *guard.Guard
}

func setupTestFixture(t *testing.T, opts ...guard.Option) *testFixture {
	t.Helper()

	fake, ts := fakeapi.NewTestServer(t)
	_, err := fake.AddUser(testEmail, "password123", "Grace Hopper", true)
	require.NoError(t, err)

	transport := &http.Transport{}
	t.Cleanup(transport.CloseIdleConnections)

	backend := memory.New()
	store := credentials.NewStore(backend)
	m := metrics.New(nil)
	exec, err := client.New(ts.URL, store,
		client.WithHTTPClient(&http.Client{Transport: transport, Timeout: 5 * time.Second}),
		client.WithRenewalTimeout(2*time.Second),
	)
	require.NoError(t, err)

	opts = append([]guard.Option{guard.WithMetrics(m), guard.WithRetry(2, time.Millisecond)}, opts...)
	g, err := guard.New(exec, store, config.Session{}, opts...)
	require.NoError(t, err)

	return &testFixture{fake: fake, backend: backend, store: store, metrics: m, guard: g}
}

func (f *testFixture) signIn(t *testing.T) {
	t.Helper()
	token, err := f.fake.IssueAccessToken(testEmail)
	require.NoError(t, err)
	f.store.SignIn(token, credentials.ProviderLocal)
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := guard.New(nil, credentials.NewStore(memory.New()), config.Session{})
	require.Error(t, err)
}

func TestEnterWithoutTokenRedirectsWithoutRequest(t *testing.T) {
	f := setupTestFixture(t)
	f.store.SetProvider(credentials.ProviderLocal)

	out := f.guard.Enter(context.Background(), "/app/videos")

	require.Equal(t, guard.StateRedirecting, out.State)
	require.Equal(t, guard.ReasonNone, out.Reason)
	require.Equal(t, "/login?next=%2Fapp%2Fvideos", out.Target)
	require.Equal(t, 0, f.fake.Calls(accountCall))
	require.Equal(t, 0, f.backend.Len())
}

func TestEnterAuthenticatesAndCachesPrincipal(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)

	out := f.guard.Enter(context.Background(), "/app")

	require.Equal(t, guard.StateAuthenticated, out.State)
	require.Equal(t, testEmail, out.Principal.Email)
	cached, ok := f.store.Principal()
	require.True(t, ok)
	require.Equal(t, "Grace Hopper", cached.FullName)
	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.GuardTotal.WithLabelValues("authenticated", "")))
}

func TestEnterRefusedSessionIsExpired(t *testing.T) {
	tests := []struct {
		name   string
		status int
	}{
		{name: "forbidden", status: http.StatusForbidden},
		{name: "unauthorized", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.signIn(t)
			f.fake.FailNext(accountCall, tt.status, `{"error":"nope"}`)

			out := f.guard.Enter(context.Background(), "/app/billing")

			require.Equal(t, guard.StateRedirecting, out.State)
			require.Equal(t, guard.ReasonExpired, out.Reason)
			require.Equal(t, "/login?next=%2Fapp%2Fbilling&reason=expired", out.Target)
			require.Equal(t, tt.status, client.StatusOf(out.Err))
			require.False(t, f.store.HasToken())
			require.Equal(t, 0, f.backend.Len())
		})
	}
}

func TestEnterRetriesTransientFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)
	f.fake.FailNext(accountCall, http.StatusServiceUnavailable, "")

	out := f.guard.Enter(context.Background(), "/app")

	require.Equal(t, guard.StateAuthenticated, out.State)
	require.Equal(t, 2, f.fake.Calls(accountCall))
	require.True(t, f.store.HasToken())
}

func TestEnterPersistentFailureDropsSession(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)
	for i := 0; i < 3; i++ {
		f.fake.FailNext(accountCall, http.StatusInternalServerError, `{"message":"boom"}`)
	}

	out := f.guard.Enter(context.Background(), "/app")

	require.Equal(t, guard.StateRedirecting, out.State)
	require.Equal(t, guard.ReasonError, out.Reason)
	require.Equal(t, 3, f.fake.Calls(accountCall))
	require.False(t, f.store.HasToken())
}

func TestEnterWithoutRetriesFailsFast(t *testing.T) {
	f := setupTestFixture(t, guard.WithRetry(0, time.Millisecond))
	f.signIn(t)
	f.fake.FailNext(accountCall, http.StatusBadGateway, "")

	out := f.guard.Enter(context.Background(), "/app")

	require.Equal(t, guard.ReasonError, out.Reason)
	require.Equal(t, 1, f.fake.Calls(accountCall))
}

func TestEnterCancelledLeavesStoreUntouched(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)
	f.fake.Delay(accountCall, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	out := f.guard.Enter(ctx, "/app")

	require.Equal(t, guard.StateCancelled, out.State)
	require.ErrorIs(t, out.Err, context.Canceled)
	require.True(t, f.store.HasToken())
	_, cached := f.store.Principal()
	require.False(t, cached)
}

func TestLogoutClearsEvenWhenServerFails(t *testing.T) {
	f := setupTestFixture(t)
	f.signIn(t)
	f.fake.FailNext("POST "+fakeapi.RouteAuthLogout, http.StatusServiceUnavailable, "")

	out := f.guard.Logout(context.Background())

	require.Equal(t, guard.StateRedirecting, out.State)
	require.Equal(t, guard.ReasonLogout, out.Reason)
	require.Equal(t, "/login?reason=logout", out.Target)
	require.Equal(t, 0, f.backend.Len())
}

func TestSafeNext(t *testing.T) {
	tests := []struct {
		next string
		want string
	}{
		{next: "/app/videos?page=2", want: "/app/videos?page=2"},
		{next: "", want: "/app"},
		{next: "https://evil.example", want: "/app"},
		{next: "//evil.example", want: "/app"},
		{next: "/login?next=/app", want: "/app"},
		{next: "/verify-email?token=x", want: "/app"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, guard.SafeNext(tt.next, "/app"), tt.next)
	}
}
