package client_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/memory"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

const (
	oldToken   = "old-token"
	freshToken = "fresh-token"
)

// testFixture wires an executor to an httptest server. Requests to the
// refresh route are counted and answered by refresh; everything else goes to
// api.
type testFixture struct {
	server       *httptest.Server
	store        *credentials.Store
	exec         *client.Executor
	metrics      *metrics.Metrics
	refreshCalls atomic.Int32
	apiCalls     atomic.Int32
}

func setupTestFixture(t *testing.T, api http.HandlerFunc, refresh http.HandlerFunc) *testFixture {
	t.Helper()

	f := &testFixture{
		store:   credentials.NewStore(memory.New()),
		metrics: metrics.New(prometheus.NewRegistry()),
	}

	f.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == client.RouteRefresh {
			f.refreshCalls.Add(1)
			if refresh == nil {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			refresh(w, r)
			return
		}
		f.apiCalls.Add(1)
		api(w, r)
	}))

	httpClient := &http.Client{Transport: &http.Transport{}}
	t.Cleanup(func() {
		f.server.Close()
		httpClient.CloseIdleConnections()
	})

	exec, err := client.New(f.server.URL, f.store,
		client.WithHTTPClient(httpClient),
		client.WithMetrics(f.metrics),
		client.WithRenewalTimeout(2*time.Second),
	)
	require.NoError(t, err)
	f.exec = exec
	return f
}

func bearer(r *http.Request) string {
	return strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
}

// requireFreshToken rejects every request not carrying freshToken.
func requireFreshToken(w http.ResponseWriter, r *http.Request) {
	if bearer(r) != freshToken {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"unauthorized","message":"token expired"}`)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"ok":true}`)
}

func refreshOK(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, `{"accessToken":"`+freshToken+`","tokenType":"Bearer","expiresInSeconds":900}`)
}

func TestNew_RejectsBadBaseURL(t *testing.T) {
	_, err := client.New("not a url", credentials.NewStore(memory.New()))
	require.Error(t, err)

	_, err = client.New("http://localhost", nil)
	require.Error(t, err)
}

func TestDo_SuccessBodies(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			_, _ = io.WriteString(w, `{"id":"u1","credits":3}`)
		case "/text":
			_, _ = io.WriteString(w, "pong")
		case "/empty":
			w.WriteHeader(http.StatusNoContent)
		}
	}, nil)
	ctx := context.Background()

	res, err := f.exec.Do(ctx, client.Request{Path: "/json"})
	require.NoError(t, err)
	require.Equal(t, client.BodyJSON, res.Body.Kind)
	var out struct {
		ID      string `json:"id"`
		Credits int    `json:"credits"`
	}
	require.NoError(t, res.Body.Decode(&out))
	require.Equal(t, "u1", out.ID)

	res, err = f.exec.Do(ctx, client.Request{Path: "/text"})
	require.NoError(t, err)
	require.Equal(t, client.BodyText, res.Body.Kind)
	require.Equal(t, "pong", res.Body.Text())
	require.Error(t, res.Body.Decode(&out))

	res, err = f.exec.Do(ctx, client.Request{Method: http.MethodDelete, Path: "/empty"})
	require.NoError(t, err)
	require.Equal(t, client.BodyEmpty, res.Body.Kind)
	require.Equal(t, http.StatusNoContent, res.Status)
}

func TestCall_Generic(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/json":
			_, _ = io.WriteString(w, `{"plan":"PRO"}`)
		case "/text":
			_, _ = io.WriteString(w, "accepted")
		}
	}, nil)
	ctx := context.Background()

	type plan struct {
		Plan string `json:"plan"`
	}
	p, err := client.Call[plan](ctx, f.exec, client.Request{Path: "/json"})
	require.NoError(t, err)
	require.Equal(t, "PRO", p.Plan)

	s, err := client.Call[string](ctx, f.exec, client.Request{Path: "/text"})
	require.NoError(t, err)
	require.Equal(t, "accepted", s)

	_, err = client.Call[plan](ctx, f.exec, client.Request{Path: "/text"})
	require.Error(t, err)

	var empty *plan
	empty, err = client.Call[*plan](ctx, f.exec, client.Request{Path: "/nothing"})
	require.NoError(t, err)
	require.Nil(t, empty)
}

func TestDo_Headers(t *testing.T) {
	var got http.Header
	var gotBody []byte
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}, nil)
	ctx := context.Background()

	t.Run("no token, no body", func(t *testing.T) {
		_, err := f.exec.Do(ctx, client.Request{Path: "/x"})
		require.NoError(t, err)
		require.Empty(t, got.Get("Authorization"))
		require.Empty(t, got.Get("Content-Type"))
		require.NotEmpty(t, got.Get("X-Request-ID"))
	})

	t.Run("structured body is JSON encoded", func(t *testing.T) {
		f.store.SetToken("abc")
		defer f.store.SetToken("")

		_, err := f.exec.Do(ctx, client.Request{
			Method: http.MethodPost,
			Path:   "/x",
			Body:   map[string]string{"email": "a@b.com"},
		})
		require.NoError(t, err)
		require.Equal(t, "Bearer abc", got.Get("Authorization"))
		require.Equal(t, "application/json", got.Get("Content-Type"))
		require.JSONEq(t, `{"email":"a@b.com"}`, string(gotBody))
	})

	t.Run("caller content type wins", func(t *testing.T) {
		_, err := f.exec.Do(ctx, client.Request{
			Method: http.MethodPost,
			Path:   "/x",
			Body:   []byte(`{}`),
			Header: http.Header{"Content-Type": []string{"application/merge-patch+json"}},
		})
		require.NoError(t, err)
		require.Equal(t, "application/merge-patch+json", got.Get("Content-Type"))
	})

	t.Run("raw reader gets no content type", func(t *testing.T) {
		_, err := f.exec.Do(ctx, client.Request{
			Method: http.MethodPost,
			Path:   "/x",
			Body:   bytes.NewReader([]byte{0x1, 0x2}),
		})
		require.NoError(t, err)
		require.Empty(t, got.Get("Content-Type"))
		require.Equal(t, []byte{0x1, 0x2}, gotBody)
	})

	t.Run("raw bytes get no content type", func(t *testing.T) {
		payload := []byte{0x89, 'P', 'N', 'G'}
		_, err := f.exec.Do(ctx, client.Request{
			Method: http.MethodPut,
			Path:   "/thumbnail",
			Body:   payload,
		})
		require.NoError(t, err)
		require.Empty(t, got.Get("Content-Type"))
		require.Equal(t, payload, gotBody)
	})

	t.Run("raw json message is JSON", func(t *testing.T) {
		_, err := f.exec.Do(ctx, client.Request{
			Method: http.MethodPost,
			Path:   "/x",
			Body:   json.RawMessage(`{"plan":"PRO"}`),
		})
		require.NoError(t, err)
		require.Equal(t, "application/json", got.Get("Content-Type"))
		require.JSONEq(t, `{"plan":"PRO"}`, string(gotBody))
	})

	t.Run("multipart keeps its boundary", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("name", "clip"))
		require.NoError(t, mw.Close())

		_, err := f.exec.Do(ctx, client.Request{
			Method: http.MethodPost,
			Path:   "/upload",
			Body:   &buf,
			Header: http.Header{"Content-Type": []string{mw.FormDataContentType()}},
		})
		require.NoError(t, err)
		require.Equal(t, mw.FormDataContentType(), got.Get("Content-Type"))
	})
}

func TestDo_ProtocolFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantMessage string
		wantCode    string
	}{
		{"message field preferred", http.StatusConflict, `{"error":"duplicate_email","message":"Email already registered"}`, "Email already registered", "duplicate_email"},
		{"error field fallback", http.StatusBadRequest, `{"error":"validation_failed"}`, "validation_failed", "validation_failed"},
		{"truncated json falls back to raw text", http.StatusInternalServerError, `{"message":"boo`, `{"message":"boo`, ""},
		{"empty body falls back to status text", http.StatusInternalServerError, ``, "Internal Server Error", ""},
		{"non-object json falls back to status text", http.StatusBadGateway, `[1,2]`, "Bad Gateway", ""},
		{"unknown status", 599, ``, "Request failed", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}, nil)

			_, err := f.exec.Do(context.Background(), client.Request{Path: "/x"})
			require.Error(t, err)

			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, tt.status, apiErr.Status)
			require.Equal(t, tt.wantMessage, apiErr.Message)
			require.Equal(t, tt.wantCode, apiErr.Code())
			require.Equal(t, tt.status, client.StatusOf(err))
			require.Equal(t, int32(0), f.refreshCalls.Load())
		})
	}
}

func TestDo_401WithoutTokenDoesNotRenew(t *testing.T) {
	f := setupTestFixture(t, requireFreshToken, refreshOK)

	_, err := f.exec.Do(context.Background(), client.Request{Path: "/api/users/account"})

	require.Equal(t, http.StatusUnauthorized, client.StatusOf(err))
	require.Equal(t, int32(0), f.refreshCalls.Load())
	require.Equal(t, int32(1), f.apiCalls.Load())
}

func TestDo_401RenewsOnceAndRetries(t *testing.T) {
	f := setupTestFixture(t, requireFreshToken, refreshOK)
	f.store.SetToken(oldToken)

	res, err := f.exec.Do(context.Background(), client.Request{Path: "/api/users/account"})

	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.Status)
	require.Equal(t, int32(1), f.refreshCalls.Load())
	require.Equal(t, int32(2), f.apiCalls.Load())
	require.Equal(t, freshToken, f.store.Token())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RenewalsTotal.WithLabelValues(metrics.RenewalSuccess)))
}

func TestDo_RetryFailureIsFinal(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}, refreshOK)
	f.store.SetToken(oldToken)

	_, err := f.exec.Do(context.Background(), client.Request{Path: "/x"})

	require.Equal(t, http.StatusUnauthorized, client.StatusOf(err))
	require.Equal(t, int32(1), f.refreshCalls.Load(), "no second renewal after the retry fails")
	require.Equal(t, int32(2), f.apiCalls.Load(), "exactly one retry")
}

func TestDo_RetryOutcomeOtherStatus(t *testing.T) {
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == freshToken {
			w.WriteHeader(http.StatusForbidden)
			_, _ = io.WriteString(w, `{"error":"password_change_not_allowed"}`)
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}, refreshOK)
	f.store.SetToken(oldToken)

	_, err := f.exec.Do(context.Background(), client.Request{Method: http.MethodPatch, Path: "/x", Body: map[string]string{}})

	require.Equal(t, http.StatusForbidden, client.StatusOf(err))
	require.Equal(t, int32(1), f.refreshCalls.Load())
}

func TestDo_RenewalFailureSurfacesOriginal401(t *testing.T) {
	tests := map[string]http.HandlerFunc{
		"refresh rejected": nil,
		"refresh without token": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `{"tokenType":"Bearer"}`)
		},
		"refresh not json": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, `ok`)
		},
	}

	for name, refresh := range tests {
		t.Run(name, func(t *testing.T) {
			f := setupTestFixture(t, requireFreshToken, refresh)
			f.store.SetToken(oldToken)

			_, err := f.exec.Do(context.Background(), client.Request{Path: "/x"})

			var apiErr *client.APIError
			require.ErrorAs(t, err, &apiErr)
			require.Equal(t, http.StatusUnauthorized, apiErr.Status)
			require.Equal(t, "token expired", apiErr.Message, "the original 401 body is surfaced")
			require.Equal(t, int32(1), f.refreshCalls.Load())
			require.Equal(t, int32(1), f.apiCalls.Load())
			require.Equal(t, oldToken, f.store.Token(), "executor does not clear the store itself")
		})
	}
}

func TestDo_RetryReplaysBody(t *testing.T) {
	var bodies []string
	var mu sync.Mutex
	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		bodies = append(bodies, string(b))
		mu.Unlock()
		requireFreshToken(w, r)
	}, refreshOK)
	f.store.SetToken(oldToken)

	_, err := f.exec.Do(context.Background(), client.Request{
		Method: http.MethodPost,
		Path:   "/upload",
		Body:   strings.NewReader("payload"),
	})

	require.NoError(t, err)
	require.Equal(t, []string{"payload", "payload"}, bodies)
}

func TestDo_ConcurrentCallsShareOneRenewal(t *testing.T) {
	const callers = 6

	var rejected atomic.Int32
	allRejected := make(chan struct{})
	var once sync.Once

	f := setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) != freshToken {
			if rejected.Add(1) == callers {
				once.Do(func() { close(allRejected) })
			}
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = io.WriteString(w, `{}`)
	}, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-allRejected:
		case <-time.After(time.Second):
		}
		refreshOK(w, r)
	})
	f.store.SetToken(oldToken)

	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.exec.Do(context.Background(), client.Request{Path: "/api/users/account"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), f.refreshCalls.Load(), "one renewal for all concurrent 401s")
	require.Equal(t, int32(callers), rejected.Load())
	require.Equal(t, client.Idle, f.exec.RenewalState())
}

func TestDo_SupersededTokenSkipsRenewal(t *testing.T) {
	var f *testFixture
	f = setupTestFixture(t, func(w http.ResponseWriter, r *http.Request) {
		if bearer(r) == oldToken {
			// A sibling renewed while this request was in flight.
			f.store.SetToken(freshToken)
		}
		requireFreshToken(w, r)
	}, refreshOK)
	f.store.SetToken(oldToken)

	_, err := f.exec.Do(context.Background(), client.Request{Path: "/x"})

	require.NoError(t, err)
	require.Equal(t, int32(0), f.refreshCalls.Load())
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RenewalsTotal.WithLabelValues(metrics.RenewalSuperseded)))
}

func TestDo_RenewalSurvivesInitiatorCancellation(t *testing.T) {
	refreshStarted := make(chan struct{})
	release := make(chan struct{})

	f := setupTestFixture(t, requireFreshToken, func(w http.ResponseWriter, r *http.Request) {
		close(refreshStarted)
		<-release
		refreshOK(w, r)
	})
	f.store.SetToken(oldToken)

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := f.exec.Do(ctxA, client.Request{Path: "/a"})
		errA <- err
	}()

	<-refreshStarted
	require.Equal(t, client.Renewing, f.exec.RenewalState())

	errB := make(chan error, 1)
	go func() {
		_, err := f.exec.Do(context.Background(), client.Request{Path: "/b"})
		errB <- err
	}()

	cancelA()
	err := <-errA
	require.ErrorIs(t, err, context.Canceled)

	close(release)
	require.NoError(t, <-errB)
	require.Equal(t, int32(1), f.refreshCalls.Load())
	require.Equal(t, freshToken, f.store.Token())
	require.Eventually(t, func() bool { return f.exec.RenewalState() == client.Idle }, time.Second, 10*time.Millisecond)
}

func TestDo_ClearDuringRenewalDiscardsToken(t *testing.T) {
	refreshStarted := make(chan struct{})
	release := make(chan struct{})

	f := setupTestFixture(t, requireFreshToken, func(w http.ResponseWriter, r *http.Request) {
		close(refreshStarted)
		<-release
		refreshOK(w, r)
	})
	f.store.SetToken(oldToken)

	errA := make(chan error, 1)
	go func() {
		_, err := f.exec.Do(context.Background(), client.Request{Path: "/a"})
		errA <- err
	}()

	<-refreshStarted
	f.store.Clear()
	close(release)

	err := <-errA
	require.Equal(t, http.StatusUnauthorized, client.StatusOf(err))
	require.Empty(t, f.store.Token(), "a signed-out store stays signed out")
	require.Equal(t, int32(1), f.apiCalls.Load(), "no retry with the discarded token")
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.RenewalsTotal.WithLabelValues(metrics.RenewalFailure)))
}

func TestDo_SignInDuringRenewalKeepsNewSession(t *testing.T) {
	refreshStarted := make(chan struct{})
	release := make(chan struct{})

	f := setupTestFixture(t, requireFreshToken, func(w http.ResponseWriter, r *http.Request) {
		close(refreshStarted)
		<-release
		refreshOK(w, r)
	})
	f.store.SetToken(oldToken)

	errA := make(chan error, 1)
	go func() {
		_, err := f.exec.Do(context.Background(), client.Request{Path: "/a"})
		errA <- err
	}()

	<-refreshStarted
	f.store.SignIn("other-user-token", credentials.ProviderFederated)
	close(release)

	require.Equal(t, http.StatusUnauthorized, client.StatusOf(<-errA))
	require.Equal(t, "other-user-token", f.store.Token())
	require.Equal(t, credentials.ProviderFederated, f.store.Provider())
}

func TestNew_DefaultClientCarriesCookieJar(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/login":
			http.SetCookie(w, &http.Cookie{Name: "VIDOPS_REFRESH", Value: "r1", Path: "/api/auth", HttpOnly: true})
			w.WriteHeader(http.StatusNoContent)
		case client.RouteRefresh:
			if c, err := r.Cookie("VIDOPS_REFRESH"); err != nil || c.Value != "r1" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			refreshOK(w, r)
		default:
			requireFreshToken(w, r)
		}
	}))
	t.Cleanup(server.Close)

	store := credentials.NewStore(memory.New())
	exec, err := client.New(server.URL, store)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = exec.Do(ctx, client.Request{Method: http.MethodPost, Path: "/login"})
	require.NoError(t, err)

	store.SetToken(oldToken)
	_, err = exec.Do(ctx, client.Request{Path: "/x"})
	require.NoError(t, err)
	require.Equal(t, freshToken, store.Token())
}

func TestDo_TransportFailure(t *testing.T) {
	f := setupTestFixture(t, requireFreshToken, refreshOK)
	f.server.Close()

	_, err := f.exec.Do(context.Background(), client.Request{Path: "/x"})

	var transportErr *client.TransportError
	require.ErrorAs(t, err, &transportErr)
	require.Equal(t, 0, client.StatusOf(err))
	require.False(t, errors.Is(err, context.Canceled))
}
