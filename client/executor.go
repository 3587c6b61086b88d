// Package client performs authenticated calls against the backend. Every call
// carries the renewal cookie (through the HTTP client's cookie jar) and the
// bearer token when one is stored. A 401 on a call that carried a token
// triggers at most one shared renewal and exactly one retry.
package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/internal/transport"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const (
	RouteRefresh = "/api/auth/refresh"

	tracerName            = "github.com/jrsteele09/go-auth-client/client"
	defaultRenewalTimeout = 15 * time.Second
	renewalKey            = "renew"
)

// RenewalState reports whether a renewal is in flight.
type RenewalState int32

const (
	Idle RenewalState = iota
	Renewing
)

func (s RenewalState) String() string {
	if s == Renewing {
		return "renewing"
	}
	return "idle"
}

// Executor is safe for concurrent use. Construct one per process and share it.
type Executor struct {
	baseURL        string
	http           *http.Client
	store          *credentials.Store
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	renewalTimeout time.Duration

	renewals singleflight.Group
	renewing atomic.Bool
}

type Option func(*Executor)

// WithHTTPClient sets the transport. A client without a cookie jar gets an
// in-memory one, since renewal depends on the cookie being sent back.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) {
		e.http = c
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Executor) {
		e.metrics = m
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) {
		e.tracer = t
	}
}

// WithRenewalTimeout bounds a renewal independently of the caller that
// started it, since other callers may be waiting on the same result.
func WithRenewalTimeout(d time.Duration) Option {
	return func(e *Executor) {
		e.renewalTimeout = d
	}
}

// New creates an Executor for the backend at baseURL.
func New(baseURL string, store *credentials.Store, opts ...Option) (*Executor, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("[client New] invalid base url %q", baseURL)
	}
	if store == nil {
		return nil, fmt.Errorf("[client New] credential store is required")
	}

	e := &Executor{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &http.Client{Timeout: defaultRenewalTimeout},
		store:          store,
		tracer:         otel.Tracer(tracerName),
		renewalTimeout: defaultRenewalTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.http == nil {
		e.http = &http.Client{Timeout: defaultRenewalTimeout}
	}
	if e.http.Jar == nil {
		jar, err := transport.NewJar("")
		if err != nil {
			return nil, fmt.Errorf("[client New] cookie jar: %w", err)
		}
		log.Debug().Msg("http client has no cookie jar, using an in-memory one")
		withJar := *e.http
		withJar.Jar = jar
		e.http = &withJar
	}
	return e, nil
}

// BaseURL returns the backend origin.
func (e *Executor) BaseURL() string {
	return e.baseURL
}

// RenewalState reports whether a renewal is currently in flight.
func (e *Executor) RenewalState() RenewalState {
	if e.renewing.Load() {
		return Renewing
	}
	return Idle
}

// Do performs one logical call. It returns a *Response for 2xx, an *APIError
// for any other status and a *TransportError when no response arrived.
func (e *Executor) Do(ctx context.Context, req Request) (*Response, error) {
	ctx, span := e.tracer.Start(ctx, "client.Do", trace.WithAttributes(
		attribute.String("http.method", req.method()),
		attribute.String("http.path", req.Path),
	))
	defer span.End()

	res, renewed, err := e.do(ctx, req)
	span.SetAttributes(attribute.Bool("session.renewed", renewed))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", res.Status))
	return res, nil
}

func (e *Executor) do(ctx context.Context, req Request) (*Response, bool, error) {
	body, err := req.encode()
	if err != nil {
		return nil, false, err
	}

	token, epoch := e.store.Session()
	res, err := e.attempt(ctx, req, body, token)
	if err != nil {
		return nil, false, err
	}

	renewed := false
	if res.status == http.StatusUnauthorized && token != "" {
		fresh, err := e.renew(ctx, token, epoch)
		if err != nil {
			if ctx.Err() != nil {
				return nil, false, &TransportError{Op: req.method() + " " + req.Path, Err: ctx.Err()}
			}
			log.Debug().Err(err).Str("path", req.Path).Msg("renewal failed, surfacing original 401")
		} else {
			renewed = true
			// The retry's outcome is final, whatever its status.
			res, err = e.attempt(ctx, req, body, fresh)
			if err != nil {
				return nil, renewed, err
			}
		}
	}

	if res.status < 200 || res.status > 299 {
		return nil, renewed, newAPIError(res.status, res.body)
	}
	return &Response{Status: res.status, Header: res.header, Body: parseBody(res.body)}, renewed, nil
}

type rawResponse struct {
	status int
	header http.Header
	body   []byte
}

func (e *Executor) attempt(ctx context.Context, req Request, body encodedBody, token string) (*rawResponse, error) {
	op := req.method() + " " + req.Path

	var reader io.Reader
	if body.data != nil {
		reader = bytes.NewReader(body.data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method(), e.baseURL+req.Path, reader)
	if err != nil {
		return nil, fmt.Errorf("[client attempt] build %s: %w", op, err)
	}

	for k, values := range req.Header {
		for _, v := range values {
			httpReq.Header.Add(k, v)
		}
	}
	if body.contentType != "" && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", body.contentType)
	}
	if httpReq.Header.Get("Accept") == "" {
		httpReq.Header.Set("Accept", contentTypeJSON)
	}
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	httpReq.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := e.http.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}

	e.metrics.Request(req.method(), resp.StatusCode)
	log.Debug().Str("op", op).Int("status", resp.StatusCode).Bool("has_token", token != "").Msg("api call")

	return &rawResponse{status: resp.StatusCode, header: resp.Header, body: data}, nil
}
