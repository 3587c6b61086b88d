package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/rs/zerolog/log"
)

var errSessionEnded = fmt.Errorf("[client renew] %w: session ended during renewal", apperrors.ErrRenewalFailed)

type refreshResponse struct {
	AccessToken      string `json:"accessToken"`
	TokenType        string `json:"tokenType,omitempty"`
	ExpiresInSeconds int64  `json:"expiresInSeconds,omitempty"`
}

// renew returns a bearer token to retry with after stale was rejected.
//
// If the store already holds a different token, a sibling call renewed in the
// meantime and that token is used as is. Otherwise the caller joins the single
// in-flight renewal, starting it if there is none. The renewal runs detached
// from ctx so that cancelling one waiter does not fail the others.
//
// epoch is the session the stale token belonged to. Once that session has
// been cleared or replaced, no renewed token is stored or handed back.
func (e *Executor) renew(ctx context.Context, stale string, epoch uint64) (string, error) {
	current, currentEpoch := e.store.Session()
	if currentEpoch != epoch {
		return "", errSessionEnded
	}
	if current != "" && current != stale {
		e.metrics.Renewal(metrics.RenewalSuperseded)
		return current, nil
	}

	ch := e.renewals.DoChan(renewalKey, func() (interface{}, error) {
		e.renewing.Store(true)
		defer e.renewing.Store(false)

		current, flightEpoch := e.store.Session()
		if flightEpoch != epoch {
			e.metrics.Renewal(metrics.RenewalFailure)
			return "", errSessionEnded
		}
		// A flight that completed between the check above and DoChan has
		// already replaced the stale token.
		if current != "" && current != stale {
			e.metrics.Renewal(metrics.RenewalSuperseded)
			return current, nil
		}

		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.renewalTimeout)
		defer cancel()

		token, err := e.refresh(rctx, flightEpoch)
		if err != nil {
			e.metrics.Renewal(metrics.RenewalFailure)
			return "", err
		}
		e.metrics.Renewal(metrics.RenewalSuccess)
		return token, nil
	})

	select {
	case r := <-ch:
		if r.Err != nil {
			return "", r.Err
		}
		// A waiter may belong to a session other than the one the flight
		// renewed.
		if e.store.Epoch() != epoch {
			return "", errSessionEnded
		}
		return r.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// refresh exchanges the renewal cookie for a new bearer token and stores it
// if the session identified by epoch is still current.
func (e *Executor) refresh(ctx context.Context, epoch uint64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+RouteRefresh, nil)
	if err != nil {
		return "", fmt.Errorf("[client refresh] %w: %v", apperrors.ErrRenewalFailed, err)
	}
	req.Header.Set("Accept", contentTypeJSON)

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("[client refresh] %w: %v", apperrors.ErrRenewalFailed, err)
	}
	defer resp.Body.Close()

	e.metrics.Request(http.MethodPost, resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("[client refresh] %w: status %d", apperrors.ErrRenewalFailed, resp.StatusCode)
	}

	var out refreshResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("[client refresh] %w: unreadable body: %v", apperrors.ErrRenewalFailed, err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("[client refresh] %w: no access token in response", apperrors.ErrRenewalFailed)
	}

	if !e.store.SetTokenIf(epoch, out.AccessToken) {
		log.Debug().Msg("session ended during renewal, discarding renewed token")
		return "", errSessionEnded
	}
	log.Debug().Int64("expires_in", out.ExpiresInSeconds).Msg("bearer token renewed")
	return out.AccessToken, nil
}
