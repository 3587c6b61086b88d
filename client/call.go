package client

import (
	"context"
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// Call performs req and decodes the body into T. An empty body yields the
// zero value; a text body is only accepted when T is string.
func Call[T any](ctx context.Context, e *Executor, req Request) (T, error) {
	var out T

	res, err := e.Do(ctx, req)
	if err != nil {
		return out, err
	}

	switch res.Body.Kind {
	case BodyEmpty:
		return out, nil
	case BodyText:
		if s, ok := any(&out).(*string); ok {
			*s = res.Body.Text()
			return out, nil
		}
		return out, fmt.Errorf("[client Call] %s %s: %w", req.method(), req.Path, apperrors.ErrNotJSON)
	}

	if err := res.Body.Decode(&out); err != nil {
		return out, fmt.Errorf("[client Call] %s %s: %w", req.method(), req.Path, err)
	}
	return out, nil
}
