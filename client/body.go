package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// BodyKind says how a success body was interpreted.
type BodyKind int

const (
	BodyEmpty BodyKind = iota
	BodyJSON
	BodyText
)

func (k BodyKind) String() string {
	switch k {
	case BodyJSON:
		return "json"
	case BodyText:
		return "text"
	default:
		return "empty"
	}
}

// Body is the outcome of reading a success response: empty, JSON or plain text.
type Body struct {
	Kind BodyKind
	raw  []byte
}

func parseBody(raw []byte) Body {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Body{Kind: BodyEmpty}
	}
	if json.Valid(raw) {
		return Body{Kind: BodyJSON, raw: raw}
	}
	return Body{Kind: BodyText, raw: raw}
}

// Bytes returns the body as received.
func (b Body) Bytes() []byte {
	return b.raw
}

// Text returns the body as a string.
func (b Body) Text() string {
	return string(b.raw)
}

// Decode unmarshals a JSON body into v.
func (b Body) Decode(v any) error {
	switch b.Kind {
	case BodyEmpty:
		return apperrors.ErrEmptyBody
	case BodyText:
		return apperrors.ErrNotJSON
	}
	if err := json.Unmarshal(b.raw, v); err != nil {
		return fmt.Errorf("[client Body.Decode] %w", err)
	}
	return nil
}

// Response is a successful (2xx) response.
type Response struct {
	Status int
	Header http.Header
	Body   Body
}
