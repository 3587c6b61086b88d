package client

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const contentTypeJSON = "application/json"

// Request describes one logical call.
//
// Body handling:
//   - nil: no body
//   - io.Reader, []byte: sent as-is and no Content-Type is added, so
//     multipart or binary payloads keep the type (and boundary) the caller
//     put in Header
//   - json.RawMessage, string: sent as-is as JSON
//   - anything else: encoded with encoding/json
//
// Readers are buffered once so the body can be replayed after a renewal.
type Request struct {
	Method string
	Path   string
	Body   any
	Header http.Header
}

type encodedBody struct {
	data        []byte
	contentType string
}

func (r Request) encode() (encodedBody, error) {
	switch b := r.Body.(type) {
	case nil:
		return encodedBody{}, nil
	case io.Reader:
		data, err := io.ReadAll(b)
		if err != nil {
			return encodedBody{}, fmt.Errorf("[client Request.encode] read body: %w", err)
		}
		return encodedBody{data: data}, nil
	case json.RawMessage:
		return encodedBody{data: b, contentType: contentTypeJSON}, nil
	case []byte:
		return encodedBody{data: b}, nil
	case string:
		return encodedBody{data: []byte(b), contentType: contentTypeJSON}, nil
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return encodedBody{}, fmt.Errorf("[client Request.encode] marshal body: %w", err)
		}
		return encodedBody{data: data, contentType: contentTypeJSON}, nil
	}
}

func (r Request) method() string {
	if r.Method == "" {
		return http.MethodGet
	}
	return r.Method
}
