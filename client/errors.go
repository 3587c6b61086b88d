package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const defaultFailureMessage = "Request failed"

// APIError is a protocol failure: the server answered with a non-2xx status.
type APIError struct {
	Status  int    // HTTP status code
	Message string // server supplied message/error field, raw text or status text
	Body    any    // parsed JSON body, the raw text when it was not JSON, or nil
	Raw     []byte // body bytes as received
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Field returns a string field of a JSON object body, or "".
func (e *APIError) Field(name string) string {
	obj, ok := e.Body.(map[string]any)
	if !ok {
		return ""
	}
	s, _ := obj[name].(string)
	return s
}

// Code returns the machine readable "error" field of the body, if any.
func (e *APIError) Code() string {
	return e.Field("error")
}

// Mentions reports whether the message, the error field or the message field
// contains needle, ignoring case.
func (e *APIError) Mentions(needle string) bool {
	needle = strings.ToLower(needle)
	for _, s := range []string{e.Message, e.Field("error"), e.Field("message")} {
		if s != "" && strings.Contains(strings.ToLower(s), needle) {
			return true
		}
	}
	return false
}

// TransportError is a failure with no HTTP response: DNS, connection,
// timeout or cancellation.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusOf returns the HTTP status carried by err, or 0 when err is not an
// *APIError.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// newAPIError builds the error for a non-2xx response. A body that is not
// valid JSON never fails the build: the message falls back to the raw text
// and then to the status text.
func newAPIError(status int, raw []byte) *APIError {
	statusText := http.StatusText(status)
	if statusText == "" {
		statusText = defaultFailureMessage
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return &APIError{Status: status, Message: statusText, Raw: raw}
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &APIError{Status: status, Message: text, Body: text, Raw: raw}
	}

	msg := statusText
	if obj, ok := parsed.(map[string]any); ok {
		if s, _ := obj["message"].(string); s != "" {
			msg = s
		} else if s, _ := obj["error"].(string); s != "" {
			msg = s
		}
	}
	return &APIError{Status: status, Message: msg, Body: parsed, Raw: raw}
}
