package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/policy"
)

const (
	CodeEmailNotVerified       = "email_not_verified"
	CodeInvalidCurrentPassword = "invalid_current_password"
	CodeTokenExpired           = "token_expired"
	CodeTokenInvalid           = "token_invalid"
)

// FailureKind is the user-facing category of a failed call.
type FailureKind int

const (
	FailureOther FailureKind = iota
	FailureNetwork
	FailureInvalidCredentials
	FailureEmailNotVerified
	FailureForbidden
	FailureServer
	FailureConflict
	FailureInvalidInput
	FailureTokenExpired
	FailureTokenInvalid
	FailureWrongPassword
	FailureNotAllowed
	FailureSessionExpired
	FailureNotFound
)

var failureKindNames = map[FailureKind]string{
	FailureOther:              "other",
	FailureNetwork:            "network",
	FailureInvalidCredentials: "invalid_credentials",
	FailureEmailNotVerified:   "email_not_verified",
	FailureForbidden:          "forbidden",
	FailureServer:             "server_error",
	FailureConflict:           "conflict",
	FailureInvalidInput:       "invalid_input",
	FailureTokenExpired:       "token_expired",
	FailureTokenInvalid:       "token_invalid",
	FailureWrongPassword:      "wrong_password",
	FailureNotAllowed:         "not_allowed",
	FailureSessionExpired:     "session_expired",
	FailureNotFound:           "not_found",
}

func (k FailureKind) String() string {
	if name, ok := failureKindNames[k]; ok {
		return name
	}
	return "other"
}

// Failure is a failed call translated for display. Message never carries raw
// server text except a body's own message field.
type Failure struct {
	Kind      FailureKind
	Message   string
	CanResend bool // a "resend verification" action applies
}

const (
	msgNetwork            = "Could not reach the server. Check your connection and try again."
	msgServer             = "Server error. Please try again."
	msgForbidden          = "You are not allowed to do this."
	msgInvalidCredentials = "Incorrect email or password."
	msgEmailNotVerified   = "Email not verified. Check your inbox or resend the verification email."
	msgLoginFailed        = "Sign-in failed."
	msgRegisterConflict   = "An account with this email already exists. Try signing in."
	msgRegisterInvalid    = "Some details are missing or invalid. Please check the fields."
	msgRegisterFailed     = "Could not create the account."
	msgFederatedRejected  = "Google sign-in was rejected. Please try again."
	msgFederatedFailed    = "Google sign-in failed."
	msgVerifyExpired      = "The verification link has expired. You can resend the email."
	msgVerifyInvalid      = "The verification link is invalid. You can resend the email."
	msgVerifyFailed       = "Verification failed. Please try again."
	msgWrongPassword      = "Current password is incorrect."
	msgSessionExpired     = "Your session has expired. Please sign in again."
	msgPasswordNotFound   = "Password change is not available."
	msgPasswordInvalid    = "New password is invalid. It must be at least 8 characters."
	msgPasswordFailed     = "Could not change the password."
)

// IsEmailNotVerified reports whether err is the login refusal for an
// unverified email: a 403 whose message or body mentions
// email_not_verified, in any case.
func IsEmailNotVerified(err error) bool {
	var apiErr *client.APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusForbidden {
		return false
	}
	return apiErr.Mentions(CodeEmailNotVerified)
}

// ClassifyLogin maps a login failure. Unknown email and wrong password read
// the same.
func ClassifyLogin(err error) Failure {
	apiErr, f, ok := classifyCommon(err, msgLoginFailed)
	if !ok {
		return f
	}
	switch {
	case IsEmailNotVerified(err):
		return Failure{Kind: FailureEmailNotVerified, Message: msgEmailNotVerified, CanResend: true}
	case apiErr.Status == http.StatusUnauthorized:
		return Failure{Kind: FailureInvalidCredentials, Message: msgInvalidCredentials}
	case apiErr.Status == http.StatusForbidden:
		return Failure{Kind: FailureForbidden, Message: msgForbidden}
	case apiErr.Status >= 500:
		return Failure{Kind: FailureServer, Message: msgServer}
	}
	return Failure{Kind: FailureOther, Message: safeMessage(apiErr, msgLoginFailed)}
}

func ClassifyRegister(err error) Failure {
	apiErr, f, ok := classifyCommon(err, msgRegisterFailed)
	if !ok {
		return f
	}
	switch {
	case apiErr.Status == http.StatusConflict:
		return Failure{Kind: FailureConflict, Message: msgRegisterConflict}
	case apiErr.Status == http.StatusBadRequest:
		return Failure{Kind: FailureInvalidInput, Message: msgRegisterInvalid}
	case apiErr.Status >= 500:
		return Failure{Kind: FailureServer, Message: msgServer}
	}
	return Failure{Kind: FailureOther, Message: safeMessage(apiErr, msgRegisterFailed)}
}

// ClassifyFederated maps a failed Google sign-in. Assertion rejections
// (400/401/403) share one message.
func ClassifyFederated(err error) Failure {
	apiErr, f, ok := classifyCommon(err, msgFederatedFailed)
	if !ok {
		return f
	}
	switch apiErr.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return Failure{Kind: FailureInvalidCredentials, Message: msgFederatedRejected}
	case http.StatusConflict:
		return Failure{Kind: FailureConflict, Message: msgRegisterConflict}
	}
	if apiErr.Status >= 500 {
		return Failure{Kind: FailureServer, Message: msgServer}
	}
	return Failure{Kind: FailureOther, Message: safeMessage(apiErr, msgFederatedFailed)}
}

// ClassifyVerify maps a failed email verification. Expired and invalid links
// both offer a resend.
func ClassifyVerify(err error) Failure {
	apiErr, f, ok := classifyCommon(err, msgVerifyFailed)
	if !ok {
		return f
	}
	code := strings.ToLower(apiErr.Code())
	switch {
	case apiErr.Status == http.StatusGone || code == CodeTokenExpired:
		return Failure{Kind: FailureTokenExpired, Message: msgVerifyExpired, CanResend: true}
	case code == CodeTokenInvalid || apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnprocessableEntity:
		return Failure{Kind: FailureTokenInvalid, Message: msgVerifyInvalid, CanResend: true}
	case apiErr.Status >= 500:
		return Failure{Kind: FailureServer, Message: msgServer}
	}
	return Failure{Kind: FailureOther, Message: msgVerifyFailed}
}

// ClassifyPasswordChange maps a failed password change, including the local
// provider refusal.
func ClassifyPasswordChange(err error) Failure {
	var violation *policy.Violation
	if errors.As(err, &violation) {
		return Failure{Kind: FailureNotAllowed, Message: violation.Message}
	}

	apiErr, f, ok := classifyCommon(err, msgPasswordFailed)
	if !ok {
		return f
	}
	switch apiErr.Status {
	case http.StatusUnauthorized:
		if apiErr.Mentions(CodeInvalidCurrentPassword) {
			return Failure{Kind: FailureWrongPassword, Message: msgWrongPassword}
		}
		return Failure{Kind: FailureSessionExpired, Message: msgSessionExpired}
	case http.StatusForbidden:
		if apiErr.Mentions(policy.CodePasswordChangeNotAllowed) {
			return Failure{Kind: FailureNotAllowed, Message: policy.MessagePasswordChangeNotAllowed}
		}
		return Failure{Kind: FailureForbidden, Message: msgForbidden}
	case http.StatusNotFound:
		return Failure{Kind: FailureNotFound, Message: msgPasswordNotFound}
	case http.StatusBadRequest:
		return Failure{Kind: FailureInvalidInput, Message: safeMessage(apiErr, msgPasswordInvalid)}
	}
	if apiErr.Status >= 500 {
		return Failure{Kind: FailureServer, Message: msgServer}
	}
	return Failure{Kind: FailureOther, Message: safeMessage(apiErr, msgPasswordFailed)}
}

// ClassifyAccount maps failures of profile reads and updates.
func ClassifyAccount(err error, fallback string) Failure {
	apiErr, f, ok := classifyCommon(err, fallback)
	if !ok {
		return f
	}
	switch {
	case apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden:
		return Failure{Kind: FailureSessionExpired, Message: msgSessionExpired}
	case apiErr.Status >= 500:
		return Failure{Kind: FailureServer, Message: msgServer}
	}
	return Failure{Kind: FailureOther, Message: safeMessage(apiErr, fallback)}
}

// classifyCommon handles everything that is not an *APIError. ok is true when
// the caller has an *APIError to inspect.
func classifyCommon(err error, fallback string) (*client.APIError, Failure, bool) {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr, Failure{}, true
	}

	var transportErr *client.TransportError
	if errors.As(err, &transportErr) && !errors.Is(err, context.Canceled) {
		return nil, Failure{Kind: FailureNetwork, Message: msgNetwork}, false
	}
	return nil, Failure{Kind: FailureOther, Message: fallback}, false
}

// safeMessage returns the body's own message field, which the backend writes
// for display, or fallback.
func safeMessage(apiErr *client.APIError, fallback string) string {
	if msg := strings.TrimSpace(apiErr.Field("message")); msg != "" {
		return msg
	}
	return fallback
}
