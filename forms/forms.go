// Package forms holds the state behind the sign-in, registration,
// verification and settings screens: one pending submission per control,
// field validation, and the translation of failures into display copy.
package forms

import (
	"net/url"
	"sync/atomic"

	"github.com/jrsteele09/go-auth-client/internal/config"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// ErrBusy is returned when a control is submitted while a previous
// submission is still pending. No network work is done.
var ErrBusy = apperrors.ErrBusy

// Control disables a submit action while it is pending.
type Control struct {
	pending atomic.Bool
}

// Begin claims the control. It returns false when a submission is already
// pending.
func (c *Control) Begin() bool {
	return c.pending.CompareAndSwap(false, true)
}

func (c *Control) End() {
	c.pending.Store(false)
}

func (c *Control) Pending() bool {
	return c.pending.Load()
}

type MessageKind int

const (
	MessageOK MessageKind = iota
	MessageErr
)

func (k MessageKind) String() string {
	if k == MessageErr {
		return "err"
	}
	return "ok"
}

// Message is the status line shown under a form.
type Message struct {
	Kind MessageKind
	Text string
}

func okMessage(text string) *Message {
	return &Message{Kind: MessageOK, Text: text}
}

func errMessage(text string) *Message {
	return &Message{Kind: MessageErr, Text: text}
}

// Outcome is the result of one submission.
type Outcome struct {
	Message *Message
	// Redirect is where the flow continues. Empty means stay on the form.
	Redirect string
	// NeedsVerification offers the "resend verification email" action.
	NeedsVerification bool
}

// Failed reports whether the submission ended with an error message.
func (o Outcome) Failed() bool {
	return o.Message != nil && o.Message.Kind == MessageErr
}

// Paths are the navigation targets the forms redirect to.
type Paths struct {
	SignIn      string
	DefaultNext string
}

func PathsFrom(cfg config.SessionConfig) Paths {
	return Paths{SignIn: cfg.GetSignInPath(), DefaultNext: cfg.GetDefaultNext()}
}

// signInWith builds the sign-in URL carrying a banner reason and optional
// extra parameters given as key, value pairs.
func (p Paths) signInWith(reason string, kv ...string) string {
	q := url.Values{}
	q.Set("reason", reason)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	return p.SignIn + "?" + q.Encode()
}
