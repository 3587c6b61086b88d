package forms

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/rs/zerolog/log"
)

// LoginForm backs the sign-in screen: password sign-in, federated sign-in
// and the resend-verification action share one control.
type LoginForm struct {
	service *auth.Service
	paths   Paths
	next    string
	control Control
}

// NewLoginForm creates the form. next is the page to continue to after
// sign-in and is sanitised like any other redirect target.
func NewLoginForm(service *auth.Service, paths Paths, next string) *LoginForm {
	return &LoginForm{
		service: service,
		paths:   paths,
		next:    guard.SafeNext(next, paths.DefaultNext),
	}
}

func (f *LoginForm) Control() *Control {
	return &f.control
}

// Next is the sanitised page the form continues to on success.
func (f *LoginForm) Next() string {
	return f.next
}

// Submit signs in with email and password and loads the profile. Any failure
// leaves no session behind.
func (f *LoginForm) Submit(ctx context.Context, email, password string) (Outcome, error) {
	if !f.control.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.control.End()

	in := loginInput{Email: strings.TrimSpace(email), Password: password}
	if err := in.Validate(); err != nil {
		return Outcome{Message: errMessage(firstMessage(err, "email", "password"))}, nil
	}

	if _, err := f.service.Login(ctx, in.Email, in.Password); err != nil {
		return f.fail(err, auth.ClassifyLogin(err)), nil
	}
	if _, err := f.service.LoadMe(ctx); err != nil {
		return f.fail(err, auth.ClassifyLogin(err)), nil
	}
	return Outcome{Redirect: f.next}, nil
}

// Google signs in with an ID token obtained from Google.
func (f *LoginForm) Google(ctx context.Context, idToken string) (Outcome, error) {
	if !f.control.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.control.End()

	if _, err := f.service.GoogleLogin(ctx, idToken); err != nil {
		return f.fail(err, auth.ClassifyFederated(err)), nil
	}
	if _, err := f.service.LoadMe(ctx); err != nil {
		return f.fail(err, auth.ClassifyFederated(err)), nil
	}
	return Outcome{Redirect: f.next}, nil
}

// Resend asks for a new verification email.
func (f *LoginForm) Resend(ctx context.Context, email string) (Outcome, error) {
	if !f.control.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.control.End()

	return resend(ctx, f.service, email, func(err error) string {
		return auth.ClassifyLogin(err).Message
	}), nil
}

func (f *LoginForm) fail(err error, failure auth.Failure) Outcome {
	log.Debug().Err(err).Str("kind", failure.Kind.String()).Msg("sign-in failed")
	f.service.Store().Clear()
	return Outcome{
		Message:           errMessage(failure.Message),
		NeedsVerification: failure.Kind == auth.FailureEmailNotVerified,
	}
}

func resend(ctx context.Context, service *auth.Service, email string, failureText func(error) string) Outcome {
	email = strings.TrimSpace(email)
	if email == "" {
		return Outcome{Message: errMessage(msgResendNeedsEmail), NeedsVerification: true}
	}
	if _, err := service.ResendVerification(ctx, email); err != nil {
		return Outcome{Message: errMessage(failureText(err)), NeedsVerification: true}
	}
	return Outcome{Message: okMessage(msgResendSent)}
}
