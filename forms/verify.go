package forms

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-auth-client/auth"
)

type VerifyEmailForm struct {
	service *auth.Service
	paths   Paths
	control Control
}

func NewVerifyEmailForm(service *auth.Service, paths Paths) *VerifyEmailForm {
	return &VerifyEmailForm{service: service, paths: paths}
}

func (f *VerifyEmailForm) Control() *Control {
	return &f.control
}

// Verify consumes the token from a verification link. On success the form
// continues to sign-in with the "verified" banner.
func (f *VerifyEmailForm) Verify(ctx context.Context, token string) (Outcome, error) {
	if !f.control.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.control.End()

	token = strings.TrimSpace(token)
	if token == "" {
		return Outcome{Message: errMessage(msgTokenMissing), NeedsVerification: true}, nil
	}

	if _, err := f.service.VerifyEmail(ctx, token); err != nil {
		failure := auth.ClassifyVerify(err)
		return Outcome{Message: errMessage(failure.Message), NeedsVerification: failure.CanResend}, nil
	}
	return Outcome{
		Message:  okMessage(msgVerified),
		Redirect: f.paths.signInWith(ReasonVerified),
	}, nil
}

func (f *VerifyEmailForm) Resend(ctx context.Context, email string) (Outcome, error) {
	if !f.control.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.control.End()

	return resend(ctx, f.service, email, func(error) string {
		return msgResendFailed
	}), nil
}
