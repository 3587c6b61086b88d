package forms

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/guard"
)

type RegisterForm struct {
	service *auth.Service
	paths   Paths
	next    string
	control Control
}

func NewRegisterForm(service *auth.Service, paths Paths, next string) *RegisterForm {
	return &RegisterForm{
		service: service,
		paths:   paths,
		next:    guard.SafeNext(next, paths.DefaultNext),
	}
}

func (f *RegisterForm) Control() *Control {
	return &f.control
}

// Submit creates the account. Registration issues no session: on success the
// form continues to sign-in with a "check your inbox" banner and the email
// pre-filled.
func (f *RegisterForm) Submit(ctx context.Context, in RegisterInput) (Outcome, error) {
	if !f.control.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.control.End()

	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.Validate(); err != nil {
		return Outcome{Message: errMessage(firstMessage(err, registerFieldOrder...))}, nil
	}

	out, err := f.service.Register(ctx, in.FullName, in.Email, in.Password)
	if err != nil {
		f.service.Store().Clear()
		return Outcome{Message: errMessage(auth.ClassifyRegister(err).Message)}, nil
	}

	text := msgRegistered
	if out != nil && strings.TrimSpace(out.Message) != "" {
		text = out.Message
	}
	return Outcome{
		Message:  okMessage(text),
		Redirect: f.paths.signInWith(ReasonVerifySent, "next", f.next, "email", in.Email),
	}, nil
}
