package forms

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/policy"
)

// SettingsForm backs the account screen. Profile edits, the password change
// and account deletion each have their own control.
type SettingsForm struct {
	service *auth.Service
	paths   Paths

	profile  Control
	password Control
	danger   Control
}

func NewSettingsForm(service *auth.Service, paths Paths) *SettingsForm {
	return &SettingsForm{service: service, paths: paths}
}

func (f *SettingsForm) ProfileControl() *Control {
	return &f.profile
}

func (f *SettingsForm) PasswordControl() *Control {
	return &f.password
}

func (f *SettingsForm) DangerControl() *Control {
	return &f.danger
}

// CanChangePassword reports whether the password section applies to the
// signed-in provider.
func (f *SettingsForm) CanChangePassword() bool {
	return policy.Allows(f.service.Store().Provider(), policy.CapChangePassword)
}

// Load fetches the account. A refused session is cleared and sent to
// sign-in.
func (f *SettingsForm) Load(ctx context.Context) (*credentials.Principal, Outcome) {
	me, err := f.service.Account(ctx)
	if err == nil {
		return me, Outcome{}
	}
	if status := client.StatusOf(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
		f.service.Store().Clear()
		return nil, Outcome{
			Message:  errMessage(auth.ClassifyAccount(err, msgAccountLoadFailed).Message),
			Redirect: f.paths.signInWith(ReasonExpired),
		}
	}
	return nil, Outcome{Message: errMessage(auth.ClassifyAccount(err, msgAccountLoadFailed).Message)}
}

func (f *SettingsForm) SaveName(ctx context.Context, fullName string) (*credentials.Principal, Outcome, error) {
	if !f.profile.Begin() {
		return nil, Outcome{}, ErrBusy
	}
	defer f.profile.End()

	fullName = strings.TrimSpace(fullName)
	if fullName == "" {
		return nil, Outcome{Message: errMessage(msgFullNameRequired)}, nil
	}

	me, err := f.service.UpdateFullName(ctx, fullName)
	if err != nil {
		return nil, Outcome{Message: errMessage(auth.ClassifyAccount(err, msgProfileUpdateFailed).Message)}, nil
	}
	return me, Outcome{Message: okMessage(msgProfileUpdated)}, nil
}

func (f *SettingsForm) ChangePlan(ctx context.Context, plan string) (*credentials.Principal, Outcome, error) {
	if !f.profile.Begin() {
		return nil, Outcome{}, ErrBusy
	}
	defer f.profile.End()

	me, err := f.service.ChangePlan(ctx, plan)
	if err != nil {
		return nil, Outcome{Message: errMessage(auth.ClassifyAccount(err, msgPlanUpdateFailed).Message)}, nil
	}
	return me, Outcome{Message: okMessage(msgPlanUpdated)}, nil
}

// ChangePassword checks the provider policy before anything else, then the
// fields, then calls the backend. A changed password ends the session.
func (f *SettingsForm) ChangePassword(ctx context.Context, current, next, confirm string) (Outcome, error) {
	if !f.password.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.password.End()

	if err := policy.Check(f.service.Store().Provider(), policy.CapChangePassword); err != nil {
		return Outcome{Message: errMessage(auth.ClassifyPasswordChange(err).Message)}, nil
	}

	in := passwordChangeInput{Current: current, New: next, Confirm: confirm}
	if err := in.Validate(); err != nil {
		return Outcome{Message: errMessage(firstMessage(err, passwordChangeFieldOrder...))}, nil
	}

	if err := f.service.ChangePassword(ctx, in.Current, in.New); err != nil {
		return Outcome{Message: errMessage(auth.ClassifyPasswordChange(err).Message)}, nil
	}
	return Outcome{Redirect: f.paths.signInWith(ReasonPasswordChanged)}, nil
}

// DeleteAccount deletes the account. Confirmation is the caller's job.
func (f *SettingsForm) DeleteAccount(ctx context.Context) (Outcome, error) {
	if !f.danger.Begin() {
		return Outcome{}, ErrBusy
	}
	defer f.danger.End()

	if err := f.service.DeleteAccount(ctx); err != nil {
		return Outcome{Message: errMessage(auth.ClassifyAccount(err, msgDeleteFailed).Message)}, nil
	}
	return Outcome{Redirect: f.paths.signInWith(ReasonDeleted)}, nil
}
