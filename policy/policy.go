// Package policy decides locally whether an account mutation is worth
// attempting for the signed-in identity provider. The server stays the
// authority; a refusal here only saves a request the server is known to
// reject.
package policy

import (
	"fmt"

	"github.com/jrsteele09/go-auth-client/credentials"
)

type Capability string

const (
	CapChangePassword Capability = "change_password"
	CapDeleteAccount  Capability = "delete_account"
	CapUpdateProfile  Capability = "update_profile"
	CapChangePlan     Capability = "change_plan"
)

// CodePasswordChangeNotAllowed matches the code the backend returns for the
// same refusal.
const CodePasswordChangeNotAllowed = "password_change_not_allowed"

const MessagePasswordChangeNotAllowed = "Password cannot be changed for this account type (Google accounts are not supported)."

type rule struct {
	code    string
	message string
}

// refusals lists, per provider, the capabilities that are refused locally.
// Anything not listed is allowed.
var refusals = map[credentials.Provider]map[Capability]rule{
	credentials.ProviderFederated: {
		CapChangePassword: {code: CodePasswordChangeNotAllowed, message: MessagePasswordChangeNotAllowed},
	},
}

// Violation is returned by Check when a capability is refused.
type Violation struct {
	Provider   credentials.Provider
	Capability Capability
	Code       string
	Message    string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("%s: %s not allowed for %s provider", v.Code, v.Capability, v.Provider)
}

// Allows reports whether p may attempt c. ProviderUnknown is treated as
// ProviderLocal.
func Allows(p credentials.Provider, c Capability) bool {
	return Check(p, c) == nil
}

// Check returns a *Violation when p may not attempt c, nil otherwise.
func Check(p credentials.Provider, c Capability) error {
	r, refused := refusals[effective(p)][c]
	if !refused {
		return nil
	}
	return &Violation{Provider: p, Capability: c, Code: r.code, Message: r.message}
}

func effective(p credentials.Provider) credentials.Provider {
	if !p.Known() {
		return credentials.ProviderLocal
	}
	return p
}
