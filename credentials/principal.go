package credentials

import (
	"encoding/json"
	"strings"
)

// Provider classifies how the signed-in user authenticated.
type Provider string

const (
	ProviderLocal     Provider = "LOCAL"     // email and password
	ProviderFederated Provider = "FEDERATED" // external identity provider (Google)
	ProviderUnknown   Provider = "UNKNOWN"   // not resolved yet
)

// ParseProvider maps a stored or wire value to a Provider. The backend reports
// federated accounts as GOOGLE, which is accepted as an alias.
func ParseProvider(s string) Provider {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case string(ProviderLocal):
		return ProviderLocal
	case string(ProviderFederated), "GOOGLE":
		return ProviderFederated
	default:
		return ProviderUnknown
	}
}

func (p Provider) String() string {
	if p == "" {
		return string(ProviderUnknown)
	}
	return string(p)
}

// Known reports whether the provider has been resolved.
func (p Provider) Known() bool {
	return p == ProviderLocal || p == ProviderFederated
}

func (p *Provider) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParseProvider(s)
	return nil
}

// Principal is the cached, non-authoritative snapshot of the signed-in user.
// It mirrors the body of GET /api/users/account.
type Principal struct {
	ID        string   `json:"id,omitempty"`
	Email     string   `json:"email,omitempty"`
	FullName  string   `json:"fullName,omitempty"`
	Plan      string   `json:"plan,omitempty"`
	Credits   int64    `json:"credits"`
	Provider  Provider `json:"authProvider,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// DisplayName returns the full name, falling back to the email address.
func (p *Principal) DisplayName() string {
	if p == nil {
		return "Guest"
	}
	if p.FullName != "" {
		return p.FullName
	}
	if p.Email != "" {
		return p.Email
	}
	return "Guest"
}
