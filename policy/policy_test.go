package policy_test

import (
	"errors"
	"testing"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/policy"
	"github.com/stretchr/testify/require"
)

func TestCheck(t *testing.T) {
	tests := []struct {
		provider credentials.Provider
		cap      policy.Capability
		allowed  bool
	}{
		{credentials.ProviderLocal, policy.CapChangePassword, true},
		{credentials.ProviderLocal, policy.CapDeleteAccount, true},
		{credentials.ProviderUnknown, policy.CapChangePassword, true},
		{credentials.ProviderFederated, policy.CapChangePassword, false},
		{credentials.ProviderFederated, policy.CapDeleteAccount, true},
		{credentials.ProviderFederated, policy.CapUpdateProfile, true},
		{credentials.ProviderFederated, policy.CapChangePlan, true},
	}

	for _, tt := range tests {
		t.Run(tt.provider.String()+"/"+string(tt.cap), func(t *testing.T) {
			err := policy.Check(tt.provider, tt.cap)
			require.Equal(t, tt.allowed, err == nil)
			require.Equal(t, tt.allowed, policy.Allows(tt.provider, tt.cap))
		})
	}
}

func TestCheck_FederatedPasswordViolation(t *testing.T) {
	err := policy.Check(credentials.ProviderFederated, policy.CapChangePassword)

	var v *policy.Violation
	require.True(t, errors.As(err, &v))
	require.Equal(t, policy.CodePasswordChangeNotAllowed, v.Code)
	require.Equal(t, credentials.ProviderFederated, v.Provider)
	require.NotEmpty(t, v.Message)
	require.Contains(t, err.Error(), policy.CodePasswordChangeNotAllowed)
}
