// Package auth wraps the backend's authentication and account calls. It keeps
// the credential store in step with each outcome: sign-ins record the token
// and provider, profile reads refresh the cached principal, and calls that
// end the session clear it.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-auth-client/client"
	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/policy"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// AuthResponse is returned by login, federated login and refresh.
type AuthResponse struct {
	AccessToken      string `json:"accessToken"`
	TokenType        string `json:"tokenType,omitempty"`
	ExpiresInSeconds int64  `json:"expiresInSeconds,omitempty"`
	UserID           string `json:"userId,omitempty"`
	Email            string `json:"email,omitempty"`
}

// MessageResponse is the optional body of register, resend and verify.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type passwordChangeRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Service is safe for concurrent use.
type Service struct {
	exec  *client.Executor
	store *credentials.Store
}

func NewService(exec *client.Executor, store *credentials.Store) (*Service, error) {
	if exec == nil {
		return nil, errors.New("[NewService] executor is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] credential store is required")
	}
	return &Service{exec: exec, store: store}, nil
}

// Store returns the credential store the service writes to.
func (s *Service) Store() *credentials.Store {
	return s.store
}

// Login signs in with email and password. On success the token is stored with
// provider LOCAL.
func (s *Service) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	out, err := client.Call[AuthResponse](ctx, s.exec, client.Request{
		Method: http.MethodPost,
		Path:   RouteLogin,
		Body:   loginRequest{Email: strings.TrimSpace(email), Password: password},
	})
	if err != nil {
		return nil, err
	}
	s.signIn(out.AccessToken, credentials.ProviderLocal)
	return &out, nil
}

// Register creates a local account. The backend does not sign the user in;
// the account has to be verified first.
func (s *Service) Register(ctx context.Context, fullName, email, password string) (*MessageResponse, error) {
	out, err := client.Call[MessageResponse](ctx, s.exec, client.Request{
		Method: http.MethodPost,
		Path:   RouteRegister,
		Body: registerRequest{
			FullName: strings.TrimSpace(fullName),
			Email:    strings.TrimSpace(email),
			Password: password,
		},
	})
	if err != nil {
		return nil, err
	}
	s.store.SetProvider(credentials.ProviderLocal)
	return &out, nil
}

// GoogleLogin exchanges a Google ID token for a session. On success the token
// is stored with provider FEDERATED.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*AuthResponse, error) {
	out, err := client.Call[AuthResponse](ctx, s.exec, client.Request{
		Method: http.MethodPost,
		Path:   RouteGoogle,
		Body:   map[string]string{"idToken": idToken},
	})
	if err != nil {
		return nil, err
	}
	s.signIn(out.AccessToken, credentials.ProviderFederated)
	return &out, nil
}

func (s *Service) signIn(token string, provider credentials.Provider) {
	if token == "" {
		log.Warn().Str("provider", provider.String()).Msg("sign-in response carried no access token")
		s.store.SetProvider(provider)
		return
	}
	s.store.SignIn(token, provider)
}

// Logout asks the backend to drop the renewal cookie and clears local state
// whatever the outcome. The returned error is informational only.
func (s *Service) Logout(ctx context.Context) error {
	defer s.store.Clear()

	_, err := s.exec.Do(ctx, client.Request{Method: http.MethodPost, Path: RouteLogout})
	if err != nil {
		log.Debug().Err(err).Msg("server logout failed, local session cleared anyway")
	}
	return err
}

func (s *Service) ResendVerification(ctx context.Context, email string) (*MessageResponse, error) {
	out, err := client.Call[MessageResponse](ctx, s.exec, client.Request{
		Method: http.MethodPost,
		Path:   RouteResendVerification,
		Body:   map[string]string{"email": strings.TrimSpace(email)},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) VerifyEmail(ctx context.Context, token string) (*MessageResponse, error) {
	out, err := client.Call[MessageResponse](ctx, s.exec, client.Request{
		Method: http.MethodPost,
		Path:   RouteVerifyEmail,
		Body:   map[string]string{"token": token},
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// LoadMe fetches the signed-in user's profile and caches it as the session
// principal.
func (s *Service) LoadMe(ctx context.Context) (*credentials.Principal, error) {
	me, err := s.Account(ctx)
	if err != nil {
		return nil, err
	}
	s.store.SetPrincipal(me)
	return me, nil
}

// Account fetches the profile without touching the cache.
func (s *Service) Account(ctx context.Context) (*credentials.Principal, error) {
	return s.principalCall(ctx, client.Request{Method: http.MethodGet, Path: RouteAccount})
}

func (s *Service) UpdateFullName(ctx context.Context, fullName string) (*credentials.Principal, error) {
	if err := policy.Check(s.store.Provider(), policy.CapUpdateProfile); err != nil {
		return nil, err
	}
	me, err := s.principalCall(ctx, client.Request{
		Method: http.MethodPatch,
		Path:   RouteAccount,
		Body:   map[string]string{"fullName": strings.TrimSpace(fullName)},
	})
	if err != nil {
		return nil, err
	}
	s.store.SetPrincipal(me)
	return me, nil
}

func (s *Service) ChangePlan(ctx context.Context, plan string) (*credentials.Principal, error) {
	if err := policy.Check(s.store.Provider(), policy.CapChangePlan); err != nil {
		return nil, err
	}
	me, err := s.principalCall(ctx, client.Request{
		Method: http.MethodPatch,
		Path:   RoutePlan,
		Body:   map[string]string{"plan": strings.ToUpper(strings.TrimSpace(plan))},
	})
	if err != nil {
		return nil, err
	}
	s.store.SetPrincipal(me)
	return me, nil
}

func (s *Service) principalCall(ctx context.Context, req client.Request) (*credentials.Principal, error) {
	me, err := client.Call[*credentials.Principal](ctx, s.exec, req)
	if err != nil {
		return nil, err
	}
	if me == nil {
		return nil, errors.Errorf("[Service principalCall] %s %s returned no profile", req.Method, req.Path)
	}
	return me, nil
}

// ChangePassword is refused locally, with a *policy.Violation and no request,
// when the provider cannot have a password. On success the backend revokes
// every renewal cookie, so the local session is cleared too.
func (s *Service) ChangePassword(ctx context.Context, current, next string) error {
	if err := policy.Check(s.store.Provider(), policy.CapChangePassword); err != nil {
		return err
	}

	_, err := s.exec.Do(ctx, client.Request{
		Method: http.MethodPatch,
		Path:   RoutePassword,
		Body:   passwordChangeRequest{CurrentPassword: current, NewPassword: next},
	})
	if err != nil {
		return err
	}
	s.store.Clear()
	return nil
}

// DeleteAccount deletes the account and clears the local session.
func (s *Service) DeleteAccount(ctx context.Context) error {
	if err := policy.Check(s.store.Provider(), policy.CapDeleteAccount); err != nil {
		return err
	}

	if _, err := s.exec.Do(ctx, client.Request{Method: http.MethodDelete, Path: RouteDeleteAccount}); err != nil {
		return err
	}
	s.store.Clear()
	return nil
}
