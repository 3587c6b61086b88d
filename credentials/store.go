package credentials

import (
	"encoding/json"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/rs/zerolog/log"
)

// Store is the credential repository shared by the executor, the route guard
// and the auth service. It never fails: storage problems are logged and read
// back as absence, so the client degrades to unauthenticated behaviour.
type Store struct {
	backend Backend
	mu      sync.Mutex // guards epoch and the provider fallback's read-then-write
	epoch   uint64     // bumped whenever a session ends or a new one begins
}

// NewStore creates a Store over the given storage medium.
func NewStore(backend Backend) *Store {
	return &Store{backend: backend}
}

// Token returns the current bearer token, or "" when there is none.
func (s *Store) Token() string {
	return s.get(KeyAccessToken)
}

// HasToken reports whether a bearer token is stored.
func (s *Store) HasToken() bool {
	return s.Token() != ""
}

// SetToken stores the bearer token. An empty token removes it.
func (s *Store) SetToken(token string) {
	if token == "" {
		s.delete(KeyAccessToken)
		return
	}
	s.put(map[string]string{KeyAccessToken: token})
}

// Session returns the bearer token together with the current session epoch.
func (s *Store) Session() (string, uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(KeyAccessToken), s.epoch
}

// Epoch identifies the current session. It changes on Clear and SignIn.
func (s *Store) Epoch() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.epoch
}

// SetTokenIf stores a renewed token only while the session identified by
// epoch is still current. It reports whether the token was stored.
func (s *Store) SetTokenIf(epoch uint64, token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || token == "" {
		return false
	}
	s.put(map[string]string{KeyAccessToken: token})
	return true
}

// SignIn records a fresh token together with the provider that issued it and
// drops any profile cached for a previous session.
func (s *Store) SignIn(token string, provider Provider) {
	if token == "" {
		s.SetProvider(provider)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.delete(KeyAuthUser)
	s.put(map[string]string{
		KeyAccessToken:  token,
		KeyAuthProvider: provider.String(),
	})
}

// Principal returns the cached profile snapshot.
func (s *Store) Principal() (*Principal, bool) {
	raw := s.get(KeyAuthUser)
	if raw == "" {
		return nil, false
	}

	var p Principal
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		log.Warn().Err(err).Msg("discarding unreadable cached profile")
		return nil, false
	}
	return &p, true
}

// SetPrincipal caches the profile. A nil principal removes it. When the
// profile carries a resolved provider the cached tag is updated with it.
func (s *Store) SetPrincipal(p *Principal) {
	if p == nil {
		s.delete(KeyAuthUser)
		return
	}

	raw, err := json.Marshal(p)
	if err != nil {
		log.Warn().Err(err).Msg("failed to encode profile")
		return
	}

	entries := map[string]string{KeyAuthUser: string(raw)}
	if p.Provider.Known() {
		entries[KeyAuthProvider] = p.Provider.String()
	}
	s.put(entries)
}

// Provider returns the cached provider tag. When none is cached it falls back
// to the bearer token's provider claim and caches a resolved value.
func (s *Store) Provider() Provider {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p := ParseProvider(s.get(KeyAuthProvider)); p.Known() {
		return p
	}

	p := providerFromClaims(s.get(KeyAccessToken))
	if p.Known() {
		s.put(map[string]string{KeyAuthProvider: p.String()})
	}
	return p
}

// SetProvider caches the provider tag.
func (s *Store) SetProvider(p Provider) {
	if !p.Known() {
		s.delete(KeyAuthProvider)
		return
	}
	s.put(map[string]string{KeyAuthProvider: p.String()})
}

// Clear removes the token, the cached profile and the provider tag in one
// storage operation.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.epoch++
	s.delete(SessionKeys...)
}

func (s *Store) get(key string) string {
	v, err := s.backend.Get(key)
	if err != nil {
		if !apperrors.Is(err, apperrors.ErrKeyNotFound) {
			log.Warn().Err(err).Str("key", key).Msg("credential storage read failed")
		}
		return ""
	}
	return v
}

func (s *Store) put(entries map[string]string) {
	if err := s.backend.Put(entries); err != nil {
		log.Warn().Err(err).Int("keys", len(entries)).Msg("credential storage write failed")
	}
}

func (s *Store) delete(keys ...string) {
	if err := s.backend.Delete(keys...); err != nil {
		log.Warn().Err(err).Strs("keys", keys).Msg("credential storage delete failed")
	}
}
