package fakeapi

import (
	"crypto/rand"
	"encoding/hex"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	refreshTokenLength = 32
	tokenTypeBearer    = "Bearer"
)

var errRefreshInvalid = errors.New("refresh token invalid or expired")

// accessClaims are the claims carried by a bearer token. The provider claim
// is what clients fall back to when they have no cached provider tag.
type accessClaims struct {
	Email    string `json:"email"`
	Provider string `json:"provider"`
	jwtlib.RegisteredClaims
}

// tokenIssuer signs and verifies HS256 bearer tokens.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (ti *tokenIssuer) Issue(user *User) (string, error) {
	now := ti.now()
	claims := accessClaims{
		Email:    user.Email,
		Provider: user.Provider,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ti.ttl)),
			ID:        uuid.New().String(),
		},
	}

	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(ti.secret)
	if err != nil {
		return "", errors.Wrap(err, "[tokenIssuer Issue] failed to sign access token")
	}
	return signed, nil
}

func (ti *tokenIssuer) Verify(token string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwtlib.ParseWithClaims(token, claims,
		func(*jwtlib.Token) (any, error) { return ti.secret, nil },
		jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}),
		jwtlib.WithTimeFunc(ti.now),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[tokenIssuer Verify] invalid access token")
	}
	return claims, nil
}

func (ti *tokenIssuer) ExpiresInSeconds() int64 {
	return int64(ti.ttl / time.Second)
}

type storedRefreshToken struct {
	UserID string
	Iat    time.Time
}

// refreshManager handles opaque refresh tokens. Every use rotates the token:
// the presented value is revoked and a new one is issued.
type refreshManager struct {
	lock   sync.Mutex
	tokens map[string]storedRefreshToken
	ttl    time.Duration
	now    func() time.Time
}

func newRefreshManager(ttl time.Duration, now func() time.Time) *refreshManager {
	return &refreshManager{
		tokens: make(map[string]storedRefreshToken),
		ttl:    ttl,
		now:    now,
	}
}

func (m *refreshManager) Create(userID string) (string, error) {
	tokenBytes := make([]byte, refreshTokenLength)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", errors.Wrap(err, "[refreshManager Create] failed to generate random bytes")
	}
	token := hex.EncodeToString(tokenBytes)

	m.lock.Lock()
	defer m.lock.Unlock()
	m.tokens[token] = storedRefreshToken{UserID: userID, Iat: m.now()}
	return token, nil
}

// Rotate revokes token and returns its user together with a replacement.
func (m *refreshManager) Rotate(token string) (string, string, error) {
	m.lock.Lock()
	stored, ok := m.tokens[token]
	delete(m.tokens, token)
	m.lock.Unlock()

	if !ok || m.now().Sub(stored.Iat) > m.ttl {
		return "", "", errRefreshInvalid
	}

	next, err := m.Create(stored.UserID)
	if err != nil {
		return "", "", err
	}
	return stored.UserID, next, nil
}

func (m *refreshManager) Revoke(token string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.tokens, token)
}

// RevokeUser drops every refresh token issued to userID.
func (m *refreshManager) RevokeUser(userID string) {
	m.lock.Lock()
	defer m.lock.Unlock()
	for token, stored := range m.tokens {
		if stored.UserID == userID {
			delete(m.tokens, token)
		}
	}
}

func (m *refreshManager) Count(userID string) int {
	m.lock.Lock()
	defer m.lock.Unlock()
	n := 0
	for _, stored := range m.tokens {
		if stored.UserID == userID {
			n++
		}
	}
	return n
}

type verification struct {
	email   string
	expires time.Time
}

// verificationStore holds one-time email verification tokens.
type verificationStore struct {
	lock   sync.Mutex
	tokens map[string]verification
	latest map[string]string
	ttl    time.Duration
	now    func() time.Time
}

func newVerificationStore(ttl time.Duration, now func() time.Time) *verificationStore {
	return &verificationStore{
		tokens: make(map[string]verification),
		latest: make(map[string]string),
		ttl:    ttl,
		now:    now,
	}
}

func (vs *verificationStore) Issue(email string) string {
	token := uuid.New().String()

	vs.lock.Lock()
	defer vs.lock.Unlock()
	vs.tokens[token] = verification{email: email, expires: vs.now().Add(vs.ttl)}
	vs.latest[email] = token
	return token
}

// Consume returns the email for token. Codes match the backend's:
// token_invalid for unknown tokens and token_expired for stale ones.
func (vs *verificationStore) Consume(token string) (string, string) {
	vs.lock.Lock()
	defer vs.lock.Unlock()

	v, ok := vs.tokens[token]
	if !ok {
		return "", codeTokenInvalid
	}
	delete(vs.tokens, token)
	if vs.now().After(v.expires) {
		return "", codeTokenExpired
	}
	return v.email, ""
}

func (vs *verificationStore) Latest(email string) string {
	vs.lock.Lock()
	defer vs.lock.Unlock()
	return vs.latest[normalizeEmail(email)]
}
