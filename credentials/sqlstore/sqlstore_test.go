package sqlstore_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/sqlstore"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func setupBackend(t *testing.T, path string) *sqlstore.Backend {
	t.Helper()

	b, err := sqlstore.Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })
	return b
}

func TestBackend_PutGetDelete(t *testing.T) {
	b := setupBackend(t, filepath.Join(t.TempDir(), sqlstore.DefaultFileName))

	_, err := b.Get(credentials.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)

	require.NoError(t, b.Put(map[string]string{credentials.KeyAccessToken: "one"}))
	require.NoError(t, b.Put(map[string]string{credentials.KeyAccessToken: "two"}))

	v, err := b.Get(credentials.KeyAccessToken)
	require.NoError(t, err)
	require.Equal(t, "two", v, "put upserts")

	require.NoError(t, b.Delete(credentials.KeyAccessToken))
	_, err = b.Get(credentials.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
}

func TestBackend_StoreClearIsAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), sqlstore.DefaultFileName)
	s := credentials.NewStore(setupBackend(t, path))

	s.SignIn("abc", credentials.ProviderFederated)
	s.SetPrincipal(&credentials.Principal{ID: "u1"})
	require.True(t, s.HasToken())

	s.Clear()

	require.False(t, s.HasToken())
	_, ok := s.Principal()
	require.False(t, ok)
	require.Equal(t, credentials.ProviderUnknown, s.Provider())
}

func TestBackend_ClosedDatabaseIsUnavailable(t *testing.T) {
	b, err := sqlstore.Open(context.Background(), filepath.Join(t.TempDir(), sqlstore.DefaultFileName))
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = b.Get(credentials.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)
	require.ErrorIs(t, b.Delete(credentials.SessionKeys...), apperrors.ErrStorageUnavailable)
}
