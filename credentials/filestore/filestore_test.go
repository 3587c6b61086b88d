package filestore_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jrsteele09/go-auth-client/credentials"
	"github.com/jrsteele09/go-auth-client/credentials/filestore"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestBackend_PersistsAcrossInstances(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", filestore.DefaultFileName)

	s := credentials.NewStore(filestore.New(path))
	s.SignIn("abc", credentials.ProviderLocal)
	s.SetPrincipal(&credentials.Principal{ID: "u1", Email: "a@b.com"})

	reopened := credentials.NewStore(filestore.New(path))
	require.Equal(t, "abc", reopened.Token())
	require.Equal(t, credentials.ProviderLocal, reopened.Provider())
	p, ok := reopened.Principal()
	require.True(t, ok)
	require.Equal(t, "u1", p.ID)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestBackend_ClearRemovesAllKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), filestore.DefaultFileName)
	b := filestore.New(path)

	require.NoError(t, b.Put(map[string]string{
		credentials.KeyAccessToken:  "t",
		credentials.KeyAuthUser:     "{}",
		credentials.KeyAuthProvider: "LOCAL",
		"unrelated":                 "kept",
	}))
	require.NoError(t, b.Delete(credentials.SessionKeys...))

	for _, k := range credentials.SessionKeys {
		_, err := b.Get(k)
		require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
	}
	v, err := b.Get("unrelated")
	require.NoError(t, err)
	require.Equal(t, "kept", v)
}

func TestBackend_MissingFileIsEmpty(t *testing.T) {
	b := filestore.New(filepath.Join(t.TempDir(), "none.json"))

	_, err := b.Get(credentials.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrKeyNotFound)
	require.NoError(t, b.Delete(credentials.SessionKeys...))
}

func TestBackend_CorruptFileIsUnavailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), filestore.DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("{truncated"), 0o600))

	b := filestore.New(path)
	_, err := b.Get(credentials.KeyAccessToken)
	require.ErrorIs(t, err, apperrors.ErrStorageUnavailable)

	// The store hides the failure and reports no session.
	require.False(t, credentials.NewStore(b).HasToken())
}
