// Package filestore persists credentials as a single JSON document on disk.
// Every write replaces the whole file through a rename, so a multi-key change
// is either fully visible or not at all.
package filestore

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/jrsteele09/go-auth-client/credentials"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
)

// DefaultFileName is the file created inside the store directory.
const DefaultFileName = "session.json"

var _ credentials.Backend = (*Backend)(nil)

type Backend struct {
	path string
	lock sync.Mutex
}

// New returns a Backend writing to path. The parent directory is created on
// first write with 0700 permissions.
func New(path string) *Backend {
	return &Backend{path: path}
}

// Path returns the file backing the store.
func (b *Backend) Path() string {
	return b.path
}

func (b *Backend) Get(key string) (string, error) {
	b.lock.Lock()
	defer b.lock.Unlock()

	values, err := b.read()
	if err != nil {
		return "", err
	}

	v, ok := values[key]
	if !ok {
		return "", apperrors.ErrKeyNotFound
	}
	return v, nil
}

func (b *Backend) Put(entries map[string]string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	values, err := b.read()
	if err != nil {
		return err
	}
	for k, v := range entries {
		values[k] = v
	}
	return b.write(values)
}

func (b *Backend) Delete(keys ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	values, err := b.read()
	if err != nil {
		return err
	}

	changed := false
	for _, k := range keys {
		if _, ok := values[k]; ok {
			delete(values, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return b.write(values)
}

func (b *Backend) read() (map[string]string, error) {
	data, err := os.ReadFile(b.path)
	if os.IsNotExist(err) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore read] %w: %v", apperrors.ErrStorageUnavailable, err)
	}

	values := make(map[string]string)
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("[filestore read] %w: corrupt file %s: %v", apperrors.ErrStorageUnavailable, b.path, err)
	}
	return values, nil
}

func (b *Backend) write(values map[string]string) error {
	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("[filestore write] encode: %w", err)
	}
	if err := utils.WriteFileAtomic(b.path, data, 0o600); err != nil {
		return fmt.Errorf("[filestore write] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}
