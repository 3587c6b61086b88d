package memory

import (
	"sync"

	"github.com/jrsteele09/go-auth-client/credentials"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

var _ credentials.Backend = (*Backend)(nil)

// Backend keeps credentials for the lifetime of the process.
type Backend struct {
	values map[string]string
	lock   sync.RWMutex
}

func New() *Backend {
	return &Backend{
		values: make(map[string]string),
	}
}

func (b *Backend) Get(key string) (string, error) {
	b.lock.RLock()
	defer b.lock.RUnlock()

	v, ok := b.values[key]
	if !ok {
		return "", apperrors.ErrKeyNotFound
	}
	return v, nil
}

func (b *Backend) Put(entries map[string]string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for k, v := range entries {
		b.values[k] = v
	}
	return nil
}

func (b *Backend) Delete(keys ...string) error {
	b.lock.Lock()
	defer b.lock.Unlock()

	for _, k := range keys {
		delete(b.values, k)
	}
	return nil
}

// Len returns the number of stored keys.
func (b *Backend) Len() int {
	b.lock.RLock()
	defer b.lock.RUnlock()
	return len(b.values)
}
