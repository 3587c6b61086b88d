// Package sqlstore keeps credentials in a SQLite table through bun. Multi-key
// writes and deletes run in one transaction.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-client/credentials"
	apperrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// DefaultFileName is the database created inside the store directory.
const DefaultFileName = "session.db"

const opTimeout = 5 * time.Second

type entry struct {
	bun.BaseModel `bun:"table:credentials"`

	Name  string `bun:"name,pk"`
	Value string `bun:"value,notnull"`
}

var _ credentials.Backend = (*Backend)(nil)

type Backend struct {
	db *bun.DB
}

// Open opens (or creates) the SQLite database at path and ensures the
// credentials table exists.
func Open(ctx context.Context, path string) (*Backend, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, path)
	if err != nil {
		return nil, fmt.Errorf("[sqlstore Open] failed to open %s: %w", path, err)
	}
	sqldb.SetMaxOpenConns(1)

	b, err := New(ctx, bun.NewDB(sqldb, sqlitedialect.New()))
	if err != nil {
		_ = sqldb.Close()
		return nil, err
	}
	return b, nil
}

// New wraps an existing bun database and creates the table if needed.
func New(ctx context.Context, db *bun.DB) (*Backend, error) {
	if _, err := db.NewCreateTable().Model((*entry)(nil)).IfNotExists().Exec(ctx); err != nil {
		return nil, fmt.Errorf("[sqlstore New] failed to create table: %w", err)
	}
	return &Backend{db: db}, nil
}

func (b *Backend) Close() error {
	return b.db.Close()
}

func (b *Backend) Get(key string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var e entry
	err := b.db.NewSelect().Model(&e).Where("name = ?", key).Limit(1).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apperrors.ErrKeyNotFound
	}
	if err != nil {
		return "", fmt.Errorf("[sqlstore Get] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return e.Value, nil
}

func (b *Backend) Put(entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for k, v := range entries {
			_, err := tx.NewInsert().
				Model(&entry{Name: k, Value: v}).
				On("CONFLICT (name) DO UPDATE").
				Set("value = EXCLUDED.value").
				Exec(ctx)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("[sqlstore Put] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}

func (b *Backend) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := b.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		_, err := tx.NewDelete().
			Model((*entry)(nil)).
			Where("name IN (?)", bun.In(keys)).
			Exec(ctx)
		return err
	})
	if err != nil {
		return fmt.Errorf("[sqlstore Delete] %w: %v", apperrors.ErrStorageUnavailable, err)
	}
	return nil
}
