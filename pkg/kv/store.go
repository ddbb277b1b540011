// Package kv provides the key/value backends chat sessions persist into.
package kv

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Store is a byte oriented key/value store. Get returns a nil value and a
// nil error for a missing key.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	io.Closer
}

const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
	DriverMemory = "memory"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// Config selects and configures a backend.
type Config struct {
	Driver     string
	SQLiteFile string
	RedisAddr  string
	RedisDB    int
}

// Open returns the backend named by cfg.Driver. SQLite databases are migrated.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverSQLite:
		db, err := NewSQLiteDB(cfg.SQLiteFile, &SQLiteDBOption{Mode: "rwc", JournalMode: "WAL"})
		if err != nil {
			return nil, fmt.Errorf("Open: %w", err)
		}
		if err := db.Migrate(); err != nil {
			db.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		return NewSQLiteStore(db), nil
	case DriverRedis:
		s := NewRedisStore(cfg.RedisAddr, cfg.RedisDB)
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("Open: %w", err)
		}
		return s, nil
	case DriverMemory, "":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("Open: %w: %q", ErrUnknownDriver, cfg.Driver)
	}
}
