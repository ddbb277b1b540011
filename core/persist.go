package core

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

const (
	UserKey     = "chat-user"
	MessagesKey = "chat-messages"
)

// Storage is a byte oriented key/value store.
// Get returns a nil value and a nil error for a missing key.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Persister writes JSON values to a Storage under a session scoped prefix.
// It never returns errors: failed reads yield the caller's default, failed
// writes are dropped, and both are reported to OnError.
type Persister struct {
	storage Storage
	prefix  string
	timeout time.Duration
	OnError func(op, key string, err error)
}

// NewPersister returns a persister scoped to namespace. A nil logger discards failures.
func NewPersister(storage Storage, namespace string, logger *slog.Logger) *Persister {
	p := &Persister{
		storage: storage,
		prefix:  namespace + ":",
		timeout: 2 * time.Second,
	}
	if logger != nil {
		p.OnError = func(op, key string, err error) {
			logger.Warn("persist failed", slog.String("op", op), slog.String("key", key), slog.String("error", err.Error()))
		}
	}
	return p
}

func (p *Persister) key(k string) string {
	return p.prefix + k
}

func (p *Persister) fail(op, key string, err error) {
	if p.OnError != nil {
		p.OnError(op, key, err)
	}
}

// Load decodes the value stored under key, or returns def.
func Load[T any](p *Persister, key string, def T) T {
	if p == nil || p.storage == nil {
		return def
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	raw, err := p.storage.Get(ctx, p.key(key))
	if err != nil {
		p.fail("load", key, err)
		return def
	}
	if raw == nil {
		return def
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		p.fail("load", key, err)
		return def
	}
	return v
}

// Save encodes v and stores it under key.
func (p *Persister) Save(key string, v any) {
	if p == nil || p.storage == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		p.fail("save", key, err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.storage.Set(ctx, p.key(key), raw); err != nil {
		p.fail("save", key, err)
	}
}

func (p *Persister) Delete(key string) {
	if p == nil || p.storage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.storage.Delete(ctx, p.key(key)); err != nil {
		p.fail("delete", key, err)
	}
}
