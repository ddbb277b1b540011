package roomchat

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/putto11262002/roomchat/core"
)

// syncMap is a map that is safe for concurrent usage.
type syncMap[K comparable, V any] struct {
	m  map[K]V
	mu sync.RWMutex
}

func newSyncMap[K comparable, V any]() *syncMap[K, V] {
	return &syncMap[K, V]{
		m: make(map[K]V),
	}
}

func (s *syncMap[K, V]) Load(key K) (value V, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	value, ok = s.m[key]
	return
}

// LoadOrCreate returns the value for key, storing the result of create when absent.
// create runs under the write lock and must not block.
func (s *syncMap[K, V]) LoadOrCreate(key K, create func() V) V {
	if v, ok := s.Load(key); ok {
		return v
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.m[key]; ok {
		return v
	}
	v := create()
	s.m[key] = v
	return v
}

// LoadAndDelete removes key and returns its previous value.
func (s *syncMap[K, V]) LoadAndDelete(key K) (value V, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok = s.m[key]
	delete(s.m, key)
	return
}

// DeleteFunc removes the entries matching del and returns them.
func (s *syncMap[K, V]) DeleteFunc(del func(K, V) bool) map[K]V {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := make(map[K]V)
	for k, v := range s.m {
		if del(k, v) {
			deleted[k] = v
			delete(s.m, k)
		}
	}
	return deleted
}

// Drain empties the map and returns what it held.
func (s *syncMap[K, V]) Drain() map[K]V {
	s.mu.Lock()
	defer s.mu.Unlock()
	drained := s.m
	s.m = make(map[K]V)
	return drained
}

func (s *syncMap[K, V]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}

// session is a registry entry. The chat is opened on first load, outside
// the registry lock.
type session struct {
	once sync.Once
	chat *core.Chat

	mu        sync.Mutex
	lastUsed  time.Time
	expiresAt time.Time
	evicted   bool
}

func (e *session) load(open func() *core.Chat) *core.Chat {
	e.once.Do(func() { e.chat = open() })
	return e.chat
}

// touch marks the entry used at now. It reports false once the entry is evicted.
func (e *session) touch(now time.Time) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.evicted {
		return false
	}
	e.lastUsed = now
	return true
}

func (e *session) expireAt(at time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.expiresAt = at
}

// evictIf marks the entry evicted when it is idle for idle or past its expiry.
func (e *session) evictIf(now time.Time, idle time.Duration) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	expired := !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
	if expired || now.Sub(e.lastUsed) >= idle {
		e.evicted = true
	}
	return e.evicted
}

func (e *session) close() {
	e.mu.Lock()
	e.evicted = true
	e.mu.Unlock()
	// waits for a concurrent open to finish
	e.once.Do(func() {})
	if e.chat != nil {
		e.chat.Close()
	}
}

// Sessions is the registry of live chats, keyed by session id. A session
// that is not live is rebuilt from storage on first use.
type Sessions struct {
	entries *syncMap[string, *session]
	options core.Options
	sched   core.Scheduler
	logger  *slog.Logger
}

// NewSessions returns a registry building chats from opts. Namespace is set per session.
// The registry clock is opts.Scheduler.
func NewSessions(opts core.Options, logger *slog.Logger) *Sessions {
	sched := opts.Scheduler
	if sched == nil {
		sched = core.RealScheduler{}
	}
	return &Sessions{
		entries: newSyncMap[string, *session](),
		options: opts,
		sched:   sched,
		logger:  logger,
	}
}

// Create starts a new session.
func (s *Sessions) Create() (string, *core.Chat) {
	id := uuid.NewString()
	return id, s.Get(id)
}

// Get returns the chat of session id, rehydrating it when needed.
// Every call counts as a use of the session.
func (s *Sessions) Get(id string) *core.Chat {
	for {
		e := s.entries.LoadOrCreate(id, func() *session { return &session{} })
		if e.touch(s.sched.Now()) {
			return e.load(func() *core.Chat { return s.open(id) })
		}
		// lost to a sweep between load and touch, the entry is gone now
	}
}

func (s *Sessions) open(id string) *core.Chat {
	opts := s.options
	opts.Namespace = id
	opts.Logger = s.logger.With(slog.String("session", id))
	s.logger.Debug("session opened", slog.String("session", id))
	return core.NewChat(opts)
}

// Touch marks a live session as used. It reports whether the session is live.
func (s *Sessions) Touch(id string) bool {
	e, ok := s.entries.Load(id)
	return ok && e.touch(s.sched.Now())
}

// ExpireAt sets the time after which a live session is swept regardless of use.
func (s *Sessions) ExpireAt(id string, at time.Time) {
	if e, ok := s.entries.Load(id); ok {
		e.expireAt(at)
	}
}

// Live reports whether the session is currently held in memory.
func (s *Sessions) Live(id string) bool {
	_, ok := s.entries.Load(id)
	return ok
}

// Evict closes a live session. Its persisted state is kept.
func (s *Sessions) Evict(id string) {
	if e, ok := s.entries.LoadAndDelete(id); ok {
		e.close()
	}
}

// Sweep evicts the sessions unused for idle and those past their expiry.
// It returns how many were evicted.
func (s *Sessions) Sweep(idle time.Duration) int {
	now := s.sched.Now()
	stale := s.entries.DeleteFunc(func(_ string, e *session) bool {
		return e.evictIf(now, idle)
	})
	for id, e := range stale {
		e.close()
		s.logger.Debug("session evicted", slog.String("session", id))
	}
	return len(stale)
}

// StartSweeper runs Sweep every period until the returned cancel is called.
func (s *Sessions) StartSweeper(period, idle time.Duration) core.Cancel {
	return s.sched.Every(period, func() {
		if n := s.Sweep(idle); n > 0 {
			s.logger.Info("swept idle sessions", slog.Int("evicted", n), slog.Int("live", s.Len()))
		}
	})
}

func (s *Sessions) Len() int {
	return s.entries.Len()
}

// CloseAll closes every live session.
func (s *Sessions) CloseAll() {
	for _, e := range s.entries.Drain() {
		e.close()
	}
}
