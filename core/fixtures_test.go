package core

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/pkg/kv"
)

var start = time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

// fixedRand always draws f and index 0.
type fixedRand struct {
	f float64
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return 0 }

// chanceRand draws indexes from a seeded source and always returns f from Float64.
type chanceRand struct {
	*rand.Rand
	f float64
}

func (r chanceRand) Float64() float64 { return r.f }

func seeded() *rand.Rand {
	return rand.New(rand.NewPCG(1, 2))
}

var errStorageDown = errors.New("storage down")

// failingStorage fails every call.
type failingStorage struct{}

func (failingStorage) Get(context.Context, string) ([]byte, error) { return nil, errStorageDown }
func (failingStorage) Set(context.Context, string, []byte) error   { return errStorageDown }
func (failingStorage) Delete(context.Context, string) error        { return errStorageDown }

type persistErrors struct {
	mu   sync.Mutex
	errs []error
}

func (p *persistErrors) record(_, _ string, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, err)
}

func (p *persistErrors) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.errs)
}

type ChatFixture struct {
	t        *testing.T
	sched    *ManualScheduler
	storage  Storage
	chat     *Chat
	errors   *persistErrors
	tearDown func()
}

type fixtureOption func(*Options)

func withStorage(s Storage) fixtureOption {
	return func(o *Options) { o.Storage = s }
}

func withRand(r Rand) fixtureOption {
	return func(o *Options) { o.Rand = r }
}

func withBots() fixtureOption {
	return func(o *Options) { o.DisableBots = false }
}

func NewChatFixture(t *testing.T, opts ...fixtureOption) *ChatFixture {
	f := &ChatFixture{
		t:       t,
		sched:   NewManualScheduler(start),
		storage: kv.NewMemoryStore(),
		errors:  &persistErrors{},
	}
	o := Options{
		Storage:        f.storage,
		Namespace:      "session-1",
		Scheduler:      f.sched,
		Rand:           seeded(),
		DisableBots:    true,
		OnPersistError: f.errors.record,
	}
	for _, opt := range opts {
		opt(&o)
	}
	f.storage = o.Storage
	f.chat = NewChat(o)
	f.tearDown = f.chat.Close
	return f
}

// loggedIn logs in and joins general.
func (f *ChatFixture) loggedIn(username string) User {
	user, err := f.chat.Login(username)
	if err != nil {
		f.t.Fatal(err)
	}
	if err := f.chat.JoinRoom("general"); err != nil {
		f.t.Fatal(err)
	}
	return user
}

func messageIDs(messages []Message) []string {
	ids := make([]string, len(messages))
	for i, m := range messages {
		ids[i] = m.ID
	}
	return ids
}

func msgAt(id, userID string, ts time.Time) Message {
	return Message{
		ID:        id,
		Content:   "content " + id,
		UserID:    userID,
		Username:  userID,
		Timestamp: ts,
		RoomID:    "general",
		Reactions: []MessageReaction{},
	}
}
