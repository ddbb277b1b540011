package roomchat

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/kv"
	"github.com/putto11262002/roomchat/pkg/router"
	"github.com/putto11262002/roomchat/pkg/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSyncMapLoadOrCreate(t *testing.T) {
	m := newSyncMap[string, int]()
	var calls atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.LoadOrCreate("k", func() int {
				calls.Add(1)
				return 7
			})
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1, m.Len())

	v, ok := m.LoadAndDelete("k")
	assert.True(t, ok)
	assert.Equal(t, 7, v)
	_, ok = m.Load("k")
	assert.False(t, ok)
}

func TestSessions(t *testing.T) {
	store := kv.NewMemoryStore()
	sessions := NewSessions(core.Options{
		Storage:     store,
		Scheduler:   core.NewManualScheduler(time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)),
		DisableBots: true,
	}, discardLogger())
	defer sessions.CloseAll()

	id, chat := sessions.Create()
	require.NotEmpty(t, id)
	assert.Same(t, chat, sessions.Get(id))
	assert.True(t, sessions.Live(id))

	_, err := chat.Login("alice")
	require.NoError(t, err)

	other, _ := sessions.Create()
	assert.NotEqual(t, id, other)
	assert.Equal(t, 2, sessions.Len())

	sessions.Evict(id)
	assert.False(t, sessions.Live(id))

	// evicted sessions come back from storage
	restored := sessions.Get(id)
	assert.NotSame(t, chat, restored)
	state := restored.State()
	require.NotNil(t, state.CurrentUser)
	assert.Equal(t, "alice", state.CurrentUser.Username)

	// sessions never see each other's identity
	assert.Nil(t, sessions.Get(other).State().CurrentUser)
}

func TestSessionsSweep(t *testing.T) {
	start := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	newSessions := func() (*Sessions, *core.ManualScheduler) {
		sched := core.NewManualScheduler(start)
		sessions := NewSessions(core.Options{Storage: kv.NewMemoryStore(), Scheduler: sched}, discardLogger())
		t.Cleanup(sessions.CloseAll)
		return sessions, sched
	}

	t.Run("expired tokens", func(t *testing.T) {
		sessions, sched := newSessions()
		stop := sessions.StartSweeper(time.Minute, time.Hour)
		defer stop()

		for range 50 {
			id, _ := sessions.Create()
			sessions.ExpireAt(id, start.Add(time.Millisecond))
		}
		require.Equal(t, 50, sessions.Len())

		sched.Advance(time.Minute)
		assert.Zero(t, sessions.Len())
	})

	t.Run("idle sessions stop their bots", func(t *testing.T) {
		sessions, sched := newSessions()
		stop := sessions.StartSweeper(time.Minute, 10*time.Minute)
		defer stop()

		idle, chat := sessions.Create()
		_, err := chat.Login("alice")
		require.NoError(t, err)
		require.NoError(t, chat.JoinRoom("general"))
		active, _ := sessions.Create()
		// sweeper and the bot ticker
		require.Equal(t, 2, sched.Pending())

		sched.Advance(5 * time.Minute)
		sessions.Get(active)
		sched.Advance(5 * time.Minute)

		assert.False(t, sessions.Live(idle))
		assert.True(t, sessions.Live(active))
		assert.Equal(t, 1, sched.Pending())

		// the evicted session is restored on its next use
		restored := sessions.Get(idle)
		require.NotNil(t, restored.State().CurrentUser)
		assert.Equal(t, "alice", restored.State().CurrentUser.Username)
	})

	t.Run("streams keep sessions in use", func(t *testing.T) {
		sessions, sched := newSessions()
		id, _ := sessions.Create()

		sched.Advance(9 * time.Minute)
		require.True(t, sessions.Touch(id))
		sched.Advance(9 * time.Minute)
		assert.Zero(t, sessions.Sweep(10*time.Minute))

		sched.Advance(10 * time.Minute)
		assert.Equal(t, 1, sessions.Sweep(10*time.Minute))
		assert.False(t, sessions.Touch(id))
	})

	t.Run("cancel stops sweeping", func(t *testing.T) {
		sessions, sched := newSessions()
		stop := sessions.StartSweeper(time.Minute, time.Minute)
		id, _ := sessions.Create()
		stop()

		sched.Advance(time.Hour)
		assert.True(t, sessions.Live(id))
	})
}

// gatedStorage blocks reads of one session until released.
type gatedStorage struct {
	core.Storage
	prefix  string
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedStorage) Get(ctx context.Context, key string) ([]byte, error) {
	if strings.HasPrefix(key, s.prefix) {
		s.once.Do(func() { close(s.entered) })
		select {
		case <-s.release:
		case <-ctx.Done():
		}
	}
	return s.Storage.Get(ctx, key)
}

func TestSessionsOpenOutsideLock(t *testing.T) {
	storage := &gatedStorage{
		Storage: kv.NewMemoryStore(),
		prefix:  "slow:",
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	sessions := NewSessions(core.Options{Storage: storage, DisableBots: true, Scheduler: core.NewManualScheduler(time.Now())}, discardLogger())
	defer sessions.CloseAll()

	slow := make(chan *core.Chat, 2)
	for range 2 {
		go func() { slow <- sessions.Get("slow") }()
	}
	<-storage.entered

	fast := make(chan *core.Chat)
	go func() { fast <- sessions.Get("fast") }()
	select {
	case chat := <-fast:
		assert.NotNil(t, chat)
	case <-time.After(time.Second):
		t.Fatal("opening one session blocked another")
	}

	close(storage.release)
	first, second := <-slow, <-slow
	assert.Same(t, first, second)
}

func TestAuthenticator(t *testing.T) {
	secret := []byte("secret")
	sessions := NewSessions(core.Options{DisableBots: true, Scheduler: core.NewManualScheduler(time.Now())}, discardLogger())
	defer sessions.CloseAll()
	auth := NewAuthenticator(secret, time.Hour, sessions)

	t.Run("round trip", func(t *testing.T) {
		id, chat := sessions.Create()
		rec := httptest.NewRecorder()
		signed, exp, err := auth.Issue(rec, id)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().Add(time.Hour), exp, time.Minute)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		for _, c := range rec.Result().Cookies() {
			req.AddCookie(c)
		}
		session, err := auth.Authenticate(req)
		require.NoError(t, err)
		assert.Equal(t, id, session.ID)
		assert.Same(t, chat, session.Chat)

		claims, err := token.Verify(signed, secret)
		require.NoError(t, err)
		assert.Equal(t, id, claims.SessionID)
	})

	t.Run("missing or forged cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		_, err := auth.Authenticate(req)
		assert.Equal(t, errNoSession, err)

		forged, _, err := token.New("someone", time.Hour, []byte("other secret"))
		require.NoError(t, err)
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: forged})
		_, err = auth.Authenticate(req)
		var apiErr router.JsonError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode())
	})
}
