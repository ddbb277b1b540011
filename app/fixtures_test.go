package roomchat

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/putto11262002/roomchat/pkg/kv"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	c := &Config{
		Port:     8080,
		Hostname: "127.0.0.1",
		Mode:     DevMode,
	}
	c.Log.Level = "error"
	c.Auth.Secret = []byte("0123456789abcdef0123456789abcdef")
	c.Auth.TTL = time.Hour
	c.Storage.Driver = kv.DriverMemory
	c.Session.Idle = 30 * time.Minute
	c.Session.Sweep = time.Minute
	c.AllowedOrigins = []string{"*"}
	return c
}

type appFixture struct {
	t      *testing.T
	app    *App
	server *httptest.Server
	cancel context.CancelFunc
}

func setUpAppFixture(t *testing.T, configure ...func(*Config)) *appFixture {
	config := testConfig()
	for _, f := range configure {
		f(config)
	}
	ctx, cancel := context.WithCancel(context.Background())
	app, err := New(ctx, config)
	require.NoError(t, err)

	f := &appFixture{t: t, app: app, server: httptest.NewServer(app.Handler()), cancel: cancel}
	t.Cleanup(f.tearDown)
	return f
}

func (f *appFixture) tearDown() {
	f.cancel()
	f.server.Close()
	f.app.wg.Wait()
	f.app.Close(context.Background())
}

// UserClient is a browser tab: it keeps its session cookie between requests.
type UserClient struct {
	t      *testing.T
	server *httptest.Server
	client *http.Client
}

func (f *appFixture) NewUserClient() *UserClient {
	jar, err := cookiejar.New(nil)
	require.NoError(f.t, err)
	client := f.server.Client()
	client.Jar = jar
	return &UserClient{t: f.t, server: f.server, client: client}
}

func (u *UserClient) do(method, path string, body any) *http.Response {
	u.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = bytes.NewBufferString(b)
	default:
		buf, err := json.Marshal(b)
		require.NoError(u.t, err)
		r = bytes.NewReader(buf)
	}
	req, err := http.NewRequest(method, u.server.URL+path, r)
	require.NoError(u.t, err)
	req.Header.Set("Content-Type", "application/json")
	res, err := u.client.Do(req)
	require.NoError(u.t, err)
	u.t.Cleanup(func() { res.Body.Close() })
	return res
}

// login signs username in and joins general.
func (u *UserClient) login(username string) LoginResponse {
	u.t.Helper()
	res := u.do(http.MethodPost, "/api/session/login", LoginPayload{Username: username})
	require.Equal(u.t, http.StatusCreated, res.StatusCode)
	var body LoginResponse
	decode(u.t, res, &body)
	res = u.do(http.MethodPut, "/api/session/room", JoinRoomPayload{RoomID: "general"})
	require.Equal(u.t, http.StatusOK, res.StatusCode)
	return body
}

func decode(t *testing.T, res *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(res.Body).Decode(v))
}

// errorBody returns the error message of a failed response.
func errorBody(t *testing.T, res *http.Response) string {
	t.Helper()
	var body struct {
		Error string `json:"error"`
	}
	decode(t, res, &body)
	return body.Error
}
