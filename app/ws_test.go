package roomchat

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/putto11262002/roomchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (u *UserClient) dialViewStream() *websocket.Conn {
	u.t.Helper()
	wsURL := "ws" + strings.TrimPrefix(u.server.URL, "http") + "/api/session/ws"
	httpURL, err := url.Parse(u.server.URL)
	require.NoError(u.t, err)

	header := http.Header{}
	for _, c := range u.client.Jar.Cookies(httpURL) {
		header.Add("Cookie", c.String())
	}
	conn, res, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(u.t, err)
	res.Body.Close()
	u.t.Cleanup(func() { conn.Close() })
	return conn
}

type viewFrame struct {
	Type    string    `json:"type"`
	Payload core.View `json:"payload"`
}

// readUntil reads view frames until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(core.View) bool) core.View {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var frame viewFrame
		require.NoError(t, conn.ReadJSON(&frame))
		require.Equal(t, ViewEvent, frame.Type)
		if match(frame.Payload) {
			return frame.Payload
		}
	}
}

func hasMessage(v core.View, content string) bool {
	for _, g := range v.Groups {
		for _, m := range g.Messages {
			if m.Content == content {
				return true
			}
		}
	}
	return false
}

func TestViewStream(t *testing.T) {
	f := setUpAppFixture(t)
	u := f.NewUserClient()
	u.login("alice")
	conn := u.dialViewStream()

	v := readUntil(t, conn, func(core.View) bool { return true })
	assert.True(t, v.Authenticated)
	require.NotNil(t, v.Room)
	assert.Equal(t, "general", v.Room.ID)

	t.Run("pushes changes made over http", func(t *testing.T) {
		sendMessage(t, u, "over http")
		readUntil(t, conn, func(v core.View) bool { return hasMessage(v, "over http") })
	})

	t.Run("accepts send events", func(t *testing.T) {
		payload, err := json.Marshal(SendPayload{Content: "over ws"})
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(Event{Type: SendEvent, Payload: payload}))
		readUntil(t, conn, func(v core.View) bool { return hasMessage(v, "over ws") })
	})

	t.Run("survives unknown events", func(t *testing.T) {
		require.NoError(t, conn.WriteJSON(Event{Type: "dance"}))
		payload, err := json.Marshal(TypingPayload{Text: "still here"})
		require.NoError(t, err)
		require.NoError(t, conn.WriteJSON(Event{Type: TypingEvent, Payload: payload}))
		sendMessage(t, u, "after dance")
		readUntil(t, conn, func(v core.View) bool { return hasMessage(v, "after dance") })
	})
}

func TestViewStreamRequiresSession(t *testing.T) {
	f := setUpAppFixture(t)
	wsURL := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/api/session/ws"
	_, res, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.Error(t, err)
	require.NotNil(t, res)
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
}
