package roomchat

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/putto11262002/roomchat/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessagesStub(t *testing.T) {
	f := setUpAppFixture(t)
	u := f.NewUserClient()

	t.Run("list requires a room", func(t *testing.T) {
		res := u.do(http.MethodGet, "/api/messages", nil)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Room ID is required", errorBody(t, res))
	})

	t.Run("list is always empty", func(t *testing.T) {
		res := u.do(http.MethodGet, "/api/messages?roomId=general", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body ListMessagesResponse
		decode(t, res, &body)
		assert.Equal(t, ListMessagesResponse{Messages: []core.Message{}, RoomID: "general", Success: true}, body)
	})

	t.Run("post echoes the message", func(t *testing.T) {
		res := u.do(http.MethodPost, "/api/messages", PostMessagePayload{
			Content:  "  hi ",
			UserID:   "u1",
			Username: "Alice",
			RoomID:   "general",
		})
		require.Equal(t, http.StatusCreated, res.StatusCode)
		var body map[string]json.RawMessage
		decode(t, res, &body)
		assert.JSONEq(t, "true", string(body["success"]))

		var m EchoedMessage
		require.NoError(t, json.Unmarshal(body["message"], &m))
		assert.Equal(t, "hi", m.Content)
		assert.Equal(t, "general", m.RoomID)
		assert.Equal(t, "u1", m.UserID)
		assert.Regexp(t, `^msg-\d+-[0-9a-z]{9}$`, m.ID)
		assert.NotNil(t, m.Reactions)
		assert.False(t, m.Timestamp.IsZero())
	})

	t.Run("post requires every field", func(t *testing.T) {
		res := u.do(http.MethodPost, "/api/messages", map[string]string{"content": "hi", "roomId": "general"})
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Missing required fields", errorBody(t, res))
	})

	t.Run("post with a broken body", func(t *testing.T) {
		res := u.do(http.MethodPost, "/api/messages", "{not json")
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Equal(t, "Failed to process message", errorBody(t, res))
	})

	t.Run("delete", func(t *testing.T) {
		res := u.do(http.MethodDelete, "/api/messages?messageId=m1", nil)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Message ID and Room ID are required", errorBody(t, res))

		res = u.do(http.MethodDelete, "/api/messages?messageId=m1&roomId=general", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body DeleteMessageResponse
		decode(t, res, &body)
		assert.Equal(t, DeleteMessageResponse{MessageID: "m1", RoomID: "general", Success: true}, body)
	})
}

func TestRoomsStub(t *testing.T) {
	f := setUpAppFixture(t)
	u := f.NewUserClient()

	t.Run("catalog", func(t *testing.T) {
		res := u.do(http.MethodGet, "/api/rooms", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body ListRoomsResponse
		decode(t, res, &body)
		assert.True(t, body.Success)
		require.Len(t, body.Rooms, 5)
		assert.Equal(t, "general", body.Rooms[0].ID)
	})

	t.Run("create", func(t *testing.T) {
		res := u.do(http.MethodPost, "/api/rooms", CreateRoomPayload{Name: " Games ", Description: "play"})
		require.Equal(t, http.StatusCreated, res.StatusCode)
		var body struct {
			Room    core.ChatRoom `json:"room"`
			Success bool          `json:"success"`
		}
		decode(t, res, &body)
		assert.True(t, body.Success)
		assert.Equal(t, "Games", body.Room.Name)
		assert.Equal(t, 1, body.Room.MemberCount)
		assert.Regexp(t, `^room-\d+-[0-9a-z]{9}$`, body.Room.ID)
	})

	t.Run("create without a description", func(t *testing.T) {
		res := u.do(http.MethodPost, "/api/rooms", map[string]string{"name": "Games"})
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Name and description are required", errorBody(t, res))
	})

	t.Run("create with a broken body", func(t *testing.T) {
		res := u.do(http.MethodPost, "/api/rooms", "[")
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Equal(t, "Failed to create room", errorBody(t, res))
	})

	t.Run("update echoes only the given fields", func(t *testing.T) {
		res := u.do(http.MethodPut, "/api/rooms", map[string]any{"id": "general", "name": " Lobby "})
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body struct {
			Room map[string]any `json:"room"`
		}
		decode(t, res, &body)
		assert.Equal(t, "general", body.Room["id"])
		assert.Equal(t, "Lobby", body.Room["name"])
		assert.NotContains(t, body.Room, "description")
		assert.NotContains(t, body.Room, "isPrivate")
		assert.Contains(t, body.Room, "lastActivity")
	})

	t.Run("update requires an id", func(t *testing.T) {
		res := u.do(http.MethodPut, "/api/rooms", map[string]any{"name": "Lobby"})
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Room ID is required", errorBody(t, res))

		res = u.do(http.MethodPut, "/api/rooms", "nope")
		require.Equal(t, http.StatusInternalServerError, res.StatusCode)
		assert.Equal(t, "Failed to update room", errorBody(t, res))
	})

	t.Run("delete", func(t *testing.T) {
		res := u.do(http.MethodDelete, "/api/rooms", nil)
		require.Equal(t, http.StatusBadRequest, res.StatusCode)
		assert.Equal(t, "Room ID is required", errorBody(t, res))

		res = u.do(http.MethodDelete, "/api/rooms?roomId=help", nil)
		require.Equal(t, http.StatusOK, res.StatusCode)
		var body DeleteRoomResponse
		decode(t, res, &body)
		assert.Equal(t, DeleteRoomResponse{RoomID: "help", Success: true}, body)
	})
}
