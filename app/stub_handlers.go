package roomchat

import (
	"net/http"
	"strings"
	"time"

	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/router"
)

// StubHandler serves /api/messages and /api/rooms. Nothing is stored:
// every request is validated and echoed back.
type StubHandler struct {
	now func() time.Time
	rng core.Rand
}

func NewStubHandler(now func() time.Time, rng core.Rand) *StubHandler {
	return &StubHandler{now: now, rng: rng}
}

var (
	errRoomIDRequired     = router.NewJsonError(http.StatusBadRequest, "Room ID is required")
	errMissingFields      = router.NewJsonError(http.StatusBadRequest, "Missing required fields")
	errProcessMessage     = router.NewJsonError(http.StatusInternalServerError, "Failed to process message")
	errMessageAndRoomIDs  = router.NewJsonError(http.StatusBadRequest, "Message ID and Room ID are required")
	errNameAndDescription = router.NewJsonError(http.StatusBadRequest, "Name and description are required")
	errCreateRoom         = router.NewJsonError(http.StatusInternalServerError, "Failed to create room")
	errUpdateRoom         = router.NewJsonError(http.StatusInternalServerError, "Failed to update room")
)

type ListMessagesResponse struct {
	Messages []core.Message `json:"messages"`
	RoomID   string         `json:"roomId"`
	Success  bool           `json:"success"`
}

func (h *StubHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		return errRoomIDRequired
	}
	return router.WriteJSON(w, http.StatusOK, ListMessagesResponse{
		Messages: []core.Message{},
		RoomID:   roomID,
		Success:  true,
	})
}

type PostMessagePayload struct {
	Content  string `json:"content" validate:"required"`
	UserID   string `json:"userId" validate:"required"`
	Username string `json:"username" validate:"required"`
	RoomID   string `json:"roomId" validate:"required"`
}

// EchoedMessage is the message shape returned by the stub. It has no author
// avatar or color since the payload carries none.
type EchoedMessage struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	UserID    string                 `json:"userId"`
	Username  string                 `json:"username"`
	RoomID    string                 `json:"roomId"`
	Timestamp time.Time              `json:"timestamp"`
	Reactions []core.MessageReaction `json:"reactions"`
}

type PostMessageResponse struct {
	Message EchoedMessage `json:"message"`
	Success bool          `json:"success"`
}

func (h *StubHandler) PostMessageHandler(w http.ResponseWriter, r *http.Request) error {
	var payload PostMessagePayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errProcessMessage.Wrap(err)
	}
	if err := validate.Struct(payload); err != nil {
		return errMissingFields.Wrap(err)
	}

	now := h.now()
	return router.WriteJSON(w, http.StatusCreated, PostMessageResponse{
		Message: EchoedMessage{
			ID:        core.NewMessageID(now, h.rng),
			Content:   strings.TrimSpace(payload.Content),
			UserID:    payload.UserID,
			Username:  payload.Username,
			RoomID:    payload.RoomID,
			Timestamp: now,
			Reactions: []core.MessageReaction{},
		},
		Success: true,
	})
}

type DeleteMessageResponse struct {
	MessageID string `json:"messageId"`
	RoomID    string `json:"roomId"`
	Success   bool   `json:"success"`
}

func (h *StubHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) error {
	q := r.URL.Query()
	messageID, roomID := q.Get("messageId"), q.Get("roomId")
	if messageID == "" || roomID == "" {
		return errMessageAndRoomIDs
	}
	return router.WriteJSON(w, http.StatusOK, DeleteMessageResponse{
		MessageID: messageID,
		RoomID:    roomID,
		Success:   true,
	})
}

type ListRoomsResponse struct {
	Rooms   []core.ChatRoom `json:"rooms"`
	Success bool            `json:"success"`
}

func (h *StubHandler) ListRoomsHandler(w http.ResponseWriter, r *http.Request) error {
	return router.WriteJSON(w, http.StatusOK, ListRoomsResponse{
		Rooms:   core.DefaultRooms(h.now()),
		Success: true,
	})
}

type CreateRoomPayload struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description" validate:"required"`
	IsPrivate   bool   `json:"isPrivate"`
}

type RoomResponse struct {
	Room    any  `json:"room"`
	Success bool `json:"success"`
}

func (h *StubHandler) CreateRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload CreateRoomPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errCreateRoom.Wrap(err)
	}
	if err := validate.Struct(payload); err != nil {
		return errNameAndDescription.Wrap(err)
	}

	now := h.now()
	id := core.NewRoomID(now, h.rng)
	return router.WriteJSON(w, http.StatusCreated, RoomResponse{
		Room: core.ChatRoom{
			ID:           id,
			Name:         strings.TrimSpace(payload.Name),
			Description:  strings.TrimSpace(payload.Description),
			IsPrivate:    payload.IsPrivate,
			MemberCount:  1,
			LastActivity: now,
			Avatar:       core.RoomAvatar(id),
		},
		Success: true,
	})
}

type UpdateRoomPayload struct {
	ID          string  `json:"id" validate:"required"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
	IsPrivate   *bool   `json:"isPrivate"`
}

// UpdatedRoom echoes the fields of an update. Absent fields stay absent.
type UpdatedRoom struct {
	ID           string    `json:"id"`
	Name         *string   `json:"name,omitempty"`
	Description  *string   `json:"description,omitempty"`
	IsPrivate    *bool     `json:"isPrivate,omitempty"`
	LastActivity time.Time `json:"lastActivity"`
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}

func (h *StubHandler) UpdateRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload UpdateRoomPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errUpdateRoom.Wrap(err)
	}
	if err := validate.Struct(payload); err != nil {
		return errRoomIDRequired.Wrap(err)
	}
	return router.WriteJSON(w, http.StatusOK, RoomResponse{
		Room: UpdatedRoom{
			ID:           payload.ID,
			Name:         trimmed(payload.Name),
			Description:  trimmed(payload.Description),
			IsPrivate:    payload.IsPrivate,
			LastActivity: h.now(),
		},
		Success: true,
	})
}

type DeleteRoomResponse struct {
	RoomID  string `json:"roomId"`
	Success bool   `json:"success"`
}

func (h *StubHandler) DeleteRoomHandler(w http.ResponseWriter, r *http.Request) error {
	roomID := r.URL.Query().Get("roomId")
	if roomID == "" {
		return errRoomIDRequired
	}
	return router.WriteJSON(w, http.StatusOK, DeleteRoomResponse{RoomID: roomID, Success: true})
}
