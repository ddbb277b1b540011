package roomchat

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/router"
)

// SessionHandler serves the chat of the request session.
type SessionHandler struct {
	auth     *Authenticator
	sessions *Sessions
}

func NewSessionHandler(auth *Authenticator, sessions *Sessions) *SessionHandler {
	return &SessionHandler{auth: auth, sessions: sessions}
}

var (
	errMessageNotFound = router.NewJsonError(http.StatusNotFound, "message not found")
	errInvalidContent  = router.NewJsonError(http.StatusBadRequest, "message must be between 1 and 2000 characters")
	errEmojiRequired   = router.NewJsonError(http.StatusBadRequest, "emoji is required")
	errBadPayload      = router.NewJsonError(http.StatusBadRequest, "invalid request body")
)

type LoginPayload struct {
	Username string `json:"username"`
}

type LoginResponse struct {
	User      core.User `json:"user"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	Success   bool      `json:"success"`
}

// LoginHandler signs username into the session of the request cookie,
// starting a new session when there is none.
func (h *SessionHandler) LoginHandler(w http.ResponseWriter, r *http.Request) error {
	var payload LoginPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errBadPayload.Wrap(err)
	}

	session, err := h.auth.Authenticate(r)
	if err != nil {
		session.ID, session.Chat = h.sessions.Create()
	}

	user, err := session.Chat.Login(payload.Username)
	if err != nil {
		return err
	}

	signed, exp, err := h.auth.Issue(w, session.ID)
	if err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusCreated, LoginResponse{
		User:      user,
		Token:     signed,
		ExpiresAt: exp,
		Success:   true,
	})
}

type SuccessResponse struct {
	Success bool `json:"success"`
}

// LogoutHandler resets the session chat. The session itself stays valid.
func (h *SessionHandler) LogoutHandler(w http.ResponseWriter, r *http.Request) error {
	session := SessionFromRequest(r)
	session.Chat.Logout()
	return router.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

// EndSessionHandler drops the session and its cookie.
func (h *SessionHandler) EndSessionHandler(w http.ResponseWriter, r *http.Request) error {
	session := SessionFromRequest(r)
	session.Chat.Logout()
	h.sessions.Evict(session.ID)
	h.auth.Clear(w)
	return router.WriteJSON(w, http.StatusOK, SuccessResponse{Success: true})
}

type ViewResponse struct {
	View    core.View `json:"view"`
	Success bool      `json:"success"`
}

func (h *SessionHandler) ViewHandler(w http.ResponseWriter, r *http.Request) error {
	session := SessionFromRequest(r)
	return router.WriteJSON(w, http.StatusOK, ViewResponse{View: session.Chat.View(), Success: true})
}

type JoinRoomPayload struct {
	RoomID string `json:"roomId" validate:"required,notblank"`
}

func (h *SessionHandler) JoinRoomHandler(w http.ResponseWriter, r *http.Request) error {
	var payload JoinRoomPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errBadPayload.Wrap(err)
	}
	if err := validate.Struct(payload); err != nil {
		return errRoomIDRequired.Wrap(err)
	}
	session := SessionFromRequest(r)
	if err := session.Chat.JoinRoom(payload.RoomID); err != nil {
		return err
	}
	return router.WriteJSON(w, http.StatusOK, ViewResponse{View: session.Chat.View(), Success: true})
}

type SessionMessagesResponse struct {
	Messages []core.Message `json:"messages"`
	RoomID   string         `json:"roomId"`
	Success  bool           `json:"success"`
}

// ListMessagesHandler returns the messages of the current room, filtered by
// the q query parameter when present.
func (h *SessionHandler) ListMessagesHandler(w http.ResponseWriter, r *http.Request) error {
	state := SessionFromRequest(r).Chat.State()
	messages := core.SearchMessages(core.CurrentMessages(state), r.URL.Query().Get("q"))
	if messages == nil {
		messages = []core.Message{}
	}
	return router.WriteJSON(w, http.StatusOK, SessionMessagesResponse{
		Messages: messages,
		RoomID:   state.CurrentRoom,
		Success:  true,
	})
}

type SendPayload struct {
	Content string `json:"content"`
}

type SessionMessageResponse struct {
	Message core.Message `json:"message"`
	Success bool         `json:"success"`
}

// SendHandler posts to the current room. Content that would not be sent
// yields 204 with no body.
func (h *SessionHandler) SendHandler(w http.ResponseWriter, r *http.Request) error {
	var payload SendPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errBadPayload.Wrap(err)
	}
	chat := SessionFromRequest(r).Chat
	if _, err := currentUser(chat); err != nil {
		return err
	}
	m, ok := chat.Send(payload.Content)
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	return router.WriteJSON(w, http.StatusCreated, SessionMessageResponse{Message: m, Success: true})
}

// messageFromRequest resolves the {messageID} of the current room.
func messageFromRequest(r *http.Request) (*core.Chat, core.Message, error) {
	chat := SessionFromRequest(r).Chat
	if _, err := currentUser(chat); err != nil {
		return nil, core.Message{}, err
	}
	state := chat.State()
	m, ok := core.FindMessage(state, state.CurrentRoom, chi.URLParam(r, "messageID"))
	if !ok {
		return nil, core.Message{}, errMessageNotFound
	}
	return chat, m, nil
}

// respondMessage writes the current version of messageID.
func respondMessage(w http.ResponseWriter, chat *core.Chat, messageID string) error {
	state := chat.State()
	m, ok := core.FindMessage(state, state.CurrentRoom, messageID)
	if !ok {
		return errMessageNotFound
	}
	return router.WriteJSON(w, http.StatusOK, SessionMessageResponse{Message: m, Success: true})
}

type EditPayload struct {
	Content string `json:"content"`
}

func (h *SessionHandler) EditMessageHandler(w http.ResponseWriter, r *http.Request) error {
	var payload EditPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errBadPayload.Wrap(err)
	}
	chat, m, err := messageFromRequest(r)
	if err != nil {
		return err
	}
	if !core.IsValidMessage(payload.Content) {
		return errInvalidContent
	}
	if !chat.EditMessage(m.ID, payload.Content) {
		return errMessageNotFound
	}
	return respondMessage(w, chat, m.ID)
}

func (h *SessionHandler) DeleteMessageHandler(w http.ResponseWriter, r *http.Request) error {
	chat, m, err := messageFromRequest(r)
	if err != nil {
		return err
	}
	if !chat.DeleteMessage(m.ID) {
		return errMessageNotFound
	}
	return router.WriteJSON(w, http.StatusOK, DeleteMessageResponse{MessageID: m.ID, RoomID: m.RoomID, Success: true})
}

type ReactionPayload struct {
	Emoji string `json:"emoji" validate:"required"`
	// Toggle removes the reaction when the user already reacted with Emoji.
	Toggle bool `json:"toggle"`
}

func (h *SessionHandler) AddReactionHandler(w http.ResponseWriter, r *http.Request) error {
	var payload ReactionPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errBadPayload.Wrap(err)
	}
	if err := validate.Struct(payload); err != nil {
		return errEmojiRequired.Wrap(err)
	}
	chat, m, err := messageFromRequest(r)
	if err != nil {
		return err
	}
	var ok bool
	if payload.Toggle {
		ok = chat.ToggleReaction(m.ID, payload.Emoji)
	} else {
		ok = chat.AddReaction(m.ID, payload.Emoji)
	}
	if !ok {
		return errMessageNotFound
	}
	return respondMessage(w, chat, m.ID)
}

func (h *SessionHandler) RemoveReactionHandler(w http.ResponseWriter, r *http.Request) error {
	chat, m, err := messageFromRequest(r)
	if err != nil {
		return err
	}
	if !chat.RemoveReaction(m.ID, chi.URLParam(r, "emoji")) {
		return errMessageNotFound
	}
	return respondMessage(w, chat, m.ID)
}

// TypingPayload carries either the composer text or an explicit typing flag.
// Typing takes precedence when set.
type TypingPayload struct {
	Text   string `json:"text"`
	Typing *bool  `json:"typing,omitempty"`
}

func (p TypingPayload) apply(chat *core.Chat) {
	if p.Typing != nil {
		chat.SetTyping(*p.Typing)
		return
	}
	chat.Keystroke(p.Text)
}

// TypingHandler feeds the composer state into the typing indicator.
func (h *SessionHandler) TypingHandler(w http.ResponseWriter, r *http.Request) error {
	var payload TypingPayload
	if err := router.DecodeJSON(r, &payload); err != nil {
		return errBadPayload.Wrap(err)
	}
	chat := SessionFromRequest(r).Chat
	if _, err := currentUser(chat); err != nil {
		return err
	}
	payload.apply(chat)
	w.WriteHeader(http.StatusNoContent)
	return nil
}

// registerErrorMappers maps the chat errors to API errors.
func registerErrorMappers(r *router.Router) {
	r.RegisterErrorMapper(core.ErrInvalidUsername, func(err error) router.JsonError {
		return router.NewJsonError(http.StatusBadRequest, "Username is required").Wrap(err)
	})
	r.RegisterErrorMapper(core.ErrInvalidRoom, func(err error) router.JsonError {
		return router.NewJsonError(http.StatusNotFound, err.Error())
	})
	r.RegisterErrorMapper(core.ErrUnauthenticated, func(err error) router.JsonError {
		return router.NewJsonError(http.StatusUnauthorized, err.Error())
	})
}
