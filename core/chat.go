package core

import (
	"errors"
	"time"
)

// User is the locally authenticated identity of a session.
type User struct {
	ID       string    `json:"id"`
	Username string    `json:"username"`
	Avatar   string    `json:"avatar"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
	Color    string    `json:"color"`
}

// ChatRoom is an entry of the room catalog.
type ChatRoom struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	IsPrivate    bool      `json:"isPrivate"`
	MemberCount  int       `json:"memberCount"`
	LastActivity time.Time `json:"lastActivity"`
	Avatar       string    `json:"avatar"`
}

// MessageReaction is a single emoji reaction of a user to a message.
// A message carries at most one reaction per (user, emoji).
type MessageReaction struct {
	Emoji    string `json:"emoji"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Message is a chat message posted to a room.
// The author fields are copied from the user when the message is created.
type Message struct {
	ID         string            `json:"id"`
	Content    string            `json:"content"`
	UserID     string            `json:"userId"`
	Username   string            `json:"username"`
	UserAvatar string            `json:"userAvatar"`
	UserColor  string            `json:"userColor"`
	Timestamp  time.Time         `json:"timestamp"`
	RoomID     string            `json:"roomId"`
	Reactions  []MessageReaction `json:"reactions"`
	IsEdited   bool              `json:"isEdited,omitempty"`
	ReplyTo    string            `json:"replyTo,omitempty"`
}

// TypingUser marks a user composing a message in a room.
type TypingUser struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatState is the aggregate owned by a Chat. Values are treated as
// immutable: Reduce never writes into a collection it did not allocate.
type ChatState struct {
	CurrentUser *User                   `json:"currentUser"`
	Messages    map[string][]Message    `json:"messages"`
	Rooms       []ChatRoom              `json:"rooms"`
	CurrentRoom string                  `json:"currentRoom"`
	OnlineUsers map[string][]User       `json:"onlineUsers"`
	TypingUsers map[string][]TypingUser `json:"typingUsers"`
	IsLoading   bool                    `json:"isLoading"`
}

// NewChatState returns the initial state with the given room catalog.
func NewChatState(rooms []ChatRoom) ChatState {
	return ChatState{
		Messages:    map[string][]Message{},
		Rooms:       rooms,
		OnlineUsers: map[string][]User{},
		TypingUsers: map[string][]TypingUser{},
	}
}

var (
	// ErrInvalidRoom is returned when a room is not part of the catalog.
	ErrInvalidRoom = errors.New("invalid room")
	// ErrInvalidUsername is returned when a login username is blank.
	ErrInvalidUsername = errors.New("username is required")
	// ErrUnauthenticated is returned when an operation requires a logged in user.
	ErrUnauthenticated = errors.New("unauthenticated")
)
