package core

import "slices"

// IsAuthenticated reports whether the state has a current user.
func IsAuthenticated(state ChatState) bool {
	return state.CurrentUser != nil
}

// FindRoom returns the catalog entry with the given id.
func FindRoom(state ChatState, roomID string) (ChatRoom, bool) {
	idx := slices.IndexFunc(state.Rooms, func(r ChatRoom) bool {
		return r.ID == roomID
	})
	if idx < 0 {
		return ChatRoom{}, false
	}
	return state.Rooms[idx], true
}

// CurrentRoom returns the catalog entry of the active room.
func CurrentRoom(state ChatState) (ChatRoom, bool) {
	if state.CurrentRoom == "" {
		return ChatRoom{}, false
	}
	return FindRoom(state, state.CurrentRoom)
}

// CurrentMessages returns the messages of the active room.
// The returned slice is shared with the state and must not be modified.
func CurrentMessages(state ChatState) []Message {
	if state.CurrentRoom == "" {
		return nil
	}
	return state.Messages[state.CurrentRoom]
}

func CurrentOnlineUsers(state ChatState) []User {
	if state.CurrentRoom == "" {
		return nil
	}
	return state.OnlineUsers[state.CurrentRoom]
}

func CurrentTypingUsers(state ChatState) []TypingUser {
	if state.CurrentRoom == "" {
		return nil
	}
	return state.TypingUsers[state.CurrentRoom]
}

// FindMessage looks a message up by id in a room.
func FindMessage(state ChatState, roomID, messageID string) (Message, bool) {
	messages := state.Messages[roomID]
	idx := indexOfMessage(messages, messageID)
	if idx < 0 {
		return Message{}, false
	}
	return messages[idx], true
}

// HasReacted reports whether userID reacted to m with emoji.
func HasReacted(m Message, userID, emoji string) bool {
	return slices.ContainsFunc(m.Reactions, func(r MessageReaction) bool {
		return r.UserID == userID && r.Emoji == emoji
	})
}
