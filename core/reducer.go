package core

import (
	"maps"
	"slices"
)

// Reduce applies an action to a state and returns the next state.
// Touched collections are copied, untouched ones are shared with the input.
// Actions that match nothing, and unknown actions, return the state as is.
func Reduce(state ChatState, action Action) ChatState {
	switch a := action.(type) {
	case SetUser:
		user := a.User
		state.CurrentUser = &user
		return state

	case Logout:
		return NewChatState(state.Rooms)

	case SetCurrentRoom:
		state.CurrentRoom = a.RoomID
		return state

	case AddMessage:
		current := state.Messages[a.Message.RoomID]
		next := make([]Message, 0, len(current)+1)
		next = append(append(next, current...), a.Message)
		state.Messages = withEntry(state.Messages, a.Message.RoomID, next)
		return state

	case DeleteMessage:
		current := state.Messages[a.RoomID]
		idx := indexOfMessage(current, a.MessageID)
		if idx < 0 {
			return state
		}
		next := slices.Delete(slices.Clone(current), idx, idx+1)
		state.Messages = withEntry(state.Messages, a.RoomID, next)
		return state

	case EditMessage:
		return updateMessage(state, a.RoomID, a.MessageID, func(m Message) Message {
			m.Content = a.Content
			m.IsEdited = true
			return m
		})

	case AddReaction:
		return updateMessage(state, a.RoomID, a.MessageID, func(m Message) Message {
			reactions := withoutReaction(m.Reactions, a.Reaction.UserID, a.Reaction.Emoji)
			m.Reactions = append(reactions, a.Reaction)
			return m
		})

	case RemoveReaction:
		idx := indexOfMessage(state.Messages[a.RoomID], a.MessageID)
		if idx < 0 || !HasReacted(state.Messages[a.RoomID][idx], a.UserID, a.Emoji) {
			return state
		}
		return updateMessage(state, a.RoomID, a.MessageID, func(m Message) Message {
			m.Reactions = withoutReaction(m.Reactions, a.UserID, a.Emoji)
			return m
		})

	case SetOnlineUsers:
		state.OnlineUsers = withEntry(state.OnlineUsers, a.RoomID, a.Users)
		return state

	case SetTypingUsers:
		state.TypingUsers = withEntry(state.TypingUsers, a.RoomID, a.Users)
		return state

	case LoadMessages:
		state.Messages = withEntry(state.Messages, a.RoomID, a.Messages)
		return state

	case SetLoading:
		state.IsLoading = a.Loading
		return state

	default:
		return state
	}
}

// withEntry returns a copy of m with key set to v.
func withEntry[V any](m map[string]V, key string, v V) map[string]V {
	next := maps.Clone(m)
	if next == nil {
		next = make(map[string]V, 1)
	}
	next[key] = v
	return next
}

func indexOfMessage(messages []Message, id string) int {
	return slices.IndexFunc(messages, func(m Message) bool {
		return m.ID == id
	})
}

func updateMessage(state ChatState, roomID, messageID string, f func(Message) Message) ChatState {
	current := state.Messages[roomID]
	idx := indexOfMessage(current, messageID)
	if idx < 0 {
		return state
	}
	next := slices.Clone(current)
	next[idx] = f(next[idx])
	state.Messages = withEntry(state.Messages, roomID, next)
	return state
}

// withoutReaction returns a new slice without the reaction of userID with emoji.
func withoutReaction(reactions []MessageReaction, userID, emoji string) []MessageReaction {
	next := make([]MessageReaction, 0, len(reactions)+1)
	for _, r := range reactions {
		if r.UserID == userID && r.Emoji == emoji {
			continue
		}
		next = append(next, r)
	}
	return next
}
