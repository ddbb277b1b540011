package core

import "time"

// MemberView is a room member with its rendered status line.
type MemberView struct {
	User
	Status string `json:"status"`
}

// RenderedMessage carries what the client needs to draw one bubble.
type RenderedMessage struct {
	MessageView
	Time      string          `json:"time"`
	Own       bool            `json:"own"`
	Reactions []ReactionCount `json:"reactionCounts"`
}

type RenderedGroup struct {
	Label    string            `json:"label"`
	Messages []RenderedMessage `json:"messages"`
}

// View is the render model of a session.
type View struct {
	User          *User           `json:"user"`
	Authenticated bool            `json:"authenticated"`
	Rooms         []ChatRoom      `json:"rooms"`
	Room          *ChatRoom       `json:"room"`
	Groups        []RenderedGroup `json:"groups"`
	Members       []MemberView    `json:"members"`
	OnlineCount   int             `json:"onlineCount"`
	Typing        string          `json:"typing"`
	IsLoading     bool            `json:"isLoading"`
}

// BuildView renders state for the user viewerID at now.
func BuildView(state ChatState, viewerID string, now time.Time) View {
	v := View{
		User:          state.CurrentUser,
		Authenticated: IsAuthenticated(state),
		Rooms:         state.Rooms,
		Groups:        []RenderedGroup{},
		Members:       []MemberView{},
		IsLoading:     state.IsLoading,
	}
	if room, ok := CurrentRoom(state); ok {
		v.Room = &room
	}

	for _, g := range GroupMessagesByDate(CurrentMessages(state), now) {
		rg := RenderedGroup{Label: g.Label, Messages: make([]RenderedMessage, 0, len(g.Messages))}
		for _, m := range g.Messages {
			rg.Messages = append(rg.Messages, RenderedMessage{
				MessageView: m,
				Time:        FormatMessageTime(m.Timestamp, now),
				Own:         viewerID != "" && m.UserID == viewerID,
				Reactions:   CountReactions(m.Reactions, viewerID),
			})
		}
		v.Groups = append(v.Groups, rg)
	}

	for _, u := range SortUsers(CurrentOnlineUsers(state)) {
		if u.IsOnline {
			v.OnlineCount++
		}
		v.Members = append(v.Members, MemberView{User: u, Status: OnlineStatus(u, now)})
	}

	typing := make([]TypingUser, 0)
	for _, t := range CurrentTypingUsers(state) {
		if t.UserID != viewerID {
			typing = append(typing, t)
		}
	}
	v.Typing = TypingSummary(typing)
	return v
}
