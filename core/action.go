package core

// Action is a state transition understood by Reduce.
// The set of actions is closed: only types declared in this package implement it.
type Action interface {
	action()
}

type SetUser struct {
	User User
}

type Logout struct{}

type SetCurrentRoom struct {
	RoomID string
}

type AddMessage struct {
	Message Message
}

type DeleteMessage struct {
	MessageID string
	RoomID    string
}

type EditMessage struct {
	MessageID string
	RoomID    string
	Content   string
}

// AddReaction replaces any reaction of the same user with the same emoji.
type AddReaction struct {
	MessageID string
	RoomID    string
	Reaction  MessageReaction
}

type RemoveReaction struct {
	MessageID string
	RoomID    string
	UserID    string
	Emoji     string
}

type SetOnlineUsers struct {
	RoomID string
	Users  []User
}

type SetTypingUsers struct {
	RoomID string
	Users  []TypingUser
}

// LoadMessages replaces the message list of a room.
type LoadMessages struct {
	RoomID   string
	Messages []Message
}

type SetLoading struct {
	Loading bool
}

func (SetUser) action()        {}
func (Logout) action()         {}
func (SetCurrentRoom) action() {}
func (AddMessage) action()     {}
func (DeleteMessage) action()  {}
func (EditMessage) action()    {}
func (AddReaction) action()    {}
func (RemoveReaction) action() {}
func (SetOnlineUsers) action() {}
func (SetTypingUsers) action() {}
func (LoadMessages) action()   {}
func (SetLoading) action()     {}
