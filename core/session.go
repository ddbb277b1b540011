package core

import (
	"io"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Options configures a Chat.
type Options struct {
	// Storage backs the persisted user and messages. Nil keeps everything in memory.
	Storage Storage
	// Namespace scopes the persisted keys, usually the session id.
	Namespace string
	Scheduler Scheduler
	Rand      Rand
	Logger    *slog.Logger
	// Rooms overrides the default catalog.
	Rooms       []ChatRoom
	DisableBots bool
	// OnPersistError replaces the default logging of storage failures.
	OnPersistError func(op, key string, err error)
}

type subscriber struct {
	id int
	fn func(ChatState)
}

// Chat owns the state of one session. Every transition goes through Reduce
// under mu; subscribers are called after mu is released.
type Chat struct {
	mu     sync.Mutex
	state  ChatState
	closed bool

	sched     Scheduler
	rng       Rand
	logger    *slog.Logger
	persister *Persister
	identity  *IdentityStore

	bot     *BotSimulator
	bots    bool
	botStop Cancel
	botGen  int

	typing typingState

	changed       bool
	messagesDirty bool
	subs          []subscriber
	nextSub       int
}

// NewChat builds a chat, hydrating the user and messages from storage and
// seeding every empty room with generated history.
func NewChat(opts Options) *Chat {
	if opts.Scheduler == nil {
		opts.Scheduler = RealScheduler{}
	}
	if opts.Rand == nil {
		opts.Rand = DefaultRand
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	now := opts.Scheduler.Now()
	if opts.Rooms == nil {
		opts.Rooms = DefaultRooms(now)
	}

	persister := NewPersister(opts.Storage, opts.Namespace, opts.Logger)
	if opts.OnPersistError != nil {
		persister.OnError = opts.OnPersistError
	}
	c := &Chat{
		state:     NewChatState(opts.Rooms),
		sched:     opts.Scheduler,
		rng:       opts.Rand,
		logger:    opts.Logger,
		persister: persister,
		identity:  NewIdentityStore(persister),
		bot:       NewBotSimulator(opts.Rand),
		bots:      !opts.DisableBots,
	}

	c.mu.Lock()
	if user := c.identity.Load(); user != nil {
		c.dispatchLocked(SetUser{User: *user})
	}
	persisted := Load[map[string][]Message](persister, MessagesKey, nil)
	roomIDs := make([]string, 0, len(persisted))
	for id := range persisted {
		roomIDs = append(roomIDs, id)
	}
	slices.Sort(roomIDs)
	for _, id := range roomIDs {
		c.dispatchLocked(LoadMessages{RoomID: id, Messages: persisted[id]})
	}
	// Hydration alone does not need to be written back.
	c.messagesDirty = false
	c.seedLocked()
	c.restartBotLocked()
	c.unlockAndNotify()
	return c
}

// seedLocked loads generated history into catalog rooms without messages.
func (c *Chat) seedLocked() {
	now := c.sched.Now()
	for _, room := range c.state.Rooms {
		if len(c.state.Messages[room.ID]) > 0 {
			continue
		}
		c.dispatchLocked(LoadMessages{RoomID: room.ID, Messages: GenerateInitialMessages(room.ID, now, c.rng)})
	}
}

func (c *Chat) dispatchLocked(a Action) {
	c.state = Reduce(c.state, a)
	c.changed = true
	switch a.(type) {
	case AddMessage, DeleteMessage, EditMessage, AddReaction, RemoveReaction, LoadMessages, Logout:
		c.messagesDirty = true
	}
}

// unlockAndNotify persists pending message changes, releases mu and
// publishes the new state.
func (c *Chat) unlockAndNotify() {
	if !c.changed {
		c.mu.Unlock()
		return
	}
	c.changed = false
	if c.messagesDirty {
		c.messagesDirty = false
		if len(c.state.Messages) > 0 {
			c.persister.Save(MessagesKey, c.state.Messages)
		}
	}
	state := c.state
	subs := slices.Clone(c.subs)
	c.mu.Unlock()

	for _, s := range subs {
		s.fn(state)
	}
}

// Dispatch applies an arbitrary action.
func (c *Chat) Dispatch(a Action) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.dispatchLocked(a)
	c.unlockAndNotify()
}

// State returns the current snapshot. It must be treated as read only.
func (c *Chat) State() ChatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// View renders the current state for the session user.
func (c *Chat) View() View {
	state := c.State()
	viewer := ""
	if state.CurrentUser != nil {
		viewer = state.CurrentUser.ID
	}
	return BuildView(state, viewer, c.sched.Now())
}

// Subscribe registers fn to receive every new state. The returned func unregisters it.
func (c *Chat) Subscribe(fn func(ChatState)) func() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.subs = slices.DeleteFunc(c.subs, func(s subscriber) bool { return s.id == id })
	}
}

// Login creates a fresh identity for username and persists it.
func (c *Chat) Login(username string) (User, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return User{}, ErrUnauthenticated
	}
	user, err := NewUser(username, c.sched.Now(), c.rng)
	if err != nil {
		c.mu.Unlock()
		return User{}, err
	}
	c.stopTypingLocked()
	c.identity.Save(user)
	c.dispatchLocked(SetUser{User: user})
	if c.state.CurrentRoom != "" {
		c.publishRosterLocked(c.state.CurrentRoom)
	}
	c.restartBotLocked()
	c.unlockAndNotify()
	c.logger.Debug("user logged in", slog.String("user_id", user.ID))
	return user, nil
}

// Logout forgets the user and resets the state to the catalog.
func (c *Chat) Logout() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.stopTypingLocked()
	c.identity.Clear()
	c.dispatchLocked(Logout{})
	c.seedLocked()
	c.restartBotLocked()
	c.unlockAndNotify()
}

// JoinRoom makes roomID the current room and publishes its roster.
func (c *Chat) JoinRoom(roomID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	if _, ok := FindRoom(c.state, roomID); !ok {
		c.mu.Unlock()
		return ErrInvalidRoom
	}
	changed := c.state.CurrentRoom != roomID
	if changed {
		c.stopTypingLocked()
	}
	c.dispatchLocked(SetCurrentRoom{RoomID: roomID})
	c.publishRosterLocked(roomID)
	if changed {
		c.restartBotLocked()
	}
	c.unlockAndNotify()
	return nil
}

func (c *Chat) publishRosterLocked(roomID string) {
	c.dispatchLocked(SetOnlineUsers{RoomID: roomID, Users: RoomRoster(c.state.CurrentUser, c.sched.Now())})
}

// Send posts content to the current room as the session user. It reports
// false, without error, when there is no user or room or the content is invalid.
func (c *Chat) Send(content string) (Message, bool) {
	c.mu.Lock()
	if c.closed || c.state.CurrentUser == nil || c.state.CurrentRoom == "" || !IsValidMessage(content) {
		c.mu.Unlock()
		return Message{}, false
	}
	m := NewMessage(*c.state.CurrentUser, c.state.CurrentRoom, SanitizeMessage(content), c.sched.Now(), c.rng)
	c.dispatchLocked(AddMessage{Message: m})
	c.stopTypingLocked()
	c.unlockAndNotify()
	return m, true
}

// withMessage runs f when a user and a current room exist and messageID is
// in the room. It reports whether f ran.
func (c *Chat) withMessage(messageID string, f func(user User, m Message)) bool {
	c.mu.Lock()
	if c.closed || c.state.CurrentUser == nil || c.state.CurrentRoom == "" {
		c.mu.Unlock()
		return false
	}
	m, ok := FindMessage(c.state, c.state.CurrentRoom, messageID)
	if !ok {
		c.mu.Unlock()
		return false
	}
	f(*c.state.CurrentUser, m)
	c.unlockAndNotify()
	return true
}

func (c *Chat) DeleteMessage(messageID string) bool {
	return c.withMessage(messageID, func(_ User, m Message) {
		c.dispatchLocked(DeleteMessage{MessageID: m.ID, RoomID: m.RoomID})
	})
}

// EditMessage replaces the content of a message. Invalid content is rejected.
func (c *Chat) EditMessage(messageID, content string) bool {
	if !IsValidMessage(content) {
		return false
	}
	return c.withMessage(messageID, func(_ User, m Message) {
		c.dispatchLocked(EditMessage{MessageID: m.ID, RoomID: m.RoomID, Content: SanitizeMessage(content)})
	})
}

func (c *Chat) AddReaction(messageID, emoji string) bool {
	if emoji == "" {
		return false
	}
	return c.withMessage(messageID, func(u User, m Message) {
		c.dispatchLocked(AddReaction{
			MessageID: m.ID,
			RoomID:    m.RoomID,
			Reaction:  MessageReaction{Emoji: emoji, UserID: u.ID, Username: u.Username},
		})
	})
}

func (c *Chat) RemoveReaction(messageID, emoji string) bool {
	return c.withMessage(messageID, func(u User, m Message) {
		c.dispatchLocked(RemoveReaction{MessageID: m.ID, RoomID: m.RoomID, UserID: u.ID, Emoji: emoji})
	})
}

// ToggleReaction removes the user's emoji reaction if present, adds it otherwise.
func (c *Chat) ToggleReaction(messageID, emoji string) bool {
	if emoji == "" {
		return false
	}
	return c.withMessage(messageID, func(u User, m Message) {
		if HasReacted(m, u.ID, emoji) {
			c.dispatchLocked(RemoveReaction{MessageID: m.ID, RoomID: m.RoomID, UserID: u.ID, Emoji: emoji})
			return
		}
		c.dispatchLocked(AddReaction{
			MessageID: m.ID,
			RoomID:    m.RoomID,
			Reaction:  MessageReaction{Emoji: emoji, UserID: u.ID, Username: u.Username},
		})
	})
}

// restartBotLocked cancels the running bot task and starts a new one when
// both a user and a room are set.
func (c *Chat) restartBotLocked() {
	if c.botStop != nil {
		c.botStop()
		c.botStop = nil
	}
	c.botGen++
	if !c.bots || c.closed || c.state.CurrentUser == nil || c.state.CurrentRoom == "" {
		return
	}
	gen := c.botGen
	c.botStop = c.sched.Every(c.bot.Interval, func() { c.botTick(gen) })
}

func (c *Chat) botTick(gen int) {
	c.mu.Lock()
	if c.closed || gen != c.botGen || c.state.CurrentUser == nil || c.state.CurrentRoom == "" {
		c.mu.Unlock()
		return
	}
	if m, ok := c.bot.Tick(c.state.CurrentRoom, c.sched.Now()); ok {
		c.dispatchLocked(AddMessage{Message: m})
	}
	c.unlockAndNotify()
}

// Close cancels every pending timer. Later operations are no-ops.
func (c *Chat) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.typing.cancel()
	if c.botStop != nil {
		c.botStop()
		c.botStop = nil
	}
	c.subs = nil
}

// Now returns the time of the chat scheduler.
func (c *Chat) Now() time.Time {
	return c.sched.Now()
}
