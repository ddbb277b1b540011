package core

import (
	"strings"
	"time"
)

const (
	// TypingIdle is how long a user stays typing after the last keystroke.
	TypingIdle = time.Second
	// TypingExpiry bounds the life of an entry in the room typing list.
	TypingExpiry = 3 * time.Second
)

// typingState tracks the composer of the session user.
// gen invalidates callbacks of cancelled timers that already fired.
type typingState struct {
	active  bool
	room    string
	gen     int
	idleSeq int
	idle    Cancel
	expiry  Cancel
}

func (t *typingState) cancel() {
	if t.idle != nil {
		t.idle()
		t.idle = nil
	}
	if t.expiry != nil {
		t.expiry()
		t.expiry = nil
	}
	t.gen++
}

// Keystroke reports the composer content after an input change.
// Non-empty text starts or prolongs typing, empty text stops it.
func (c *Chat) Keystroke(text string) {
	c.mu.Lock()
	if c.closed || c.state.CurrentUser == nil || c.state.CurrentRoom == "" {
		c.mu.Unlock()
		return
	}
	if strings.TrimSpace(text) == "" {
		c.stopTypingLocked()
	} else {
		c.keystrokeLocked()
	}
	c.unlockAndNotify()
}

// SetTyping writes or removes the session user in the current room typing list.
func (c *Chat) SetTyping(typing bool) {
	c.mu.Lock()
	if c.closed || c.state.CurrentUser == nil || c.state.CurrentRoom == "" {
		c.mu.Unlock()
		return
	}
	if typing {
		c.startTypingLocked()
	} else {
		c.stopTypingLocked()
	}
	c.unlockAndNotify()
}

func (c *Chat) keystrokeLocked() {
	if !c.typing.active {
		c.startTypingLocked()
	}
	if c.typing.idle != nil {
		c.typing.idle()
	}
	c.typing.idleSeq++
	gen, seq := c.typing.gen, c.typing.idleSeq
	c.typing.idle = c.sched.AfterFunc(TypingIdle, func() { c.typingIdle(gen, seq) })
}

func (c *Chat) startTypingLocked() {
	user := *c.state.CurrentUser
	room := c.state.CurrentRoom
	if c.typing.active && c.typing.room != room {
		c.stopTypingLocked()
	}
	if c.typing.expiry != nil {
		c.typing.expiry()
	}
	c.typing.active = true
	c.typing.room = room

	entry := TypingUser{UserID: user.ID, Username: user.Username, Timestamp: c.sched.Now()}
	users := append(withoutTyping(c.state.TypingUsers[room], user.ID), entry)
	c.dispatchLocked(SetTypingUsers{RoomID: room, Users: users})

	gen := c.typing.gen
	c.typing.expiry = c.sched.AfterFunc(TypingExpiry, func() { c.typingExpired(gen, room, user.ID) })
}

// stopTypingLocked leaves the typing state and removes the user's entry.
func (c *Chat) stopTypingLocked() {
	wasActive := c.typing.active
	room := c.typing.room
	c.typing.cancel()
	c.typing.active = false
	c.typing.room = ""
	if !wasActive || c.state.CurrentUser == nil {
		return
	}
	current := c.state.TypingUsers[room]
	if !containsTyping(current, c.state.CurrentUser.ID) {
		return
	}
	c.dispatchLocked(SetTypingUsers{RoomID: room, Users: withoutTyping(current, c.state.CurrentUser.ID)})
}

func (c *Chat) typingIdle(gen, seq int) {
	c.mu.Lock()
	if c.closed || gen != c.typing.gen || seq != c.typing.idleSeq {
		c.mu.Unlock()
		return
	}
	c.typing.idle = nil
	c.stopTypingLocked()
	c.unlockAndNotify()
}

// typingExpired drops the entry from the list as it is at fire time.
func (c *Chat) typingExpired(gen int, room, userID string) {
	c.mu.Lock()
	if c.closed || gen != c.typing.gen {
		c.mu.Unlock()
		return
	}
	c.typing.expiry = nil
	current := c.state.TypingUsers[room]
	if containsTyping(current, userID) {
		c.dispatchLocked(SetTypingUsers{RoomID: room, Users: withoutTyping(current, userID)})
	}
	c.unlockAndNotify()
}

func containsTyping(users []TypingUser, userID string) bool {
	for _, u := range users {
		if u.UserID == userID {
			return true
		}
	}
	return false
}

func withoutTyping(users []TypingUser, userID string) []TypingUser {
	next := make([]TypingUser, 0, len(users)+1)
	for _, u := range users {
		if u.UserID != userID {
			next = append(next, u)
		}
	}
	return next
}
