package core

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxMessageLength is the maximum number of characters of a message.
const MaxMessageLength = 2000

// Rand is the source of randomness used for ids, colors and bot traffic.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

// DefaultRand draws from the goroutine safe top-level math/rand/v2 source.
var DefaultRand Rand = globalRand{}

var whitespace = regexp.MustCompile(`\s+`)

// SanitizeMessage trims content and collapses every whitespace run into one space.
func SanitizeMessage(content string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(content), " ")
}

// IsValidMessage reports whether the trimmed content is non-empty and
// at most MaxMessageLength characters long.
func IsValidMessage(content string) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(content))
	return n > 0 && n <= MaxMessageLength
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

func randomSuffix(rng Rand, n int) string {
	var sb strings.Builder
	sb.Grow(n)
	for range n {
		sb.WriteByte(base36[rng.IntN(len(base36))])
	}
	return sb.String()
}

// NewID returns "<prefix>-<unix millis>-<9 random base36 chars>".
func NewID(prefix string, now time.Time, rng Rand) string {
	return fmt.Sprintf("%s-%d-%s", prefix, now.UnixMilli(), randomSuffix(rng, 9))
}

func NewMessageID(now time.Time, rng Rand) string {
	return NewID("msg", now, rng)
}

func NewUserID(now time.Time, rng Rand) string {
	return NewID("user", now, rng)
}

func NewRoomID(now time.Time, rng Rand) string {
	return NewID("room", now, rng)
}

// AvatarColors is the palette user colors are drawn from.
var AvatarColors = []string{
	"#FF6B6B", "#4ECDC4", "#45B7D1", "#96CEB4", "#FFEAA7",
	"#DDA0DD", "#98D8C8", "#F7DC6F", "#BB8FCE", "#85C1E9",
	"#F8C471", "#82E0AA", "#F1948A", "#85C1E9", "#D2B4DE",
}

func RandomColor(rng Rand) string {
	return AvatarColors[rng.IntN(len(AvatarColors))]
}

var avatarStyles = []string{"avataaars", "lorelei", "personas"}

func avatarURL(style, seed string) string {
	return fmt.Sprintf("https://api.dicebear.com/7.x/%s/svg?seed=%s", style, seed)
}

// RoomAvatar returns the icon of a room.
func RoomAvatar(roomID string) string {
	return avatarURL("shapes", roomID)
}

// RandomAvatar returns an avatar reference with a random style and seed.
func RandomAvatar(rng Rand) string {
	style := avatarStyles[rng.IntN(len(avatarStyles))]
	return avatarURL(style, randomSuffix(rng, 6))
}

// NewUser creates the identity of a freshly logged in user.
func NewUser(username string, now time.Time, rng Rand) (User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return User{}, ErrInvalidUsername
	}
	return User{
		ID:       NewUserID(now, rng),
		Username: username,
		Avatar:   RandomAvatar(rng),
		IsOnline: true,
		LastSeen: now,
		Color:    RandomColor(rng),
	}, nil
}

// NewMessage builds a message authored by user in roomID.
// content is stored as given; callers sanitize it first.
func NewMessage(user User, roomID, content string, now time.Time, rng Rand) Message {
	return Message{
		ID:         NewMessageID(now, rng),
		Content:    content,
		UserID:     user.ID,
		Username:   user.Username,
		UserAvatar: user.Avatar,
		UserColor:  user.Color,
		Timestamp:  now,
		RoomID:     roomID,
		Reactions:  []MessageReaction{},
	}
}

var mention = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the usernames mentioned with @name, in order.
func ExtractMentions(content string) []string {
	matches := mention.FindAllStringSubmatch(content, -1)
	mentions := make([]string, 0, len(matches))
	for _, m := range matches {
		mentions = append(mentions, m[1])
	}
	return mentions
}

// SearchMessages returns messages whose content or author contains query,
// case-insensitively. A blank query matches everything.
func SearchMessages(messages []Message, query string) []Message {
	if strings.TrimSpace(query) == "" {
		return messages
	}
	q := strings.ToLower(query)
	found := make([]Message, 0)
	for _, m := range messages {
		if strings.Contains(strings.ToLower(m.Content), q) ||
			strings.Contains(strings.ToLower(m.Username), q) {
			found = append(found, m)
		}
	}
	return found
}
