package core

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// GroupWindow is the largest gap between two messages of a run.
const GroupWindow = 5 * time.Minute

// MessageView is a message annotated for rendering.
type MessageView struct {
	Message
	ShowAvatar bool `json:"showAvatar"`
	Grouped    bool `json:"grouped"`
}

// DateGroup is a run of messages sharing a calendar day label.
type DateGroup struct {
	Label    string        `json:"label"`
	Messages []MessageView `json:"messages"`
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DateLabel returns "Today", "Yesterday" or the long form date of t, relative to now.
func DateLabel(t, now time.Time) string {
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return "Today"
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Yesterday"
	default:
		return t.Format("January 2, 2006")
	}
}

// GroupMessagesByDate buckets messages by DateLabel. Buckets keep the order in
// which their label first appears, messages keep their input order.
func GroupMessagesByDate(messages []Message, now time.Time) []DateGroup {
	groups := make([]DateGroup, 0)
	index := map[string]int{}
	buckets := [][]Message{}
	for _, m := range messages {
		label := DateLabel(m.Timestamp, now)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, DateGroup{Label: label})
			buckets = append(buckets, nil)
		}
		buckets[i] = append(buckets[i], m)
	}
	for i, bucket := range buckets {
		views := make([]MessageView, len(bucket))
		for j, m := range bucket {
			views[j] = MessageView{
				Message:    m,
				ShowAvatar: ShouldShowAvatar(bucket, j),
				Grouped:    ShouldGroupMessage(bucket, j),
			}
		}
		groups[i].Messages = views
	}
	return groups
}

// ShouldShowAvatar reports whether messages[i] ends a same author run.
func ShouldShowAvatar(messages []Message, i int) bool {
	if i+1 >= len(messages) {
		return true
	}
	cur, next := messages[i], messages[i+1]
	if next.UserID != cur.UserID {
		return true
	}
	return next.Timestamp.Sub(cur.Timestamp) > GroupWindow
}

// ShouldGroupMessage reports whether messages[i] continues a same author run.
func ShouldGroupMessage(messages []Message, i int) bool {
	if i == 0 || i >= len(messages) {
		return false
	}
	prev, cur := messages[i-1], messages[i]
	if prev.UserID != cur.UserID {
		return false
	}
	return cur.Timestamp.Sub(prev.Timestamp) < GroupWindow
}

// FormatMessageTime renders a message timestamp relative to now.
func FormatMessageTime(t, now time.Time) string {
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Yesterday " + t.Format("15:04")
	default:
		return t.Format("Jan 2, 15:04")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}

// FormatDistance renders the coarse age of t.
func FormatDistance(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d >= 24*time.Hour:
		return plural(int(d/(24*time.Hour)), "day")
	case d >= time.Hour:
		return plural(int(d/time.Hour), "hour")
	case d >= time.Minute:
		return plural(int(d/time.Minute), "minute")
	default:
		return "just now"
	}
}

func FormatLastSeen(t, now time.Time) string {
	t = t.In(now.Location())
	switch {
	case sameDay(t, now):
		return "Active " + t.Format("15:04")
	case sameDay(t, now.AddDate(0, 0, -1)):
		return "Active yesterday"
	default:
		return "Active " + FormatDistance(t, now)
	}
}

func OnlineStatus(u User, now time.Time) string {
	if u.IsOnline {
		return "Online"
	}
	return FormatLastSeen(u.LastSeen, now)
}

// TypingSummary returns the indicator line for a typing list, or "" when empty.
func TypingSummary(users []TypingUser) string {
	switch len(users) {
	case 0:
		return ""
	case 1:
		return users[0].Username + " is typing..."
	case 2:
		return users[0].Username + " and " + users[1].Username + " are typing..."
	default:
		return fmt.Sprintf("%s and %d others are typing...", users[0].Username, len(users)-1)
	}
}

// ReactionCount aggregates the reactions of one emoji.
type ReactionCount struct {
	Emoji   string `json:"emoji"`
	Count   int    `json:"count"`
	Reacted bool   `json:"reacted"`
}

// CountReactions groups reactions by emoji in order of first appearance.
// Reacted is set when viewerID is among the reactors.
func CountReactions(reactions []MessageReaction, viewerID string) []ReactionCount {
	counts := make([]ReactionCount, 0)
	for _, r := range reactions {
		i := slices.IndexFunc(counts, func(c ReactionCount) bool { return c.Emoji == r.Emoji })
		if i < 0 {
			counts = append(counts, ReactionCount{Emoji: r.Emoji})
			i = len(counts) - 1
		}
		counts[i].Count++
		if viewerID != "" && r.UserID == viewerID {
			counts[i].Reacted = true
		}
	}
	return counts
}

// SortUsers returns a copy of users with online users first, then by username.
func SortUsers(users []User) []User {
	sorted := slices.Clone(users)
	slices.SortStableFunc(sorted, func(a, b User) int {
		if a.IsOnline != b.IsOnline {
			if a.IsOnline {
				return -1
			}
			return 1
		}
		return strings.Compare(strings.ToLower(a.Username), strings.ToLower(b.Username))
	})
	return sorted
}
