package core

import (
	"sort"
	"time"
)

// DefaultRooms returns the static room catalog. Activity times are relative to now.
func DefaultRooms(now time.Time) []ChatRoom {
	return []ChatRoom{
		{
			ID:           "general",
			Name:         "General",
			Description:  "General discussion for everyone",
			MemberCount:  124,
			LastActivity: now,
			Avatar:       RoomAvatar("general"),
		},
		{
			ID:           "tech-talk",
			Name:         "Tech Talk",
			Description:  "Discuss the latest in technology",
			MemberCount:  87,
			LastActivity: now.Add(-15 * time.Minute),
			Avatar:       RoomAvatar("tech-talk"),
		},
		{
			ID:           "random",
			Name:         "Random",
			Description:  "Off-topic conversations and fun",
			MemberCount:  203,
			LastActivity: now.Add(-5 * time.Minute),
			Avatar:       RoomAvatar("random"),
		},
		{
			ID:           "help",
			Name:         "Help",
			Description:  "Get help and support from the community",
			MemberCount:  56,
			LastActivity: now.Add(-30 * time.Minute),
			Avatar:       RoomAvatar("help"),
		},
		{
			ID:           "design",
			Name:         "Design",
			Description:  "Share and discuss design ideas",
			MemberCount:  78,
			LastActivity: now.Add(-45 * time.Minute),
			Avatar:       RoomAvatar("design"),
		},
	}
}

// BotUsers is the roster of simulated members shown in every room.
// Only the first three post live messages.
func BotUsers(now time.Time) []User {
	return []User{
		{ID: "bot-alice", Username: "Alice", Avatar: avatarURL("avataaars", "alice"), IsOnline: true, LastSeen: now, Color: "#FF6B6B"},
		{ID: "bot-bob", Username: "Bob", Avatar: avatarURL("avataaars", "bob"), IsOnline: true, LastSeen: now, Color: "#4ECDC4"},
		{ID: "bot-carol", Username: "Carol", Avatar: avatarURL("avataaars", "carol"), IsOnline: true, LastSeen: now, Color: "#45B7D1"},
		{ID: "bot-david", Username: "David", Avatar: avatarURL("avataaars", "david"), LastSeen: now.Add(-40 * time.Minute), Color: "#96CEB4"},
		{ID: "bot-emma", Username: "Emma", Avatar: avatarURL("avataaars", "emma"), LastSeen: now.Add(-26 * time.Hour), Color: "#FFEAA7"},
	}
}

func liveBots(now time.Time) []User {
	return BotUsers(now)[:3]
}

// BotMessages holds the canned lines bots post, per room.
var BotMessages = map[string][]string{
	"general": {
		"Hey everyone! How's it going? 👋",
		"Just finished a great book, any recommendations?",
		"Beautiful weather today! Anyone going outside?",
		"Coffee or tea? I'm team coffee ☕",
		"Happy Friday! Any weekend plans?",
		"Just discovered this amazing playlist 🎵",
		"Anyone else excited for the holidays?",
		"Working from home today, loving it!",
		"Just watched an incredible movie 🍿",
		"Anyone want to grab lunch later?",
	},
	"tech-talk": {
		"Just deployed my app with the new CI/CD pipeline! 🚀",
		"Anyone tried the latest Go release yet?",
		"Generics made my collection helpers so much shorter",
		"Working on a machine learning project, it's fascinating!",
		"Docker containers are game-changers for development",
		"Just learned about WebAssembly, mind blown 🤯",
		"Editor extensions that changed my workflow",
		"Database optimization tips anyone?",
		"Kubernetes is complex but so powerful",
		"Anyone using Rust? I'm loving the performance!",
	},
	"random": {
		"Did you see that viral cat video? 😹",
		"Pizza or burgers for dinner tonight?",
		"Just learned to juggle! Only dropped it 100 times",
		"Anyone else addicted to this new game?",
		"My plant is finally growing! 🌱",
		"Rainy days are perfect for reading",
		"Just tried a new recipe, it was amazing!",
		"Anyone else procrastinating right now?",
		"Found the perfect meme for this situation",
		"Life is like a box of chocolates 🍫",
	},
	"help": {
		"Can someone help with state management?",
		"How do I center a div? (classic question 😅)",
		"Git merge conflicts are driving me crazy!",
		"What's the best way to learn a typed language?",
		"Database design best practices?",
		"How to optimize website performance?",
		"Debugging tips for complex applications?",
		"API design principles anyone?",
		"How to handle authentication securely?",
		"Best resources for learning algorithms?",
	},
	"design": {
		"Color theory is so important in design 🎨",
		"Just finished a new logo design, love it!",
		"Figma vs Sketch, what do you prefer?",
		"Typography can make or break a design",
		"User experience should be the priority",
		"Minimalist design is timeless",
		"Dark mode or light mode?",
		"Animation adds life to interfaces ✨",
		"Accessibility in design is crucial",
		"Just discovered this amazing design trend",
	},
}

// GenerateInitialMessages returns 3 to 7 bot messages for a room, spread
// over the past hour and sorted by time. Rooms without canned lines
// borrow the general ones.
func GenerateInitialMessages(roomID string, now time.Time, rng Rand) []Message {
	lines, ok := BotMessages[roomID]
	if !ok || len(lines) == 0 {
		lines = BotMessages["general"]
	}
	bots := BotUsers(now)
	count := rng.IntN(5) + 3

	messages := make([]Message, 0, count)
	for i := range count {
		author := bots[rng.IntN(len(bots))]
		age := time.Duration(float64(count-i) * rng.Float64() * float64(time.Hour))
		ts := now.Add(-age)
		m := NewMessage(author, roomID, lines[rng.IntN(len(lines))], ts, rng)
		messages = append(messages, m)
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].Timestamp.Before(messages[j].Timestamp)
	})
	return messages
}

// RoomRoster returns the members shown in a room: the current user, if
// any, and the bot roster, ordered by SortUsers.
func RoomRoster(current *User, now time.Time) []User {
	roster := make([]User, 0, 6)
	if current != nil {
		roster = append(roster, *current)
	}
	for _, bot := range BotUsers(now) {
		if current != nil && bot.ID == current.ID {
			continue
		}
		roster = append(roster, bot)
	}
	return SortUsers(roster)
}
