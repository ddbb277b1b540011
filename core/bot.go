package core

import "time"

const (
	BotInterval = 30 * time.Second
	BotChance   = 0.1
)

// GenerateBotMessage builds a message from a random bot author with a random
// canned line of the room. It reports false when the room has no lines.
func GenerateBotMessage(roomID string, now time.Time, rng Rand) (Message, bool) {
	lines := BotMessages[roomID]
	if len(lines) == 0 {
		return Message{}, false
	}
	bots := liveBots(now)
	author := bots[rng.IntN(len(bots))]
	content := lines[rng.IntN(len(lines))]
	return NewMessage(author, roomID, content, now, rng), true
}

// BotSimulator decides on each tick whether a bot speaks.
type BotSimulator struct {
	Interval time.Duration
	Chance   float64
	rng      Rand
}

func NewBotSimulator(rng Rand) *BotSimulator {
	return &BotSimulator{Interval: BotInterval, Chance: BotChance, rng: rng}
}

// Tick returns the message a bot posts to roomID at now, if any.
func (b *BotSimulator) Tick(roomID string, now time.Time) (Message, bool) {
	if b.rng.Float64() >= b.Chance {
		return Message{}, false
	}
	return GenerateBotMessage(roomID, now, b.rng)
}
