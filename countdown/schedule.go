package countdown

import (
	"strconv"
	"time"
)

const (
	DefaultTick         = time.Second
	DefaultAnnounceLast = 10
	DefaultFinalMessage = "Countdown complete!"
)

// Config controls tick length and which remaining values are spoken.
// Zero values are replaced with the defaults above, except AnnounceLast
// which is only defaulted through DefaultConfig.
type Config struct {
	Tick time.Duration

	// AnnounceLast speaks every remaining value <= AnnounceLast. 0 disables it.
	AnnounceLast int
	// Checkpoints are additional remaining values to speak, e.g. 60 or 30.
	Checkpoints []int

	FinalMessage string

	// Phrase renders a remaining value for the announcer.
	Phrase func(remaining int) string
}

func DefaultConfig() Config {
	return Config{
		Tick:         DefaultTick,
		AnnounceLast: DefaultAnnounceLast,
		FinalMessage: DefaultFinalMessage,
		Phrase:       strconv.Itoa,
	}
}

func (c Config) withDefaults() Config {
	if c.Tick <= 0 {
		c.Tick = DefaultTick
	}
	if c.FinalMessage == "" {
		c.FinalMessage = DefaultFinalMessage
	}
	if c.Phrase == nil {
		c.Phrase = strconv.Itoa
	}
	if c.AnnounceLast < 0 {
		c.AnnounceLast = 0
	}
	return c
}

// Announces reports whether remaining crosses an announcement threshold.
// Zero is never a threshold; it is covered by the final message.
func (c Config) Announces(remaining int) bool {
	if remaining <= 0 {
		return false
	}
	if remaining <= c.AnnounceLast {
		return true
	}
	for _, cp := range c.Checkpoints {
		if cp == remaining {
			return true
		}
	}
	return false
}

// Phrases lists every phrase a countdown of the given duration may speak,
// final message last. Used to warm caching engines before the first tick.
func (c Config) Phrases(duration int) []string {
	c = c.withDefaults()
	phrases := []string{}
	for n := duration; n > 0; n-- {
		if c.Announces(n) {
			phrases = append(phrases, c.Phrase(n))
		}
	}
	return append(phrases, c.FinalMessage)
}
