package bot

import (
	"math/rand/v2"
	"time"

	"github.com/CarlosSb/chat-ia-outubro-rosa/internal/config"
)

// Pacing computes anti-detection delays and the operating-hours gate.
// Replies are never sent at fixed intervals: every dispatch waits a fresh
// uniform draw from [minDelay, maxDelay].
type Pacing struct {
	minDelay   time.Duration
	maxDelay   time.Duration
	hoursStart int
	hoursEnd   int
	utcOffset  int
}

func NewPacing(cfg *config.Config) *Pacing {
	return &Pacing{
		minDelay:   cfg.MinReplyDelay(),
		maxDelay:   cfg.MaxReplyDelay(),
		hoursStart: cfg.BusinessHoursStart,
		hoursEnd:   cfg.BusinessHoursEnd,
		utcOffset:  cfg.TimezoneOffsetHours,
	}
}

// WithinOperatingHours reports whether now falls inside the configured
// inclusive window, after shifting UTC by the campaign's fixed offset.
func (p *Pacing) WithinOperatingHours(now time.Time) bool {
	hour := (now.UTC().Hour() + p.utcOffset + 24) % 24
	return hour >= p.hoursStart && hour <= p.hoursEnd
}

// ReplyDelay returns a uniformly random duration in [minDelay, maxDelay].
func (p *Pacing) ReplyDelay() time.Duration {
	span := p.maxDelay - p.minDelay
	if span <= 0 {
		return p.minDelay
	}
	return p.minDelay + rand.N(span+1)
}
