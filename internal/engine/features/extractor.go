// internal/engine/features/extractor.go
package features

import (
	"sort"
	"time"

	"candidate-risk-engine/internal/engine/journey"
	"candidate-risk-engine/internal/models"
)

// Config bounds the activity window the extractor looks at. The engine never
// needs unbounded history.
type Config struct {
	// MaxMessages is the rolling window size, newest first. Default 50.
	MaxMessages int
	// MaxAge drops messages older than this relative to the reference clock.
	// Default 30 days.
	MaxAge time.Duration
}

const (
	DefaultMaxMessages = 50
	DefaultMaxAge      = 30 * 24 * time.Hour
)

// Extractor computes feature vectors. It is a pure function of its inputs;
// the reference clock is always passed in by the caller so assessments are
// reproducible in tests.
type Extractor struct {
	cfg Config
}

func NewExtractor(cfg Config) *Extractor {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = DefaultMaxMessages
	}
	if cfg.MaxAge <= 0 {
		cfg.MaxAge = DefaultMaxAge
	}
	return &Extractor{cfg: cfg}
}

// Extract builds the vector for one candidate. Candidates with zero messages
// yield sentinel/zero values; extraction never fails on an empty window.
func (e *Extractor) Extract(c *models.Candidate, history []models.Message, now time.Time) Vector {
	var v Vector

	window := e.window(history, now)

	v[FeatHoursSinceLastMessage] = e.hoursSinceLastMessage(c, window, now)
	v[FeatMessageCount] = float64(len(window))
	v[FeatAvgResponseLatencyHours] = avgResponseLatencyHours(window)
	v[FeatStageDurationHours] = stageDurationHours(c, now)
	v[FeatStageCompletionRatio] = journey.Progress(c.CurrentState)
	v[FeatAvgMessageLength] = avgInboundLength(window)
	v[FeatWeekendActivityScore] = weekendActivityScore(window)
	v[FeatTimeOfDayScore] = timeOfDayScore(window)
	v[FeatSentimentTrend] = sentimentTrend(window)

	return v
}

// window returns the bounded history, oldest first.
func (e *Extractor) window(history []models.Message, now time.Time) []models.Message {
	cutoff := now.Add(-e.cfg.MaxAge)

	out := make([]models.Message, 0, len(history))
	for _, m := range history {
		if m.Timestamp.After(cutoff) && !m.Timestamp.After(now) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	if len(out) > e.cfg.MaxMessages {
		out = out[len(out)-e.cfg.MaxMessages:]
	}
	return out
}

func (e *Extractor) hoursSinceLastMessage(c *models.Candidate, window []models.Message, now time.Time) float64 {
	var last time.Time
	for _, m := range window {
		if m.Direction == models.DirectionInbound && m.Timestamp.After(last) {
			last = m.Timestamp
		}
	}
	if last.IsZero() {
		// No inbound messages in the window: fall back to the candidate's
		// recorded activity, then to when the stage was entered.
		last = c.LastActivityAt
		if last.IsZero() {
			last = c.StateEnteredAt
		}
		if last.IsZero() {
			return 0
		}
	}
	return hoursBetween(last, now)
}

// avgResponseLatencyHours averages the delay between each outbound message
// and the candidate's next inbound reply.
func avgResponseLatencyHours(window []models.Message) float64 {
	var total float64
	var count int
	for i, m := range window {
		if m.Direction != models.DirectionOutbound {
			continue
		}
		for _, reply := range window[i+1:] {
			if reply.Direction == models.DirectionInbound {
				total += hoursBetween(m.Timestamp, reply.Timestamp)
				count++
				break
			}
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

func stageDurationHours(c *models.Candidate, now time.Time) float64 {
	if c.StateEnteredAt.IsZero() {
		return 0
	}
	return hoursBetween(c.StateEnteredAt, now)
}

func avgInboundLength(window []models.Message) float64 {
	var total, count int
	for _, m := range window {
		if m.Direction == models.DirectionInbound {
			total += len(m.Content)
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(total) / float64(count)
}

// weekendActivityScore is the fraction of inbound messages sent on a weekend.
func weekendActivityScore(window []models.Message) float64 {
	var weekend, count int
	for _, m := range window {
		if m.Direction != models.DirectionInbound {
			continue
		}
		count++
		switch m.Timestamp.Weekday() {
		case time.Saturday, time.Sunday:
			weekend++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(weekend) / float64(count)
}

// timeOfDayScore is the fraction of inbound messages sent during working
// hours (09:00-18:00 in the message's own location-less clock).
func timeOfDayScore(window []models.Message) float64 {
	var working, count int
	for _, m := range window {
		if m.Direction != models.DirectionInbound {
			continue
		}
		count++
		h := m.Timestamp.Hour()
		if h >= 9 && h < 18 {
			working++
		}
	}
	if count == 0 {
		return 0
	}
	return float64(working) / float64(count)
}

// sentimentTrend compares the average sentiment of the newer half of scored
// inbound messages against the older half. Negative values mean sentiment is
// declining.
func sentimentTrend(window []models.Message) float64 {
	scored := make([]float64, 0, len(window))
	for _, m := range window {
		if m.Direction == models.DirectionInbound && m.Sentiment != 0 {
			scored = append(scored, m.Sentiment)
		}
	}
	if len(scored) < 2 {
		return 0
	}
	mid := len(scored) / 2
	return mean(scored[mid:]) - mean(scored[:mid])
}

func mean(xs []float64) float64 {
	var total float64
	for _, x := range xs {
		total += x
	}
	return total / float64(len(xs))
}

func hoursBetween(from, to time.Time) float64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return d.Hours()
}
