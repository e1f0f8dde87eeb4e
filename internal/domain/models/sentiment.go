package models

import "time"

// SentimentLevel is the five-valued market mood classification.
type SentimentLevel string

const (
	SentimentExtremeFear  SentimentLevel = "extreme_fear"
	SentimentFear         SentimentLevel = "fear"
	SentimentNeutral      SentimentLevel = "neutral"
	SentimentGreed        SentimentLevel = "greed"
	SentimentExtremeGreed SentimentLevel = "extreme_greed"
)

// MarketSentimentData is a sentiment snapshot produced by the external
// provider and served read-only to clients.
type MarketSentimentData struct {
	Sentiment   SentimentLevel `json:"sentiment"`
	Score       float64        `json:"score"` // 0..100
	Label       string         `json:"label"`
	Emoji       string         `json:"emoji"`
	Description string         `json:"description"`
	Multiplier  float64        `json:"multiplier"`
	Timestamp   time.Time      `json:"timestamp"`
	NextUpdate  time.Time      `json:"next_update"`

	// Cache metadata, set only on snapshots served from cache.
	IsCached  bool       `json:"is_cached,omitempty"`
	LastFetch *time.Time `json:"last_fetch,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// LevelForScore maps a 0..100 score to its sentiment band.
func LevelForScore(score float64) SentimentLevel {
	switch {
	case score < 20:
		return SentimentExtremeFear
	case score < 40:
		return SentimentFear
	case score < 60:
		return SentimentNeutral
	case score < 80:
		return SentimentGreed
	default:
		return SentimentExtremeGreed
	}
}

// ProviderHealth reports the external sentiment provider status.
type ProviderHealth struct {
	Healthy   bool      `json:"healthy"`
	Message   string    `json:"message,omitempty"`
	CheckedAt time.Time `json:"checked_at"`
}
