package models

import "time"

// QueryType is a coarse categorization of a prompt's purpose, used to tune
// how quickly a cached answer decays.
type QueryType string

const (
	QueryTimeSensitive QueryType = "time_sensitive"
	QueryFactual       QueryType = "factual"
	QueryCreative      QueryType = "creative"
	QueryDynamic       QueryType = "dynamic"
	QueryGeneral       QueryType = "general"
)

// LifecycleTier is the freshness classification governing retention and
// lookup visibility. Stale is terminal: the sweep deletes stale entries.
type LifecycleTier string

const (
	TierHot   LifecycleTier = "hot"
	TierWarm  LifecycleTier = "warm"
	TierCool  LifecycleTier = "cool"
	TierCold  LifecycleTier = "cold"
	TierStale LifecycleTier = "stale"
)

// rank orders tiers from freshest to stalest for promotion/demotion checks.
var tierRank = map[LifecycleTier]int{
	TierHot:   0,
	TierWarm:  1,
	TierCool:  2,
	TierCold:  3,
	TierStale: 4,
}

// Fresher reports whether t is closer to hot than other.
func (t LifecycleTier) Fresher(other LifecycleTier) bool {
	return tierRank[t] < tierRank[other]
}

// CacheEntry stores a cached LLM answer together with the metadata the
// lifecycle sweep needs to re-tier it.
type CacheEntry struct {
	ID                 string          `json:"id"`
	Model              string          `json:"model"`
	PromptHash         string          `json:"prompt_hash"`
	Prompt             string          `json:"prompt"`
	Answer             string          `json:"answer"`
	Embedding          []float32       `json:"embedding,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	LastAccessedAt     time.Time       `json:"last_accessed_at"`
	AccessCount        int64           `json:"access_count"`
	QueryType          QueryType       `json:"query_type"`
	ContextHash        string          `json:"context_hash,omitempty"`
	Tier               LifecycleTier   `json:"tier"`
	LifecycleUpdatedAt time.Time       `json:"lifecycle_updated_at"`
	FeedbackVerdict    FeedbackVerdict `json:"feedback_verdict,omitempty"`
	FeedbackCount      int64           `json:"feedback_count"`
	TokensSaved        int64           `json:"tokens_saved"`
	CostSaved          float64         `json:"cost_saved"`
}

// AgeDays returns the entry's age in fractional days at the given instant.
func (e *CacheEntry) AgeDays(now time.Time) float64 {
	return now.Sub(e.CreatedAt).Hours() / 24
}

// DaysSinceAccess returns fractional days since the last hit (creation time
// counts as the first access).
func (e *CacheEntry) DaysSinceAccess(now time.Time) float64 {
	last := e.LastAccessedAt
	if last.IsZero() {
		last = e.CreatedAt
	}
	return now.Sub(last).Hours() / 24
}
