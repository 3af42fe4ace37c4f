// Package lifecycle classifies queries and re-tiers cache entries. The
// policy lives in pure functions so the rules are directly unit-testable;
// only persistence is external.
package lifecycle

import (
	"strings"

	"github.com/pario-ai/semcache/pkg/models"
)

// queryTypeRules are checked in priority order; the first matching keyword
// wins, so "what is today's weather" classifies as time-sensitive even
// though "what is" also matches factual.
var queryTypeRules = []struct {
	qtype    models.QueryType
	keywords []string
}{
	{models.QueryTimeSensitive, []string{"today", "now", "current", "latest", "weather", "news"}},
	{models.QueryFactual, []string{"what is", "define", "explain", "who is", "history of"}},
	{models.QueryCreative, []string{"write", "create", "brainstorm", "story", "poem"}},
	{models.QueryDynamic, []string{"code", "function", "implement", "debug", "fix"}},
}

// ClassifyQueryType categorizes a prompt. Total and side-effect free: every
// input maps to exactly one type, defaulting to general.
func ClassifyQueryType(text string) models.QueryType {
	lower := strings.ToLower(text)
	for _, rule := range queryTypeRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.qtype
			}
		}
	}
	return models.QueryGeneral
}

// decayFactor scales an entry's age by query type: time-sensitive answers
// go stale faster than factual ones at equal age.
func decayFactor(qt models.QueryType) float64 {
	switch qt {
	case models.QueryTimeSensitive:
		return 2.0
	case models.QueryDynamic:
		return 1.25
	case models.QueryFactual:
		return 0.75
	default:
		return 1.0
	}
}

// Tier age boundaries in effective days, and access-based promotion knobs.
const (
	hotAgeDays  = 7
	warmAgeDays = 30
	coolAgeDays = 90

	staleAgeDays    = 180
	staleIdleDays   = 90
	hotAccessCount  = 25
	hotIdleDays     = 7
	warmAccessCount = 10
	warmIdleDays    = 14
	coolAccessCount = 25
	coolIdleDays    = 30
)

// ComputeTier recomputes an entry's lifecycle tier from scratch. It is a
// pure function of age, recency, access pattern, query type, and feedback,
// so a re-run over unchanged data always converges to the same tier.
// Entries can move in either direction.
func ComputeTier(ageDays, daysSinceAccess float64, accessCount int64, qt models.QueryType, verdict models.FeedbackVerdict) models.LifecycleTier {
	// Majority-negative feedback overrides age and access entirely.
	if verdict == models.VerdictOutdated {
		return models.TierStale
	}

	eff := ageDays * decayFactor(qt)

	switch {
	case eff > staleAgeDays && daysSinceAccess > staleIdleDays:
		return models.TierStale
	case eff <= hotAgeDays,
		accessCount >= hotAccessCount && daysSinceAccess <= hotIdleDays:
		return models.TierHot
	case eff <= warmAgeDays,
		accessCount >= warmAccessCount && daysSinceAccess <= warmIdleDays:
		return models.TierWarm
	case eff <= coolAgeDays,
		accessCount >= coolAccessCount && daysSinceAccess <= coolIdleDays:
		return models.TierCool
	default:
		return models.TierCold
	}
}

// AggregateVerdict recomputes the verdict over all feedback rows for an
// entry. Always a full recomputation, never an incremental counter, so
// replays and retries cannot corrupt it. A strict negative majority
// ((outdated+incorrect)/total > 0.5) forces the outdated verdict.
func AggregateVerdict(recs []models.FeedbackRecord) (models.FeedbackVerdict, int64) {
	if len(recs) == 0 {
		return "", 0
	}
	var negative, helpful int64
	for _, r := range recs {
		if r.Kind.Negative() {
			negative++
		} else {
			helpful++
		}
	}
	total := int64(len(recs))
	switch {
	case 2*negative > total:
		return models.VerdictOutdated, total
	case 2*helpful > total:
		return models.VerdictHelpful, total
	default:
		return models.VerdictMixed, total
	}
}

// HealthScore derives a 0-100 score from per-tier populations, weighted
// toward hot and warm entries. An empty store scores 100.
func HealthScore(hot, warm, cool, cold int64) float64 {
	total := hot + warm + cool + cold
	if total == 0 {
		return 100
	}
	weighted := float64(hot) + 0.8*float64(warm) + 0.4*float64(cool) + 0.1*float64(cold)
	return weighted / float64(total) * 100
}
