package models

import "time"

// LifecycleStats is one sweep's snapshot. Snapshots are append-only and form
// the maintenance audit trail.
type LifecycleStats struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Hot            int64     `json:"hot"`
	Warm           int64     `json:"warm"`
	Cool           int64     `json:"cool"`
	Cold           int64     `json:"cold"`
	Deleted        int64     `json:"deleted"`
	Promoted       int64     `json:"promoted"`
	Demoted        int64     `json:"demoted"`
	Failed         int64     `json:"failed"`
	AvgAccessCount float64   `json:"avg_access_count"`
	AvgAgeDays     float64   `json:"avg_age_days"`
	HealthScore    float64   `json:"health_score"`
}

// Total returns the number of live entries counted by the snapshot.
func (s *LifecycleStats) Total() int64 {
	return s.Hot + s.Warm + s.Cool + s.Cold
}

// CacheStats reports cumulative cache performance and savings.
type CacheStats struct {
	Entries     int64   `json:"entries"`
	TotalHits   int64   `json:"total_hits"`
	TokensSaved int64   `json:"tokens_saved"`
	CostSaved   float64 `json:"cost_saved"`
}
