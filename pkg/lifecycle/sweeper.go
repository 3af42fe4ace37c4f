package lifecycle

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
)

// Sweeper runs maintenance passes over the whole store in fixed-size
// batches, oldest entries first.
type Sweeper struct {
	store     store.Store
	batchSize int
}

// NewSweeper creates a Sweeper.
func NewSweeper(st store.Store, batchSize int) *Sweeper {
	if batchSize <= 0 {
		batchSize = 200
	}
	return &Sweeper{store: st, batchSize: batchSize}
}

// Run performs one full sweep: every entry's tier is recomputed, stale
// entries are deleted in the same pass, and an aggregate snapshot is
// persisted and returned. Single-entry failures are counted, logged, and
// skipped; they never abort the sweep.
func (s *Sweeper) Run(ctx context.Context, batchSize int) (*models.LifecycleStats, error) {
	if batchSize <= 0 {
		batchSize = s.batchSize
	}
	now := time.Now().UTC()
	stats := &models.LifecycleStats{CreatedAt: now}

	var sumAccess, counted int64
	var sumAgeDays float64
	var afterCreated time.Time
	var afterID string

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		batch, err := s.store.ListBatch(ctx, afterCreated, afterID, batchSize)
		if err != nil {
			return nil, fmt.Errorf("sweep: %w", err)
		}
		if len(batch) == 0 {
			break
		}
		last := batch[len(batch)-1]
		afterCreated, afterID = last.CreatedAt, last.ID

		for i := range batch {
			entry := &batch[i]
			deleted, err := s.sweepEntry(ctx, entry, now, stats)
			if err != nil {
				stats.Failed++
				log.Printf("sweep: entry %s: %v", entry.ID, err)
				continue
			}
			if deleted {
				continue
			}
			// Averages describe the surviving population, consistent
			// with the per-tier counts.
			sumAccess += entry.AccessCount
			sumAgeDays += entry.AgeDays(now)
			counted++
		}
	}

	if counted > 0 {
		stats.AvgAccessCount = float64(sumAccess) / float64(counted)
		stats.AvgAgeDays = sumAgeDays / float64(counted)
	}
	stats.HealthScore = HealthScore(stats.Hot, stats.Warm, stats.Cool, stats.Cold)

	if err := s.store.SaveStats(ctx, stats); err != nil {
		return nil, fmt.Errorf("sweep: %w", err)
	}
	return stats, nil
}

// sweepEntry re-tiers one entry and reports whether it was deleted as
// stale. An error is fatal to this entry only.
func (s *Sweeper) sweepEntry(ctx context.Context, entry *models.CacheEntry, now time.Time, stats *models.LifecycleStats) (bool, error) {
	if entry.ID == "" || entry.CreatedAt.IsZero() {
		return false, fmt.Errorf("invariant violation: missing id or created_at")
	}

	tier := ComputeTier(
		entry.AgeDays(now),
		entry.DaysSinceAccess(now),
		entry.AccessCount,
		entry.QueryType,
		entry.FeedbackVerdict,
	)

	if tier == models.TierStale {
		// Stale is terminal: delete within this pass, never soft-flag.
		if err := s.store.Delete(ctx, entry.ID); err != nil {
			return false, fmt.Errorf("delete stale: %w", err)
		}
		stats.Deleted++
		return true, nil
	}

	if tier != entry.Tier {
		if err := s.store.UpdateTier(ctx, entry.ID, tier, now); err != nil {
			return false, fmt.Errorf("update tier: %w", err)
		}
		if tier.Fresher(entry.Tier) {
			stats.Promoted++
		} else {
			stats.Demoted++
		}
	}

	switch tier {
	case models.TierHot:
		stats.Hot++
	case models.TierWarm:
		stats.Warm++
	case models.TierCool:
		stats.Cool++
	case models.TierCold:
		stats.Cold++
	}
	return false, nil
}
