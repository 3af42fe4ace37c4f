// Package store persists cache entries, feedback records, and lifecycle
// snapshots, and answers nearest-neighbor lookups over stored embeddings.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/pario-ai/semcache/pkg/models"
)

// ErrNotFound is returned when an entry id does not exist. A lookup racing
// a concurrent sweep deletion sees this and treats it as an ordinary miss.
var ErrNotFound = errors.New("entry not found")

// Match is a candidate returned by Find.
type Match struct {
	Entry      models.CacheEntry
	Similarity float64
}

// Store is the vector-capable persistence layer. Per-entry mutations are
// atomic with respect to concurrent operations on the same id.
type Store interface {
	// Put persists a new entry. Tier is forced to hot and access count to
	// zero regardless of what the caller set.
	Put(ctx context.Context, entry *models.CacheEntry) error
	// Get returns the entry with the given id, or ErrNotFound.
	Get(ctx context.Context, id string) (*models.CacheEntry, error)
	// GetByHash returns the same-model entry with an identical prompt
	// fingerprint, or ErrNotFound. Excluded tiers are not returned.
	GetByHash(ctx context.Context, model, promptHash string, exclude []models.LifecycleTier) (*models.CacheEntry, error)
	// Find returns the closest same-model entry whose tier is outside the
	// exclusion set and whose similarity clears the store's recall floor.
	// Ties on similarity break toward the higher access count. Returns
	// (nil, nil) when nothing qualifies.
	Find(ctx context.Context, model string, embedding []float32, exclude []models.LifecycleTier) (*Match, error)
	// RecordAccess atomically increments the access count and refreshes the
	// last-accessed timestamp.
	RecordAccess(ctx context.Context, id string) error
	// InvalidateByContextHash deletes every entry sharing the context hash
	// and returns how many were removed.
	InvalidateByContextHash(ctx context.Context, hash string) (int64, error)
	// ListBatch returns up to limit entries created at or after the keyset
	// position, oldest first. Pass a zero time and empty id to start.
	ListBatch(ctx context.Context, afterCreated time.Time, afterID string, limit int) ([]models.CacheEntry, error)
	// UpdateTier persists a recomputed tier and the lifecycle timestamp.
	UpdateTier(ctx context.Context, id string, tier models.LifecycleTier, at time.Time) error
	// Delete removes an entry and its feedback rows.
	Delete(ctx context.Context, id string) error

	// AppendFeedback stores one immutable feedback record.
	AppendFeedback(ctx context.Context, rec *models.FeedbackRecord) error
	// FeedbackForEntry returns all feedback rows for an entry, oldest first.
	FeedbackForEntry(ctx context.Context, entryID string) ([]models.FeedbackRecord, error)
	// UpdateFeedbackAggregate persists a recomputed verdict and count.
	UpdateFeedbackAggregate(ctx context.Context, entryID string, verdict models.FeedbackVerdict, count int64) error

	// SaveStats appends a sweep snapshot to the audit trail.
	SaveStats(ctx context.Context, stats *models.LifecycleStats) error
	// LatestStats returns the most recent snapshot, or ErrNotFound.
	LatestStats(ctx context.Context) (*models.LifecycleStats, error)
	// Stats returns cumulative cache performance and savings.
	Stats(ctx context.Context) (models.CacheStats, error)

	// Close releases resources.
	Close() error
}

// DefaultExclusions is the tier set hidden from live lookups.
func DefaultExclusions() []models.LifecycleTier {
	return []models.LifecycleTier{models.TierStale, models.TierCold}
}
