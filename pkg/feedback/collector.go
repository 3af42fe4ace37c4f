// Package feedback records user judgments about cached answers and keeps
// each entry's aggregated verdict current.
package feedback

import (
	"context"
	"errors"
	"fmt"

	"github.com/pario-ai/semcache/pkg/lifecycle"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
)

// ErrInvalidKind is returned for feedback kinds outside the known set.
var ErrInvalidKind = errors.New("invalid feedback kind")

// Collector appends immutable feedback records and recomputes the entry's
// aggregate verdict over the full record set after every submission, so
// replayed or retried submissions cannot corrupt the aggregate.
type Collector struct {
	store store.Store
}

// New creates a Collector.
func New(st store.Store) *Collector {
	return &Collector{store: st}
}

// Record stores one judgment and refreshes the entry's aggregate. userID
// and comment may be empty.
func (c *Collector) Record(ctx context.Context, entryID, userID string, kind models.FeedbackKind, comment string) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if _, err := c.store.Get(ctx, entryID); err != nil {
		return err
	}

	rec := &models.FeedbackRecord{
		EntryID: entryID,
		UserID:  userID,
		Kind:    kind,
		Comment: comment,
	}
	if err := c.store.AppendFeedback(ctx, rec); err != nil {
		return err
	}

	recs, err := c.store.FeedbackForEntry(ctx, entryID)
	if err != nil {
		return fmt.Errorf("recompute verdict: %w", err)
	}
	verdict, count := lifecycle.AggregateVerdict(recs)
	if err := c.store.UpdateFeedbackAggregate(ctx, entryID, verdict, count); err != nil {
		return fmt.Errorf("recompute verdict: %w", err)
	}
	return nil
}
