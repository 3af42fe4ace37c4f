package lifecycle

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
	"github.com/pario-ai/semcache/pkg/store/sqlite"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "sweep_test.db"), 0.70)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putAged(t *testing.T, st store.Store, hash string, ageDays int, qt models.QueryType) *models.CacheEntry {
	t.Helper()
	e := &models.CacheEntry{
		Model:      "m1",
		PromptHash: hash,
		Prompt:     "prompt " + hash,
		Answer:     "answer",
		Embedding:  []float32{1, 0, 0},
		QueryType:  qt,
		CreatedAt:  time.Now().UTC().Add(-time.Duration(ageDays) * 24 * time.Hour),
	}
	if err := st.Put(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestSweepRetiers(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fresh := putAged(t, st, "fresh", 1, models.QueryGeneral)
	aged := putAged(t, st, "aged", 95, models.QueryGeneral)
	abandoned := putAged(t, st, "abandoned", 250, models.QueryGeneral)

	stats, err := NewSweeper(st, 2).Run(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", stats.Deleted)
	}
	if stats.Demoted == 0 {
		t.Error("expected demotions for aged entries")
	}
	if _, err := st.Get(ctx, abandoned.ID); err != store.ErrNotFound {
		t.Errorf("abandoned entry should be deleted, got %v", err)
	}

	got, err := st.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier != models.TierHot {
		t.Errorf("fresh entry tier = %s, want hot", got.Tier)
	}

	got, err = st.Get(ctx, aged.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier == models.TierHot || got.Tier == models.TierWarm {
		t.Errorf("95-day untouched entry tier = %s, want cool/cold/stale", got.Tier)
	}
}

func TestSweepIdempotent(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	putAged(t, st, "a", 1, models.QueryGeneral)
	putAged(t, st, "b", 15, models.QueryGeneral)
	putAged(t, st, "c", 60, models.QueryFactual)
	putAged(t, st, "d", 120, models.QueryGeneral)
	putAged(t, st, "e", 300, models.QueryTimeSensitive)

	sw := NewSweeper(st, 2)
	if _, err := sw.Run(ctx, 2); err != nil {
		t.Fatal(err)
	}

	// With no intervening activity the second sweep must converge to zero
	// further changes.
	second, err := sw.Run(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if second.Deleted != 0 || second.Promoted != 0 || second.Demoted != 0 {
		t.Errorf("second sweep changed entries: deleted=%d promoted=%d demoted=%d",
			second.Deleted, second.Promoted, second.Demoted)
	}
}

func TestSweepEvictsNegativeFeedback(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	// Young, heavily accessed entry: only feedback can make it stale.
	e := putAged(t, st, "popular", 1, models.QueryFactual)
	for i := 0; i < 50; i++ {
		if err := st.RecordAccess(ctx, e.ID); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.UpdateFeedbackAggregate(ctx, e.ID, models.VerdictOutdated, 3); err != nil {
		t.Fatal(err)
	}

	stats, err := NewSweeper(st, 10).Run(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 {
		t.Errorf("deleted = %d, want 1", stats.Deleted)
	}
	if _, err := st.Get(ctx, e.ID); err != store.ErrNotFound {
		t.Error("entry with negative verdict should be evicted")
	}
}

func TestSweepPersistsSnapshot(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	putAged(t, st, "a", 1, models.QueryGeneral)
	putAged(t, st, "b", 45, models.QueryGeneral)

	stats, err := NewSweeper(st, 10).Run(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}

	latest, err := st.LatestStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if latest.Hot != stats.Hot || latest.HealthScore != stats.HealthScore {
		t.Errorf("persisted snapshot differs: %+v vs %+v", latest, stats)
	}
	if stats.Hot != 1 || stats.Cool != 1 {
		t.Errorf("tier counts hot=%d cool=%d, want 1/1", stats.Hot, stats.Cool)
	}
	if stats.HealthScore <= 0 || stats.HealthScore > 100 {
		t.Errorf("health score out of range: %v", stats.HealthScore)
	}
	if stats.AvgAgeDays <= 0 {
		t.Errorf("avg age = %v, want > 0", stats.AvgAgeDays)
	}
}

// faultBatchStore slips a record with no creation timestamp into the first
// batch, the shape of a row a half-written migration leaves behind.
type faultBatchStore struct {
	store.Store
	injected bool
}

func (f *faultBatchStore) ListBatch(ctx context.Context, afterCreated time.Time, afterID string, limit int) ([]models.CacheEntry, error) {
	batch, err := f.Store.ListBatch(ctx, afterCreated, afterID, limit)
	if err != nil || f.injected || len(batch) == 0 {
		return batch, err
	}
	f.injected = true
	return append([]models.CacheEntry{{ID: "ghost"}}, batch...), nil
}

func TestSweepCountsEntryFailures(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	fresh := putAged(t, st, "fresh", 1, models.QueryGeneral)
	aged := putAged(t, st, "aged", 95, models.QueryGeneral)

	stats, err := NewSweeper(&faultBatchStore{Store: st}, 10).Run(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}

	if stats.Failed != 1 {
		t.Errorf("failed = %d, want 1", stats.Failed)
	}
	if stats.Demoted != 1 {
		t.Errorf("demoted = %d, want 1; a bad row must not stop the sweep", stats.Demoted)
	}

	got, err := st.Get(ctx, fresh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier != models.TierHot {
		t.Errorf("fresh entry tier = %s, want hot", got.Tier)
	}
	got, err = st.Get(ctx, aged.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Tier == models.TierHot {
		t.Error("aged entry was not re-tiered after the failed one")
	}
}

func TestSweepAveragesCoverSurvivorsOnly(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	putAged(t, st, "fresh", 1, models.QueryGeneral)
	putAged(t, st, "abandoned", 250, models.QueryGeneral)

	stats, err := NewSweeper(st, 10).Run(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Deleted != 1 {
		t.Fatalf("deleted = %d, want 1", stats.Deleted)
	}

	// Only the 1-day entry survives; an average near 125 would mean the
	// deleted 250-day entry leaked into it.
	if stats.AvgAgeDays <= 0 || stats.AvgAgeDays >= 10 {
		t.Errorf("avg age = %v, want ~1", stats.AvgAgeDays)
	}
}

func TestSweepEmptyStore(t *testing.T) {
	st := newTestStore(t)
	stats, err := NewSweeper(st, 10).Run(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Total() != 0 || stats.HealthScore != 100 {
		t.Errorf("empty sweep stats = %+v", stats)
	}
}
