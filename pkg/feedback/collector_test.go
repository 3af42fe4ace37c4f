package feedback

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
	"github.com/pario-ai/semcache/pkg/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "feedback_test.db"), 0.70)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func putEntry(t *testing.T, st *sqlite.Store) *models.CacheEntry {
	t.Helper()
	e := &models.CacheEntry{
		Model:      "m1",
		PromptHash: "h1",
		Prompt:     "q",
		Answer:     "a",
		Embedding:  []float32{1, 0, 0},
		QueryType:  models.QueryGeneral,
	}
	if err := st.Put(context.Background(), e); err != nil {
		t.Fatal(err)
	}
	return e
}

func TestRecordAggregatesVerdict(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()
	e := putEntry(t, st)
	c := New(st)

	if err := c.Record(ctx, e.ID, "u1", models.FeedbackHelpful, ""); err != nil {
		t.Fatal(err)
	}
	got, _ := st.Get(ctx, e.ID)
	if got.FeedbackVerdict != models.VerdictHelpful || got.FeedbackCount != 1 {
		t.Errorf("aggregate = %s/%d, want helpful/1", got.FeedbackVerdict, got.FeedbackCount)
	}

	// Two negatives out of three flip the verdict.
	if err := c.Record(ctx, e.ID, "u2", models.FeedbackOutdated, "old data"); err != nil {
		t.Fatal(err)
	}
	if err := c.Record(ctx, e.ID, "", models.FeedbackIncorrect, ""); err != nil {
		t.Fatal(err)
	}
	got, _ = st.Get(ctx, e.ID)
	if got.FeedbackVerdict != models.VerdictOutdated || got.FeedbackCount != 3 {
		t.Errorf("aggregate = %s/%d, want outdated/3", got.FeedbackVerdict, got.FeedbackCount)
	}
}

func TestRecordInvalidKind(t *testing.T) {
	st := newTestStore(t)
	e := putEntry(t, st)
	c := New(st)

	err := c.Record(context.Background(), e.ID, "", models.FeedbackKind("meh"), "")
	if !errors.Is(err, ErrInvalidKind) {
		t.Errorf("expected ErrInvalidKind, got %v", err)
	}
}

func TestRecordUnknownEntry(t *testing.T) {
	st := newTestStore(t)
	c := New(st)

	err := c.Record(context.Background(), "missing", "", models.FeedbackHelpful, "")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
