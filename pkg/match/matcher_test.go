package match

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store/sqlite"
)

// stubEmbedder returns canned vectors per query so similarity is exact.
type stubEmbedder struct {
	vectors map[string][]float32
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vectors[text], nil
}

func (s *stubEmbedder) Dimensions() int { return 3 }

// atSimilarity builds a unit vector whose cosine against (1,0,0) is sim.
func atSimilarity(sim float64) []float32 {
	return []float32{float32(sim), float32(math.Sqrt(1 - sim*sim)), 0}
}

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "match_test.db"), 0.70)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestMatchThresholdBoundary(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entry := &models.CacheEntry{
		Model:      "m1",
		PromptHash: "h1",
		Prompt:     "what is the capital of France?",
		Answer:     "Paris is the capital of France.",
		Embedding:  []float32{1, 0, 0},
		QueryType:  models.QueryFactual,
	}
	if err := st.Put(ctx, entry); err != nil {
		t.Fatal(err)
	}

	emb := &stubEmbedder{vectors: map[string][]float32{
		"just above": atSimilarity(0.851),
		"just below": atSimilarity(0.849),
	}}
	m := New(emb, st, 0.85)

	hit, err := m.Match(ctx, "just above", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if hit == nil {
		t.Fatal("similarity 0.851 should be a hit")
	}
	if hit.Similarity < 0.85 {
		t.Errorf("similarity = %v", hit.Similarity)
	}

	miss, err := m.Match(ctx, "just below", "m1")
	if err != nil {
		t.Fatal(err)
	}
	if miss != nil {
		t.Errorf("similarity 0.849 should be a miss, got %v", miss.Similarity)
	}
}

func TestMatchRecordsAccess(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entry := &models.CacheEntry{
		Model:      "m1",
		PromptHash: "h1",
		Prompt:     "q",
		Answer:     "a",
		Embedding:  []float32{1, 0, 0},
		QueryType:  models.QueryGeneral,
	}
	if err := st.Put(ctx, entry); err != nil {
		t.Fatal(err)
	}

	emb := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	m := New(emb, st, 0.85)

	if hit, err := m.Match(ctx, "q", "m1"); err != nil || hit == nil {
		t.Fatalf("expected hit, got %v, %v", hit, err)
	}

	got, err := st.Get(ctx, entry.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessCount != 1 {
		t.Errorf("access count = %d, want 1", got.AccessCount)
	}
}

func TestMatchWrongModelMisses(t *testing.T) {
	st := newTestStore(t)
	ctx := context.Background()

	entry := &models.CacheEntry{
		Model:      "m1",
		PromptHash: "h1",
		Prompt:     "q",
		Answer:     "a",
		Embedding:  []float32{1, 0, 0},
		QueryType:  models.QueryGeneral,
	}
	if err := st.Put(ctx, entry); err != nil {
		t.Fatal(err)
	}

	emb := &stubEmbedder{vectors: map[string][]float32{"q": {1, 0, 0}}}
	m := New(emb, st, 0.85)

	hit, err := m.Match(ctx, "q", "m2")
	if err != nil {
		t.Fatal(err)
	}
	if hit != nil {
		t.Error("expected miss for a different model")
	}
}
