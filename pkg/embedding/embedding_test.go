package embedding

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestFallbackDeterministic(t *testing.T) {
	f := NewFallback(256, 8000)
	ctx := context.Background()

	v1, err := f.Embed(ctx, "What is the capital of France?")
	if err != nil {
		t.Fatal(err)
	}
	v2, err := f.Embed(ctx, "What is the capital of France?")
	if err != nil {
		t.Fatal(err)
	}

	if len(v1) != 256 {
		t.Fatalf("expected 256 dimensions, got %d", len(v1))
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("vectors differ at %d: %v vs %v", i, v1[i], v2[i])
		}
	}
}

func TestFallbackNormalized(t *testing.T) {
	f := NewFallback(128, 8000)
	v, err := f.Embed(context.Background(), "hello world")
	if err != nil {
		t.Fatal(err)
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("expected unit norm, got %v", math.Sqrt(sum))
	}
}

func TestFallbackNearDuplicatesLandClose(t *testing.T) {
	f := NewFallback(256, 8000)
	ctx := context.Background()

	a, _ := f.Embed(ctx, "What is the capital of France?")
	b, _ := f.Embed(ctx, "capital of France")
	c, _ := f.Embed(ctx, "write a poem about autumn leaves")

	if sim := Cosine(a, b); sim < 0.85 {
		t.Errorf("rephrased query similarity = %v, want >= 0.85", sim)
	}
	if sim := Cosine(a, c); sim > 0.6 {
		t.Errorf("unrelated query similarity = %v, want well below acceptance", sim)
	}
}

func TestFallbackEmptyText(t *testing.T) {
	f := NewFallback(64, 8000)
	v, err := f.Embed(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 64 {
		t.Fatalf("expected 64 dimensions, got %d", len(v))
	}
}

func TestCosine(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	if sim := Cosine(a, a); math.Abs(sim-1) > 1e-6 {
		t.Errorf("self similarity = %v, want 1", sim)
	}
	if sim := Cosine(a, b); sim != 0 {
		t.Errorf("orthogonal similarity = %v, want 0", sim)
	}
	if sim := Cosine(a, []float32{1, 0}); sim != 0 {
		t.Errorf("mismatched lengths = %v, want 0", sim)
	}
}

type failingEmbedder struct{ dims int }

func (f *failingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, errors.New("provider down")
}

func (f *failingEmbedder) Dimensions() int { return f.dims }

func TestGeneratorFallsBack(t *testing.T) {
	gen, err := NewGenerator(&failingEmbedder{dims: 256}, NewFallback(256, 8000), 16, 8000)
	if err != nil {
		t.Fatal(err)
	}

	v1, err := gen.Embed(context.Background(), "same input text")
	if err != nil {
		t.Fatal(err)
	}
	if len(v1) != 256 {
		t.Fatalf("expected correctly-dimensioned vector, got %d", len(v1))
	}

	v2, err := gen.Embed(context.Background(), "same input text")
	if err != nil {
		t.Fatal(err)
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatal("identical input should yield identical fallback vectors")
		}
	}
}

func TestGeneratorCancelled(t *testing.T) {
	gen, err := NewGenerator(nil, NewFallback(64, 8000), 16, 8000)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := gen.Embed(ctx, "anything"); err == nil {
		t.Error("expected error after cancellation")
	}
}

func TestClientEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("unexpected auth header: %s", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"embedding":[0.1,0.2,0.3]}]}`))
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{
		URL:     srv.URL,
		APIKey:  "sk-test",
		Model:   "text-embedding-ada-002",
		Dims:    3,
		Timeout: 2 * time.Second,
	})

	vec, err := c.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[0] != 0.1 {
		t.Errorf("unexpected vector: %v", vec)
	}
}

func TestClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(ClientOptions{URL: srv.URL, Model: "m", Dims: 3, Timeout: 2 * time.Second})
	if _, err := c.Embed(context.Background(), "hello"); err == nil {
		t.Error("expected error from failing provider")
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("hello", 3); got != "hel" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("hello", 10); got != "hello" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("hello", 0); got != "hello" {
		t.Errorf("truncate with no limit = %q", got)
	}
}
