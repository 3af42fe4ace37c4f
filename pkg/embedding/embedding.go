// Package embedding turns text into fixed-length vectors for semantic
// matching. It provides an OpenAI-compatible HTTP client and a deterministic
// local generator used as a fallback when the provider is unavailable.
package embedding

import (
	"context"
	"math"
)

// Embedder generates a vector embedding for a piece of text.
type Embedder interface {
	// Embed returns the embedding for text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the length of vectors produced by this embedder.
	Dimensions() int
}

// Cosine returns the cosine similarity of two vectors, or 0 when the
// lengths differ or either vector is zero.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// normalize scales v to unit L2 norm in place. A zero vector is left as-is.
func normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
}

// truncate cuts text to at most max runes. Provider inputs are bounded, so
// every embedder truncates before embedding.
func truncate(text string, max int) string {
	if max <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
