package embedding

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Generator is the embedder the cache pipeline uses. It memoizes embeddings
// by content hash, prefers the external provider when one is configured, and
// degrades to the deterministic fallback on any provider failure. Provider
// errors never propagate: the caller always gets a vector unless the context
// is cancelled.
type Generator struct {
	primary  Embedder
	fallback *Fallback
	memo     *lru.Cache[string, []float32]
	maxChars int
}

// NewGenerator creates a Generator. primary may be nil, in which case every
// embedding comes from the deterministic fallback.
func NewGenerator(primary Embedder, fallback *Fallback, cacheSize, maxChars int) (*Generator, error) {
	if cacheSize <= 0 {
		cacheSize = 2048
	}
	memo, err := lru.New[string, []float32](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Generator{
		primary:  primary,
		fallback: fallback,
		memo:     memo,
		maxChars: maxChars,
	}, nil
}

// Dimensions returns the primary embedder's dimensions when configured,
// otherwise the fallback's.
func (g *Generator) Dimensions() int {
	if g.primary != nil {
		return g.primary.Dimensions()
	}
	return g.fallback.Dimensions()
}

// Embed returns an embedding for text. The only returned errors are context
// cancellation; provider failures fall back locally.
func (g *Generator) Embed(ctx context.Context, text string) ([]float32, error) {
	text = truncate(text, g.maxChars)

	key := contentHash(text)
	if vec, ok := g.memo.Get(key); ok {
		return vec, nil
	}

	if g.primary != nil {
		vec, err := g.primary.Embed(ctx, text)
		if err == nil {
			g.memo.Add(key, vec)
			return vec, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("embedding provider failed, using deterministic fallback: %v", err)
	}

	vec, err := g.fallback.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	g.memo.Add(key, vec)
	return vec, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
