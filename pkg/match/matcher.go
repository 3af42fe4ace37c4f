// Package match finds semantically equivalent cached answers for a query.
package match

import (
	"context"
	"log"

	"github.com/pario-ai/semcache/pkg/embedding"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
)

// Matcher embeds a query and asks the store for the closest entry. The
// store applies its loose recall floor; the matcher applies the strict
// acceptance threshold on top, so only confident matches become hits.
type Matcher struct {
	embedder  embedding.Embedder
	store     store.Store
	threshold float64
	exclude   []models.LifecycleTier
}

// New creates a Matcher. threshold is the strict acceptance similarity.
func New(embedder embedding.Embedder, st store.Store, threshold float64) *Matcher {
	return &Matcher{
		embedder:  embedder,
		store:     st,
		threshold: threshold,
		exclude:   store.DefaultExclusions(),
	}
}

// Match returns the best acceptable entry for the query, or nil on a miss.
// A hit records the access. Store failures degrade to a miss rather than an
// error; embedding failures only surface on cancellation.
func (m *Matcher) Match(ctx context.Context, query, model string) (*models.MatchResult, error) {
	emb, err := m.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	found, err := m.store.Find(ctx, model, emb, m.exclude)
	if err != nil {
		log.Printf("match: store lookup failed, treating as miss: %v", err)
		return nil, nil
	}
	if found == nil || found.Similarity < m.threshold {
		return nil, nil
	}

	if err := m.store.RecordAccess(ctx, found.Entry.ID); err != nil {
		// The entry may have been swept away between Find and here; the
		// answer we already read is still serviceable.
		log.Printf("match: record access for %s: %v", found.Entry.ID, err)
	}

	return &models.MatchResult{Entry: found.Entry, Similarity: found.Similarity}, nil
}
