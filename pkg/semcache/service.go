// Package semcache is the library entry point: it wires the embedding
// generator, similarity matcher, response adapter, lifecycle sweeper, and
// feedback collector behind one service.
package semcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/pario-ai/semcache/pkg/adapt"
	"github.com/pario-ai/semcache/pkg/config"
	"github.com/pario-ai/semcache/pkg/embedding"
	"github.com/pario-ai/semcache/pkg/feedback"
	"github.com/pario-ai/semcache/pkg/lifecycle"
	"github.com/pario-ai/semcache/pkg/llm"
	"github.com/pario-ai/semcache/pkg/match"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
	"github.com/pario-ai/semcache/pkg/store/sqlite"
)

// Caller-input errors. These reject immediately and are never retried.
var (
	ErrEmptyQuery   = errors.New("empty query")
	ErrEmptyAnswer  = errors.New("empty answer")
	ErrUnknownModel = errors.New("unknown model")
)

// Options tunes the service beyond its injected dependencies.
type Options struct {
	// AcceptThreshold is the strict similarity the matcher requires.
	AcceptThreshold float64
	// Models, when non-empty, is the allowlist of accepted model ids.
	Models []string
	// SweepInterval is the period of the background sweep loop.
	SweepInterval time.Duration
	// BatchSize bounds sweep memory use.
	BatchSize int
}

// Service is the downstream-facing semantic cache.
type Service struct {
	store     store.Store
	embedder  embedding.Embedder
	matcher   *match.Matcher
	adapter   *adapt.Adapter
	collector *feedback.Collector
	sweeper   *lifecycle.Sweeper
	models    map[string]bool
	interval  time.Duration

	done chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

// New creates a Service from explicit dependencies. completer may be nil to
// disable model-based adaptation; embedder is typically an
// *embedding.Generator so provider failures degrade to the deterministic
// fallback.
func New(st store.Store, embedder embedding.Embedder, completer llm.Completer, opts Options) *Service {
	if opts.AcceptThreshold <= 0 {
		opts.AcceptThreshold = 0.85
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = time.Hour
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 200
	}
	allow := make(map[string]bool, len(opts.Models))
	for _, m := range opts.Models {
		allow[m] = true
	}
	return &Service{
		store:     st,
		embedder:  embedder,
		matcher:   match.New(embedder, st, opts.AcceptThreshold),
		adapter:   adapt.New(completer),
		collector: feedback.New(st),
		sweeper:   lifecycle.NewSweeper(st, opts.BatchSize),
		models:    allow,
		interval:  opts.SweepInterval,
		done:      make(chan struct{}),
	}
}

// FromConfig assembles a Service with a SQLite store and HTTP providers
// according to cfg. The returned Service owns the store.
func FromConfig(cfg *config.Config) (*Service, error) {
	st, err := sqlite.New(cfg.DBPath, cfg.Cache.RecallFloor)
	if err != nil {
		return nil, err
	}

	var primary embedding.Embedder
	if cfg.Embedding.URL != "" {
		primary = embedding.NewClient(embedding.ClientOptions{
			URL:      cfg.Embedding.URL,
			APIKey:   cfg.Embedding.APIKey,
			Model:    cfg.Embedding.Model,
			Dims:     cfg.Embedding.Dimensions,
			Timeout:  cfg.Embedding.Timeout,
			MaxChars: cfg.Embedding.MaxChars,
		})
	}
	fallback := embedding.NewFallback(cfg.Embedding.Dimensions, cfg.Embedding.MaxChars)
	gen, err := embedding.NewGenerator(primary, fallback, cfg.Embedding.CacheSize, cfg.Embedding.MaxChars)
	if err != nil {
		st.Close()
		return nil, err
	}

	var completer llm.Completer
	if cfg.Adapter.Enabled && cfg.Adapter.URL != "" {
		completer = llm.NewClient(llm.ClientOptions{
			URL:     cfg.Adapter.URL,
			APIKey:  cfg.Adapter.APIKey,
			Model:   cfg.Adapter.Model,
			Timeout: cfg.Adapter.Timeout,
		})
	}

	return New(st, gen, completer, Options{
		AcceptThreshold: cfg.Cache.AcceptThreshold,
		Models:          cfg.Models,
		SweepInterval:   cfg.Lifecycle.SweepInterval,
		BatchSize:       cfg.Lifecycle.BatchSize,
	}), nil
}

// HashPrompt computes the normalized prompt fingerprint for exact matching.
func HashPrompt(model, query string) string {
	norm := strings.Join(strings.Fields(strings.ToLower(query)), " ")
	sum := sha256.Sum256([]byte(model + "\x00" + norm))
	return hex.EncodeToString(sum[:])
}

// Lookup answers a query from the cache. It always returns a definite
// hit or miss: dependency failures degrade internally and never surface.
// history is optional recent conversation turns passed to the adapter.
func (s *Service) Lookup(ctx context.Context, query, model string, history []string) (*models.LookupResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if err := s.checkModel(model); err != nil {
		return nil, err
	}

	// Exact fingerprint match short-circuits the semantic path; identical
	// phrasing needs no adaptation.
	if entry, err := s.store.GetByHash(ctx, model, HashPrompt(model, query), store.DefaultExclusions()); err == nil {
		if err := s.store.RecordAccess(ctx, entry.ID); err != nil {
			log.Printf("lookup: record access for %s: %v", entry.ID, err)
		}
		return &models.LookupResult{
			Hit:               true,
			EntryID:           entry.ID,
			Answer:            entry.Answer,
			SimilarityPercent: 100,
			OriginalQuery:     entry.Prompt,
		}, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		log.Printf("lookup: exact match failed, falling through: %v", err)
	}

	hit, err := s.matcher.Match(ctx, query, model)
	if err != nil {
		return nil, err
	}
	if hit == nil {
		return &models.LookupResult{Hit: false}, nil
	}

	answer := s.adapter.Adapt(ctx, hit.Entry.Answer, hit.Entry.Prompt, query, history)
	return &models.LookupResult{
		Hit:               true,
		EntryID:           hit.Entry.ID,
		Answer:            answer,
		SimilarityPercent: hit.Similarity * 100,
		OriginalQuery:     hit.Entry.Prompt,
		Adapted:           answer != hit.Entry.Answer,
	}, nil
}

// StoreInput describes a fresh answer to cache after a miss.
type StoreInput struct {
	Query       string
	Answer      string
	Model       string
	ContextHash string
	TokensSaved int64
	CostSaved   float64
}

// Store persists a fresh answer. The entry starts hot with a zero access
// count and a query type classified from the original prompt.
func (s *Service) Store(ctx context.Context, in StoreInput) (*models.CacheEntry, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, ErrEmptyQuery
	}
	if strings.TrimSpace(in.Answer) == "" {
		return nil, ErrEmptyAnswer
	}
	if err := s.checkModel(in.Model); err != nil {
		return nil, err
	}

	emb, err := s.embedder.Embed(ctx, in.Query)
	if err != nil {
		// Cancellation: discard partial work, write nothing.
		return nil, err
	}

	entry := &models.CacheEntry{
		Model:       in.Model,
		PromptHash:  HashPrompt(in.Model, in.Query),
		Prompt:      in.Query,
		Answer:      in.Answer,
		Embedding:   emb,
		QueryType:   lifecycle.ClassifyQueryType(in.Query),
		ContextHash: in.ContextHash,
		TokensSaved: in.TokensSaved,
		CostSaved:   in.CostSaved,
	}
	if err := s.store.Put(ctx, entry); err != nil {
		return nil, fmt.Errorf("store entry: %w", err)
	}
	return entry, nil
}

// SubmitFeedback records one user judgment and refreshes the entry's
// aggregated verdict.
func (s *Service) SubmitFeedback(ctx context.Context, entryID, userID string, kind models.FeedbackKind, comment string) error {
	return s.collector.Record(ctx, entryID, userID, kind, comment)
}

// RunMaintenanceSweep re-tiers every entry and returns the sweep snapshot.
func (s *Service) RunMaintenanceSweep(ctx context.Context, batchSize int) (*models.LifecycleStats, error) {
	return s.sweeper.Run(ctx, batchSize)
}

// InvalidateContext removes every entry that depended on the given context
// hash and returns how many were removed.
func (s *Service) InvalidateContext(ctx context.Context, contextHash string) (int64, error) {
	if contextHash == "" {
		return 0, nil
	}
	return s.store.InvalidateByContextHash(ctx, contextHash)
}

// Stats returns cumulative cache performance and savings.
func (s *Service) Stats(ctx context.Context) (models.CacheStats, error) {
	return s.store.Stats(ctx)
}

// LatestLifecycleStats returns the most recent sweep snapshot.
func (s *Service) LatestLifecycleStats(ctx context.Context) (*models.LifecycleStats, error) {
	return s.store.LatestStats(ctx)
}

// StartSweeper launches the periodic background sweep. It runs until Close.
func (s *Service) StartSweeper() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				stats, err := s.sweeper.Run(context.Background(), 0)
				if err != nil {
					log.Printf("background sweep failed: %v", err)
					continue
				}
				log.Printf("sweep: hot=%d warm=%d cool=%d cold=%d deleted=%d health=%.1f",
					stats.Hot, stats.Warm, stats.Cool, stats.Cold, stats.Deleted, stats.HealthScore)
			case <-s.done:
				return
			}
		}
	}()
}

// Close stops the background sweeper and releases the store.
func (s *Service) Close() error {
	s.once.Do(func() { close(s.done) })
	s.wg.Wait()
	return s.store.Close()
}

func (s *Service) checkModel(model string) error {
	if strings.TrimSpace(model) == "" {
		return ErrUnknownModel
	}
	if len(s.models) > 0 && !s.models[model] {
		return fmt.Errorf("%w: %q", ErrUnknownModel, model)
	}
	return nil
}
