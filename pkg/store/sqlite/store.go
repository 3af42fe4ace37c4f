// Package sqlite implements store.Store on an embedded SQLite database.
// Embeddings live in a BLOB column; nearest-neighbor lookups scan the
// same-model candidate rows and rank by cosine similarity in process.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/pario-ai/semcache/pkg/embedding"
	"github.com/pario-ai/semcache/pkg/models"
	"github.com/pario-ai/semcache/pkg/store"
)

// Store implements store.Store with a SQLite database.
type Store struct {
	db          *sql.DB
	recallFloor float64
}

const createEntriesTable = `
CREATE TABLE IF NOT EXISTS cache_entries (
	id                   TEXT PRIMARY KEY,
	model                TEXT NOT NULL,
	prompt_hash          TEXT NOT NULL,
	prompt               TEXT NOT NULL,
	answer               TEXT NOT NULL,
	embedding            BLOB NOT NULL,
	created_at           DATETIME NOT NULL,
	last_accessed_at     DATETIME NOT NULL,
	access_count         INTEGER NOT NULL DEFAULT 0,
	query_type           TEXT NOT NULL,
	context_hash         TEXT,
	tier                 TEXT NOT NULL,
	lifecycle_updated_at DATETIME NOT NULL,
	feedback_verdict     TEXT,
	feedback_count       INTEGER NOT NULL DEFAULT 0,
	tokens_saved         INTEGER NOT NULL DEFAULT 0,
	cost_saved           REAL NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_entries_model_tier ON cache_entries(model, tier);
CREATE INDEX IF NOT EXISTS idx_entries_hash ON cache_entries(model, prompt_hash);
CREATE INDEX IF NOT EXISTS idx_entries_context ON cache_entries(context_hash);
CREATE INDEX IF NOT EXISTS idx_entries_created ON cache_entries(created_at, id);
`

const createFeedbackTable = `
CREATE TABLE IF NOT EXISTS feedback_records (
	id         TEXT PRIMARY KEY,
	entry_id   TEXT NOT NULL,
	user_id    TEXT,
	kind       TEXT NOT NULL,
	comment    TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_entry ON feedback_records(entry_id);
`

const createStatsTable = `
CREATE TABLE IF NOT EXISTS lifecycle_stats (
	id               TEXT PRIMARY KEY,
	created_at       DATETIME NOT NULL,
	hot              INTEGER NOT NULL,
	warm             INTEGER NOT NULL,
	cool             INTEGER NOT NULL,
	cold             INTEGER NOT NULL,
	deleted          INTEGER NOT NULL,
	promoted         INTEGER NOT NULL,
	demoted          INTEGER NOT NULL,
	failed           INTEGER NOT NULL,
	avg_access_count REAL NOT NULL,
	avg_age_days     REAL NOT NULL,
	health_score     REAL NOT NULL
);
`

// New opens (or creates) the store database. recallFloor is the loose
// similarity floor applied by Find before the matcher's own threshold.
func New(dbPath string, recallFloor float64) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open store db: %w", err)
	}
	// A single connection serializes writers, so increments never race.
	db.SetMaxOpenConns(1)

	for _, schema := range []string{createEntriesTable, createFeedbackTable, createStatsTable} {
		if _, err := db.Exec(schema); err != nil {
			db.Close()
			return nil, fmt.Errorf("migrate store db: %w", err)
		}
	}

	return &Store{db: db, recallFloor: recallFloor}, nil
}

// Put persists a new entry with tier hot and access count zero.
func (s *Store) Put(ctx context.Context, entry *models.CacheEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.LastAccessedAt = entry.CreatedAt
	entry.LifecycleUpdatedAt = entry.CreatedAt
	entry.Tier = models.TierHot
	entry.AccessCount = 0

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO cache_entries
		 (id, model, prompt_hash, prompt, answer, embedding, created_at, last_accessed_at,
		  access_count, query_type, context_hash, tier, lifecycle_updated_at,
		  feedback_verdict, feedback_count, tokens_saved, cost_saved)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, NULL, 0, ?, ?)`,
		entry.ID, entry.Model, entry.PromptHash, entry.Prompt, entry.Answer,
		encodeVector(entry.Embedding), entry.CreatedAt, entry.LastAccessedAt,
		string(entry.QueryType), nullable(entry.ContextHash), string(entry.Tier),
		entry.LifecycleUpdatedAt, entry.TokensSaved, entry.CostSaved,
	)
	if err != nil {
		return fmt.Errorf("store put: %w", err)
	}
	return nil
}

const entryColumns = `id, model, prompt_hash, prompt, answer, embedding, created_at,
	last_accessed_at, access_count, query_type, context_hash, tier,
	lifecycle_updated_at, feedback_verdict, feedback_count, tokens_saved, cost_saved`

// Get returns the entry with the given id.
func (s *Store) Get(ctx context.Context, id string) (*models.CacheEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM cache_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store get: %w", err)
	}
	return entry, nil
}

// GetByHash returns the same-model entry with an identical prompt
// fingerprint, skipping excluded tiers. Duplicate fingerprints resolve to
// the most-used entry, matching Find's tie-break.
func (s *Store) GetByHash(ctx context.Context, model, promptHash string, exclude []models.LifecycleTier) (*models.CacheEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM cache_entries WHERE model = ? AND prompt_hash = ?`
	args := []any{model, promptHash}
	if clause, tierArgs := tierExclusion(exclude); clause != "" {
		query += " AND " + clause
		args = append(args, tierArgs...)
	}
	query += " ORDER BY access_count DESC, created_at DESC, id LIMIT 1"

	row := s.db.QueryRowContext(ctx, query, args...)
	entry, err := scanEntry(row)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store get by hash: %w", err)
	}
	return entry, nil
}

// Find scans same-model candidates outside the excluded tiers and returns
// the most similar one above the recall floor. Malformed rows are skipped.
func (s *Store) Find(ctx context.Context, model string, emb []float32, exclude []models.LifecycleTier) (*store.Match, error) {
	query := `SELECT ` + entryColumns + ` FROM cache_entries WHERE model = ?`
	args := []any{model}
	if clause, tierArgs := tierExclusion(exclude); clause != "" {
		query += " AND " + clause
		args = append(args, tierArgs...)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("store find: %w", err)
	}
	defer rows.Close()

	var best *store.Match
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			// Data-integrity failure: skip the row, keep matching.
			log.Printf("store find: skipping malformed entry: %v", err)
			continue
		}
		if len(entry.Embedding) != len(emb) {
			log.Printf("store find: skipping entry %s: dimension mismatch %d != %d",
				entry.ID, len(entry.Embedding), len(emb))
			continue
		}
		sim := embedding.Cosine(emb, entry.Embedding)
		if sim < s.recallFloor {
			continue
		}
		if best == nil || sim > best.Similarity ||
			(sim == best.Similarity && entry.AccessCount > best.Entry.AccessCount) {
			best = &store.Match{Entry: *entry, Similarity: sim}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store find: %w", err)
	}
	return best, nil
}

// RecordAccess atomically bumps the access count and refreshes recency.
func (s *Store) RecordAccess(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cache_entries
		 SET access_count = access_count + 1, last_accessed_at = ?
		 WHERE id = ?`,
		time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("record access: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InvalidateByContextHash deletes all entries sharing the context hash.
func (s *Store) InvalidateByContextHash(ctx context.Context, hash string) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE context_hash = ?`, hash)
	if err != nil {
		return 0, fmt.Errorf("invalidate context: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("invalidate context: %w", err)
	}
	return n, nil
}

// ListBatch pages through entries oldest-first using (created_at, id) as
// the keyset, so the sweep holds at most one batch in memory.
func (s *Store) ListBatch(ctx context.Context, afterCreated time.Time, afterID string, limit int) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+entryColumns+` FROM cache_entries
		 WHERE (created_at > ?) OR (created_at = ? AND id > ?)
		 ORDER BY created_at, id
		 LIMIT ?`,
		afterCreated, afterCreated, afterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			log.Printf("list batch: skipping malformed entry: %v", err)
			continue
		}
		entries = append(entries, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list batch: %w", err)
	}
	return entries, nil
}

// UpdateTier persists a recomputed tier.
func (s *Store) UpdateTier(ctx context.Context, id string, tier models.LifecycleTier, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE cache_entries SET tier = ?, lifecycle_updated_at = ? WHERE id = ?`,
		string(tier), at.UTC(), id)
	if err != nil {
		return fmt.Errorf("update tier: %w", err)
	}
	return nil
}

// Delete removes an entry and its feedback rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM feedback_records WHERE entry_id = ?`, id); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	return nil
}

// AppendFeedback stores one immutable feedback record.
func (s *Store) AppendFeedback(ctx context.Context, rec *models.FeedbackRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO feedback_records (id, entry_id, user_id, kind, comment, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EntryID, nullable(rec.UserID), string(rec.Kind),
		nullable(rec.Comment), rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append feedback: %w", err)
	}
	return nil
}

// FeedbackForEntry returns all feedback rows for an entry, oldest first.
func (s *Store) FeedbackForEntry(ctx context.Context, entryID string) ([]models.FeedbackRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, entry_id, user_id, kind, comment, created_at
		 FROM feedback_records WHERE entry_id = ? ORDER BY created_at, id`,
		entryID,
	)
	if err != nil {
		return nil, fmt.Errorf("feedback for entry: %w", err)
	}
	defer rows.Close()

	var recs []models.FeedbackRecord
	for rows.Next() {
		var rec models.FeedbackRecord
		var userID, comment sql.NullString
		var kind string
		if err := rows.Scan(&rec.ID, &rec.EntryID, &userID, &kind, &comment, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("feedback for entry: %w", err)
		}
		rec.UserID = userID.String
		rec.Comment = comment.String
		rec.Kind = models.FeedbackKind(kind)
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("feedback for entry: %w", err)
	}
	return recs, nil
}

// UpdateFeedbackAggregate persists a recomputed verdict and count.
func (s *Store) UpdateFeedbackAggregate(ctx context.Context, entryID string, verdict models.FeedbackVerdict, count int64) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE cache_entries SET feedback_verdict = ?, feedback_count = ? WHERE id = ?`,
		nullable(string(verdict)), count, entryID)
	if err != nil {
		return fmt.Errorf("update feedback aggregate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// SaveStats appends a sweep snapshot.
func (s *Store) SaveStats(ctx context.Context, stats *models.LifecycleStats) error {
	if stats.ID == "" {
		stats.ID = uuid.NewString()
	}
	if stats.CreatedAt.IsZero() {
		stats.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO lifecycle_stats
		 (id, created_at, hot, warm, cool, cold, deleted, promoted, demoted, failed,
		  avg_access_count, avg_age_days, health_score)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		stats.ID, stats.CreatedAt, stats.Hot, stats.Warm, stats.Cool, stats.Cold,
		stats.Deleted, stats.Promoted, stats.Demoted, stats.Failed,
		stats.AvgAccessCount, stats.AvgAgeDays, stats.HealthScore,
	)
	if err != nil {
		return fmt.Errorf("save stats: %w", err)
	}
	return nil
}

// LatestStats returns the most recent sweep snapshot.
func (s *Store) LatestStats(ctx context.Context) (*models.LifecycleStats, error) {
	var st models.LifecycleStats
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, hot, warm, cool, cold, deleted, promoted, demoted,
		        failed, avg_access_count, avg_age_days, health_score
		 FROM lifecycle_stats ORDER BY created_at DESC, id DESC LIMIT 1`,
	).Scan(&st.ID, &st.CreatedAt, &st.Hot, &st.Warm, &st.Cool, &st.Cold,
		&st.Deleted, &st.Promoted, &st.Demoted, &st.Failed,
		&st.AvgAccessCount, &st.AvgAgeDays, &st.HealthScore)
	if err == sql.ErrNoRows {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest stats: %w", err)
	}
	return &st, nil
}

// Stats returns cumulative cache performance and savings. Savings count
// once per hit, since each hit avoided a provider call.
func (s *Store) Stats(ctx context.Context) (models.CacheStats, error) {
	var st models.CacheStats
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(access_count), 0),
		        COALESCE(SUM(tokens_saved * access_count), 0),
		        COALESCE(SUM(cost_saved * access_count), 0)
		 FROM cache_entries`,
	).Scan(&st.Entries, &st.TotalHits, &st.TokensSaved, &st.CostSaved)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return st, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*models.CacheEntry, error) {
	var e models.CacheEntry
	var blob []byte
	var queryType, tier string
	var contextHash, verdict sql.NullString
	if err := row.Scan(
		&e.ID, &e.Model, &e.PromptHash, &e.Prompt, &e.Answer, &blob,
		&e.CreatedAt, &e.LastAccessedAt, &e.AccessCount, &queryType,
		&contextHash, &tier, &e.LifecycleUpdatedAt, &verdict,
		&e.FeedbackCount, &e.TokensSaved, &e.CostSaved,
	); err != nil {
		return nil, err
	}
	vec, err := decodeVector(blob)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", e.ID, err)
	}
	e.Embedding = vec
	e.QueryType = models.QueryType(queryType)
	e.Tier = models.LifecycleTier(tier)
	e.ContextHash = contextHash.String
	e.FeedbackVerdict = models.FeedbackVerdict(verdict.String)
	return &e, nil
}

func tierExclusion(exclude []models.LifecycleTier) (string, []any) {
	if len(exclude) == 0 {
		return "", nil
	}
	placeholders := strings.Repeat("?, ", len(exclude)-1) + "?"
	args := make([]any, len(exclude))
	for i, t := range exclude {
		args[i] = string(t)
	}
	return "tier NOT IN (" + placeholders + ")", args
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
