package models

// MatchResult is a cache entry that cleared the matcher's acceptance
// threshold for a query.
type MatchResult struct {
	Entry      CacheEntry `json:"entry"`
	Similarity float64    `json:"similarity"`
}

// LookupResult is the downstream-facing outcome of a cache lookup.
type LookupResult struct {
	Hit               bool    `json:"hit"`
	EntryID           string  `json:"entry_id,omitempty"`
	Answer            string  `json:"answer,omitempty"`
	SimilarityPercent float64 `json:"similarity_percent,omitempty"`
	OriginalQuery     string  `json:"original_query,omitempty"`
	Adapted           bool    `json:"adapted,omitempty"`
}
