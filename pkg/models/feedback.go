package models

import "time"

// FeedbackKind is a single user judgment about a cached answer.
type FeedbackKind string

const (
	FeedbackHelpful   FeedbackKind = "helpful"
	FeedbackOutdated  FeedbackKind = "outdated"
	FeedbackIncorrect FeedbackKind = "incorrect"
)

// Valid reports whether k is one of the known feedback kinds.
func (k FeedbackKind) Valid() bool {
	switch k {
	case FeedbackHelpful, FeedbackOutdated, FeedbackIncorrect:
		return true
	}
	return false
}

// Negative reports whether k counts against the entry.
func (k FeedbackKind) Negative() bool {
	return k == FeedbackOutdated || k == FeedbackIncorrect
}

// FeedbackVerdict is the aggregated judgment over all feedback rows for one
// entry. Empty means no feedback has been recorded yet.
type FeedbackVerdict string

const (
	VerdictHelpful  FeedbackVerdict = "helpful"
	VerdictOutdated FeedbackVerdict = "outdated"
	VerdictMixed    FeedbackVerdict = "mixed"
)

// FeedbackRecord is one immutable user judgment. Records are append-only;
// the aggregate verdict is always recomputed from the full set.
type FeedbackRecord struct {
	ID        string       `json:"id"`
	EntryID   string       `json:"entry_id"`
	UserID    string       `json:"user_id,omitempty"`
	Kind      FeedbackKind `json:"kind"`
	Comment   string       `json:"comment,omitempty"`
	CreatedAt time.Time    `json:"created_at"`
}
