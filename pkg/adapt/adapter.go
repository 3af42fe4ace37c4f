// Package adapt rewrites cached answers to fit a new query's phrasing.
package adapt

import (
	"context"
	"fmt"
	"log"
	"strings"
	"unicode"

	"github.com/pario-ai/semcache/pkg/llm"
)

// Adapter rewrites a cached answer for a new query. The primary path asks a
// language model to rephrase; when that call is unavailable or fails, a
// heuristic fallback decides between returning the answer verbatim and
// applying a light surface transform. Adaptation never fails the request.
type Adapter struct {
	completer llm.Completer
}

// New creates an Adapter. completer may be nil, which forces the heuristic
// path for every hit.
func New(completer llm.Completer) *Adapter {
	return &Adapter{completer: completer}
}

const rewriteTemplate = `You previously answered a similar question.

Original question: %s
Original answer: %s
%s
New question: %s

Rewrite the original answer so it directly addresses the new question's wording and context. Preserve all factual content. Reply with only the rewritten answer.`

// Adapt returns the cached answer reworded for newQuery. recentHistory is
// optional recent conversation turns, newest last.
func (a *Adapter) Adapt(ctx context.Context, cachedAnswer, originalQuery, newQuery string, recentHistory []string) string {
	if a.completer != nil {
		prompt := buildPrompt(cachedAnswer, originalQuery, newQuery, recentHistory)
		out, err := a.completer.Complete(ctx, prompt)
		if err == nil && strings.TrimSpace(out) != "" {
			return strings.TrimSpace(out)
		}
		if err != nil {
			log.Printf("adaptation call failed, using heuristic fallback: %v", err)
		}
	}
	return heuristic(cachedAnswer, originalQuery, newQuery)
}

func buildPrompt(cachedAnswer, originalQuery, newQuery string, recentHistory []string) string {
	var history string
	if len(recentHistory) > 0 {
		history = "Recent conversation:\n" + strings.Join(recentHistory, "\n") + "\n"
	}
	return fmt.Sprintf(rewriteTemplate, originalQuery, cachedAnswer, history, newQuery)
}

// heuristic compares the word sets of the two queries. Fewer than two novel
// terms means the queries are close enough to reuse the answer verbatim;
// otherwise a contextual prefix ties the answer to the new phrasing without
// attempting a true paraphrase.
func heuristic(cachedAnswer, originalQuery, newQuery string) string {
	novel := novelTerms(originalQuery, newQuery)
	if len(novel) < 2 {
		return cachedAnswer
	}
	return fmt.Sprintf("Regarding %q: %s", strings.TrimSpace(newQuery), cachedAnswer)
}

// novelTerms returns the words in newQuery absent from originalQuery.
func novelTerms(originalQuery, newQuery string) []string {
	old := wordSet(originalQuery)
	var novel []string
	for w := range wordSet(newQuery) {
		if !old[w] {
			novel = append(novel, w)
		}
	}
	return novel
}

func wordSet(text string) map[string]bool {
	set := make(map[string]bool)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		set[w] = true
	}
	return set
}
