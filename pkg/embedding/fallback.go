package embedding

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// Fallback is a deterministic local embedder. The same text always yields
// the same vector, and near-duplicate strings land close together: the
// vector mixes four spreads over disjoint dimension ranges (hashed content
// words, character trigrams, character-code distribution, and a positional
// remix), each L2-normalized and weighted, then normalized as a whole.
//
// Word overlap dominates so that rephrasings of the same question stay above
// typical acceptance thresholds.
type Fallback struct {
	dims     int
	maxChars int
}

// Segment weights. Squares sum to 1 so the final vector is unit norm and
// the overall cosine is the weighted sum of per-segment cosines.
const (
	wordWeight     = 0.80622577 // weight^2 = 0.65
	trigramWeight  = 0.38729833 // weight^2 = 0.15
	charWeight     = 0.38729833 // weight^2 = 0.15
	positionWeight = 0.22360680 // weight^2 = 0.05
)

var stopwords = map[string]bool{
	"a": true, "an": true, "the": true, "is": true, "are": true, "was": true,
	"were": true, "be": true, "been": true, "of": true, "to": true, "in": true,
	"on": true, "at": true, "for": true, "and": true, "or": true, "it": true,
	"its": true, "this": true, "that": true, "what": true, "which": true,
	"who": true, "whom": true, "how": true, "do": true, "does": true,
	"did": true, "can": true, "could": true, "would": true, "should": true,
	"me": true, "my": true, "you": true, "your": true, "s": true,
}

// NewFallback creates a deterministic embedder producing dims-length
// vectors. dims must be at least 16.
func NewFallback(dims, maxChars int) *Fallback {
	if dims < 16 {
		dims = 16
	}
	return &Fallback{dims: dims, maxChars: maxChars}
}

// Dimensions returns the configured vector length.
func (f *Fallback) Dimensions() int { return f.dims }

// Embed produces the deterministic embedding for text. It never fails
// except on context cancellation.
func (f *Fallback) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	norm := strings.ToLower(strings.TrimSpace(truncate(text, f.maxChars)))
	vec := make([]float32, f.dims)

	half := f.dims / 2
	quarter := f.dims / 4
	eighth := f.dims / 8

	wordSeg := vec[0:half]
	triSeg := vec[half : half+quarter]
	charSeg := vec[half+quarter : half+quarter+eighth]
	posSeg := vec[half+quarter+eighth:]

	for _, w := range contentWords(norm) {
		bump(wordSeg, w)
	}
	runes := []rune(norm)
	for i := 0; i+3 <= len(runes); i++ {
		bump(triSeg, string(runes[i:i+3]))
	}
	for i, r := range runes {
		charSeg[int(r)%len(charSeg)]++
		// Positional remix: the same rune in a different region of the
		// text lands in a different bucket.
		h := fnv.New32a()
		h.Write([]byte{byte(r), byte(r >> 8), byte(i / 4)})
		posSeg[int(h.Sum32())%len(posSeg)]++
	}

	scale(wordSeg, wordWeight)
	scale(triSeg, trigramWeight)
	scale(charSeg, charWeight)
	scale(posSeg, positionWeight)

	normalize(vec)
	return vec, nil
}

// contentWords splits normalized text into words with stopwords removed.
// If nothing survives the filter, all words are kept.
func contentWords(norm string) []string {
	fields := strings.FieldsFunc(norm, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	content := make([]string, 0, len(fields))
	for _, w := range fields {
		if !stopwords[w] {
			content = append(content, w)
		}
	}
	if len(content) == 0 {
		return fields
	}
	return content
}

func bump(seg []float32, token string) {
	h := fnv.New32a()
	h.Write([]byte(token))
	seg[int(h.Sum32())%len(seg)]++
}

func scale(seg []float32, weight float64) {
	normalize(seg)
	for i := range seg {
		seg[i] = float32(float64(seg[i]) * weight)
	}
}
