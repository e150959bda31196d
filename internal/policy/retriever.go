package policy

import (
	"sort"
	"strings"

	"github.com/ppiankov/patrace/internal/model"
)

// Retriever ranks policy chunks by term overlap with a query
type Retriever struct {
	chunks []model.PolicyChunk
	terms  []map[string]bool
}

// ScoredChunk is a chunk with its overlap score in [0, 1]
type ScoredChunk struct {
	Chunk model.PolicyChunk
	Score float64
}

// NewRetriever indexes chunks for retrieval
func NewRetriever(chunks []model.PolicyChunk) *Retriever {
	r := &Retriever{
		chunks: chunks,
		terms:  make([]map[string]bool, len(chunks)),
	}
	for i, c := range chunks {
		set := make(map[string]bool)
		for _, tok := range tokenize(c.Text) {
			set[tok] = true
		}
		r.terms[i] = set
	}
	return r
}

// Len returns the number of indexed chunks
func (r *Retriever) Len() int {
	return len(r.chunks)
}

// Retrieve returns up to k chunks sharing at least one term with query,
// best first. Equal scores keep library order. k <= 0 returns every match.
func (r *Retriever) Retrieve(query string, k int) []model.PolicyChunk {
	scored := r.Score(query)
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}

	out := make([]model.PolicyChunk, len(scored))
	for i, s := range scored {
		out[i] = s.Chunk
	}
	return out
}

// Score returns every matching chunk with its score, best first.
// The score is the share of distinct query terms found in the chunk.
func (r *Retriever) Score(query string) []ScoredChunk {
	queryTerms := unique(tokenize(query))
	if len(queryTerms) == 0 {
		return []ScoredChunk{}
	}

	scored := make([]ScoredChunk, 0, len(r.chunks))
	for i, c := range r.chunks {
		hits := 0
		for _, term := range queryTerms {
			if r.terms[i][term] {
				hits++
			}
		}
		if hits == 0 {
			continue
		}
		scored = append(scored, ScoredChunk{
			Chunk: c,
			Score: float64(hits) / float64(len(queryTerms)),
		})
	}

	sort.SliceStable(scored, func(a, b int) bool {
		return scored[a].Score > scored[b].Score
	})
	return scored
}

// tokenize splits text into lowercase terms, dropping stopwords and
// terms shorter than three characters
func tokenize(text string) []string {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isAlphanumeric(r)
	})

	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) > 2 && !stopwords[tok] {
			filtered = append(filtered, tok)
		}
	}
	return filtered
}

func unique(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := terms[:0:0]
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_'
}

var stopwords = map[string]bool{
	"the": true, "and": true, "but": true, "for": true, "with": true,
	"from": true, "was": true, "are": true, "been": true, "being": true,
	"have": true, "has": true, "had": true, "does": true, "did": true,
	"will": true, "would": true, "could": true, "should": true, "may": true,
	"might": true, "can": true, "this": true, "that": true, "these": true,
	"those": true, "you": true, "she": true, "they": true, "what": true,
	"which": true, "who": true, "when": true, "where": true, "why": true,
	"how": true, "not": true, "patient": true, "reports": true,
}
