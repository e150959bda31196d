package extract

import (
	"strings"

	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/model"
)

// EvidenceValidator checks claimed evidence against the source note and
// repairs the record so that every surviving span is a literal,
// position-accurate substring of the note.
type EvidenceValidator struct {
	lex     *lexicon.Lexicon
	matcher *phraseMatcher
}

// NewEvidenceValidator creates a validator backed by the lexicon's synonym table
func NewEvidenceValidator(lex *lexicon.Lexicon) *EvidenceValidator {
	return &EvidenceValidator{
		lex:     lex,
		matcher: newPhraseMatcher(),
	}
}

// Locate finds quote in note: first verbatim on word boundaries, then each
// synonym in table order. The first hit wins.
func (v *EvidenceValidator) Locate(quote, note string) (Match, bool) {
	quote = strings.TrimSpace(quote)
	if quote == "" {
		return Match{}, false
	}
	if m, ok := v.matcher.Find(quote, note); ok {
		return m, true
	}
	for _, syn := range v.lex.Synonyms(quote) {
		if m, ok := v.matcher.Find(syn, note); ok {
			return m, true
		}
	}
	return Match{}, false
}

// Validate repairs rec in place against note.
//
// Each claimed span is replaced by the span actually found, so model
// offsets are never trusted. A span that cannot be found marks its field
// missing. A field left with no span has its value cleared. A field with
// no value keeps no evidence, and is marked missing only if one of its
// quotes cannot be found.
// Entries with an empty quote are ignored.
func (v *EvidenceValidator) Validate(rec *model.ExtractionRecord, note string) {
	rec.Normalize()

	for _, field := range model.CheckedFields {
		claimed := rec.Evidence[field]

		// Evidence for an empty value grounds nothing; only quotes that
		// cannot be found mark the field
		if !rec.HasValue(field) {
			for _, span := range claimed {
				if strings.TrimSpace(span.Quote) == "" {
					continue
				}
				if _, ok := v.Locate(span.Quote, note); !ok {
					rec.MarkMissing(field)
				}
			}
			rec.Evidence[field] = []model.EvidenceSpan{}
			continue
		}

		kept := make([]model.EvidenceSpan, 0, len(claimed))
		for _, span := range claimed {
			if strings.TrimSpace(span.Quote) == "" {
				continue
			}
			m, ok := v.Locate(span.Quote, note)
			if !ok {
				rec.MarkMissing(field)
				continue
			}
			found := model.EvidenceSpan{
				Source: model.SourceNote,
				Start:  m.Start,
				End:    m.End,
				Quote:  m.Text,
			}
			if !containsSpan(kept, found) {
				kept = append(kept, found)
			}
		}

		if len(kept) == 0 {
			rec.ClearValue(field)
			rec.MarkMissing(field)
		}
		rec.Evidence[field] = kept
	}

	rec.RedFlagsPresent = len(rec.RedFlags) > 0
}

func containsSpan(spans []model.EvidenceSpan, s model.EvidenceSpan) bool {
	for _, existing := range spans {
		if existing.Start == s.Start && existing.End == s.End {
			return true
		}
	}
	return false
}
