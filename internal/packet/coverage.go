package packet

import (
	"github.com/ppiankov/patrace/internal/extract"
	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/model"
)

// CoverageGap is a keyword found in the note that no evidence span covers.
// Start and End locate its first occurrence.
type CoverageGap struct {
	Category string `json:"category"` // treatment, red_flag
	Label    string `json:"label"`
	Keyword  string `json:"keyword"`
	Start    int    `json:"start"`
	End      int    `json:"end"`
}

const (
	CategoryTreatment = "treatment"
	CategoryRedFlag   = "red_flag"
)

// AuditCoverage lists baseline keywords present in note whose occurrences
// all fall outside every note evidence span of rec. A nil lexicon uses
// the embedded one.
func AuditCoverage(note string, rec model.ExtractionRecord, lex *lexicon.Lexicon) []CoverageGap {
	if lex == nil {
		lex = lexicon.Default()
	}

	var spans []model.EvidenceSpan
	for _, field := range model.CheckedFields {
		for _, ev := range rec.Evidence[field] {
			if ev.Source == model.SourceNote {
				spans = append(spans, ev)
			}
		}
	}

	gaps := []CoverageGap{}
	audit := func(category string, sets []lexicon.KeywordSet) {
		for _, set := range sets {
			for _, kw := range set.Keywords {
				matches := extract.Occurrences(kw, note)
				if len(matches) == 0 || anyCovered(matches, spans) {
					continue
				}
				gaps = append(gaps, CoverageGap{
					Category: category,
					Label:    set.Label,
					Keyword:  kw,
					Start:    matches[0].Start,
					End:      matches[0].End,
				})
			}
		}
	}
	audit(CategoryTreatment, lex.TreatmentKeywords())
	audit(CategoryRedFlag, lex.RedFlagKeywords())

	return gaps
}

func anyCovered(matches []extract.Match, spans []model.EvidenceSpan) bool {
	for _, m := range matches {
		for _, s := range spans {
			if s.Start <= m.Start && m.End <= s.End {
				return true
			}
		}
	}
	return false
}
