package extract

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/model"
)

var durationPattern = regexp.MustCompile(
	`(?i)\b(\d+|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve)\s*-?\s*(days?|weeks?|wks?|months?|mos?|years?|yrs?)\b`)

var numberWords = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5, "six": 6,
	"seven": 7, "eight": 8, "nine": 9, "ten": 10, "eleven": 11, "twelve": 12,
}

const clauseBreaks = ".,;:\n"

// Baseline is the deterministic keyword extractor used when no model is
// configured or the model path fails. Every value it emits carries a span
// found by the same word-boundary matcher the validator uses.
type Baseline struct {
	lex     *lexicon.Lexicon
	matcher *phraseMatcher
}

// NewBaseline creates a baseline extractor over the lexicon's keyword tables
func NewBaseline(lex *lexicon.Lexicon) *Baseline {
	return &Baseline{
		lex:     lex,
		matcher: newPhraseMatcher(),
	}
}

// duration is one "<n> <unit>" mention in the note
type duration struct {
	start, end int
	weeks      int
}

// Extract builds a record from the note alone. The policy chunks are
// accepted to satisfy the extractor contract but carry no patient facts.
func (b *Baseline) Extract(note string, _ []model.PolicyChunk) model.ExtractionRecord {
	rec := model.NewRecord()
	for _, f := range model.CheckedFields {
		rec.Evidence[f] = []model.EvidenceSpan{}
	}

	b.extractDurations(note, &rec)
	b.extractTreatments(note, &rec)
	b.extractRedFlags(note, &rec)

	if rec.SymptomsDurationWeeks == nil {
		b.extractAcuteOnset(note, &rec)
	}

	for _, f := range []model.Field{model.FieldSymptomsDuration, model.FieldConservativeCare, model.FieldTreatments} {
		if !rec.HasValue(f) {
			rec.MarkMissing(f)
		}
	}
	rec.RedFlagsPresent = len(rec.RedFlags) > 0
	rec.ExtractionMode = model.ModeBaseline
	return rec
}

// extractDurations classifies each duration by its clause: a clause that
// mentions care context or a treatment keyword is conservative care time,
// any other clause is symptom time. The first of each kind wins.
func (b *Baseline) extractDurations(note string, rec *model.ExtractionRecord) {
	for _, d := range findDurations(note) {
		cs, ce := clauseBounds(note, d.start, d.end)
		clause := note[cs:ce]

		if b.isCareClause(clause) {
			if rec.ConservativeCareWeeks != nil {
				continue
			}
			rec.ConservativeCareWeeks = model.IntPtr(d.weeks)
			rec.Evidence[model.FieldConservativeCare] = []model.EvidenceSpan{trimmedSpan(note, cs, ce)}
			continue
		}

		if rec.SymptomsDurationWeeks != nil {
			continue
		}
		rec.SymptomsDurationWeeks = model.IntPtr(d.weeks)
		rec.Evidence[model.FieldSymptomsDuration] = []model.EvidenceSpan{trimmedSpan(note, d.start, ce)}
	}
}

func (b *Baseline) isCareClause(clause string) bool {
	for _, w := range b.lex.CareContext() {
		if _, ok := b.matcher.Find(w, clause); ok {
			return true
		}
	}
	for _, ks := range b.lex.TreatmentKeywords() {
		for _, kw := range ks.Keywords {
			if _, ok := b.matcher.Find(kw, clause); ok {
				return true
			}
		}
	}
	return false
}

func (b *Baseline) extractTreatments(note string, rec *model.ExtractionRecord) {
	for _, ks := range b.lex.TreatmentKeywords() {
		for _, kw := range ks.Keywords {
			m, ok := b.matcher.Find(kw, note)
			if !ok {
				continue
			}
			rec.Treatments = append(rec.Treatments, ks.Label)
			rec.Evidence[model.FieldTreatments] = append(rec.Evidence[model.FieldTreatments], matchSpan(m))
			break
		}
	}
}

// extractRedFlags keeps the first mention per label that is not negated
// earlier in its clause ("No bowel or bladder symptoms" is not a flag).
func (b *Baseline) extractRedFlags(note string, rec *model.ExtractionRecord) {
	for _, ks := range b.lex.RedFlagKeywords() {
		if m, ok := b.firstAffirmed(ks.Keywords, note); ok {
			rec.RedFlags = append(rec.RedFlags, ks.Label)
			rec.Evidence[model.FieldRedFlags] = append(rec.Evidence[model.FieldRedFlags], matchSpan(m))
		}
	}
}

func (b *Baseline) firstAffirmed(keywords []string, note string) (Match, bool) {
	for _, kw := range keywords {
		for _, m := range b.matcher.FindAll(kw, note) {
			cs, _ := clauseBounds(note, m.Start, m.End)
			if !b.negated(note[cs:m.Start]) {
				return m, true
			}
		}
	}
	return Match{}, false
}

func (b *Baseline) negated(prefix string) bool {
	for _, cue := range b.lex.NegationCues() {
		if _, ok := b.matcher.Find(cue, prefix); ok {
			return true
		}
	}
	return false
}

func (b *Baseline) extractAcuteOnset(note string, rec *model.ExtractionRecord) {
	for _, phrase := range b.lex.AcuteOnset() {
		if m, ok := b.matcher.Find(phrase, note); ok {
			rec.SymptomsDurationWeeks = model.IntPtr(0)
			rec.Evidence[model.FieldSymptomsDuration] = []model.EvidenceSpan{matchSpan(m)}
			return
		}
	}
}

// findDurations returns every duration mention, skipping ages such as
// "45-year-old" or "45 years old".
func findDurations(note string) []duration {
	var out []duration
	for _, loc := range durationPattern.FindAllStringSubmatchIndex(note, -1) {
		rest := strings.ToLower(note[loc[1]:])
		if strings.HasPrefix(rest, "-old") || strings.HasPrefix(rest, " old") {
			continue
		}
		n, ok := parseCount(note[loc[2]:loc[3]])
		if !ok {
			continue
		}
		out = append(out, duration{
			start: loc[0],
			end:   loc[1],
			weeks: toWeeks(n, strings.ToLower(note[loc[4]:loc[5]])),
		})
	}
	return out
}

func parseCount(s string) (int, bool) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	n, ok := numberWords[strings.ToLower(s)]
	return n, ok
}

func toWeeks(n int, unit string) int {
	switch {
	case strings.HasPrefix(unit, "d"):
		return (n + 3) / 7
	case strings.HasPrefix(unit, "m"):
		return n * 4
	case strings.HasPrefix(unit, "y"):
		return n * 52
	default:
		return n
	}
}

// clauseBounds returns the clause around [start,end), delimited by
// punctuation or line breaks.
func clauseBounds(note string, start, end int) (int, int) {
	cs := strings.LastIndexAny(note[:start], clauseBreaks) + 1
	ce := len(note)
	if i := strings.IndexAny(note[end:], clauseBreaks); i >= 0 {
		ce = end + i
	}
	return cs, ce
}

// trimmedSpan builds a note span over [start,end) with surrounding space removed
func trimmedSpan(note string, start, end int) model.EvidenceSpan {
	for start < end && isSpace(note[start]) {
		start++
	}
	for end > start && isSpace(note[end-1]) {
		end--
	}
	return model.EvidenceSpan{
		Source: model.SourceNote,
		Start:  start,
		End:    end,
		Quote:  note[start:end],
	}
}

func matchSpan(m Match) model.EvidenceSpan {
	return model.EvidenceSpan{
		Source: model.SourceNote,
		Start:  m.Start,
		End:    m.End,
		Quote:  m.Text,
	}
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}
