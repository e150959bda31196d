package extract

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/model"
)

// decodeRecord converts a parsed model object into a typed record.
// Absent keys get their defaults. Values the model may not emit (labels
// outside the closed vocabularies, negative durations, unknown fields)
// are dropped; a list field whose every claimed label was dropped is
// marked missing.
func decodeRecord(obj map[string]any, lex *lexicon.Lexicon) model.ExtractionRecord {
	rec := model.NewRecord()

	rec.SymptomsDurationWeeks = weeksValue(obj[string(model.FieldSymptomsDuration)])
	rec.ConservativeCareWeeks = weeksValue(obj[string(model.FieldConservativeCare)])

	var claimed int
	rec.Treatments, claimed = vocabValues(obj[string(model.FieldTreatments)], lex.IsTreatment)
	if claimed > 0 && len(rec.Treatments) == 0 {
		rec.MarkMissing(model.FieldTreatments)
	}
	rec.RedFlags, claimed = vocabValues(obj[string(model.FieldRedFlags)], lex.IsRedFlag)
	if claimed > 0 && len(rec.RedFlags) == 0 {
		rec.MarkMissing(model.FieldRedFlags)
	}

	if present, ok := obj["red_flags_present"].(bool); ok {
		rec.RedFlagsPresent = present
	} else {
		rec.RedFlagsPresent = len(rec.RedFlags) > 0
	}

	if evidence, ok := obj["evidence"].(map[string]any); ok {
		for _, field := range model.CheckedFields {
			if spans := evidenceValue(evidence[string(field)]); spans != nil {
				rec.Evidence[field] = spans
			}
		}
	}

	if missing, ok := obj["missing_evidence"].([]any); ok {
		for _, m := range missing {
			name, _ := m.(string)
			field := model.Field(strings.TrimSpace(name))
			if slices.Contains(model.CheckedFields, field) {
				rec.MarkMissing(field)
			}
		}
	}

	return rec
}

// weeksValue accepts a JSON number or a numeric string; anything else is null
func weeksValue(v any) *int {
	var f float64
	switch n := v.(type) {
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case float64:
		f = n
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	if f < 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return model.IntPtr(int(math.Round(f)))
}

// vocabValues keeps normalized labels accepted by allowed, deduplicated
// in first-seen order. It also reports how many labels were claimed.
func vocabValues(v any, allowed func(string) bool) ([]string, int) {
	items, ok := v.([]any)
	if !ok {
		return []string{}, 0
	}
	out := []string{}
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			continue
		}
		label := normalizeLabel(s)
		if allowed(label) && !slices.Contains(out, label) {
			out = append(out, label)
		}
	}
	return out, len(items)
}

func normalizeLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_'
	}), "_")
}

// evidenceValue decodes a list of claimed spans. Only the quote is trusted;
// offsets are kept for logging but the validator recomputes them.
func evidenceValue(v any) []model.EvidenceSpan {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	spans := make([]model.EvidenceSpan, 0, len(items))
	for _, item := range items {
		entry, ok := item.(map[string]any)
		if !ok {
			continue
		}
		span := model.EvidenceSpan{Source: model.SourceNote}
		if src, ok := entry["source"].(string); ok && src != "" {
			span.Source = model.EvidenceSource(src)
		}
		span.Quote, _ = entry["quote"].(string)
		if start := weeksValue(entry["start"]); start != nil {
			span.Start = *start
		}
		if end := weeksValue(entry["end"]); end != nil {
			span.End = *end
		}
		spans = append(spans, span)
	}
	return spans
}
