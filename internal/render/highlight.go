// Package render turns validated evidence spans into highlighted HTML.
package render

import (
	"fmt"
	"html"
	"sort"
	"strings"

	"github.com/ppiankov/patrace/internal/model"
)

// Span is one annotation over original byte offsets of a text
type Span struct {
	Start int
	End   int
	Field string
}

type eventKind int

const (
	eventEnd eventKind = iota
	eventStart
)

type event struct {
	pos    int
	kind   eventKind
	length int
	index  int
}

// Highlight returns text HTML-escaped with every valid span wrapped in a
// <mark> element carrying the span's field as class and data-field.
//
// Spans are clipped to the text; spans empty after clipping are skipped.
// Nested and disjoint spans produce correctly nested markup. Crossing spans
// keep balanced tags but nest by insertion order.
func Highlight(text string, spans []Span) string {
	var events []event
	kept := make(map[int]Span)
	for i, s := range spans {
		start := max(s.Start, 0)
		end := min(s.End, len(text))
		if start >= end {
			continue
		}
		kept[i] = Span{Start: start, End: end, Field: s.Field}
		length := end - start
		events = append(events,
			event{pos: end, kind: eventEnd, length: length, index: i},
			event{pos: start, kind: eventStart, length: length, index: i},
		)
	}

	if len(events) == 0 {
		return html.EscapeString(text)
	}

	// Events are inserted right to left; at one position the first inserted
	// token ends up rightmost in the output.
	sort.SliceStable(events, func(a, b int) bool {
		ea, eb := events[a], events[b]
		if ea.pos != eb.pos {
			return ea.pos > eb.pos
		}
		if ea.kind != eb.kind {
			// A closing tag must precede an opening tag at a shared position
			return ea.kind == eventStart
		}
		if ea.kind == eventEnd && ea.length != eb.length {
			return ea.length > eb.length
		}
		if ea.kind == eventStart && ea.length != eb.length {
			return ea.length < eb.length
		}
		return ea.index < eb.index
	})

	prefix := tokenPrefix(text)

	// Phase 1: placeholders
	var b strings.Builder
	b.Grow(len(text) + len(events)*(len(prefix)+16))
	pieces := make([]string, 0, len(events)*2+1)
	prev := len(text)
	for _, ev := range events {
		pieces = append(pieces, text[ev.pos:prev], placeholder(prefix, ev))
		prev = ev.pos
	}
	pieces = append(pieces, text[:prev])
	for i := len(pieces) - 1; i >= 0; i-- {
		b.WriteString(pieces[i])
	}

	// Phase 2: escape once
	escaped := html.EscapeString(b.String())

	// Phase 3: real markup
	pairs := make([]string, 0, len(kept)*4)
	for i, s := range kept {
		field := html.EscapeString(s.Field)
		open := fmt.Sprintf(`<mark id="span_%d" class="highlight %s" data-field="%s">`, i, field, field)
		pairs = append(pairs,
			placeholder(prefix, event{kind: eventStart, index: i}), open,
			placeholder(prefix, event{kind: eventEnd, index: i}), "</mark>",
		)
	}

	return strings.NewReplacer(pairs...).Replace(escaped)
}

func placeholder(prefix string, ev event) string {
	if ev.kind == eventStart {
		return fmt.Sprintf("%s_S_%d__", prefix, ev.index)
	}
	return fmt.Sprintf("%s_E_%d__", prefix, ev.index)
}

// tokenPrefix picks a placeholder prefix that does not occur in text
func tokenPrefix(text string) string {
	prefix := "__PATRACE_MARK"
	for strings.Contains(text, prefix) {
		prefix += "X"
	}
	return prefix
}

// FlattenEvidence turns the record's note evidence into renderer spans,
// in checked-field order
func FlattenEvidence(rec model.ExtractionRecord) []Span {
	var spans []Span
	for _, field := range model.CheckedFields {
		for _, ev := range rec.Evidence[field] {
			if ev.Source != model.SourceNote {
				continue
			}
			spans = append(spans, Span{Start: ev.Start, End: ev.End, Field: string(field)})
		}
	}
	return spans
}
