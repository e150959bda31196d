package packet

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ppiankov/patrace/internal/model"
)

// RenderMarkdown renders the reviewer-facing markdown draft
func RenderMarkdown(b *Bundle) string {
	var sb strings.Builder
	rec := b.Record

	fmt.Fprintf(&sb, "# PA-Trace Packet Draft: %s\n\n", b.Case.CaseID)
	fmt.Fprintf(&sb, "*Run %s, generated %s*\n\n", b.RunID, b.GeneratedAt.Format("2006-01-02 15:04 MST"))

	if b.Checklist.OverallStatus == StatusRefused {
		sb.WriteString("## Refused\n\n")
		fmt.Fprintf(&sb, "%s\n", b.Checklist.Message)
		return sb.String()
	}

	sb.WriteString("## Exam request\n\n")
	fmt.Fprintf(&sb, "- Procedure: %s\n\n", orDash(b.Case.Procedure()))

	sb.WriteString("## Extracted facts (draft)\n\n")
	fmt.Fprintf(&sb, "- Symptoms duration (weeks): %s\n", weeks(rec.SymptomsDurationWeeks))
	fmt.Fprintf(&sb, "- Conservative care duration (weeks): %s\n", weeks(rec.ConservativeCareWeeks))
	fmt.Fprintf(&sb, "- Treatments: %s\n", orDash(strings.Join(rec.Treatments, ", ")))
	fmt.Fprintf(&sb, "- Red flags: %s\n", orDash(strings.Join(rec.RedFlags, ", ")))
	fmt.Fprintf(&sb, "- Extraction mode: %s\n\n", rec.ExtractionMode)

	sb.WriteString("## Checklist\n\n")
	fmt.Fprintf(&sb, "- Overall: **%s**\n", b.Checklist.OverallStatus)
	if len(rec.MissingEvidence) > 0 {
		names := make([]string, len(rec.MissingEvidence))
		for i, f := range rec.MissingEvidence {
			names[i] = string(f)
		}
		fmt.Fprintf(&sb, "- Missing evidence: %s\n", strings.Join(names, ", "))
	}
	sb.WriteString("\n")

	sb.WriteString("## Provenance (evidence quotes)\n\n")
	wrote := false
	for _, field := range model.CheckedFields {
		spans := rec.Evidence[field]
		if len(spans) == 0 {
			continue
		}
		wrote = true
		fmt.Fprintf(&sb, "- **%s**:\n", field)
		for _, sp := range spans {
			fmt.Fprintf(&sb, "  - (%s %d-%d) \"%s\"\n", sp.Source, sp.Start, sp.End, sp.Quote)
		}
	}
	if !wrote {
		sb.WriteString("No evidence quotes.\n")
	}

	if gaps := b.Checklist.CoverageGaps; len(gaps) > 0 {
		sb.WriteString("\n## Coverage audit\n\n")
		sb.WriteString("Keywords found in the note but not covered by any evidence quote:\n\n")
		for _, g := range gaps {
			fmt.Fprintf(&sb, "- %s `%s`: \"%s\" at %d-%d\n", g.Category, g.Label, g.Keyword, g.Start, g.End)
		}
	}

	if len(b.Policy) > 0 {
		sb.WriteString("\n## Policy chunks\n\n")
		for _, ch := range b.Policy {
			fmt.Fprintf(&sb, "- `%s`\n", ch.ChunkID)
		}
	}

	return sb.String()
}

func weeks(v *int) string {
	if v == nil {
		return "—"
	}
	return strconv.Itoa(*v)
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
