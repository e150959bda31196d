package packet

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strconv"
	"strings"

	"github.com/ppiankov/patrace/internal/model"
	"github.com/ppiankov/patrace/internal/render"
)

//go:embed highlights.html.tmpl
var highlightsTemplate string

var pageTemplate = template.Must(template.New("highlights").Funcs(template.FuncMap{
	"statusClass": func(s Status) string {
		switch s {
		case StatusComplete:
			return "status-complete"
		case StatusRefused:
			return "status-refused"
		default:
			return "status-needs-evidence"
		}
	},
}).Parse(highlightsTemplate))

type factRow struct {
	Field   string
	Label   string
	Value   string
	Missing bool
}

type pageData struct {
	CaseID    string
	RunID     string
	Generated string
	Mode      model.ExtractionMode
	Status    Status
	Message   string
	Note      template.HTML
	Rows      []factRow
	Policy    []model.PolicyChunk
	Gaps      []CoverageGap
}

var fieldLabels = map[model.Field]string{
	model.FieldSymptomsDuration: "Symptoms Duration",
	model.FieldConservativeCare: "Conservative Care",
	model.FieldTreatments:       "Treatments",
	model.FieldRedFlags:         "Red Flags",
}

// RenderHTML renders the interactive review page: the note with evidence
// highlights, the fact table, policy chunks, and the coverage audit
func RenderHTML(b *Bundle) (string, error) {
	rec := b.Record
	data := pageData{
		CaseID:    b.Case.CaseID,
		RunID:     b.RunID,
		Generated: b.GeneratedAt.Format("2006-01-02 15:04 MST"),
		Mode:      rec.ExtractionMode,
		Status:    b.Checklist.OverallStatus,
		Message:   b.Checklist.Message,
		// Highlight escapes the note and emits only <mark> elements
		Note:   template.HTML(render.Highlight(b.Case.NoteText, render.FlattenEvidence(rec))),
		Policy: b.Policy,
		Gaps:   b.Checklist.CoverageGaps,
	}

	for _, field := range model.CheckedFields {
		data.Rows = append(data.Rows, factRow{
			Field:   string(field),
			Label:   fieldLabels[field],
			Value:   displayValue(rec, field),
			Missing: rec.IsMissing(field),
		})
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render highlights page: %w", err)
	}
	return buf.String(), nil
}

func displayValue(rec model.ExtractionRecord, field model.Field) string {
	switch field {
	case model.FieldSymptomsDuration:
		if rec.SymptomsDurationWeeks != nil {
			return strconv.Itoa(*rec.SymptomsDurationWeeks)
		}
	case model.FieldConservativeCare:
		if rec.ConservativeCareWeeks != nil {
			return strconv.Itoa(*rec.ConservativeCareWeeks)
		}
	case model.FieldTreatments:
		return orDash(strings.Join(rec.Treatments, ", "))
	case model.FieldRedFlags:
		return orDash(strings.Join(rec.RedFlags, ", "))
	}
	return "—"
}
