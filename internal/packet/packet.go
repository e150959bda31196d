// Package packet assembles the reviewable prior-authorization bundle for
// one case: the packet, the checklist, provenance, and the rendered
// markdown and HTML views.
package packet

import (
	"time"

	"github.com/google/uuid"

	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/model"
)

// Status is the overall checklist outcome
type Status string

const (
	StatusRefused       Status = "REFUSED"
	StatusNeedsEvidence Status = "NEEDS_EVIDENCE"
	StatusComplete      Status = "COMPLETE"
)

// Checklist summarizes what a reviewer still has to document
type Checklist struct {
	CaseID          string               `json:"case_id"`
	RunID           string               `json:"run_id"`
	OverallStatus   Status               `json:"overall_status"`
	MissingEvidence []model.Field        `json:"missing_evidence"`
	ExtractionMode  model.ExtractionMode `json:"extraction_mode"`
	CoverageGaps    []CoverageGap        `json:"coverage_gaps"`

	// Set only on refusal
	Refusal bool   `json:"refusal,omitempty"`
	Message string `json:"message,omitempty"`
}

// ClinicalSummary holds the extracted facts as they appear on the packet
type ClinicalSummary struct {
	SymptomsDurationWeeks *int     `json:"symptoms_duration_weeks"`
	ConservativeCareWeeks *int     `json:"conservative_care_weeks"`
	Treatments            []string `json:"treatments"`
	RedFlags              []string `json:"red_flags"`
	RedFlagsPresent       bool     `json:"red_flags_present"`
}

// Packet is the form-like draft submitted for review
type Packet struct {
	RunID              string          `json:"run_id"`
	GeneratedAt        time.Time       `json:"generated_at"`
	CaseID             string          `json:"case_id"`
	ExamRequest        map[string]any  `json:"exam_request"`
	Patient            map[string]any  `json:"patient"`
	RequestingProvider map[string]any  `json:"requesting_provider"`
	ClinicalSummary    ClinicalSummary `json:"clinical_summary"`
	ChecklistOverall   Status          `json:"checklist_overall"`
}

// Bundle is everything written for one case
type Bundle struct {
	RunID       string
	GeneratedAt time.Time
	Case        *model.Case
	Record      model.ExtractionRecord
	Policy      []model.PolicyChunk
	Packet      Packet
	Checklist   Checklist
}

// OverallStatus derives the checklist outcome from a record
func OverallStatus(rec model.ExtractionRecord) Status {
	switch {
	case rec.Refusal || rec.ExtractionMode == model.ModeRefused:
		return StatusRefused
	case len(rec.MissingEvidence) > 0:
		return StatusNeedsEvidence
	default:
		return StatusComplete
	}
}

// Assemble builds the bundle for one extracted case
func Assemble(c *model.Case, rec model.ExtractionRecord, policy []model.PolicyChunk, lex *lexicon.Lexicon) *Bundle {
	rec = rec.Clone()
	rec.Normalize()
	if policy == nil {
		policy = []model.PolicyChunk{}
	}

	runID := uuid.NewString()
	now := time.Now().UTC()
	status := OverallStatus(rec)

	checklist := Checklist{
		CaseID:          c.CaseID,
		RunID:           runID,
		OverallStatus:   status,
		MissingEvidence: rec.MissingEvidence,
		ExtractionMode:  rec.ExtractionMode,
		CoverageGaps:    []CoverageGap{},
		Refusal:         rec.Refusal,
		Message:         rec.Message,
	}
	if status != StatusRefused {
		checklist.CoverageGaps = AuditCoverage(c.NoteText, rec, lex)
	}

	return &Bundle{
		RunID:       runID,
		GeneratedAt: now,
		Case:        c,
		Record:      rec,
		Policy:      policy,
		Checklist:   checklist,
		Packet: Packet{
			RunID:              runID,
			GeneratedAt:        now,
			CaseID:             c.CaseID,
			ExamRequest:        orEmpty(c.ExamRequest),
			Patient:            orEmpty(c.Patient),
			RequestingProvider: orEmpty(c.RequestingProvider),
			ClinicalSummary: ClinicalSummary{
				SymptomsDurationWeeks: rec.SymptomsDurationWeeks,
				ConservativeCareWeeks: rec.ConservativeCareWeeks,
				Treatments:            rec.Treatments,
				RedFlags:              rec.RedFlags,
				RedFlagsPresent:       rec.RedFlagsPresent,
			},
			ChecklistOverall: status,
		},
	}
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
