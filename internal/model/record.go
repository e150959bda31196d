package model

import "slices"

// Field names a checked fact in an extraction record
type Field string

const (
	FieldSymptomsDuration Field = "symptoms_duration_weeks"
	FieldConservativeCare Field = "conservative_care_weeks"
	FieldTreatments       Field = "treatments"
	FieldRedFlags         Field = "red_flags"
)

// CheckedFields lists every field whose evidence is validated, in output order
var CheckedFields = []Field{
	FieldSymptomsDuration,
	FieldConservativeCare,
	FieldTreatments,
	FieldRedFlags,
}

// EvidenceSource identifies which text an evidence span points into
type EvidenceSource string

const (
	SourceNote   EvidenceSource = "note"
	SourcePolicy EvidenceSource = "policy"
)

// EvidenceSpan anchors a fact to a literal quote.
// Start and End are UTF-8 byte offsets; for SourceNote, note[Start:End]
// equals Quote case-insensitively.
type EvidenceSpan struct {
	Source EvidenceSource `json:"source"`
	Start  int            `json:"start"`
	End    int            `json:"end"`
	Quote  string         `json:"quote"`
}

// ExtractionMode records which path produced a record
type ExtractionMode string

const (
	ModeLLM              ExtractionMode = "llm"
	ModeRefused          ExtractionMode = "llm_refused"
	ModeFallbackBaseline ExtractionMode = "llm_fallback_baseline"
	ModeBaseline         ExtractionMode = "baseline"
)

// ExtractionRecord is the structured draft for one case.
// It is built once by the extractor and read-only afterwards.
type ExtractionRecord struct {
	SymptomsDurationWeeks *int                     `json:"symptoms_duration_weeks"`
	ConservativeCareWeeks *int                     `json:"conservative_care_weeks"`
	Treatments            []string                 `json:"treatments"`
	RedFlags              []string                 `json:"red_flags"`
	RedFlagsPresent       bool                     `json:"red_flags_present"`
	Evidence              map[Field][]EvidenceSpan `json:"evidence"`
	MissingEvidence       []Field                  `json:"missing_evidence"`
	ExtractionMode        ExtractionMode           `json:"extraction_mode"`

	// Set only on refusal
	Refusal bool   `json:"refusal,omitempty"`
	Message string `json:"message,omitempty"`
}

// NewRecord returns an empty record with every collection allocated,
// so it serializes as [] and {} rather than null.
func NewRecord() ExtractionRecord {
	return ExtractionRecord{
		Treatments:      []string{},
		RedFlags:        []string{},
		Evidence:        make(map[Field][]EvidenceSpan),
		MissingEvidence: []Field{},
	}
}

// Normalize allocates any nil collection
func (r *ExtractionRecord) Normalize() {
	if r.Treatments == nil {
		r.Treatments = []string{}
	}
	if r.RedFlags == nil {
		r.RedFlags = []string{}
	}
	if r.Evidence == nil {
		r.Evidence = make(map[Field][]EvidenceSpan)
	}
	if r.MissingEvidence == nil {
		r.MissingEvidence = []Field{}
	}
}

// HasValue reports whether the field carries a non-null, non-empty value
func (r *ExtractionRecord) HasValue(f Field) bool {
	switch f {
	case FieldSymptomsDuration:
		return r.SymptomsDurationWeeks != nil
	case FieldConservativeCare:
		return r.ConservativeCareWeeks != nil
	case FieldTreatments:
		return len(r.Treatments) > 0
	case FieldRedFlags:
		return len(r.RedFlags) > 0
	}
	return false
}

// ClearValue nulls a scalar field or empties a list field
func (r *ExtractionRecord) ClearValue(f Field) {
	switch f {
	case FieldSymptomsDuration:
		r.SymptomsDurationWeeks = nil
	case FieldConservativeCare:
		r.ConservativeCareWeeks = nil
	case FieldTreatments:
		r.Treatments = []string{}
	case FieldRedFlags:
		r.RedFlags = []string{}
		r.RedFlagsPresent = false
	}
}

// MarkMissing adds f to MissingEvidence once
func (r *ExtractionRecord) MarkMissing(f Field) {
	if !r.IsMissing(f) {
		r.MissingEvidence = append(r.MissingEvidence, f)
	}
}

// IsMissing reports whether f is listed in MissingEvidence
func (r *ExtractionRecord) IsMissing(f Field) bool {
	return slices.Contains(r.MissingEvidence, f)
}

// Clone returns a deep copy
func (r ExtractionRecord) Clone() ExtractionRecord {
	out := r
	if r.SymptomsDurationWeeks != nil {
		v := *r.SymptomsDurationWeeks
		out.SymptomsDurationWeeks = &v
	}
	if r.ConservativeCareWeeks != nil {
		v := *r.ConservativeCareWeeks
		out.ConservativeCareWeeks = &v
	}
	out.Treatments = slices.Clone(r.Treatments)
	out.RedFlags = slices.Clone(r.RedFlags)
	out.MissingEvidence = slices.Clone(r.MissingEvidence)
	if r.Evidence != nil {
		out.Evidence = make(map[Field][]EvidenceSpan, len(r.Evidence))
		for k, v := range r.Evidence {
			out.Evidence[k] = slices.Clone(v)
		}
	}
	return out
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int { return &v }
