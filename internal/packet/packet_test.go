package packet

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ppiankov/patrace/internal/model"
)

const sampleNote = "45-year-old with 8 weeks of low back pain, failed 6 weeks of PT and NSAIDs. No bowel or bladder symptoms."

func sampleCase() *model.Case {
	return &model.Case{
		CaseID:             "case_001",
		NoteText:           sampleNote,
		ExamRequest:        map[string]any{"procedure": "MRI lumbar spine"},
		Patient:            map[string]any{"age": 45},
		RequestingProvider: map[string]any{"name": "Dr. Example"},
	}
}

func sampleRecord() model.ExtractionRecord {
	rec := model.NewRecord()
	rec.SymptomsDurationWeeks = model.IntPtr(8)
	rec.ConservativeCareWeeks = model.IntPtr(6)
	rec.Treatments = []string{"pt", "nsaids"}
	rec.ExtractionMode = model.ModeBaseline
	rec.Evidence[model.FieldSymptomsDuration] = []model.EvidenceSpan{
		{Source: model.SourceNote, Start: 17, End: 41, Quote: "8 weeks of low back pain"},
	}
	rec.Evidence[model.FieldConservativeCare] = []model.EvidenceSpan{
		{Source: model.SourceNote, Start: 50, End: 57, Quote: "6 weeks"},
	}
	rec.Evidence[model.FieldTreatments] = []model.EvidenceSpan{
		{Source: model.SourceNote, Start: 61, End: 63, Quote: "PT"},
		{Source: model.SourceNote, Start: 68, End: 74, Quote: "NSAIDs"},
	}
	rec.Evidence[model.FieldRedFlags] = []model.EvidenceSpan{}
	return rec
}

func TestOverallStatus(t *testing.T) {
	complete := sampleRecord()

	missing := sampleRecord()
	missing.MarkMissing(model.FieldConservativeCare)

	refused := model.NewRecord()
	refused.ExtractionMode = model.ModeRefused
	refused.Refusal = true

	tests := []struct {
		name string
		rec  model.ExtractionRecord
		want Status
	}{
		{"complete", complete, StatusComplete},
		{"missing evidence", missing, StatusNeedsEvidence},
		{"refused", refused, StatusRefused},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := OverallStatus(tt.rec); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestAssemble(t *testing.T) {
	policy := []model.PolicyChunk{{ChunkID: "p1", Text: "six weeks of conservative care"}}
	b := Assemble(sampleCase(), sampleRecord(), policy, nil)

	if b.RunID == "" {
		t.Fatal("expected run ID")
	}
	if b.Packet.RunID != b.RunID || b.Checklist.RunID != b.RunID {
		t.Error("expected run ID stamped on packet and checklist")
	}
	if b.Packet.ChecklistOverall != StatusComplete {
		t.Errorf("expected COMPLETE, got %s", b.Packet.ChecklistOverall)
	}
	if b.Packet.ClinicalSummary.SymptomsDurationWeeks == nil || *b.Packet.ClinicalSummary.SymptomsDurationWeeks != 8 {
		t.Errorf("expected 8 symptom weeks on packet, got %v", b.Packet.ClinicalSummary.SymptomsDurationWeeks)
	}
	if diff := cmp.Diff([]string{"pt", "nsaids"}, b.Packet.ClinicalSummary.Treatments); diff != "" {
		t.Errorf("treatments mismatch (-want +got):\n%s", diff)
	}
	if len(b.Policy) != 1 {
		t.Errorf("expected policy carried into bundle, got %d chunks", len(b.Policy))
	}

	other := Assemble(sampleCase(), sampleRecord(), nil, nil)
	if other.RunID == b.RunID {
		t.Error("expected a fresh run ID per assembly")
	}
	if other.Policy == nil {
		t.Error("expected empty, non-nil policy")
	}
}

func TestAssemble_Refused(t *testing.T) {
	rec := model.NewRecord()
	rec.ExtractionMode = model.ModeRefused
	rec.Refusal = true
	rec.Message = "This tool drafts PA documentation only."

	c := sampleCase()
	c.NoteText = "Recommend patient surgery"
	b := Assemble(c, rec, nil, nil)

	if b.Checklist.OverallStatus != StatusRefused {
		t.Errorf("expected REFUSED, got %s", b.Checklist.OverallStatus)
	}
	if !b.Checklist.Refusal || b.Checklist.Message != rec.Message {
		t.Errorf("expected refusal message on checklist, got %+v", b.Checklist)
	}
	if len(b.Checklist.CoverageGaps) != 0 {
		t.Errorf("expected no coverage audit on refusal, got %v", b.Checklist.CoverageGaps)
	}
}

func TestAuditCoverage(t *testing.T) {
	gaps := AuditCoverage(sampleNote, sampleRecord(), nil)

	want := []CoverageGap{
		{Category: CategoryRedFlag, Label: "cauda_equina", Keyword: "bowel or bladder", Start: 79, End: 95},
	}
	if diff := cmp.Diff(want, gaps); diff != "" {
		t.Errorf("coverage gaps mismatch (-want +got):\n%s", diff)
	}
}

func TestAuditCoverage_NoEvidence(t *testing.T) {
	rec := model.NewRecord()
	gaps := AuditCoverage(sampleNote, rec, nil)

	labels := map[string]bool{}
	for _, g := range gaps {
		labels[g.Label] = true
		if got := sampleNote[g.Start:g.End]; !strings.EqualFold(got, g.Keyword) {
			t.Errorf("gap offsets %d-%d point at %q, not %q", g.Start, g.End, got, g.Keyword)
		}
	}
	for _, want := range []string{"pt", "nsaids", "cauda_equina"} {
		if !labels[want] {
			t.Errorf("expected a gap for %s, got %v", want, gaps)
		}
	}
}

func TestRenderMarkdown(t *testing.T) {
	b := Assemble(sampleCase(), sampleRecord(), nil, nil)
	md := RenderMarkdown(b)

	for _, want := range []string{
		"# PA-Trace Packet Draft: case_001",
		"- Procedure: MRI lumbar spine",
		"- Symptoms duration (weeks): 8",
		"- Treatments: pt, nsaids",
		"- Red flags: —",
		"- Overall: **COMPLETE**",
		`(note 17-41) "8 weeks of low back pain"`,
		"## Coverage audit",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected markdown to contain %q\n%s", want, md)
		}
	}
}

func TestRenderHTML(t *testing.T) {
	c := sampleCase()
	c.CaseID = "case_<b>"
	b := Assemble(c, sampleRecord(), []model.PolicyChunk{{ChunkID: "p1", Text: "a < b"}}, nil)

	page, err := RenderHTML(b)
	if err != nil {
		t.Fatalf("RenderHTML failed: %v", err)
	}

	for _, want := range []string{
		`<mark id="span_0" class="highlight symptoms_duration_weeks" data-field="symptoms_duration_weeks">8 weeks of low back pain</mark>`,
		`data-field="treatments"`,
		`<tr class="fact-row" data-field="red_flags">`,
		"case_&lt;b&gt;",
		"a &lt; b",
		"COMPLETE",
	} {
		if !strings.Contains(page, want) {
			t.Errorf("expected page to contain %q", want)
		}
	}
	if strings.Contains(page, "case_<b>") {
		t.Error("case ID was not escaped")
	}
}

func TestWrite(t *testing.T) {
	root := t.TempDir()
	b := Assemble(sampleCase(), sampleRecord(), nil, nil)

	dir, err := Write(b, root)
	if err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if dir != filepath.Join(root, "case_001") {
		t.Errorf("unexpected bundle dir %s", dir)
	}

	for _, name := range []string{PacketFile, ChecklistFile, ProvenanceFile, ExtractedFile, MarkdownFile, HighlightsFile} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("expected %s: %v", name, err)
		}
	}

	data, err := os.ReadFile(filepath.Join(dir, ChecklistFile))
	if err != nil {
		t.Fatal(err)
	}
	var checklist map[string]any
	if err := json.Unmarshal(data, &checklist); err != nil {
		t.Fatalf("checklist is not JSON: %v", err)
	}
	if checklist["overall_status"] != "COMPLETE" {
		t.Errorf("expected COMPLETE, got %v", checklist["overall_status"])
	}

	data, err = os.ReadFile(filepath.Join(dir, ExtractedFile))
	if err != nil {
		t.Fatal(err)
	}
	var extracted map[string]any
	if err := json.Unmarshal(data, &extracted); err != nil {
		t.Fatalf("extracted record is not JSON: %v", err)
	}
	for _, key := range []string{
		"symptoms_duration_weeks", "conservative_care_weeks", "treatments", "red_flags",
		"red_flags_present", "evidence", "missing_evidence", "extraction_mode",
	} {
		if _, ok := extracted[key]; !ok {
			t.Errorf("extracted.json missing key %s", key)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 6 {
		t.Errorf("expected 6 files and no temp leftovers, got %d", len(entries))
	}
}

func TestSafeName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"case_001", "case_001"},
		{"../etc", ".._etc"},
		{"a/b:c", "a_b_c"},
		{"two words", "two-words"},
		{"", "case"},
		{"..", "case"},
	}

	for _, tt := range tests {
		if got := SafeName(tt.in); got != tt.want {
			t.Errorf("SafeName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
