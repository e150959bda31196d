package lexicon

import (
	"strings"
	"testing"
)

func TestDefault_Vocabularies(t *testing.T) {
	lex := Default()

	if got := len(lex.Treatments()); got != 6 {
		t.Errorf("Expected 6 treatments, got %d", got)
	}
	if got := len(lex.RedFlags()); got != 5 {
		t.Errorf("Expected 5 red flags, got %d", got)
	}

	for _, v := range []string{"pt", "nsaids", "home_exercise", "chiropractic", "steroid", "injection"} {
		if !lex.IsTreatment(v) {
			t.Errorf("Expected %q to be a treatment", v)
		}
	}
	for _, v := range []string{"cauda_equina", "progressive_neuro_deficit", "cancer", "infection", "fracture_trauma"} {
		if !lex.IsRedFlag(v) {
			t.Errorf("Expected %q to be a red flag", v)
		}
	}

	if lex.IsTreatment("surgery") {
		t.Error("Expected surgery to be outside the treatment vocabulary")
	}
}

func TestDefault_IsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Error("Expected Default to return the same lexicon")
	}
}

func TestSynonyms_TableOrder(t *testing.T) {
	lex := Default()

	got := lex.Synonyms("PT")
	want := []string{"physical therapy", "PT", "physiotherapy"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d synonyms, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("synonym %d: expected %q, got %q", i, want[i], got[i])
		}
	}

	if lex.Synonyms("mri") != nil {
		t.Error("Expected no synonyms for an unknown quote")
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "malformed",
			yaml: "vocabulary: [",
			want: "parse lexicon",
		},
		{
			name: "unknown treatment label",
			yaml: `
vocabulary:
  treatments: [pt]
treatment_keywords:
  - label: surgery
    keywords: [laminectomy]
refusal:
  triggers: [should]
  objects: [patient]
`,
			want: "unknown label",
		},
		{
			name: "duplicate synonym",
			yaml: `
synonyms:
  - quote: pt
    expansions: [physical therapy]
  - quote: PT
    expansions: [physiotherapy]
refusal:
  triggers: [should]
  objects: [patient]
`,
			want: "duplicate synonym",
		},
		{
			name: "missing refusal",
			yaml: "vocabulary:\n  treatments: [pt]\n",
			want: "refusal",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestKeywordTables_LabelsInVocabulary(t *testing.T) {
	lex := Default()
	for _, ks := range lex.TreatmentKeywords() {
		if len(ks.Keywords) == 0 {
			t.Errorf("Expected keywords for treatment %q", ks.Label)
		}
	}
	for _, ks := range lex.RedFlagKeywords() {
		if len(ks.Keywords) == 0 {
			t.Errorf("Expected keywords for red flag %q", ks.Label)
		}
	}
}
