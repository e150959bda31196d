package extract

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/ppiankov/patrace/internal/lexicon"
)

func TestParseResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantKey string
		wantErr bool
	}{
		{"plain object", `{"a":1}`, "a", false},
		{"fenced json with trailing prose", "```json\n{\"a\":1}\n``` trailing text", "a", false},
		{"bare fence", "Here you go:\n```\n{\"b\":2}\n```", "b", false},
		{"surrounding prose", "Sure! {\"c\": [1,2]} Hope this helps.", "c", false},
		{"nested braces", `noise {"evidence": {"treatments": []}} noise`, "evidence", false},
		{"no braces", "I cannot help with that.", "", true},
		{"reversed braces", "} oops {", "", true},
		{"malformed", `{"a": 1,, }`, "", true},
		{"two objects", `{"a":1} and {"b":2}`, "", true},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			obj, err := ParseResponse(tt.raw)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error, got %v", obj)
				}
				if !errors.Is(err, ErrUnparseable) {
					t.Errorf("Expected ErrUnparseable, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if _, ok := obj[tt.wantKey]; !ok {
				t.Errorf("Expected key %q in %v", tt.wantKey, obj)
			}
		})
	}
}

func TestParseResponse_KeepsNumbers(t *testing.T) {
	obj, err := ParseResponse(`{"symptoms_duration_weeks": 8}`)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	n, ok := obj["symptoms_duration_weeks"].(json.Number)
	if !ok {
		t.Fatalf("Expected json.Number, got %T", obj["symptoms_duration_weeks"])
	}
	if n.String() != "8" {
		t.Errorf("Expected 8, got %s", n)
	}
}

func TestDecodeRecord(t *testing.T) {
	obj, err := ParseResponse(`{
		"symptoms_duration_weeks": "8",
		"conservative_care_weeks": -2,
		"treatments": ["PT", "Home Exercise", "acupuncture", "pt"],
		"red_flags": ["bleeding"],
		"evidence": {"treatments": [{"quote": "PT", "start": 1, "end": 2}], "bogus": []},
		"missing_evidence": ["conservative_care_weeks", "unknown_field"]
	}`)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	rec := decodeRecord(obj, lexicon.Default())

	if rec.SymptomsDurationWeeks == nil || *rec.SymptomsDurationWeeks != 8 {
		t.Errorf("Expected symptoms 8, got %v", rec.SymptomsDurationWeeks)
	}
	if rec.ConservativeCareWeeks != nil {
		t.Errorf("Expected negative weeks to be null, got %d", *rec.ConservativeCareWeeks)
	}
	if len(rec.Treatments) != 2 || rec.Treatments[0] != "pt" || rec.Treatments[1] != "home_exercise" {
		t.Errorf("Expected [pt home_exercise], got %v", rec.Treatments)
	}
	if len(rec.RedFlags) != 0 {
		t.Errorf("Expected out-of-vocabulary red flags dropped, got %v", rec.RedFlags)
	}
	if !rec.IsMissing("red_flags") {
		t.Error("Expected red_flags marked missing after every label was dropped")
	}
	if !rec.IsMissing("conservative_care_weeks") {
		t.Error("Expected declared missing field to be kept")
	}
	if rec.IsMissing("unknown_field") {
		t.Error("Expected unknown missing field to be dropped")
	}
	if rec.RedFlagsPresent {
		t.Error("Expected red_flags_present to default to false")
	}
	if len(rec.Evidence["treatments"]) != 1 {
		t.Errorf("Expected 1 treatment span, got %d", len(rec.Evidence["treatments"]))
	}
	if _, ok := rec.Evidence["bogus"]; ok {
		t.Error("Expected unknown evidence field to be dropped")
	}
}
