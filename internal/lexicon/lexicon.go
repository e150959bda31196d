// Package lexicon holds the fixed tables PA-Trace reasons with: closed
// vocabularies, quote synonyms, baseline keyword tables, and refusal
// triggers. Tables are data, loaded once, and never mutated afterwards.
package lexicon

import (
	_ "embed"
	"fmt"
	"os"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var defaultData []byte

// KeywordSet maps one vocabulary label to the phrases that evidence it
type KeywordSet struct {
	Label    string   `yaml:"label"`
	Keywords []string `yaml:"keywords"`
}

// Synonym lists the expansions tried, in order, when a quote is not found verbatim
type Synonym struct {
	Quote      string   `yaml:"quote"`
	Expansions []string `yaml:"expansions"`
}

// Refusal configures the clinical-recommendation guardrail
type Refusal struct {
	Triggers []string `yaml:"triggers"`
	Objects  []string `yaml:"objects"`
	Message  string   `yaml:"message"`
}

type document struct {
	Vocabulary struct {
		Treatments []string `yaml:"treatments"`
		RedFlags   []string `yaml:"red_flags"`
	} `yaml:"vocabulary"`
	Synonyms          []Synonym    `yaml:"synonyms"`
	TreatmentKeywords []KeywordSet `yaml:"treatment_keywords"`
	RedFlagKeywords   []KeywordSet `yaml:"red_flag_keywords"`
	NegationCues      []string     `yaml:"negation_cues"`
	CareContext       []string     `yaml:"care_context"`
	AcuteOnset        []string     `yaml:"acute_onset"`
	Refusal           Refusal      `yaml:"refusal"`
}

// Lexicon is an immutable view over a parsed lexicon document.
// Slices returned by its accessors must not be modified.
type Lexicon struct {
	doc        document
	treatments map[string]bool
	redFlags   map[string]bool
	synonyms   map[string][]string
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the lexicon embedded in the binary
func Default() *Lexicon {
	defaultOnce.Do(func() {
		lex, err := Parse(defaultData)
		if err != nil {
			panic(fmt.Sprintf("embedded lexicon is invalid: %v", err))
		}
		defaultLex = lex
	})
	return defaultLex
}

// LoadFile reads a lexicon from a YAML file
func LoadFile(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	return Parse(data)
}

// Parse builds a lexicon from YAML and checks its internal consistency
func Parse(data []byte) (*Lexicon, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}

	lex := &Lexicon{
		doc:        doc,
		treatments: toSet(doc.Vocabulary.Treatments),
		redFlags:   toSet(doc.Vocabulary.RedFlags),
		synonyms:   make(map[string][]string, len(doc.Synonyms)),
	}

	for _, s := range doc.Synonyms {
		key := strings.ToLower(strings.TrimSpace(s.Quote))
		if key == "" {
			return nil, fmt.Errorf("synonym entry with empty quote")
		}
		if _, dup := lex.synonyms[key]; dup {
			return nil, fmt.Errorf("duplicate synonym entry %q", key)
		}
		lex.synonyms[key] = s.Expansions
	}

	for _, ks := range doc.TreatmentKeywords {
		if !lex.treatments[ks.Label] {
			return nil, fmt.Errorf("treatment keywords for unknown label %q", ks.Label)
		}
	}
	for _, ks := range doc.RedFlagKeywords {
		if !lex.redFlags[ks.Label] {
			return nil, fmt.Errorf("red flag keywords for unknown label %q", ks.Label)
		}
	}

	if len(doc.Refusal.Triggers) == 0 || len(doc.Refusal.Objects) == 0 {
		return nil, fmt.Errorf("refusal triggers and objects are required")
	}

	return lex, nil
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}

// Treatments returns the closed treatment vocabulary in table order
func (l *Lexicon) Treatments() []string { return l.doc.Vocabulary.Treatments }

// RedFlags returns the closed red flag vocabulary in table order
func (l *Lexicon) RedFlags() []string { return l.doc.Vocabulary.RedFlags }

// IsTreatment reports whether v is in the treatment vocabulary
func (l *Lexicon) IsTreatment(v string) bool { return l.treatments[v] }

// IsRedFlag reports whether v is in the red flag vocabulary
func (l *Lexicon) IsRedFlag(v string) bool { return l.redFlags[v] }

// Synonyms returns the expansions for a quote, matched case-insensitively.
// The result is nil when the quote has no table entry.
func (l *Lexicon) Synonyms(quote string) []string {
	return l.synonyms[strings.ToLower(strings.TrimSpace(quote))]
}

// TreatmentKeywords returns the baseline keyword table for treatments
func (l *Lexicon) TreatmentKeywords() []KeywordSet { return l.doc.TreatmentKeywords }

// RedFlagKeywords returns the baseline keyword table for red flags
func (l *Lexicon) RedFlagKeywords() []KeywordSet { return l.doc.RedFlagKeywords }

// NegationCues returns the words that negate a following red flag mention
func (l *Lexicon) NegationCues() []string { return l.doc.NegationCues }

// CareContext returns the words that tie a duration to conservative care
func (l *Lexicon) CareContext() []string { return l.doc.CareContext }

// AcuteOnset returns phrases that state an onset of less than a week
func (l *Lexicon) AcuteOnset() []string { return l.doc.AcuteOnset }

// Refusal returns the guardrail configuration
func (l *Lexicon) Refusal() Refusal { return l.doc.Refusal }
