// Package guardrail refuses inputs that read like requests for a clinical
// recommendation. The check is a cheap, explainable phrase match: a human
// reviews every draft, so false positives and negatives are tolerated.
package guardrail

import (
	"regexp"
	"strings"

	"github.com/ppiankov/patrace/internal/lexicon"
)

// Refusal is returned when the guardrail triggers
type Refusal struct {
	Message string `json:"message"`
	Trigger string `json:"trigger"` // the phrase that matched
}

// Guardrail matches a trigger verb directly next to a patient-referring object
type Guardrail struct {
	pattern *regexp.Regexp
	message string
}

// New builds a guardrail from the lexicon's refusal table
func New(lex *lexicon.Lexicon) *Guardrail {
	cfg := lex.Refusal()
	verbs := alternation(cfg.Triggers)
	objects := alternation(cfg.Objects)

	// "<verb> [the] <object>" or "<object> <verb>"
	expr := `\b(?:` + verbs + `)\s+(?:the\s+)?(?:` + objects + `)\b` +
		`|\b(?:` + objects + `)\s+(?:` + verbs + `)\b`

	return &Guardrail{
		pattern: regexp.MustCompile(expr),
		message: cfg.Message,
	}
}

// Check returns a refusal when text asks for a clinical decision, nil otherwise
func (g *Guardrail) Check(text string) *Refusal {
	lower := strings.ToLower(text)
	hit := g.pattern.FindString(lower)
	if hit == "" {
		return nil
	}
	return &Refusal{
		Message: g.message,
		Trigger: hit,
	}
}

func alternation(words []string) string {
	quoted := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" {
			continue
		}
		// Multi-word objects match across any whitespace run
		quoted = append(quoted, strings.Join(strings.Fields(regexp.QuoteMeta(w)), `\s+`))
	}
	return strings.Join(quoted, "|")
}
