package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
)

// ErrUnparseable means the model output held no decodable JSON object
var ErrUnparseable = errors.New("no JSON object in model output")

var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// ParseResponse pulls one JSON object out of free-form model output.
// A fenced block, when present, narrows the search to its contents; the
// object is then taken from the first '{' to the last '}'. Numbers are
// kept as json.Number. Any failure wraps ErrUnparseable.
func ParseResponse(raw string) (map[string]any, error) {
	if m := fencePattern.FindStringSubmatch(raw); m != nil {
		raw = m[1]
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start == -1 || end == -1 || end < start {
		return nil, ErrUnparseable
	}

	dec := json.NewDecoder(strings.NewReader(raw[start : end+1]))
	dec.UseNumber()

	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	// Two objects joined by prose are not one object
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after object", ErrUnparseable)
	}

	return obj, nil
}
