// Package policy loads payer-policy passages and retrieves the ones
// relevant to a case.
package policy

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/patrace/internal/model"
)

//go:embed policy.yaml
var defaultData []byte

type library struct {
	Chunks []model.PolicyChunk `yaml:"chunks" json:"chunks"`
}

// DefaultLibrary returns the policy passages embedded in the binary
func DefaultLibrary() ([]model.PolicyChunk, error) {
	return parse(defaultData, false)
}

// LoadLibrary reads policy chunks from a YAML or JSON file.
// The file holds either a list of chunks or an object with a "chunks" list.
func LoadLibrary(path string) ([]model.PolicyChunk, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read policy library: %w", err)
	}

	isJSON := strings.EqualFold(filepath.Ext(path), ".json")
	chunks, err := parse(data, isJSON)
	if err != nil {
		return nil, fmt.Errorf("parse policy library %s: %w", path, err)
	}
	return chunks, nil
}

func parse(data []byte, isJSON bool) ([]model.PolicyChunk, error) {
	var chunks []model.PolicyChunk
	if isJSON {
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			if err := json.Unmarshal(data, &chunks); err != nil {
				return nil, err
			}
		} else {
			var lib library
			if err := json.Unmarshal(data, &lib); err != nil {
				return nil, err
			}
			chunks = lib.Chunks
		}
	} else {
		var node yaml.Node
		if err := yaml.Unmarshal(data, &node); err != nil {
			return nil, err
		}
		if len(node.Content) == 0 {
			return []model.PolicyChunk{}, nil
		}
		if node.Content[0].Kind == yaml.SequenceNode {
			if err := node.Decode(&chunks); err != nil {
				return nil, err
			}
		} else {
			var lib library
			if err := node.Decode(&lib); err != nil {
				return nil, err
			}
			chunks = lib.Chunks
		}
	}

	seen := make(map[string]bool, len(chunks))
	for i, c := range chunks {
		if c.ChunkID == "" {
			return nil, fmt.Errorf("chunk %d has no chunk_id", i)
		}
		if seen[c.ChunkID] {
			return nil, fmt.Errorf("duplicate chunk_id %q", c.ChunkID)
		}
		seen[c.ChunkID] = true
	}

	if chunks == nil {
		chunks = []model.PolicyChunk{}
	}
	return chunks, nil
}
