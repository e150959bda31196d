package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ppiankov/patrace/internal/model"
)

// LoadCase reads one case file
func LoadCase(path string) (*model.Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load case: %w", err)
	}

	var c model.Case
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("load case %s: %w", filepath.Base(path), err)
	}

	if c.CaseID == "" {
		c.CaseID = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if strings.TrimSpace(c.NoteText) == "" {
		return nil, fmt.Errorf("load case %s: note_text is empty", c.CaseID)
	}

	return &c, nil
}

// ListCases returns the case_*.json files in dir, sorted by name
func ListCases(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read case directory: %w", err)
	}

	var paths []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "case_") || !strings.EqualFold(filepath.Ext(name), ".json") {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	sort.Strings(paths)

	return paths, nil
}
