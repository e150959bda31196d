package packet

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Bundle file names
const (
	PacketFile     = "packet.json"
	ChecklistFile  = "checklist.json"
	ProvenanceFile = "provenance.json"
	ExtractedFile  = "extracted.json"
	MarkdownFile   = "packet.md"
	HighlightsFile = "highlights.html"
)

// Write renders the bundle into <root>/<case_id>/ and returns that directory
func Write(b *Bundle, root string) (string, error) {
	dir := filepath.Join(root, SafeName(b.Case.CaseID))
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("create bundle directory: %w", err)
	}

	page, err := RenderHTML(b)
	if err != nil {
		return "", err
	}

	jsonFiles := []struct {
		name string
		v    any
	}{
		{PacketFile, b.Packet},
		{ChecklistFile, b.Checklist},
		{ProvenanceFile, b.Record.Evidence},
		{ExtractedFile, b.Record},
	}
	for _, f := range jsonFiles {
		data, err := json.MarshalIndent(f.v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal %s: %w", f.name, err)
		}
		if err := writeFile(filepath.Join(dir, f.name), append(data, '\n')); err != nil {
			return "", err
		}
	}

	if err := writeFile(filepath.Join(dir, MarkdownFile), []byte(RenderMarkdown(b))); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(dir, HighlightsFile), []byte(page)); err != nil {
		return "", err
	}

	return dir, nil
}

// writeFile replaces path atomically via a temp file in the same directory
func writeFile(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return nil
}

// SafeName maps a case ID to a single path element
func SafeName(id string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s := replacer.Replace(strings.TrimSpace(id))
	if s == "" || s == "." || s == ".." {
		return "case"
	}
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}
