package policy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ppiankov/patrace/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadLibrary(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		wantIDs []string
		wantErr bool
	}{
		{
			name: "yaml object",
			file: "policy.yaml",
			content: `chunks:
  - chunk_id: a
    text: first
  - chunk_id: b
    text: second
`,
			wantIDs: []string{"a", "b"},
		},
		{
			name: "yaml list",
			file: "policy.yml",
			content: `- chunk_id: a
  text: first
`,
			wantIDs: []string{"a"},
		},
		{
			name:    "json list",
			file:    "policy.json",
			content: `[{"chunk_id": "a", "text": "first"}, {"chunk_id": "b", "text": "second"}]`,
			wantIDs: []string{"a", "b"},
		},
		{
			name:    "json object",
			file:    "policy.json",
			content: "{\n\t\"chunks\": [{\"chunk_id\": \"a\", \"text\": \"first\"}]\n}",
			wantIDs: []string{"a"},
		},
		{
			name:    "empty file",
			file:    "policy.yaml",
			content: "",
			wantIDs: []string{},
		},
		{
			name:    "missing chunk id",
			file:    "policy.yaml",
			content: "chunks:\n  - text: orphan\n",
			wantErr: true,
		},
		{
			name:    "duplicate chunk id",
			file:    "policy.json",
			content: `[{"chunk_id": "a", "text": "x"}, {"chunk_id": "a", "text": "y"}]`,
			wantErr: true,
		},
		{
			name:    "malformed json",
			file:    "policy.json",
			content: `[{"chunk_id": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chunks, err := LoadLibrary(writeFile(t, tt.file, tt.content))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("LoadLibrary failed: %v", err)
			}
			if len(chunks) != len(tt.wantIDs) {
				t.Fatalf("expected %d chunks, got %d", len(tt.wantIDs), len(chunks))
			}
			for i, id := range tt.wantIDs {
				if chunks[i].ChunkID != id {
					t.Errorf("chunk %d: expected %s, got %s", i, id, chunks[i].ChunkID)
				}
			}
		})
	}
}

func TestLoadLibrary_NonExistent(t *testing.T) {
	if _, err := LoadLibrary(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for non-existent file, got nil")
	}
}

func TestDefaultLibrary(t *testing.T) {
	chunks, err := DefaultLibrary()
	if err != nil {
		t.Fatalf("DefaultLibrary failed: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected embedded policy chunks")
	}
	for _, c := range chunks {
		if c.Text == "" {
			t.Errorf("chunk %s has no text", c.ChunkID)
		}
	}
}

func TestRetriever_Retrieve(t *testing.T) {
	chunks := []model.PolicyChunk{
		{ChunkID: "imaging", Text: "Lumbar MRI after six weeks of conservative care."},
		{ChunkID: "flags", Text: "Red flags such as cauda equina or fracture."},
		{ChunkID: "unrelated", Text: "Dental cleaning twice yearly."},
		{ChunkID: "care", Text: "Conservative care includes physical therapy."},
	}
	r := NewRetriever(chunks)

	tests := []struct {
		name  string
		query string
		k     int
		want  []string
	}{
		{"best first", "lumbar MRI conservative care", 0, []string{"imaging", "care"}},
		{"top k", "lumbar MRI conservative care", 1, []string{"imaging"}},
		{"tie keeps library order", "conservative", 0, []string{"imaging", "care"}},
		{"case insensitive", "CAUDA EQUINA", 0, []string{"flags"}},
		{"no match", "orthodontics", 3, []string{}},
		{"only stopwords", "the and for", 3, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Retrieve(tt.query, tt.k)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %v, got %d chunks: %v", tt.want, len(got), got)
			}
			for i, id := range tt.want {
				if got[i].ChunkID != id {
					t.Errorf("rank %d: expected %s, got %s", i, id, got[i].ChunkID)
				}
			}
		})
	}
}

func TestRetriever_Score(t *testing.T) {
	r := NewRetriever([]model.PolicyChunk{
		{ChunkID: "a", Text: "lumbar spine imaging"},
	})

	scored := r.Score("lumbar spine knee")
	if len(scored) != 1 {
		t.Fatalf("expected 1 scored chunk, got %d", len(scored))
	}
	want := 2.0 / 3.0
	if scored[0].Score != want {
		t.Errorf("expected score %v, got %v", want, scored[0].Score)
	}
	if r.Len() != 1 {
		t.Errorf("expected Len 1, got %d", r.Len())
	}
}

func TestTokenize(t *testing.T) {
	got := tokenize("The MRI, of L4-L5; PT x2 and home_exercise")
	want := []string{"mri", "home_exercise"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}
