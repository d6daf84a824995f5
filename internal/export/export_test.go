package export

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
)

func newTestWriter(t *testing.T) (*Writer, string) {
	t.Helper()
	dir := t.TempDir()
	w := NewWriter(dir)
	w.now = func() time.Time { return time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC) }
	return w, dir
}

func TestResponse_Formats(t *testing.T) {
	w, dir := newTestWriter(t)

	path, err := w.Response("hello world", "u1", "sports", "txt", "")
	if err != nil {
		t.Fatalf("txt export failed: %v", err)
	}
	if filepath.Base(path) != "response_20260831_120000.txt" {
		t.Errorf("Unexpected default filename: %s", filepath.Base(path))
	}
	if !strings.HasPrefix(path, filepath.Join(dir, "exports", "u1", "sports")) {
		t.Errorf("Export landed outside user/section dir: %s", path)
	}
	data, _ := os.ReadFile(path)
	if string(data) != "hello world" {
		t.Errorf("txt content mismatch: %q", data)
	}

	path, err = w.Response("hello json", "u1", "sports", "json", "")
	if err != nil {
		t.Fatalf("json export failed: %v", err)
	}
	data, _ = os.ReadFile(path)
	var decoded map[string]string
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("json export not parseable: %v", err)
	}
	if decoded["response"] != "hello json" {
		t.Errorf("json wrapping mismatch: %v", decoded)
	}
}

func TestResponse_ExplicitFilename(t *testing.T) {
	w, _ := newTestWriter(t)

	path, err := w.Response("content", "u1", "media", "md", "my_notes")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "my_notes.md" {
		t.Errorf("Expected my_notes.md, got %s", filepath.Base(path))
	}

	// Filename already carrying the extension is not doubled.
	path, err = w.Response("content", "u1", "media", "md", "other.md")
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "other.md" {
		t.Errorf("Extension was doubled: %s", filepath.Base(path))
	}
}

func TestResponse_UnsupportedFormat(t *testing.T) {
	w, _ := newTestWriter(t)

	_, err := w.Response("content", "u1", "sports", "pdf", "")
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("Expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestVectorResults(t *testing.T) {
	w, _ := newTestWriter(t)

	result := docmodel.QueryResult{
		Query:   "who won the final?",
		UserID:  "u1",
		Section: "sports",
		Chunks: []docmodel.ScoredChunk{
			{DocChunk: docmodel.DocChunk{Content: "The final ended 2-1.", ChunkID: "c1", Doc: docmodel.Document{SourceName: "match.txt"}}, Score: 0.92},
			{DocChunk: docmodel.DocChunk{Content: "Extra time was needed.", ChunkID: "c2", Doc: docmodel.Document{SourceName: "match.txt"}}, Score: 0.88},
		},
	}

	path, err := w.VectorResults(result)
	if err != nil {
		t.Fatalf("VectorResults failed: %v", err)
	}
	if filepath.Base(path) != "vector_query_20260831_120000.md" {
		t.Errorf("Unexpected filename: %s", filepath.Base(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(data)
	for _, want := range []string{
		"## Vector Query Results: 'who won the final?'",
		"### Section: Sports",
		"--- Result 1 ---",
		"The final ended 2-1.",
		"--- Result 2 ---",
		"match.txt",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("Rendered markdown missing %q", want)
		}
	}
}
