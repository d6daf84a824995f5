package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
)

// --- Mocks for BatchIngest ---

type mockEmbedder struct {
	batchFunc func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)
}

func (m *mockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	return nil, nil
}
func (m *mockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	return m.batchFunc(ctx, chunks, isHuge)
}
func (m *mockEmbedder) Mode() string   { return "mock" }
func (m *mockEmbedder) Model() string  { return "mock-model" }
func (m *mockEmbedder) Dimension() int { return 3 }

type mockVectorDB struct {
	upsertFunc func(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error
}

func (m *mockVectorDB) EnsureCollection(ctx context.Context, key vectordb.CollectionKey, manifest vectordb.Manifest) error {
	return nil
}
func (m *mockVectorDB) Exists(ctx context.Context, key vectordb.CollectionKey) (bool, error) {
	return true, nil
}
func (m *mockVectorDB) Search(ctx context.Context, key vectordb.CollectionKey, v []float32, k int) ([]docmodel.ScoredChunk, error) {
	return nil, nil
}
func (m *mockVectorDB) Drop(ctx context.Context, key vectordb.CollectionKey) error { return nil }
func (m *mockVectorDB) UpsertBatch(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error {
	return m.upsertFunc(ctx, key, chunks, vectors)
}

// --- Unit Tests ---

func TestGetDocType(t *testing.T) {
	tests := []struct {
		path     string
		expected docmodel.DocType
	}{
		{"test.pdf", docmodel.PDF},
		{"DOC.DOCX", docmodel.DOCX},
		{"notes.txt", docmodel.TXT},
		{"data.csv", docmodel.CSV},
		{"README.md", docmodel.MD},
		{"image.png", docmodel.ERR},
		{"noextension", docmodel.ERR},
	}

	for _, tt := range tests {
		if got := GetDocType(tt.path); got != tt.expected {
			t.Errorf("GetDocType(%s) = %v; want %v", tt.path, got, tt.expected)
		}
	}
}

func TestSplitText(t *testing.T) {
	text := strings.Repeat("abcdefghij", 20) // 200 chars
	size := 50
	overlap := 10

	chunks := SplitText(text, size, overlap)

	if len(chunks) < 2 {
		t.Fatalf("Expected multiple chunks, got %d", len(chunks))
	}

	// Every chunk after the first must start with the tail of the previous one.
	for i := 1; i < len(chunks); i++ {
		tail := chunks[i-1][len(chunks[i-1])-overlap:]
		if !strings.HasPrefix(chunks[i], tail) {
			t.Errorf("chunk %d does not overlap with its predecessor", i)
		}
	}

	// Stripping the overlap prefix from every later chunk must reproduce
	// the original text exactly.
	var b strings.Builder
	b.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		b.WriteString(chunks[i][overlap:])
	}
	if b.String() != text {
		t.Error("reassembled chunks do not reproduce original text")
	}
}

func TestSplitText_SmallInput(t *testing.T) {
	chunks := SplitText("short", 500, 50)
	if len(chunks) != 1 || chunks[0] != "short" {
		t.Errorf("Expected single chunk for small input, got %v", chunks)
	}

	if got := SplitText("", 500, 50); got != nil {
		t.Errorf("Expected nil for empty input, got %v", got)
	}
}

func TestSplitText_Unicode(t *testing.T) {
	text := strings.Repeat("héllo wörld ", 30)
	chunks := SplitText(text, 40, 8)

	var b strings.Builder
	b.WriteString(chunks[0])
	for i := 1; i < len(chunks); i++ {
		runes := []rune(chunks[i])
		b.WriteString(string(runes[8:]))
	}
	if b.String() != text {
		t.Error("reassembled unicode chunks do not reproduce original text")
	}
}

func TestPrepareChunks(t *testing.T) {
	pages := []rawPage{
		{Number: 1, Content: "Page one content."},
		{Number: 2, Content: "Page two content."},
	}
	doc := docmodel.Document{ID: "doc-1", UserID: "u1", Section: "sports"}

	chunks := PrepareChunks(pages, doc, config.RAGSettings{ChunkSize: 500, ChunkOverlap: 50})

	if len(chunks) != 2 {
		t.Fatalf("Expected 2 chunks (one per page), got %d", len(chunks))
	}

	if chunks[0].Doc.ID != "doc-1" || chunks[0].Ordinal != 0 || chunks[1].Ordinal != 1 {
		t.Errorf("Metadata mismatch: %+v %+v", chunks[0], chunks[1])
	}
	if chunks[0].ChunkID == chunks[1].ChunkID {
		t.Error("Chunk IDs must be unique")
	}
}

func TestBatchIngest(t *testing.T) {
	ctx := context.Background()
	chunks := make([]docmodel.DocChunk, 150) // Should trigger 2 batches (100 + 50)
	for i := range chunks {
		chunks[i] = docmodel.DocChunk{Content: "test content"}
	}

	callCount := 0
	vDB := &mockVectorDB{
		upsertFunc: func(ctx context.Context, key vectordb.CollectionKey, c []docmodel.DocChunk, v [][]float32) error {
			callCount++
			return nil
		},
	}

	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string, huge bool) ([][]float32, error) {
			return make([][]float32, len(ch)), nil
		},
	}

	key := vectordb.CollectionKey{UserID: "u1", Section: "sports"}
	err := BatchIngest(ctx, key, chunks, vDB, emb)

	if err != nil {
		t.Fatalf("BatchIngest failed: %v", err)
	}

	if callCount != 2 {
		t.Errorf("Expected 2 batches to be upserted, got %d", callCount)
	}
}

func TestBatchIngest_Error(t *testing.T) {
	vDB := &mockVectorDB{
		upsertFunc: func(ctx context.Context, key vectordb.CollectionKey, c []docmodel.DocChunk, v [][]float32) error {
			return errors.New("upsert failed")
		},
	}
	emb := &mockEmbedder{
		batchFunc: func(ctx context.Context, ch []string, huge bool) ([][]float32, error) {
			return make([][]float32, len(ch)), nil
		},
	}

	key := vectordb.CollectionKey{UserID: "u1", Section: "sports"}
	err := BatchIngest(context.Background(), key, []docmodel.DocChunk{{Content: "hi"}}, vDB, emb)
	if err == nil {
		t.Error("Expected error from BatchIngest, got nil")
	}
}

func TestExtractCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "players.csv")
	content := "name,team\nJordan,Bulls\nKobe,Lakers\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	pages, err := ExtractText(path, docmodel.CSV)
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("Expected 1 page, got %d", len(pages))
	}
	if !strings.Contains(pages[0].Content, "name: Jordan") || !strings.Contains(pages[0].Content, "team: Lakers") {
		t.Errorf("CSV rows not flattened as expected: %q", pages[0].Content)
	}
}

func TestExtractText_Unsupported(t *testing.T) {
	_, err := ExtractText("whatever.png", docmodel.ERR)
	if err == nil {
		t.Error("Expected error for unsupported content type")
	}
}
