package localdb

import (
	"context"
	"errors"
	"testing"

	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
)

var testManifest = vectordb.Manifest{
	EmbeddingMode:  "openai",
	EmbeddingModel: "text-embedding-3-small",
	Dimension:      3,
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir())
}

func TestEnsureCollection_ManifestMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := vectordb.CollectionKey{UserID: "u1", Section: "sports"}

	if err := store.EnsureCollection(ctx, key, testManifest); err != nil {
		t.Fatalf("EnsureCollection failed: %v", err)
	}

	// Same manifest is accepted again.
	if err := store.EnsureCollection(ctx, key, testManifest); err != nil {
		t.Fatalf("EnsureCollection with same manifest failed: %v", err)
	}

	other := testManifest
	other.EmbeddingModel = "gemini-embedding-001"
	err := store.EnsureCollection(ctx, key, other)
	if !errors.Is(err, vectordb.ErrEmbeddingMismatch) {
		t.Errorf("Expected ErrEmbeddingMismatch, got %v", err)
	}
}

func TestUpsertAndSearch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := vectordb.CollectionKey{UserID: "u1", Section: "finance"}

	if err := store.EnsureCollection(ctx, key, testManifest); err != nil {
		t.Fatal(err)
	}

	chunks := []docmodel.DocChunk{
		{ChunkID: "c1", Content: "stocks went up"},
		{ChunkID: "c2", Content: "bonds went down"},
		{ChunkID: "c3", Content: "crypto was flat"},
	}
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}

	if err := store.UpsertBatch(ctx, key, chunks, vectors); err != nil {
		t.Fatalf("UpsertBatch failed: %v", err)
	}

	results, err := store.Search(ctx, key, []float32{0.9, 0.1, 0}, 2)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 results, got %d", len(results))
	}
	if results[0].ChunkID != "c1" {
		t.Errorf("Expected c1 as best match, got %s", results[0].ChunkID)
	}
	if results[0].Score <= results[1].Score {
		t.Error("Results not ordered by descending score")
	}

	// Asking for more neighbors than stored returns everything, no padding.
	all, err := store.Search(ctx, key, []float32{0.9, 0.1, 0}, 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(all) != len(chunks) {
		t.Errorf("Expected %d results for oversized k, got %d", len(chunks), len(all))
	}
}

func TestUpsert_DimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	key := vectordb.CollectionKey{UserID: "u1", Section: "legal"}

	if err := store.EnsureCollection(ctx, key, testManifest); err != nil {
		t.Fatal(err)
	}

	err := store.UpsertBatch(ctx, key,
		[]docmodel.DocChunk{{ChunkID: "c1"}},
		[][]float32{{1, 0}})
	if err == nil {
		t.Error("Expected error for wrong vector dimension")
	}
}

func TestPersistenceAcrossInstances(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	key := vectordb.CollectionKey{UserID: "u2", Section: "medical"}

	first := NewStore(dir)
	if err := first.EnsureCollection(ctx, key, testManifest); err != nil {
		t.Fatal(err)
	}
	err := first.UpsertBatch(ctx, key,
		[]docmodel.DocChunk{{ChunkID: "c1", Content: "aspirin dosage"}},
		[][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}

	// A fresh instance over the same root must see the persisted data.
	second := NewStore(dir)
	exists, err := second.Exists(ctx, key)
	if err != nil || !exists {
		t.Fatalf("Expected collection to exist after reopen, exists=%v err=%v", exists, err)
	}
	results, err := second.Search(ctx, key, []float32{1, 0, 0}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0].Content != "aspirin dosage" {
		t.Errorf("Persisted chunk not found: %+v", results)
	}
}

func TestDropAndIsolation(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	keyA := vectordb.CollectionKey{UserID: "alice", Section: "sports"}
	keyB := vectordb.CollectionKey{UserID: "bob", Section: "sports"}

	for _, key := range []vectordb.CollectionKey{keyA, keyB} {
		if err := store.EnsureCollection(ctx, key, testManifest); err != nil {
			t.Fatal(err)
		}
	}
	err := store.UpsertBatch(ctx, keyA,
		[]docmodel.DocChunk{{ChunkID: "a1", Content: "alice data"}},
		[][]float32{{1, 0, 0}})
	if err != nil {
		t.Fatal(err)
	}

	// Bob's collection must not see Alice's chunks.
	results, err := store.Search(ctx, keyB, []float32{1, 0, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("Expected empty results for other user, got %d", len(results))
	}

	if err := store.Drop(ctx, keyA); err != nil {
		t.Fatalf("Drop failed: %v", err)
	}
	exists, err := store.Exists(ctx, keyA)
	if err != nil {
		t.Fatal(err)
	}
	if exists {
		t.Error("Collection still exists after Drop")
	}

	_, err = store.Search(ctx, keyA, []float32{1, 0, 0}, 1)
	if !errors.Is(err, vectordb.ErrCollectionNotFound) {
		t.Errorf("Expected ErrCollectionNotFound after drop, got %v", err)
	}
}
