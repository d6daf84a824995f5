package rag_test

import (
	"context"

	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
)

// MockVectorDB implements vectordb.DataProcessor
type MockVectorDB struct {
	OnEnsureCollection func(ctx context.Context, key vectordb.CollectionKey, manifest vectordb.Manifest) error
	OnExists           func(ctx context.Context, key vectordb.CollectionKey) (bool, error)
	OnSearch           func(ctx context.Context, key vectordb.CollectionKey, vector []float32, k int) ([]docmodel.ScoredChunk, error)
	OnUpsertBatch      func(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error
	OnDrop             func(ctx context.Context, key vectordb.CollectionKey) error
}

func (m *MockVectorDB) EnsureCollection(ctx context.Context, key vectordb.CollectionKey, manifest vectordb.Manifest) error {
	if m.OnEnsureCollection != nil {
		return m.OnEnsureCollection(ctx, key, manifest)
	}
	return nil
}

func (m *MockVectorDB) Exists(ctx context.Context, key vectordb.CollectionKey) (bool, error) {
	if m.OnExists != nil {
		return m.OnExists(ctx, key)
	}
	return true, nil
}

func (m *MockVectorDB) Search(ctx context.Context, key vectordb.CollectionKey, vector []float32, k int) ([]docmodel.ScoredChunk, error) {
	if m.OnSearch != nil {
		return m.OnSearch(ctx, key, vector, k)
	}
	return []docmodel.ScoredChunk{{DocChunk: docmodel.DocChunk{Content: "default context"}}}, nil
}

func (m *MockVectorDB) UpsertBatch(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error {
	if m.OnUpsertBatch != nil {
		return m.OnUpsertBatch(ctx, key, chunks, vectors)
	}
	return nil
}

func (m *MockVectorDB) Drop(ctx context.Context, key vectordb.CollectionKey) error {
	if m.OnDrop != nil {
		return m.OnDrop(ctx, key)
	}
	return nil
}

type MockEmbedder struct {
	OnGetEmbedding   func(ctx context.Context, text string) ([]float32, error)
	OnBatchEmbedding func(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error)

	// Optional identity overrides, for manifest-conflict tests.
	ModelName string
	Dim       int
}

func (m *MockEmbedder) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	if m.OnGetEmbedding != nil {
		return m.OnGetEmbedding(ctx, query)
	}
	return []float32{1, 0, 0}, nil
}

func (m *MockEmbedder) BatchEmbedding(ctx context.Context, chunks []string, isHuge bool) ([][]float32, error) {
	if m.OnBatchEmbedding != nil {
		return m.OnBatchEmbedding(ctx, chunks, isHuge)
	}
	vectors := make([][]float32, len(chunks))
	for i := range vectors {
		vectors[i] = []float32{1, 0, 0}
	}
	return vectors, nil
}

func (m *MockEmbedder) Mode() string { return "mock" }

func (m *MockEmbedder) Model() string {
	if m.ModelName != "" {
		return m.ModelName
	}
	return "mock-model"
}

func (m *MockEmbedder) Dimension() int {
	if m.Dim != 0 {
		return m.Dim
	}
	return 3
}

// MockLLM implements llm.Provider
type MockLLM struct {
	OnGenerate func(ctx context.Context, query string, passages []string) (string, error)
}

func (m *MockLLM) Generate(ctx context.Context, q string, passages []string) (string, error) {
	if m.OnGenerate != nil {
		return m.OnGenerate(ctx, q, passages)
	}
	return "mocked llm response", nil
}

// MockExporter implements rag.Exporter
type MockExporter struct {
	OnVectorResults func(result docmodel.QueryResult) (string, error)
}

func (m *MockExporter) VectorResults(result docmodel.QueryResult) (string, error) {
	if m.OnVectorResults != nil {
		return m.OnVectorResults(result)
	}
	return "exports/mock/result.md", nil
}
