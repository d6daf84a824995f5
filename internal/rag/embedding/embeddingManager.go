package embedding

import "context"

type Embedder interface {
	GetEmbedding(ctx context.Context, query string) ([]float32, error)
	BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error)

	// Mode and Model identify the provider and model so stored collections
	// can be checked against the embedder that wrote them.
	Mode() string
	Model() string
	Dimension() int
}
