package openaiembed

import (
	"context"
	"fmt"
	"sync"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/rag/embedding"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var logger *logger_i.Logger
var once sync.Once
var embeddingClient *client

type client struct {
	openAi    openai.Client
	model     string
	dimension int
}

func newOpenAIEmbedder(modelName string, apikey string, dimension int) {
	if apikey == "" {
		logger.Error("OpenAI API key missing, embedder unavailable")
		return
	}

	embeddingClient = &client{
		openAi:    openai.NewClient(option.WithAPIKey(apikey)),
		model:     modelName,
		dimension: dimension,
	}
	logger.Debug("OpenAI Embedding model name: " + modelName)
	logger.Info("OpenAI Embedding client created")
}

func GetOpenAIEmbeddingClient(modelName string, apikey string, dimension int) embedding.Embedder {
	once.Do(func() {
		logger = logger_i.NewLogger("openai_embedding")
		newOpenAIEmbedder(modelName, apikey, dimension)
	})

	//if init still fails
	if embeddingClient == nil {
		return nil
	}
	return embeddingClient
}

func (c *client) GetEmbedding(ctx context.Context, query string) ([]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(query),
		},
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.openAi.Embeddings.New(ctx, params)
	if err != nil {
		log.Error("Error getting Embedding from OpenAI", "error", err.Error())
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("openai returned no embedding data")
	}

	return toFloat32(resp.Data[0].Embedding), nil
}

func (c *client) BatchEmbedding(ctx context.Context, chunks []string, isHugeDataSet bool) ([][]float32, error) {
	log := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	//OpenAI caps a single embeddings call at 2048 inputs, our batches are
	//far below that so one call per batch is fine.
	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: chunks,
		},
	}
	if c.dimension > 0 {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.openAi.Embeddings.New(ctx, params)
	if err != nil {
		log.Error("Error getting batch Embeddings from OpenAI", "error", err.Error())
		return nil, err
	}

	results := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if int(data.Index) < len(results) {
			results[data.Index] = toFloat32(data.Embedding)
		}
	}
	return results, nil
}

func (c *client) Mode() string   { return "openai" }
func (c *client) Model() string  { return c.model }
func (c *client) Dimension() int { return c.dimension }

func toFloat32(embedding []float64) []float32 {
	vector := make([]float32, len(embedding))
	for i, v := range embedding {
		vector[i] = float32(v)
	}
	return vector
}
