package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/laxjovial/assistant-core/internal/adapter/utils"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/embedding"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

type rawPage struct {
	Number  int    `json:"number"`
	Content string `json:"content"`
}

var logger *logger_i.Logger
var loggerOnce sync.Once

func getLogger() *logger_i.Logger {
	loggerOnce.Do(func() {
		logger = logger_i.NewLogger("Document Ingestion ")
	})
	return logger
}

func GetDocType(docPath string) docmodel.DocType {
	ext := strings.ToLower(filepath.Ext(docPath))
	switch ext {
	case ".pdf":
		return docmodel.PDF
	case ".txt":
		return docmodel.TXT
	case ".csv":
		return docmodel.CSV
	case ".md":
		return docmodel.MD
	case ".docx":
		return docmodel.DOCX
	default:
		return docmodel.ERR
	}
}

func ExtractText(path string, contentType docmodel.DocType) ([]rawPage, error) {
	getLogger()
	switch contentType {
	case docmodel.PDF:
		return extractPDF(path)
	case docmodel.DOCX:
		return extractWithCat(path)
	case docmodel.CSV:
		return extractCSV(path)
	case docmodel.TXT, docmodel.MD:
		return extractPlain(path)
	default:
		return nil, fmt.Errorf("unsupported content type: %s", contentType)
	}
}

func PrepareChunks(pages []rawPage, doc docmodel.Document, settings config.RAGSettings) []docmodel.DocChunk {
	var allChunks []docmodel.DocChunk

	ordinal := 0
	for _, page := range pages {
		stringChunks := SplitText(page.Content, settings.ChunkSize, settings.ChunkOverlap)

		for _, text := range stringChunks {
			allChunks = append(allChunks, docmodel.DocChunk{
				Doc:     doc,
				ChunkID: utils.GetNewUUID(),
				Content: text,
				Ordinal: ordinal,
			})
			ordinal++
		}
	}

	return allChunks
}

func BatchIngest(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, store vectordb.DataProcessor, embedder embedding.Embedder) error {
	log := getLogger()
	if traceId, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok {
		log = log.With("traceId", traceId)
	}

	batchSize := config.EmbeddingBatchSize
	isHugeDataSet := len(chunks) > 1000000

	for i := 0; i < len(chunks); i += batchSize {
		end := i + batchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		currentBatch := chunks[i:end]

		var texts []string
		for _, c := range currentBatch {
			texts = append(texts, c.Content)
		}

		log.Debug("Starting embedding call", "current batch length", len(currentBatch))
		vectors, err := embedder.BatchEmbedding(ctx, texts, isHugeDataSet)
		if err != nil {
			return fmt.Errorf("embedding batch failed: %w", err)
		}
		if len(vectors) != len(currentBatch) {
			return fmt.Errorf("embedding batch returned %d vectors for %d chunks", len(vectors), len(currentBatch))
		}

		err = store.UpsertBatch(ctx, key, currentBatch, vectors)
		if err != nil {
			return fmt.Errorf("upserting batch failed: %w", err)
		}
	}

	return nil
}
