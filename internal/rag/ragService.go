package rag

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/laxjovial/assistant-core/internal/adapter/utils"
	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/internal/rag/embedding"
	"github.com/laxjovial/assistant-core/internal/rag/ingest"
	"github.com/laxjovial/assistant-core/internal/rag/llm"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

const DefaultK = 5

// Exporter writes a rendered query result to durable storage and returns
// the written path.
type Exporter interface {
	VectorResults(result docmodel.QueryResult) (string, error)
}

// Service is the contract workers and handlers program against; the
// concrete wiring of vector store, embedder and LLM stays private.
type Service interface {
	// SaveUpload persists raw bytes under the user's section upload dir.
	// Rejects extensions outside the allow-list without writing anything.
	SaveUpload(userID string, section string, filename string, r io.Reader) (docmodel.Document, error)

	IngestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job
	ProcessQuery(ctx context.Context, job jobmodel.Job) jobmodel.Job

	// Query returns the combined chunk text, or one of the sentinel
	// status strings when the section has no index or no matches.
	Query(ctx context.Context, userID string, section string, query string, k int) (docmodel.QueryResult, string, error)

	Clear(ctx context.Context, userID string, section string) (string, error)
	SummarizeDocument(ctx context.Context, userID string, section string, storedName string) (string, error)
}

type service struct {
	vectorDB    vectordb.DataProcessor
	llmProvider llm.Provider
	embedder    embedding.Embedder
	exporter    Exporter
	settings    config.RAGSettings
	dataDir     string
	locks       *keyedLocks
	logger      *logger_i.Logger
}

func NewService(vector vectordb.DataProcessor, llmProvider llm.Provider, em embedding.Embedder, exporter Exporter, settings config.RAGSettings, dataDir string) Service {
	return &service{
		vectorDB:    vector,
		llmProvider: llmProvider,
		embedder:    em,
		exporter:    exporter,
		settings:    settings,
		dataDir:     dataDir,
		locks:       newKeyedLocks(),
		logger:      logger_i.NewLogger("RAG Service :"),
	}
}

func (s *service) manifest() vectordb.Manifest {
	return vectordb.Manifest{
		EmbeddingMode:  s.embedder.Mode(),
		EmbeddingModel: s.embedder.Model(),
		Dimension:      s.embedder.Dimension(),
	}
}

func (s *service) uploadDir(userID, section string) string {
	key := vectordb.CollectionKey{UserID: userID, Section: section}
	user, sec := key.PathParts()
	return filepath.Join(s.dataDir, config.UploadRoot, user, sec)
}

func (s *service) SaveUpload(userID string, section string, filename string, r io.Reader) (docmodel.Document, error) {
	docType := ingest.GetDocType(filename)
	if docType == docmodel.ERR {
		return docmodel.Document{}, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(filename))
	}

	dir := s.uploadDir(userID, section)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return docmodel.Document{}, err
	}

	id := utils.GetNewUUID()
	storedName := id + strings.ToLower(filepath.Ext(filename))
	path := filepath.Join(dir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return docmodel.Document{}, err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return docmodel.Document{}, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return docmodel.Document{}, err
	}

	return docmodel.Document{
		ID:          id,
		SourceName:  filename,
		StoredName:  storedName,
		UserID:      userID,
		Section:     section,
		ContentType: docType,
		IngestedAt:  time.Now(),
		Path:        path,
	}, nil
}

func (s *service) IngestDocument(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("Document_ingestion", time.Since(start)) }()

	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "JobId", job.Id)

	key := vectordb.CollectionKey{UserID: job.JobPayload.UserID, Section: job.JobPayload.Section}
	unlock := s.locks.lock(key.Name())
	defer unlock()

	job.CurrentStep = jobmodel.IngestProcessing

	docPath := job.JobPayload.IngestPath
	docType := ingest.GetDocType(docPath)
	if docType == docmodel.ERR {
		return s.jobError(job, ErrUnsupportedFileType, "UNSUPPORTED_FILE_TYPE", false)
	}

	if err := s.vectorDB.EnsureCollection(ctx, key, s.manifest()); err != nil {
		log.Error("Error creating collection", "error", err)
		return s.jobError(job, err, "VECTOR_DB_FAILURE", true)
	}

	doc := docmodel.Document{
		ID:          job.Id,
		SourceName:  job.JobPayload.IngestFileName,
		StoredName:  filepath.Base(docPath),
		UserID:      job.JobPayload.UserID,
		Section:     job.JobPayload.Section,
		ContentType: docType,
		IngestedAt:  time.Now(),
	}

	pages, err := ingest.ExtractText(docPath, docType)
	if err != nil {
		// The raw upload stays on disk for diagnostics.
		ingErr := &IngestionError{Stage: "extraction", Err: err}
		log.Error("Error extracting document content", "error", ingErr)
		j := s.jobError(job, ingErr, "EXTRACTION_FAILURE", false)
		j.Error.Message = "Error extracting document content"
		return j
	}

	chunks := ingest.PrepareChunks(pages, doc, s.settings)
	log.Debug("Processing document", "chunks", len(chunks))

	if err := ingest.BatchIngest(ctx, key, chunks, s.vectorDB, s.embedder); err != nil {
		ingErr := &IngestionError{Stage: "embedding", Err: err}
		log.Error("Error embedding document", "error", ingErr)
		return s.jobError(job, ingErr, "INGESTION_FAILURE", true)
	}

	job.JobPayload.Message = fmt.Sprintf("Uploaded and embedded: %s", doc.StoredName)
	job.Status = jobmodel.JobStatusComplete
	job.CurrentStep = jobmodel.Complete
	return job
}

func (s *service) Query(ctx context.Context, userID string, section string, query string, k int) (docmodel.QueryResult, string, error) {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	if k <= 0 {
		k = DefaultK
	}

	key := vectordb.CollectionKey{UserID: userID, Section: section}
	exists, err := s.vectorDB.Exists(ctx, key)
	if err != nil {
		return docmodel.QueryResult{}, "", err
	}
	if !exists {
		return docmodel.QueryResult{},
			fmt.Sprintf("No indexed data found for section '%s'. Please upload relevant documents first.", section),
			nil
	}

	// The collection exists, so this only validates its manifest against
	// the configured embedder. Searching with a different model or
	// dimension would return score-0 garbage instead of failing.
	if err := s.vectorDB.EnsureCollection(ctx, key, s.manifest()); err != nil {
		return docmodel.QueryResult{}, "", err
	}

	vector, err := s.executeEmbeddingStep(ctx, query)
	if err != nil {
		return docmodel.QueryResult{}, "", err
	}

	chunks, err := s.executeVectorSearchStep(ctx, key, vector, k)
	if err != nil {
		return docmodel.QueryResult{}, "", err
	}

	result := docmodel.QueryResult{
		Query:   query,
		UserID:  userID,
		Section: section,
		Chunks:  chunks,
	}

	if len(chunks) == 0 {
		return result,
			fmt.Sprintf("No matching results found in uploaded content for section '%s'.", section),
			nil
	}

	log.Debug("Query matched", "chunks", len(chunks))
	return result, combineChunks(chunks), nil
}

func (s *service) ProcessQuery(ctx context.Context, job jobmodel.Job) jobmodel.Job {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_query", time.Since(start)) }()

	job.CurrentStep = jobmodel.EmbeddingAPICall

	result, combined, err := s.Query(ctx, job.JobPayload.UserID, job.JobPayload.Section, job.JobPayload.Question, job.JobPayload.K)
	if err != nil {
		return s.jobError(job, err, "QUERY_FAILURE", true)
	}

	job.JobPayload.Answer = combined
	job.JobPayload.Sources = sourceNames(result.Chunks)

	if job.JobPayload.Export && len(result.Chunks) > 0 {
		job.CurrentStep = jobmodel.ExportCall
		exportPath, err := s.exporter.VectorResults(result)
		if err != nil {
			return s.jobError(job, err, "EXPORT_FAILURE", true)
		}
		job.JobPayload.ExportPath = exportPath
		job.JobPayload.Answer = fmt.Sprintf("Results exported to: %s\n\n%s...", exportPath, snippet(combined, 500))
	}

	job.Status = jobmodel.JobStatusComplete
	job.CurrentStep = jobmodel.Complete
	return job
}

func (s *service) Clear(ctx context.Context, userID string, section string) (string, error) {
	key := vectordb.CollectionKey{UserID: userID, Section: section}
	unlock := s.locks.lock(key.Name())
	defer unlock()

	hadVectors, err := s.vectorDB.Exists(ctx, key)
	if err != nil {
		return "", err
	}

	uploadDir := s.uploadDir(userID, section)
	hadUploads := false
	if _, err := os.Stat(uploadDir); err == nil {
		hadUploads = true
	}

	if !hadVectors && !hadUploads {
		return fmt.Sprintf("Nothing to clear for section '%s'.", section), nil
	}

	if hadVectors {
		if err := s.vectorDB.Drop(ctx, key); err != nil {
			return "", err
		}
	}
	if hadUploads {
		if err := os.RemoveAll(uploadDir); err != nil {
			return "", err
		}
	}

	s.logger.Info("Cleared section data", "user", userID, "section", section)
	return fmt.Sprintf("Cleared all indexed data for section '%s'.", section), nil
}

func (s *service) SummarizeDocument(ctx context.Context, userID string, section string, storedName string) (string, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("document_summarization", time.Since(start)) }()

	path := filepath.Join(s.uploadDir(userID, section), filepath.Base(storedName))
	docType := ingest.GetDocType(path)
	if docType == docmodel.ERR {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(path))
	}

	pages, err := ingest.ExtractText(path, docType)
	if err != nil {
		return "", &IngestionError{Stage: "extraction", Err: err}
	}

	var b strings.Builder
	for _, p := range pages {
		b.WriteString(p.Content)
		b.WriteString("\n")
	}
	content := snippet(b.String(), 12000)
	if strings.TrimSpace(content) == "" {
		return "", &IngestionError{Stage: "extraction", Err: fmt.Errorf("document %s produced no text", storedName)}
	}

	return s.llmProvider.Generate(ctx, "Summarize this document.", []string{content})
}
