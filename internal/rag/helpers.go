package rag

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/domain/jobmodel"
	"github.com/laxjovial/assistant-core/internal/metrics"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
)

// keyedLocks serializes writes per collection so concurrent uploads into
// the same (user, section) never interleave partial state.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedLocks) lock(name string) func() {
	k.mu.Lock()
	l, ok := k.locks[name]
	if !ok {
		l = &sync.Mutex{}
		k.locks[name] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (s *service) jobError(job jobmodel.Job, err error, message string, canRetry bool) jobmodel.Job {
	s.logger.Error(message, "error", err)

	job.Error = jobmodel.JobError{
		Code:    http.StatusInternalServerError,
		Message: message,
		Retry:   canRetry,
	}
	job.Status = jobmodel.JobStatusError
	job.CurrentStep = jobmodel.Error
	return job
}

func (s *service) executeEmbeddingStep(ctx context.Context, query string) ([]float32, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("embedding", time.Since(start)) }()

	return s.embedder.GetEmbedding(ctx, query)
}

func (s *service) executeVectorSearchStep(ctx context.Context, key vectordb.CollectionKey, emb []float32, k int) ([]docmodel.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()

	return s.vectorDB.Search(ctx, key, emb, k)
}

func combineChunks(chunks []docmodel.ScoredChunk) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, strings.TrimSpace(c.Content))
	}
	return strings.Join(parts, "\n\n---\n\n")
}

func sourceNames(chunks []docmodel.ScoredChunk) []string {
	seen := make(map[string]bool)
	var names []string
	for _, c := range chunks {
		name := c.Doc.SourceName
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}

func snippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
