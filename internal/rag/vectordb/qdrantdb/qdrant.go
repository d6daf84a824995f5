package qdrantdb

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/qdrant/go-client/qdrant"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var logger *logger_i.Logger
var quadrantInstance *qdrant.Client
var once sync.Once

type ClientHolder struct {
	QObj *qdrant.Client

	mu        sync.Mutex
	manifests map[string]vectordb.Manifest
}

func GetQuadrantClient(ctx context.Context) *ClientHolder {
	once.Do(func() {
		logger = logger_i.NewLogger("Qdrant")
		res := newClient()
		if res != nil {
			quadrantInstance = res
			go closeQdrant(ctx, quadrantInstance)
		}
	})

	if quadrantInstance == nil {
		return nil
	}
	return &ClientHolder{
		QObj:      quadrantInstance,
		manifests: make(map[string]vectordb.Manifest),
	}
}

func newClient() *qdrant.Client {
	host := os.Getenv("QDRANT_HOST")
	port, er := strconv.Atoi(os.Getenv("QDRANT_PORT"))

	if host == "" || er != nil {
		host = config.QdrantHost
		port = config.QdrantGrpcPort
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     host,
		Port:     port,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		logger.Error("could not instantiate: ", "error:", err)
		return nil
	}

	return client
}

func closeQdrant(ctx context.Context, qi *qdrant.Client) {
	<-ctx.Done()
	logger.Info("Shutting down Qdrant")
	err := qi.Close()
	if err != nil {
		logger.Error("could not close Qdrant: ", "error:", err)
	}
	logger.Info("Closed Qdrant")
}

func (db *ClientHolder) EnsureCollection(ctx context.Context, key vectordb.CollectionKey, manifest vectordb.Manifest) error {
	name := key.Name()

	db.mu.Lock()
	known, ok := db.manifests[name]
	db.mu.Unlock()
	if ok {
		if !known.Matches(manifest) {
			return known.MismatchError(manifest)
		}
		return nil
	}

	exists, err := db.QObj.CollectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		// Only the vector size survives in qdrant itself, the rest of
		// the manifest is tracked per process.
		info, err := db.QObj.GetCollectionInfo(ctx, name)
		if err != nil {
			return err
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if size != uint64(manifest.Dimension) {
			stored := manifest
			stored.Dimension = int(size)
			return stored.MismatchError(manifest)
		}
	} else {
		err = db.QObj.CreateCollection(ctx, &qdrant.CreateCollection{
			CollectionName: name,
			VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
				Size:     uint64(manifest.Dimension),
				Distance: qdrant.Distance_Cosine,
			}),
		})
		if err != nil {
			return err
		}
		logger.Info("Created collection", "collection", name)
	}

	db.mu.Lock()
	db.manifests[name] = manifest
	db.mu.Unlock()
	return nil
}

func (db *ClientHolder) Exists(ctx context.Context, key vectordb.CollectionKey) (bool, error) {
	return db.QObj.CollectionExists(ctx, key.Name())
}

func (db *ClientHolder) Search(ctx context.Context, key vectordb.CollectionKey, vectorFloat []float32, k int) ([]docmodel.ScoredChunk, error) {
	loggr := logger.With("traceId", ctx.Value(config.TRACE_ID_KEY))

	result, err := db.QObj.Query(ctx, &qdrant.QueryPoints{
		CollectionName: key.Name(),
		Query:          qdrant.NewQuery(vectorFloat...),
		Limit:          qdrant.PtrOf(uint64(k)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		loggr.Error("Error querying Qdrant: ", "error:", err)
		return nil, err
	}

	var matches []docmodel.ScoredChunk
	for _, hit := range result {
		matches = append(matches, docmodel.ScoredChunk{
			DocChunk: docmodel.DocChunk{
				Doc: docmodel.Document{
					ID:         hit.Payload["source_doc_id"].GetStringValue(),
					SourceName: hit.Payload["doc_name"].GetStringValue(),
					UserID:     key.UserID,
					Section:    key.Section,
				},
				ChunkID: hit.Payload["chunk_id"].GetStringValue(),
				Content: hit.Payload["content"].GetStringValue(),
				Ordinal: int(hit.Payload["chunk_order"].GetIntegerValue()),
			},
			Score: hit.GetScore(),
		})
	}

	loggr.Debug("Found matches", "count", len(matches))
	return matches, nil
}

func (db *ClientHolder) UpsertBatch(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(chunks))
	for i, chunk := range chunks {
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(chunk.ChunkID),
			Vectors: qdrant.NewVectors(vectors[i]...),
			Payload: qdrant.NewValueMap(map[string]any{
				"content":       chunk.Content,
				"source_doc_id": chunk.Doc.ID,
				"doc_name":      chunk.Doc.SourceName,
				"chunk_order":   chunk.Ordinal,
				"chunk_id":      chunk.ChunkID,
				"ingested_at":   chunk.Doc.IngestedAt.Unix(),
			}),
		}
	}

	_, err := db.QObj.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: key.Name(),
		Points:         qdrantPoints,
		Wait:           qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}

	return nil
}

func (db *ClientHolder) Drop(ctx context.Context, key vectordb.CollectionKey) error {
	db.mu.Lock()
	delete(db.manifests, key.Name())
	db.mu.Unlock()
	return db.QObj.DeleteCollection(ctx, key.Name())
}
