package localdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

const manifestFile = "manifest.json"
const pointsFile = "points.json"

type point struct {
	ID     string            `json:"id"`
	Vector []float32         `json:"vector"`
	Chunk  docmodel.DocChunk `json:"chunk"`
}

type collection struct {
	Manifest vectordb.Manifest `json:"manifest"`
	Points   []point           `json:"points"`
}

// Store keeps each collection under <root>/<user>/<section> as plain JSON
// so a user's data survives restarts and can be wiped per section.
type Store struct {
	root   string
	mu     sync.RWMutex
	cache  map[string]*collection
	logger *logger_i.Logger
}

func NewStore(root string) *Store {
	return &Store{
		root:   root,
		cache:  make(map[string]*collection),
		logger: logger_i.NewLogger("LocalVectorDB"),
	}
}

func (s *Store) dir(key vectordb.CollectionKey) string {
	user, section := key.PathParts()
	return filepath.Join(s.root, user, section)
}

func (s *Store) EnsureCollection(ctx context.Context, key vectordb.CollectionKey, manifest vectordb.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.loadLocked(key)
	if err != nil && !errors.Is(err, vectordb.ErrCollectionNotFound) {
		return err
	}
	if coll != nil {
		if !coll.Manifest.Matches(manifest) {
			return coll.Manifest.MismatchError(manifest)
		}
		return nil
	}

	coll = &collection{Manifest: manifest}
	if err := s.persistLocked(key, coll); err != nil {
		return err
	}
	s.cache[key.Name()] = coll
	s.logger.Info("Created collection", "collection", key.Name())
	return nil
}

func (s *Store) Exists(ctx context.Context, key vectordb.CollectionKey) (bool, error) {
	s.mu.RLock()
	if _, ok := s.cache[key.Name()]; ok {
		s.mu.RUnlock()
		return true, nil
	}
	s.mu.RUnlock()

	_, err := os.Stat(filepath.Join(s.dir(key), manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *Store) UpsertBatch(ctx context.Context, key vectordb.CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("mismatch: got %d chunks but %d vectors", len(chunks), len(vectors))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	coll, err := s.loadLocked(key)
	if err != nil {
		return err
	}

	for i, chunk := range chunks {
		if len(vectors[i]) != coll.Manifest.Dimension {
			return fmt.Errorf("vector %d has dimension %d, collection expects %d", i, len(vectors[i]), coll.Manifest.Dimension)
		}
		coll.Points = append(coll.Points, point{
			ID:     chunk.ChunkID,
			Vector: vectors[i],
			Chunk:  chunk,
		})
	}

	return s.persistLocked(key, coll)
}

func (s *Store) Search(ctx context.Context, key vectordb.CollectionKey, vector []float32, k int) ([]docmodel.ScoredChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	coll, err := s.loadLockedRead(key)
	if err != nil {
		return nil, err
	}

	scored := make([]docmodel.ScoredChunk, 0, len(coll.Points))
	for _, p := range coll.Points {
		scored = append(scored, docmodel.ScoredChunk{
			DocChunk: p.Chunk,
			Score:    cosineSimilarity(vector, p.Vector),
		})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

func (s *Store) Drop(ctx context.Context, key vectordb.CollectionKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.cache, key.Name())
	if err := os.RemoveAll(s.dir(key)); err != nil {
		return fmt.Errorf("dropping collection %s: %w", key.Name(), err)
	}
	s.logger.Info("Dropped collection", "collection", key.Name())
	return nil
}

// loadLocked requires s.mu held for writing: it may populate the cache.
func (s *Store) loadLocked(key vectordb.CollectionKey) (*collection, error) {
	if coll, ok := s.cache[key.Name()]; ok {
		return coll, nil
	}

	coll, err := s.readFromDisk(key)
	if err != nil {
		return nil, err
	}
	s.cache[key.Name()] = coll
	return coll, nil
}

// loadLockedRead requires at least s.mu held for reading and never writes
// the cache.
func (s *Store) loadLockedRead(key vectordb.CollectionKey) (*collection, error) {
	if coll, ok := s.cache[key.Name()]; ok {
		return coll, nil
	}
	return s.readFromDisk(key)
}

func (s *Store) readFromDisk(key vectordb.CollectionKey) (*collection, error) {
	dir := s.dir(key)

	manifestData, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", vectordb.ErrCollectionNotFound, key.Name())
		}
		return nil, err
	}

	var coll collection
	if err := json.Unmarshal(manifestData, &coll.Manifest); err != nil {
		return nil, fmt.Errorf("corrupt manifest for %s: %w", key.Name(), err)
	}

	pointsData, err := os.ReadFile(filepath.Join(dir, pointsFile))
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
	} else if err := json.Unmarshal(pointsData, &coll.Points); err != nil {
		return nil, fmt.Errorf("corrupt points for %s: %w", key.Name(), err)
	}

	return &coll, nil
}

func (s *Store) persistLocked(key vectordb.CollectionKey, coll *collection) error {
	dir := s.dir(key)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	if err := writeAtomic(filepath.Join(dir, manifestFile), coll.Manifest); err != nil {
		return err
	}
	return writeAtomic(filepath.Join(dir, pointsFile), coll.Points)
}

func writeAtomic(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(normA) * math.Sqrt(normB)))
}
