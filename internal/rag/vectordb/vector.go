package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
)

// ErrEmbeddingMismatch is returned when a collection was built with a
// different embedding configuration than the one now being used.
var ErrEmbeddingMismatch = errors.New("collection embedding configuration mismatch")

var ErrCollectionNotFound = errors.New("collection not found")

// CollectionKey identifies one user's isolated vector space for a section.
type CollectionKey struct {
	UserID  string
	Section string
}

func (k CollectionKey) Name() string {
	return sanitize(k.UserID) + "__" + sanitize(k.Section)
}

// PathParts returns filesystem-safe directory components for stores that
// lay collections out as <root>/<user>/<section>.
func (k CollectionKey) PathParts() (string, string) {
	return sanitize(k.UserID), sanitize(k.Section)
}

// sanitize maps an identifier to a filesystem- and collection-safe name.
// Runes outside [a-z0-9] become _<hex> per byte, so the mapping is
// injective: distinct IDs can never collapse onto the same collection.
func sanitize(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			for _, c := range []byte(string(r)) {
				fmt.Fprintf(&b, "_%02x", c)
			}
		}
	}
	return b.String()
}

// Manifest records how a collection's vectors were produced. A collection
// only ever accepts vectors matching its manifest.
type Manifest struct {
	EmbeddingMode  string `json:"embeddingMode"`
	EmbeddingModel string `json:"embeddingModel"`
	Dimension      int    `json:"dimension"`
}

func (m Manifest) Matches(other Manifest) bool {
	return m.EmbeddingMode == other.EmbeddingMode &&
		m.EmbeddingModel == other.EmbeddingModel &&
		m.Dimension == other.Dimension
}

func (m Manifest) MismatchError(other Manifest) error {
	return fmt.Errorf("%w: collection built with %s/%s dim=%d, got %s/%s dim=%d",
		ErrEmbeddingMismatch,
		m.EmbeddingMode, m.EmbeddingModel, m.Dimension,
		other.EmbeddingMode, other.EmbeddingModel, other.Dimension)
}

type DataProcessor interface {
	// EnsureCollection creates the collection if absent and verifies the
	// manifest if present, returning ErrEmbeddingMismatch on conflict.
	EnsureCollection(ctx context.Context, key CollectionKey, manifest Manifest) error
	Exists(ctx context.Context, key CollectionKey) (bool, error)
	UpsertBatch(ctx context.Context, key CollectionKey, chunks []docmodel.DocChunk, vectors [][]float32) error
	Search(ctx context.Context, key CollectionKey, vector []float32, k int) ([]docmodel.ScoredChunk, error)
	Drop(ctx context.Context, key CollectionKey) error
}
