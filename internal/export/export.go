package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/laxjovial/assistant-core/internal/config"
	"github.com/laxjovial/assistant-core/internal/domain/docmodel"
	"github.com/laxjovial/assistant-core/internal/rag/vectordb"
	"github.com/laxjovial/assistant-core/pkg/logger_i"
)

var ErrUnsupportedFormat = errors.New("unsupported export format")

var formats = map[string]bool{
	"txt":  true,
	"json": true,
	"md":   true,
}

// Writer persists assistant output under <dataDir>/exports/<user>/<section>.
// Files are timestamp-named and never overwritten unless the caller supplies
// an explicit filename.
type Writer struct {
	dataDir string
	now     func() time.Time
	logger  *logger_i.Logger
}

func NewWriter(dataDir string) *Writer {
	return &Writer{
		dataDir: dataDir,
		now:     time.Now,
		logger:  logger_i.NewLogger("Export"),
	}
}

func (w *Writer) dir(userID, section string) (string, error) {
	key := vectordb.CollectionKey{UserID: userID, Section: section}
	user, sec := key.PathParts()
	dir := filepath.Join(w.dataDir, config.ExportRoot, user, sec)
	return dir, os.MkdirAll(dir, 0755)
}

// Response saves a single response string. format is one of txt, json, md;
// json output wraps the text as {"response": ...}.
func (w *Writer) Response(text string, userID string, section string, format string, filename string) (string, error) {
	if !formats[format] {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	dir, err := w.dir(userID, section)
	if err != nil {
		return "", err
	}

	if filename == "" {
		filename = fmt.Sprintf("response_%s.%s", w.now().Format("20060102_150405"), format)
	} else if !strings.HasSuffix(filename, "."+format) {
		filename = filename + "." + format
	}
	path := filepath.Join(dir, filepath.Base(filename))

	var data []byte
	switch format {
	case "txt", "md":
		data = []byte(text)
	case "json":
		data, err = json.MarshalIndent(map[string]string{"response": text}, "", "  ")
		if err != nil {
			return "", err
		}
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", err
	}
	w.logger.Info("Exported response", "path", path)
	return path, nil
}

// VectorResults renders a query result as markdown, one block per chunk
// with its source metadata.
func (w *Writer) VectorResults(result docmodel.QueryResult) (string, error) {
	dir, err := w.dir(result.UserID, result.Section)
	if err != nil {
		return "", err
	}

	filename := fmt.Sprintf("vector_query_%s.md", w.now().Format("20060102_150405"))
	path := filepath.Join(dir, filename)

	var b strings.Builder
	fmt.Fprintf(&b, "## Vector Query Results: '%s'\n\n", result.Query)
	fmt.Fprintf(&b, "### Section: %s\n\n", capitalize(result.Section))
	for i, chunk := range result.Chunks {
		fmt.Fprintf(&b, "--- Result %d ---\n", i+1)
		b.WriteString(strings.TrimSpace(chunk.Content))

		meta, err := json.Marshal(map[string]any{
			"source":   chunk.Doc.SourceName,
			"chunk_id": chunk.ChunkID,
			"ordinal":  chunk.Ordinal,
			"score":    chunk.Score,
		})
		if err == nil {
			b.WriteString("\n**Metadata:** ")
			b.Write(meta)
		}
		b.WriteString("\n\n")
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", err
	}
	w.logger.Info("Exported vector results", "path", path, "chunks", len(result.Chunks))
	return path, nil
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
