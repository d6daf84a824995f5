package docmodel

import "time"

type DocType string

var (
	PDF  DocType = "PDF"
	TXT  DocType = "TXT"
	CSV  DocType = "CSV"
	MD   DocType = "MD"
	DOCX DocType = "DOCX"
	ERR  DocType = "ERROR"
)

// Document is the ephemeral ingestion-time description of an uploaded file.
// StoredName is the uuid-based filename the raw bytes were persisted under;
// SourceName is what the user called it.
type Document struct {
	ID          string    `json:"source_doc_id"`
	SourceName  string    `json:"doc_name"`
	StoredName  string    `json:"stored_name"`
	UserID      string    `json:"user_id"`
	Section     string    `json:"section"`
	ContentType DocType   `json:"content_type"`
	IngestedAt  time.Time `json:"ingested_at"`

	// Path is where the raw upload lives on disk. Never serialized into
	// chunk metadata.
	Path string `json:"-"`
}

// DocChunk is the unit of embedding and retrieval: a bounded substring of
// the extracted text with its back-reference into the source document.
type DocChunk struct {
	Doc     Document `json:"doc"`
	ChunkID string   `json:"chunk_id"`
	Content string   `json:"content"`
	Ordinal int      `json:"ordinal"`
}

// ScoredChunk is a DocChunk plus the similarity score the store reported.
type ScoredChunk struct {
	DocChunk
	Score float32 `json:"score"`
}

// QueryResult is the ordered nearest-first outcome of a retrieval call.
type QueryResult struct {
	Query   string        `json:"query"`
	UserID  string        `json:"user_id"`
	Section string        `json:"section"`
	Chunks  []ScoredChunk `json:"chunks"`
}
