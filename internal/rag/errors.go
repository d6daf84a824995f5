package rag

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFileType rejects uploads whose extension is not in the
// ingestion allow-list. Nothing is written to disk when this fires.
var ErrUnsupportedFileType = errors.New("unsupported file type")

var ErrNoIndex = errors.New("no indexed data for section")

// IngestionError marks a failure inside the ingestion pipeline. The raw
// upload stays on disk for diagnostics; no partial chunks are indexed.
type IngestionError struct {
	Stage string
	Err   error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("ingestion failed at %s: %v", e.Stage, e.Err)
}

func (e *IngestionError) Unwrap() error {
	return e.Err
}
