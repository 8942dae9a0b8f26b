package store

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Document is one log entry in the corpus.
type Document struct {
	// ID is stable across runs, derived from content when not supplied.
	ID string `json:"id"`
	// Text is the raw log line or snippet.
	Text string `json:"text"`
	// Metadata holds fields extracted from Text.
	Metadata LogMetadata `json:"metadata"`
}

// NewDocument builds a document with a content-derived ID and extracted
// metadata.
func NewDocument(text string) Document {
	return Document{
		ID:       ContentID(text),
		Text:     text,
		Metadata: ParseLogMetadata(text),
	}
}

// ContentID derives a stable document ID from content.
func ContentID(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:16])
}

// VectorResult is a single nearest-neighbor hit.
type VectorResult struct {
	ID       string
	Score    float32
	Distance float32
}

// VectorStoreConfig configures the HNSW store.
type VectorStoreConfig struct {
	// Dimensions is the embedding dimensionality. Required.
	Dimensions int
	// M is the HNSW connectivity parameter.
	M int
	// EfSearch is the search beam width.
	EfSearch int
}

// ErrDimensionMismatch reports a vector with the wrong dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Got      int
}

func (e ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("vector dimension mismatch: expected %d, got %d", e.Expected, e.Got)
}
