// Package embed provides text embedding for log retrieval.
//
// Two implementations exist: a deterministic hash-based embedder that
// works offline, and an OpenAI-compatible API client. Both can be
// wrapped with an LRU cache.
package embed

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed embedder.
var ErrClosed = errors.New("embedder is closed")

// Embedder turns text into fixed-size vectors.
type Embedder interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch generates embeddings for multiple texts, preserving order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Dimensions returns the embedding dimensionality.
	Dimensions() int
	// ModelName identifies the model for cache keying and diagnostics.
	ModelName() string
	// Close releases resources.
	Close() error
}
