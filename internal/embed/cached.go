package embed

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbedder wraps an Embedder with an in-memory LRU cache. Queries
// repeat heavily in interactive use; log lines repeat across re-indexing.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with an LRU of the given size.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = 4096
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// cacheKey includes the model name so switching models never serves
// stale vectors.
func (e *CachedEmbedder) cacheKey(text string) string {
	sum := sha256.Sum256([]byte(e.inner.ModelName() + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Embed returns a cached vector or delegates to the inner embedder.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := e.cacheKey(text)
	if v, ok := e.cache.Get(key); ok {
		return v, nil
	}
	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, v)
	return v, nil
}

// EmbedBatch serves cached entries and batches the misses into one
// inner call.
func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, text := range texts {
		if v, ok := e.cache.Get(e.cacheKey(text)); ok {
			vectors[i] = v
		} else {
			missTexts = append(missTexts, text)
			missIdx = append(missIdx, i)
		}
	}
	if len(missTexts) == 0 {
		return vectors, nil
	}

	slog.Debug("embedding cache misses",
		slog.Int("total", len(texts)),
		slog.Int("misses", len(missTexts)))

	computed, err := e.inner.EmbedBatch(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, v := range computed {
		vectors[missIdx[j]] = v
		e.cache.Add(e.cacheKey(missTexts[j]), v)
	}
	return vectors, nil
}

// Dimensions delegates to the inner embedder.
func (e *CachedEmbedder) Dimensions() int { return e.inner.Dimensions() }

// ModelName delegates to the inner embedder.
func (e *CachedEmbedder) ModelName() string { return e.inner.ModelName() }

// Close purges the cache and closes the inner embedder.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}

var _ Embedder = (*CachedEmbedder)(nil)
