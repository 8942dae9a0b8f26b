package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"sync"

	"github.com/logscout/logscout/internal/store"
)

// StaticDimensions is the vector size of the hash embedder.
const StaticDimensions = 256

const (
	staticTokenWeight = 0.7
	staticNgramWeight = 0.3
	staticNgramSize   = 3
)

// StaticEmbedder generates deterministic hash-based embeddings with no
// network or model dependency. Quality is below a real model but it
// keeps lexically similar log lines close, which is enough for the
// dense branch to contribute when no API is configured.
type StaticEmbedder struct {
	mu     sync.RWMutex
	closed bool
}

// NewStaticEmbedder creates a hash-based embedder.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{}
}

// Embed generates an embedding for text. Empty input yields the zero
// vector.
func (e *StaticEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	e.mu.RLock()
	closed := e.closed
	e.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}

	vector := make([]float32, StaticDimensions)
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return vector, nil
	}

	// Whole tokens carry most of the signal; character trigrams add
	// partial-match robustness for identifiers and CJK runs.
	for _, token := range store.Tokenize(trimmed) {
		vector[hashToIndex(token)] += staticTokenWeight
	}
	runes := []rune(strings.ToLower(trimmed))
	for i := 0; i+staticNgramSize <= len(runes); i++ {
		vector[hashToIndex(string(runes[i:i+staticNgramSize]))] += staticNgramWeight
	}

	normalizeStatic(vector)
	return vector, nil
}

// EmbedBatch embeds texts one by one.
func (e *StaticEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vectors[i] = v
	}
	return vectors, nil
}

// Dimensions returns StaticDimensions.
func (e *StaticEmbedder) Dimensions() int { return StaticDimensions }

// ModelName identifies this embedder.
func (e *StaticEmbedder) ModelName() string { return "static-hash-256" }

// Close marks the embedder closed.
func (e *StaticEmbedder) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	return nil
}

func hashToIndex(s string) int {
	h := fnv.New32a()
	h.Write([]byte(s))
	return int(h.Sum32() % StaticDimensions)
}

func normalizeStatic(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}

var _ Embedder = (*StaticEmbedder)(nil)
