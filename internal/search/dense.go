package search

import (
	"context"

	"github.com/logscout/logscout/internal/embed"
	"github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/store"
)

// DenseResult is one hit from the dense (vector) branch.
type DenseResult struct {
	ID    string
	Text  string
	Score float64
}

// DenseRetriever is the vector-search branch of the fusion engine. The
// engine treats it as an oracle so tests can substitute a fake.
type DenseRetriever interface {
	Retrieve(ctx context.Context, query string, topK int) ([]DenseResult, error)
}

// VectorIndexRetriever implements DenseRetriever over an embedder and
// an HNSW store.
type VectorIndexRetriever struct {
	embedder embed.Embedder
	vectors  *store.HNSWStore
	texts    map[string]string
}

// NewVectorIndexRetriever builds the dense branch. texts maps document
// ID to content for the IDs present in the vector store.
func NewVectorIndexRetriever(embedder embed.Embedder, vectors *store.HNSWStore, docs []store.Document) *VectorIndexRetriever {
	texts := make(map[string]string, len(docs))
	for _, doc := range docs {
		texts[doc.ID] = doc.Text
	}
	return &VectorIndexRetriever{embedder: embedder, vectors: vectors, texts: texts}
}

// Retrieve embeds the query and returns the nearest documents.
func (r *VectorIndexRetriever) Retrieve(ctx context.Context, query string, topK int) ([]DenseResult, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeEmbeddingFailed, "embed query")
	}

	hits, err := r.vectors.Search(ctx, vector, topK)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSearchFailed, "vector search")
	}

	results := make([]DenseResult, 0, len(hits))
	for _, hit := range hits {
		text, ok := r.texts[hit.ID]
		if !ok {
			continue
		}
		results = append(results, DenseResult{
			ID:    hit.ID,
			Text:  text,
			Score: float64(hit.Score),
		})
	}
	return results, nil
}

var _ DenseRetriever = (*VectorIndexRetriever)(nil)
