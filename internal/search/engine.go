package search

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/store"
)

// Engine fuses dense vector retrieval with BM25 over a fixed corpus.
// Construction validates its inputs hard; retrieval degrades softly,
// falling back to whichever branch still works.
type Engine struct {
	cfg    EngineConfig
	dense  DenseRetriever
	docs   []store.Document
	bm25   *store.BM25Index
	logger *slog.Logger

	// content key -> metadata, for attaching metadata to dense hits
	metaByKey map[string]store.LogMetadata
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithEngineConfig replaces the full fusion configuration.
func WithEngineConfig(cfg EngineConfig) EngineOption {
	return func(e *Engine) { e.cfg = cfg }
}

// WithEngineLogger overrides the default logger.
func WithEngineLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a fusion engine. alpha weights the dense branch and
// must be in [0, 1]; docs must be non-empty; dense must be non-nil.
// A BM25 build failure is not fatal: the engine logs it and serves
// dense-only results.
func NewEngine(dense DenseRetriever, docs []store.Document, alpha float64, opts ...EngineOption) (*Engine, error) {
	if dense == nil {
		return nil, errors.InvalidArgument("dense retriever is required")
	}
	if len(docs) == 0 {
		return nil, errors.InvalidArgument("documents must be non-empty")
	}
	if alpha < 0 || alpha > 1 {
		return nil, errors.Newf(errors.ErrCodeInvalidWeight, "alpha must be in [0, 1], got %g", alpha)
	}

	e := &Engine{
		cfg:    DefaultEngineConfig(alpha),
		dense:  dense,
		docs:   make([]store.Document, len(docs)),
		logger: slog.Default(),
	}
	copy(e.docs, docs)
	for _, opt := range opts {
		opt(e)
	}
	e.cfg.Alpha = alpha

	for i := range e.docs {
		if e.docs[i].Metadata == (store.LogMetadata{}) {
			e.docs[i].Metadata = store.ParseLogMetadata(e.docs[i].Text)
		}
	}
	e.metaByKey = make(map[string]store.LogMetadata, len(e.docs))
	for _, doc := range e.docs {
		key := e.contentKey(doc.Text)
		if _, exists := e.metaByKey[key]; !exists {
			e.metaByKey[key] = doc.Metadata
		}
	}

	texts := make([]string, len(e.docs))
	for i, doc := range e.docs {
		texts[i] = doc.Text
	}
	bm25, err := store.NewBM25IndexFromTexts(texts, store.DefaultBM25Config())
	if err != nil {
		e.logger.Warn("lexical index build failed, serving dense-only results",
			slog.String("error", err.Error()))
	} else {
		e.bm25 = bm25
	}

	e.logger.Info("fusion engine ready",
		slog.Int("documents", len(e.docs)),
		slog.Float64("alpha", alpha),
		slog.Bool("bm25_enabled", e.bm25 != nil))
	return e, nil
}

// Retrieve runs hybrid retrieval for query. filters may be nil. An
// empty (after trimming) query returns an empty result set without
// error; a non-positive topK is an invalid argument.
func (e *Engine) Retrieve(ctx context.Context, query string, topK int, filters *Filters) ([]*RetrievalResult, error) {
	if topK <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidTopK, "top_k must be positive, got %d", topK)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		e.logger.Warn("empty query, returning no results")
		return []*RetrievalResult{}, nil
	}

	candidates := topK * 2
	if candidates > e.cfg.CandidateLimit {
		candidates = e.cfg.CandidateLimit
	}

	// Both branches run in parallel and fail soft: a branch that errors
	// contributes nothing and the other carries the query.
	var denseResults, sparseResults []*RetrievalResult
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		results, err := e.denseRetrieve(gctx, query, candidates)
		if err != nil {
			e.logger.Error("dense retrieval failed", slog.String("error", err.Error()))
			return nil
		}
		denseResults = results
		return nil
	})
	g.Go(func() error {
		sparseResults = e.sparseRetrieve(query, candidates)
		return nil
	})
	_ = g.Wait()

	if len(denseResults) == 0 && len(sparseResults) == 0 {
		e.logger.Warn("no results from either branch", slog.String("query", query))
		return []*RetrievalResult{}, nil
	}

	merged := e.mergeResults(denseResults, sparseResults)

	if filters != nil && !filters.Empty() {
		merged = e.applyFilters(merged, *filters)
	}
	if e.cfg.BoostSeverity {
		e.boostBySeverity(merged)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	assignRanks(merged)
	return merged, nil
}

func (e *Engine) denseRetrieve(ctx context.Context, query string, topK int) ([]*RetrievalResult, error) {
	hits, err := e.dense.Retrieve(ctx, query, topK)
	if err != nil {
		return nil, err
	}
	results := make([]*RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		md, ok := e.metaByKey[e.contentKey(hit.Text)]
		if !ok {
			// A hit from outside the corpus snapshot still gets parsed
			// metadata so severity boosting and filtering see real
			// values instead of zeroes.
			md = store.ParseLogMetadata(hit.Text)
		}
		results = append(results, &RetrievalResult{
			Content:  hit.Text,
			Score:    hit.Score,
			Metadata: md,
			Source:   SourceVector,
			NodeID:   hit.ID,
		})
	}
	return results, nil
}

// sparseRetrieve scores the whole corpus with BM25 and returns the
// positive-scoring documents, best first, capped at topK.
func (e *Engine) sparseRetrieve(query string, topK int) []*RetrievalResult {
	if e.bm25 == nil {
		return nil
	}
	tokens := store.Tokenize(query)
	if len(tokens) == 0 {
		return nil
	}

	scores := e.bm25.Scores(tokens)
	matching := scores[:0]
	for _, s := range scores {
		if s.Score > 0 {
			matching = append(matching, s)
		}
	}
	// Ties keep corpus order.
	sort.SliceStable(matching, func(i, j int) bool {
		return matching[i].Score > matching[j].Score
	})
	if len(matching) > topK {
		matching = matching[:topK]
	}

	results := make([]*RetrievalResult, 0, len(matching))
	for _, s := range matching {
		doc := e.docs[s.Index]
		results = append(results, &RetrievalResult{
			Content:  doc.Text,
			Score:    s.Score,
			Metadata: doc.Metadata,
			Source:   SourceBM25,
			NodeID:   doc.ID,
		})
	}
	return results
}

// Statistics reports corpus and configuration diagnostics.
func (e *Engine) Statistics() Statistics {
	stats := Statistics{
		TotalDocuments:      len(e.docs),
		LevelDistribution:   make(map[string]int),
		ServiceDistribution: make(map[string]int),
		Alpha:               e.cfg.Alpha,
		Beta:                1 - e.cfg.Alpha,
		BM25Enabled:         e.bm25 != nil,
	}
	for _, doc := range e.docs {
		if doc.Metadata.Level != "" {
			stats.LevelDistribution[doc.Metadata.Level]++
		}
		if doc.Metadata.Service != "" {
			stats.ServiceDistribution[doc.Metadata.Service]++
		}
	}
	return stats
}
