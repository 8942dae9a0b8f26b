package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/llm"
)

// Retriever is the retrieval façade: query optimization, hybrid
// fusion, reranking, and answer generation behind one entry point.
// Every stage past construction degrades instead of failing the call.
type Retriever struct {
	engine    *Engine
	optimizer *Optimizer
	reranker  Reranker
	completer llm.Completer
	logger    *slog.Logger
}

// RetrieverOption configures a Retriever.
type RetrieverOption func(*Retriever)

// WithReranker replaces the default rule reranker. A nil reranker is
// ignored and the default stays in place.
func WithReranker(r Reranker) RetrieverOption {
	return func(rt *Retriever) {
		if r != nil {
			rt.reranker = r
		}
	}
}

// WithRetrieverCompleter enables answer generation (Ask).
func WithRetrieverCompleter(c llm.Completer) RetrieverOption {
	return func(rt *Retriever) { rt.completer = c }
}

// WithRetrieverLogger overrides the default logger.
func WithRetrieverLogger(l *slog.Logger) RetrieverOption {
	return func(rt *Retriever) { rt.logger = l }
}

// NewRetriever builds the façade around an already-constructed engine.
func NewRetriever(engine *Engine, optimizer *Optimizer, opts ...RetrieverOption) (*Retriever, error) {
	if engine == nil {
		return nil, errors.InvalidArgument("engine is required")
	}
	if optimizer == nil {
		optimizer = NewOptimizer()
	}
	r := &Retriever{
		engine:    engine,
		optimizer: optimizer,
		reranker:  NewRuleReranker(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Retrieve runs the full pipeline. When filters is nil the optimizer's
// suggested filters are used; pass an empty Filters to disable
// filtering entirely.
func (r *Retriever) Retrieve(ctx context.Context, query string, topK int, filters *Filters) ([]*RetrievalResult, error) {
	if filters == nil {
		suggested := r.optimizer.SuggestFilters(query)
		filters = &suggested
	}

	searchQuery := r.optimizer.EnhanceQuery(query)
	if strings.TrimSpace(searchQuery) == "" {
		searchQuery = query
	}

	results, err := r.engine.Retrieve(ctx, searchQuery, topK, filters)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return results, nil
	}

	// Reranking is scored against what the user actually asked, not
	// the expanded retrieval query.
	reranked := r.reranker.Rerank(ctx, query, results, topK)
	if len(reranked) == 0 {
		r.logger.Warn("reranker returned nothing, keeping pre-rerank order")
		return results, nil
	}
	assignRanks(reranked)
	return reranked, nil
}

// RetrieveWithContext retrieves and then deduplicates by full content,
// preserving rank order. The context window hook exists for corpora
// with positional adjacency; plain deduplication is what survives for
// unordered log dumps.
func (r *Retriever) RetrieveWithContext(ctx context.Context, query string, topK int, filters *Filters) ([]*RetrievalResult, error) {
	results, err := r.Retrieve(ctx, query, topK, filters)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool, len(results))
	deduped := results[:0]
	for _, result := range results {
		if !seen[result.Content] {
			seen[result.Content] = true
			deduped = append(deduped, result)
		}
	}
	assignRanks(deduped)
	return deduped, nil
}

// BuildLogContext joins results into the context block consumed by the
// generation prompt, one numbered entry per result.
func BuildLogContext(results []*RetrievalResult) string {
	var b strings.Builder
	for i, result := range results {
		fmt.Fprintf(&b, "log %d: %s\n\n", i+1, result.Content)
	}
	return b.String()
}

const askPrompt = `## 相关历史日志参考:
%s
## 当前需要分析的问题:
%s

请基于以上信息，提供详细的分析报告:`

// Answer is the result of an Ask call.
type Answer struct {
	Response string             `json:"response"`
	Results  []*RetrievalResult `json:"results"`
}

// Ask retrieves relevant logs and generates an analysis report from
// them. It requires a configured completer.
func (r *Retriever) Ask(ctx context.Context, query string, topK int) (*Answer, error) {
	if r.completer == nil {
		return nil, errors.New(errors.ErrCodeConfigInvalid, "no llm configured for answer generation")
	}

	results, err := r.Retrieve(ctx, query, topK, nil)
	if err != nil {
		return nil, err
	}

	response, err := r.completer.Complete(ctx, fmt.Sprintf(askPrompt, BuildLogContext(results), query))
	if err != nil {
		// The retrieval already succeeded; a generation failure
		// degrades to an error message instead of losing the results.
		r.logger.Warn("answer generation failed", "error", err)
		return &Answer{
			Response: fmt.Sprintf("生成回答时出现错误: %v", err),
			Results:  results,
		}, nil
	}
	return &Answer{Response: response, Results: results}, nil
}

// ErrorPattern is one error category's share of the retrieved results.
type ErrorPattern struct {
	Category string  `json:"category"`
	Count    int     `json:"count"`
	Share    float64 `json:"share"`
}

// AnalyzeErrorPatterns retrieves logs matching the query and buckets
// them by known error categories, most frequent first.
func (r *Retriever) AnalyzeErrorPatterns(ctx context.Context, query string, topK int) ([]ErrorPattern, error) {
	results, err := r.Retrieve(ctx, query, topK, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, nil
	}

	counts := make(map[string]int)
	for _, result := range results {
		if category := r.optimizer.ExtractErrorType(result.Content); category != "" {
			counts[category]++
		}
	}

	patterns := make([]ErrorPattern, 0, len(counts))
	for category, count := range counts {
		patterns = append(patterns, ErrorPattern{
			Category: category,
			Count:    count,
			Share:    float64(count) / float64(len(results)),
		})
	}
	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Count != patterns[j].Count {
			return patterns[i].Count > patterns[j].Count
		}
		return patterns[i].Category < patterns[j].Category
	})
	return patterns, nil
}

// Statistics exposes the underlying engine's corpus statistics.
func (r *Retriever) Statistics() Statistics {
	return r.engine.Statistics()
}
