package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/llm"
)

// CrossScorer scores query-document pairs jointly. It stands in for a
// cross-encoder model; the production implementation delegates to an
// LLM.
type CrossScorer interface {
	// Score returns one relevance score in [0, 1] per document.
	Score(ctx context.Context, query string, docs []string) ([]float64, error)
	// Available reports whether the scorer can currently serve requests.
	Available() bool
}

// CrossEncoderReranker reranks by blending the original retrieval score
// with a cross-scorer's judgment, half and half. When the scorer is
// unavailable or fails, results pass through unchanged.
type CrossEncoderReranker struct {
	scorer CrossScorer
	logger *slog.Logger
}

// NewCrossEncoderReranker creates a cross-encoder reranker. scorer may
// be nil, which makes the reranker a pass-through.
func NewCrossEncoderReranker(scorer CrossScorer) *CrossEncoderReranker {
	return &CrossEncoderReranker{scorer: scorer, logger: slog.Default()}
}

// Rerank scores all results in one scorer call and re-sorts.
func (r *CrossEncoderReranker) Rerank(ctx context.Context, query string, results []*RetrievalResult, topK int) []*RetrievalResult {
	if len(results) == 0 {
		return results
	}
	if r.scorer == nil || !r.scorer.Available() {
		r.logger.Warn("cross scorer unavailable, skipping rerank")
		return results
	}

	scores, ok := r.blendedScores(ctx, query, results)
	if !ok {
		return results
	}

	reranked := cloneResults(results)
	for i, result := range reranked {
		result.Score = scores[i]
	}
	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}

// blendedScores returns, per input position, 0.5 of the original score
// plus 0.5 of the scorer's judgment. ok is false when the scorer failed
// and the caller should keep original scores.
func (r *CrossEncoderReranker) blendedScores(ctx context.Context, query string, results []*RetrievalResult) ([]float64, bool) {
	docs := make([]string, len(results))
	for i, result := range results {
		docs[i] = result.Content
	}
	scores, err := r.scorer.Score(ctx, query, docs)
	if err != nil {
		r.logger.Error("cross scoring failed, keeping original order",
			slog.String("error", err.Error()))
		return nil, false
	}
	if len(scores) != len(results) {
		r.logger.Error("cross scorer returned wrong count, keeping original order",
			slog.Int("expected", len(results)), slog.Int("got", len(scores)))
		return nil, false
	}
	blended := make([]float64, len(results))
	for i, result := range results {
		blended[i] = 0.5*result.Score + 0.5*scores[i]
	}
	return blended, true
}

var _ Reranker = (*CrossEncoderReranker)(nil)

const crossScorePrompt = `You are scoring log entries for relevance to a query.

Query: %s

Log entries:
%s

Rate each entry's relevance to the query from 0.0 (irrelevant) to 1.0
(highly relevant). Return ONLY a JSON array of numbers, one per entry,
in the same order. Example: [0.9, 0.1, 0.5]`

// LLMCrossScorer implements CrossScorer on top of a chat completer.
type LLMCrossScorer struct {
	completer llm.Completer
}

// NewLLMCrossScorer wraps a completer as a cross scorer.
func NewLLMCrossScorer(completer llm.Completer) *LLMCrossScorer {
	return &LLMCrossScorer{completer: completer}
}

// Score asks the model to rate every document in one request.
func (s *LLMCrossScorer) Score(ctx context.Context, query string, docs []string) ([]float64, error) {
	var b strings.Builder
	for i, doc := range docs {
		fmt.Fprintf(&b, "%d. %s\n", i+1, doc)
	}

	response, err := s.completer.Complete(ctx, fmt.Sprintf(crossScorePrompt, query, b.String()))
	if err != nil {
		return nil, err
	}

	var scores []float64
	if err := json.Unmarshal([]byte(extractJSONArray(response)), &scores); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "parse relevance scores")
	}
	if len(scores) != len(docs) {
		return nil, errors.Newf(errors.ErrCodeInternal,
			"expected %d scores, got %d", len(docs), len(scores))
	}
	for i, score := range scores {
		scores[i] = clamp01(score)
	}
	return scores, nil
}

// Available delegates to the completer.
func (s *LLMCrossScorer) Available() bool {
	return s.completer != nil && s.completer.Available()
}

func extractJSONArray(s string) string {
	start := strings.Index(s, "[")
	end := strings.LastIndex(s, "]")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}

var _ CrossScorer = (*LLMCrossScorer)(nil)
