package search

import (
	"context"
	"log/slog"
	"sort"
)

// HybridReranker combines the rule reranker with a cross-scorer pass in
// a convex combination. With no usable scorer the model side falls back
// to the original scores, so the combination degrades gracefully toward
// the rule-only behavior.
type HybridReranker struct {
	rule       *RuleReranker
	cross      *CrossEncoderReranker
	ruleWeight float64
	logger     *slog.Logger
}

// NewHybridReranker creates a hybrid reranker. ruleWeight is the share
// of the rule score; values outside [0, 1] reset to the 0.5 default.
// scorer may be nil.
func NewHybridReranker(scorer CrossScorer, ruleWeight float64) *HybridReranker {
	if ruleWeight < 0 || ruleWeight > 1 {
		ruleWeight = 0.5
	}
	h := &HybridReranker{
		rule:       NewRuleReranker(),
		ruleWeight: ruleWeight,
		logger:     slog.Default(),
	}
	if scorer != nil {
		h.cross = NewCrossEncoderReranker(scorer)
	}
	return h
}

// Rerank combines ruleWeight of the rule pass score with the remainder
// from the cross pass score, per result, then sorts descending.
func (h *HybridReranker) Rerank(ctx context.Context, query string, results []*RetrievalResult, topK int) []*RetrievalResult {
	if len(results) == 0 {
		return results
	}

	ruleScores := h.rule.blendedScores(query, results)

	modelScores := make([]float64, len(results))
	for i, r := range results {
		modelScores[i] = r.Score
	}
	if h.cross != nil && h.cross.scorer != nil && h.cross.scorer.Available() {
		if scores, ok := h.cross.blendedScores(ctx, query, results); ok {
			modelScores = scores
		}
	}

	reranked := cloneResults(results)
	modelWeight := 1 - h.ruleWeight
	for i, result := range reranked {
		result.Score = h.ruleWeight*ruleScores[i] + modelWeight*modelScores[i]
	}

	sort.SliceStable(reranked, func(i, j int) bool {
		return reranked[i].Score > reranked[j].Score
	})
	if topK > 0 && len(reranked) > topK {
		reranked = reranked[:topK]
	}
	return reranked
}

var _ Reranker = (*HybridReranker)(nil)
