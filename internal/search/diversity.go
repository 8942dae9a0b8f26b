package search

import (
	"context"
	"log/slog"
	"math"
	"regexp"
	"strings"
)

var diversityTokenPattern = regexp.MustCompile(`[\w\x{4e00}-\x{9fff}]+`)

// DiversityReranker applies maximal marginal relevance on top of a base
// reranker: each pick balances relevance against similarity to what was
// already picked, so near-duplicate log lines stop crowding the top.
type DiversityReranker struct {
	base            Reranker
	diversityWeight float64
	logger          *slog.Logger
}

// NewDiversityReranker creates an MMR reranker over base. base may be
// nil, which defaults to the rule reranker. diversityWeight is the MMR
// lambda: 0 keeps the base order, 1 ranks purely by dissimilarity.
// Values outside [0, 1] reset to the 0.3 default.
func NewDiversityReranker(base Reranker, diversityWeight float64) *DiversityReranker {
	if base == nil {
		base = NewRuleReranker()
	}
	if diversityWeight < 0 || diversityWeight > 1 {
		diversityWeight = 0.3
	}
	return &DiversityReranker{
		base:            base,
		diversityWeight: diversityWeight,
		logger:          slog.Default(),
	}
}

// Rerank runs the base reranker, then greedily selects by MMR score:
// (1-lambda)*relevance - lambda*maxSimilarityToSelected. The first pick
// is always the base ranking's top result. Strict greater-than
// comparison means ties keep the earlier (base-ranked) candidate, so
// lambda = 0 reproduces the base order exactly.
func (d *DiversityReranker) Rerank(ctx context.Context, query string, results []*RetrievalResult, topK int) []*RetrievalResult {
	if len(results) == 0 {
		return results
	}

	ranked := d.base.Rerank(ctx, query, results, 0)

	target := topK
	if target <= 0 || target > len(ranked) {
		target = len(ranked)
	}

	tokenSets := make([]map[string]bool, len(ranked))
	for i, r := range ranked {
		tokenSets[i] = diversityTokenSet(r.Content)
	}

	selected := make([]*RetrievalResult, 0, target)
	selectedIdx := make([]int, 0, target)
	remaining := make([]int, 0, len(ranked)-1)
	selected = append(selected, ranked[0])
	selectedIdx = append(selectedIdx, 0)
	for i := 1; i < len(ranked); i++ {
		remaining = append(remaining, i)
	}

	for len(remaining) > 0 && len(selected) < target {
		bestScore := math.Inf(-1)
		bestPos := 0
		for pos, idx := range remaining {
			maxSim := 0.0
			for _, sel := range selectedIdx {
				if sim := jaccard(tokenSets[idx], tokenSets[sel]); sim > maxSim {
					maxSim = sim
				}
			}
			mmr := (1-d.diversityWeight)*ranked[idx].Score - d.diversityWeight*maxSim
			if mmr > bestScore {
				bestScore = mmr
				bestPos = pos
			}
		}
		idx := remaining[bestPos]
		selected = append(selected, ranked[idx])
		selectedIdx = append(selectedIdx, idx)
		remaining = append(remaining[:bestPos], remaining[bestPos+1:]...)
	}

	d.logger.Debug("diversity rerank complete",
		slog.Int("input", len(results)),
		slog.Int("selected", len(selected)))
	return selected
}

func diversityTokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range diversityTokenPattern.FindAllString(strings.ToLower(text), -1) {
		set[tok] = true
	}
	return set
}

// jaccard is set intersection over union; empty sets are maximally
// dissimilar.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for tok := range a {
		if b[tok] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

var _ Reranker = (*DiversityReranker)(nil)
