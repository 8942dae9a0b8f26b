package search

import (
	"context"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// Reranker reorders retrieval results for a query. Implementations
// never fail the request: anything that goes wrong internally degrades
// to returning the input order.
type Reranker interface {
	// Rerank returns results reordered (and possibly truncated to topK
	// when topK > 0) with rewritten scores. The input slice is not
	// mutated.
	Rerank(ctx context.Context, query string, results []*RetrievalResult, topK int) []*RetrievalResult
}

// FeatureWeights holds the rule reranker's feature weights. They are
// hand-tuned; keep them summing to 1 so the rerank score stays in [0,1].
type FeatureWeights struct {
	TermCoverage   float64
	ExactMatch     float64
	KeywordDensity float64
	Severity       float64
	LengthPenalty  float64
	PositionBias   float64
}

// DefaultFeatureWeights returns the standard weights.
func DefaultFeatureWeights() FeatureWeights {
	return FeatureWeights{
		TermCoverage:   0.3,
		ExactMatch:     0.2,
		KeywordDensity: 0.15,
		Severity:       0.15,
		LengthPenalty:  0.1,
		PositionBias:   0.1,
	}
}

// RuleReranker scores results with lexical and metadata heuristics and
// blends the heuristic score with the original retrieval score.
type RuleReranker struct {
	weights FeatureWeights
	logger  *slog.Logger
}

// NewRuleReranker creates a rule-based reranker with default weights.
func NewRuleReranker() *RuleReranker {
	return &RuleReranker{weights: DefaultFeatureWeights(), logger: slog.Default()}
}

// NewRuleRerankerWithWeights creates a rule-based reranker with custom
// weights.
func NewRuleRerankerWithWeights(weights FeatureWeights) *RuleReranker {
	return &RuleReranker{weights: weights, logger: slog.Default()}
}

// Rerank scores each result, combines 0.6 of the original score with
// 0.4 of the heuristic score, and sorts descending.
func (r *RuleReranker) Rerank(ctx context.Context, query string, results []*RetrievalResult, topK int) []*RetrievalResult {
	if len(results) == 0 {
		return results
	}

	reranked := cloneResults(results)
	scores := r.blendedScores(query, reranked)
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

// blendedScores returns, per input position, 0.6 of the original score
// plus 0.4 of the weighted feature score. The input is not reordered.
func (r *RuleReranker) blendedScores(query string, results []*RetrievalResult) []float64 {
	total := len(results)
	scores := make([]float64, total)
	for idx, result := range results {
		features := r.extractFeatures(query, result, idx, total)
		rerankScore := r.weights.TermCoverage*features.termCoverage +
			r.weights.ExactMatch*features.exactMatch +
			r.weights.KeywordDensity*features.keywordDensity +
			r.weights.Severity*features.severity +
			r.weights.LengthPenalty*features.lengthPenalty +
			r.weights.PositionBias*features.positionBias
		scores[idx] = 0.6*result.Score + 0.4*rerankScore
	}
	return scores
}

type ruleFeatures struct {
	termCoverage   float64
	exactMatch     float64
	keywordDensity float64
	severity       float64
	lengthPenalty  float64
	positionBias   float64
}

func (r *RuleReranker) extractFeatures(query string, result *RetrievalResult, position, total int) ruleFeatures {
	content := result.Content
	return ruleFeatures{
		termCoverage:   termCoverage(query, content),
		exactMatch:     exactMatch(query, content),
		keywordDensity: keywordDensity(query, content),
		severity:       result.Metadata.SeverityScore,
		lengthPenalty:  lengthPenalty(content),
		positionBias:   1 - float64(position)/float64(total)*0.2,
	}
}

// termCoverage is the fraction of distinct query terms present in the
// content.
func termCoverage(query, content string) float64 {
	queryTerms := rerankTokenSet(query)
	if len(queryTerms) == 0 {
		return 0
	}
	contentTerms := rerankTokenSet(content)
	matched := 0
	for term := range queryTerms {
		if contentTerms[term] {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}

// exactMatch scores 1.0 for a full substring match, 0.5 for any
// space-delimited bigram match, 0 otherwise.
func exactMatch(query, content string) float64 {
	queryLower := strings.ToLower(query)
	contentLower := strings.ToLower(content)
	if strings.Contains(contentLower, queryLower) {
		return 1.0
	}
	words := strings.Fields(queryLower)
	for i := 0; i+1 < len(words); i++ {
		if strings.Contains(contentLower, words[i]+" "+words[i+1]) {
			return 0.5
		}
	}
	return 0
}

// keywordDensity is the query-term hit rate over the content tokens,
// scaled and capped at 1.
func keywordDensity(query, content string) float64 {
	contentTokens := rerankTokens(content)
	if len(contentTokens) == 0 {
		return 0
	}
	counts := make(map[string]int, len(contentTokens))
	for _, tok := range contentTokens {
		counts[tok]++
	}
	matches := 0
	for _, tok := range rerankTokens(query) {
		matches += counts[tok]
	}
	density := float64(matches) / float64(len(contentTokens)) * 10
	if density > 1 {
		return 1
	}
	return density
}

// lengthPenalty prefers contents between 50 and 500 runes: shorter
// scales down linearly, longer decays toward a 0.5 floor.
func lengthPenalty(content string) float64 {
	length := len([]rune(content))
	switch {
	case length >= 50 && length <= 500:
		return 1.0
	case length < 50:
		return float64(length) / 50
	default:
		penalty := 1 - float64(length-500)/1000
		if penalty < 0.5 {
			return 0.5
		}
		return penalty
	}
}

var (
	rerankCJKRuns   = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	rerankLatinRuns = regexp.MustCompile(`[a-zA-Z]+`)
	rerankDigitRuns = regexp.MustCompile(`\d+`)
)

// rerankTokens extracts CJK runs, lowercased Latin words, and digit
// runs. Coarser than the BM25 tokenizer: feature scoring wants whole
// CJK phrases, not per-character matches.
func rerankTokens(text string) []string {
	tokens := rerankCJKRuns.FindAllString(text, -1)
	tokens = append(tokens, rerankLatinRuns.FindAllString(strings.ToLower(text), -1)...)
	return append(tokens, rerankDigitRuns.FindAllString(text, -1)...)
}

func rerankTokenSet(text string) map[string]bool {
	set := make(map[string]bool)
	for _, tok := range rerankTokens(text) {
		set[tok] = true
	}
	return set
}

var _ Reranker = (*RuleReranker)(nil)

// NoopReranker keeps the fused order untouched. It still clones and
// truncates so callers get the usual ownership guarantees.
type NoopReranker struct{}

// Rerank returns the first topK results unchanged.
func (NoopReranker) Rerank(_ context.Context, _ string, results []*RetrievalResult, topK int) []*RetrievalResult {
	out := cloneResults(results)
	if topK > 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

var _ Reranker = NoopReranker{}
