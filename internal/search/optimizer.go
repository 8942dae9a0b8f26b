package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/logscout/logscout/internal/llm"
)

const optimizerCacheSize = 512

var (
	whitespaceRuns = regexp.MustCompile(`\s+`)
	// Keep word characters, CJK, and sentence punctuation in both Latin
	// and CJK forms. Everything else is stripped.
	disallowedChars = regexp.MustCompile(`[^\w\s\x{4e00}-\x{9fff}?!.,:;，。？！：；]`)
	cjkRuns         = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)
	latinRuns       = regexp.MustCompile(`[a-zA-Z]+`)
)

// Optimizer rewrites and expands queries before retrieval. All methods
// are pure with respect to the corpus; results for repeated queries are
// served from an LRU cache.
type Optimizer struct {
	cache     *lru.Cache[string, OptimizedQuery]
	completer llm.Completer
	logger    *slog.Logger

	// lowercase term -> base terms whose group it belongs to
	synonymLookup map[string][]string
}

// OptimizerOption configures an Optimizer.
type OptimizerOption func(*Optimizer)

// WithCompleter enables LLM-assisted optimization. The rule pipeline
// remains the fallback for every failure.
func WithCompleter(c llm.Completer) OptimizerOption {
	return func(o *Optimizer) { o.completer = c }
}

// WithOptimizerLogger overrides the default logger.
func WithOptimizerLogger(l *slog.Logger) OptimizerOption {
	return func(o *Optimizer) { o.logger = l }
}

// NewOptimizer creates a query optimizer.
func NewOptimizer(opts ...OptimizerOption) *Optimizer {
	cache, _ := lru.New[string, OptimizedQuery](optimizerCacheSize)
	o := &Optimizer{
		cache:         cache,
		logger:        slog.Default(),
		synonymLookup: buildSynonymLookup(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

func buildSynonymLookup() map[string][]string {
	lookup := make(map[string][]string)
	add := func(term, base string) {
		key := strings.ToLower(term)
		for _, b := range lookup[key] {
			if b == base {
				return
			}
		}
		lookup[key] = append(lookup[key], base)
	}
	for base, synonyms := range synonymTable {
		add(base, base)
		for _, s := range synonyms {
			add(s, base)
		}
	}
	return lookup
}

// Optimize runs the full rule pipeline: clean, detect intent, rewrite,
// expand. A query that is empty after cleaning yields a well-formed
// result with intent unknown.
func (o *Optimizer) Optimize(query string) OptimizedQuery {
	if cached, ok := o.cache.Get(query); ok {
		return cached
	}

	trimmed := strings.TrimSpace(query)
	if trimmed == "" {
		return OptimizedQuery{
			Original:  trimmed,
			Rewritten: []string{trimmed},
			Intent:    IntentUnknown,
		}
	}

	cleaned := o.Clean(trimmed)
	intent := o.DetectIntent(cleaned)
	result := OptimizedQuery{
		Original:      trimmed,
		Rewritten:     o.Rewrite(cleaned, intent),
		ExpandedTerms: o.ExpandTerms(cleaned),
		Intent:        intent,
	}

	o.logger.Debug("query optimized",
		slog.String("intent", string(intent)),
		slog.Int("rewrites", len(result.Rewritten)),
		slog.Int("expanded_terms", len(result.ExpandedTerms)))

	o.cache.Add(query, result)
	return result
}

// Clean collapses whitespace and strips characters outside the allowed
// set.
func (o *Optimizer) Clean(query string) string {
	query = whitespaceRuns.ReplaceAllString(query, " ")
	query = strings.TrimSpace(query)
	return disallowedChars.ReplaceAllString(query, "")
}

// DetectIntent classifies the query. Error vocabulary plus a
// how/fix/solve marker means solution seeking; error vocabulary alone
// means error diagnosis; anything else is a plain log search.
func (o *Optimizer) DetectIntent(query string) Intent {
	lower := strings.ToLower(query)
	if !containsAny(lower, errorIntentWords) {
		return IntentLogSearch
	}
	if containsAny(lower, solutionIntentWords) {
		return IntentSolutionSeeking
	}
	return IntentErrorDiagnosis
}

// Rewrite generates query variants for the given intent. The original
// query always comes first; duplicates keep their first position.
func (o *Optimizer) Rewrite(query string, intent Intent) []string {
	variants := []string{query}
	switch intent {
	case IntentErrorDiagnosis:
		variants = append(variants, query+" 错误信息", query+" 异常堆栈")
	case IntentSolutionSeeking:
		variants = append(variants, query+" 解决方法", query+" 修复方案", query+" 解决方案")
	}

	seen := make(map[string]bool, len(variants))
	out := variants[:0]
	for _, v := range variants {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

// ExpandTerms expands query keywords through the synonym table.
// Matching either a base term or any of its synonyms (case-insensitive)
// pulls in the entire group. The result is sorted; callers treat it as
// a set.
func (o *Optimizer) ExpandTerms(query string) []string {
	expanded := make(map[string]bool)
	for _, keyword := range extractKeywords(query) {
		for _, base := range o.synonymLookup[strings.ToLower(keyword)] {
			expanded[base] = true
			for _, s := range synonymTable[base] {
				expanded[s] = true
			}
		}
	}
	if len(expanded) == 0 {
		return nil
	}
	terms := make([]string, 0, len(expanded))
	for term := range expanded {
		terms = append(terms, term)
	}
	sort.Strings(terms)
	return terms
}

// SuggestFilters proposes metadata filters based on level and urgency
// wording in the query.
func (o *Optimizer) SuggestFilters(query string) Filters {
	var filters Filters
	lower := strings.ToLower(query)

	for _, group := range levelKeywordGroups {
		if containsAny(lower, group.keywords) {
			filters.Level = group.level
			break
		}
	}

	if containsAny(lower, urgencyKeywords) {
		minSeverity := 0.7
		filters.MinSeverity = &minSeverity
	}
	return filters
}

// EnhanceQuery returns one retrieval query combining the original text
// with up to five expanded terms.
func (o *Optimizer) EnhanceQuery(query string) string {
	optimized := o.Optimize(query)
	parts := []string{optimized.Original}
	terms := optimized.ExpandedTerms
	if len(terms) > 5 {
		terms = terms[:5]
	}
	parts = append(parts, terms...)
	return strings.Join(parts, " ")
}

// ExtractErrorType maps the query to a known error category, or ""
// when none of the category phrases appear.
func (o *Optimizer) ExtractErrorType(query string) string {
	lower := strings.ToLower(query)
	var categories []string
	for category := range errorPatterns {
		categories = append(categories, category)
	}
	sort.Strings(categories)
	for _, category := range categories {
		if containsAny(lower, errorPatterns[category]) {
			return category
		}
	}
	return ""
}

// llmOptimizePrompt asks for strict JSON so the response can be parsed
// without heuristics.
const llmOptimizePrompt = `请帮我优化以下日志分析查询，提取关键信息和同义词。

原始查询：%s

请以JSON格式返回：
{
    "intent": "查询意图（error_diagnosis/solution_seeking/log_search）",
    "rewritten": ["重写后的查询1", "重写后的查询2"],
    "expanded_terms": ["扩展术语1", "扩展术语2"]
}

只返回JSON，不要其他说明。`

type llmOptimizeResponse struct {
	Intent        string   `json:"intent"`
	Rewritten     []string `json:"rewritten"`
	ExpandedTerms []string `json:"expanded_terms"`
}

// OptimizeWithLLM asks the configured completer to optimize the query,
// falling back to the rule pipeline when no completer is set, the call
// fails, or the response does not parse.
func (o *Optimizer) OptimizeWithLLM(ctx context.Context, query string) OptimizedQuery {
	if o.completer == nil || !o.completer.Available() {
		return o.Optimize(query)
	}

	response, err := o.completer.Complete(ctx, fmt.Sprintf(llmOptimizePrompt, query))
	if err != nil {
		o.logger.Warn("llm query optimization failed, using rule pipeline",
			slog.String("error", err.Error()))
		return o.Optimize(query)
	}

	var parsed llmOptimizeResponse
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		o.logger.Warn("llm optimization response did not parse, using rule pipeline",
			slog.String("error", err.Error()))
		return o.Optimize(query)
	}

	result := OptimizedQuery{
		Original:      query,
		Rewritten:     parsed.Rewritten,
		ExpandedTerms: parsed.ExpandedTerms,
		Intent:        parseIntent(parsed.Intent),
	}
	if len(result.Rewritten) == 0 {
		result.Rewritten = []string{query}
	}
	return result
}

func parseIntent(s string) Intent {
	switch Intent(s) {
	case IntentErrorDiagnosis, IntentSolutionSeeking, IntentLogSearch:
		return Intent(s)
	default:
		return IntentLogSearch
	}
}

// extractJSON trims markdown fences and surrounding prose that chat
// models tend to wrap around JSON.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func extractKeywords(query string) []string {
	keywords := cjkRuns.FindAllString(query, -1)
	return append(keywords, latinRuns.FindAllString(query, -1)...)
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		if strings.Contains(haystack, needle) {
			return true
		}
	}
	return false
}
