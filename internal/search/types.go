// Package search implements hybrid log retrieval: dense vector search
// and BM25 fused with weighted score combination, query optimization,
// and a family of rerankers.
package search

import (
	"github.com/logscout/logscout/internal/store"
)

// Source tags which retrieval branch produced a result.
type Source string

const (
	SourceVector Source = "vector"
	SourceBM25   Source = "bm25"
	SourceHybrid Source = "hybrid"
)

// Intent classifies what a query is after.
type Intent string

const (
	IntentErrorDiagnosis  Intent = "error_diagnosis"
	IntentSolutionSeeking Intent = "solution_seeking"
	IntentLogSearch       Intent = "log_search"
	IntentUnknown         Intent = "unknown"
)

// RetrievalResult is one retrieved log entry with its fused score.
// All rerankers read and rewrite Score in place.
type RetrievalResult struct {
	Content  string            `json:"content"`
	Score    float64           `json:"score"`
	Metadata store.LogMetadata `json:"metadata"`
	Rank     int               `json:"rank"`
	Source   Source            `json:"source"`
	NodeID   string            `json:"node_id,omitempty"`
}

// Clone returns a copy so a reranking pass can score without mutating
// the caller's results.
func (r *RetrievalResult) Clone() *RetrievalResult {
	c := *r
	return &c
}

func cloneResults(results []*RetrievalResult) []*RetrievalResult {
	out := make([]*RetrievalResult, len(results))
	for i, r := range results {
		out[i] = r.Clone()
	}
	return out
}

// assignRanks numbers results 1..N in their current order. Called after
// every ordering stage so the serialized rank always matches position.
func assignRanks(results []*RetrievalResult) {
	for i, r := range results {
		r.Rank = i + 1
	}
}

// Filters narrows retrieval by extracted metadata. Zero values mean no
// constraint.
type Filters struct {
	Level       string   `json:"level,omitempty"`
	Service     string   `json:"service,omitempty"`
	Component   string   `json:"component,omitempty"`
	MinSeverity *float64 `json:"min_severity,omitempty"`
}

// Empty reports whether no constraint is set.
func (f Filters) Empty() bool {
	return f.Level == "" && f.Service == "" && f.Component == "" && f.MinSeverity == nil
}

// OptimizedQuery is the output of the query optimizer.
type OptimizedQuery struct {
	Original      string   `json:"original"`
	Rewritten     []string `json:"rewritten"`
	ExpandedTerms []string `json:"expanded_terms"`
	Intent        Intent   `json:"intent"`
}

// EngineConfig holds the fusion engine's tuning knobs. The defaults
// reproduce the scoring behavior the rest of the system is calibrated
// against; treat them as configuration, not free parameters.
type EngineConfig struct {
	// Alpha weights the dense branch; the sparse branch gets 1-Alpha.
	Alpha float64
	// CandidateLimit caps per-branch candidates (top_k*2 up to this).
	CandidateLimit int
	// FilterPenalty multiplies scores when a filter would have emptied
	// a nonempty result set and is therefore bypassed.
	FilterPenalty float64
	// SeverityBoostFactor scales the severity boost multiplier.
	SeverityBoostFactor float64
	// NormalizeEpsilon is the all-scores-equal tolerance in min-max
	// normalization.
	NormalizeEpsilon float64
	// ContentKeyLength is how many leading runes of content form the
	// dedup key during merging.
	ContentKeyLength int
	// BoostSeverity toggles the severity boost stage.
	BoostSeverity bool
}

// DefaultEngineConfig returns the standard fusion configuration with
// the given dense weight.
func DefaultEngineConfig(alpha float64) EngineConfig {
	return EngineConfig{
		Alpha:               alpha,
		CandidateLimit:      100,
		FilterPenalty:       0.9,
		SeverityBoostFactor: 0.5,
		NormalizeEpsilon:    1e-6,
		ContentKeyLength:    100,
		BoostSeverity:       true,
	}
}

// Statistics summarizes an engine's corpus.
type Statistics struct {
	TotalDocuments      int            `json:"total_documents"`
	LevelDistribution   map[string]int `json:"level_distribution"`
	ServiceDistribution map[string]int `json:"service_distribution"`
	Alpha               float64        `json:"alpha"`
	Beta                float64        `json:"beta"`
	BM25Enabled         bool           `json:"bm25_enabled"`
}
