package search

import "log/slog"

// Score fusion helpers: min-max normalization, weighted merging keyed
// by content prefix, metadata filtering, and severity boosting.

// contentKey returns the dedup key for a result: the first
// ContentKeyLength runes of its content.
func (e *Engine) contentKey(content string) string {
	runes := []rune(content)
	if len(runes) > e.cfg.ContentKeyLength {
		runes = runes[:e.cfg.ContentKeyLength]
	}
	return string(runes)
}

// normalizeScores min-max normalizes scores in place to [0, 1]. When
// all scores are equal within NormalizeEpsilon they all become 1.0, so
// a degenerate branch still contributes at full weight.
func (e *Engine) normalizeScores(results []*RetrievalResult) {
	if len(results) == 0 {
		return
	}
	minScore, maxScore := results[0].Score, results[0].Score
	for _, r := range results[1:] {
		if r.Score < minScore {
			minScore = r.Score
		}
		if r.Score > maxScore {
			maxScore = r.Score
		}
	}
	if maxScore-minScore < e.cfg.NormalizeEpsilon {
		for _, r := range results {
			r.Score = 1.0
		}
		return
	}
	for _, r := range results {
		r.Score = (r.Score - minScore) / (maxScore - minScore)
	}
}

// mergeResults fuses the two branches: each is normalized, dense scores
// are weighted by alpha and sparse by beta = 1-alpha, and entries whose
// content prefix collides have their weighted scores summed. Insertion
// order (dense first, then new sparse entries) is preserved so the
// final stable sort breaks ties deterministically.
func (e *Engine) mergeResults(dense, sparse []*RetrievalResult) []*RetrievalResult {
	e.normalizeScores(dense)
	e.normalizeScores(sparse)

	beta := 1 - e.cfg.Alpha
	byKey := make(map[string]*RetrievalResult, len(dense)+len(sparse))
	var order []string

	for _, r := range dense {
		key := e.contentKey(r.Content)
		r.Score *= e.cfg.Alpha
		r.Source = SourceHybrid
		if _, exists := byKey[key]; !exists {
			order = append(order, key)
		}
		byKey[key] = r
	}
	for _, r := range sparse {
		key := e.contentKey(r.Content)
		if existing, ok := byKey[key]; ok {
			existing.Score += r.Score * beta
			continue
		}
		r.Score *= beta
		r.Source = SourceHybrid
		byKey[key] = r
		order = append(order, key)
	}

	merged := make([]*RetrievalResult, 0, len(order))
	for _, key := range order {
		merged = append(merged, byKey[key])
	}
	return merged
}

// matchesFilters checks one result against every set constraint.
func matchesFilters(r *RetrievalResult, filters Filters) bool {
	if filters.Level != "" && r.Metadata.Level != filters.Level {
		return false
	}
	if filters.Service != "" && r.Metadata.Service != filters.Service {
		return false
	}
	if filters.Component != "" && r.Metadata.Component != filters.Component {
		return false
	}
	if filters.MinSeverity != nil && r.Metadata.SeverityScore < *filters.MinSeverity {
		return false
	}
	return true
}

// applyFilters filters results by metadata. A filter that would turn a
// nonempty set empty is treated as too strict: the unfiltered set is
// kept with every score multiplied by FilterPenalty instead.
func (e *Engine) applyFilters(results []*RetrievalResult, filters Filters) []*RetrievalResult {
	filtered := make([]*RetrievalResult, 0, len(results))
	for _, r := range results {
		if matchesFilters(r, filters) {
			filtered = append(filtered, r)
		}
	}
	if len(filtered) == 0 && len(results) > 0 {
		minSeverity := 0.0
		if filters.MinSeverity != nil {
			minSeverity = *filters.MinSeverity
		}
		e.logger.Warn("filters matched nothing, keeping unfiltered results with penalty",
			slog.String("level", filters.Level),
			slog.String("service", filters.Service),
			slog.String("component", filters.Component),
			slog.Float64("min_severity", minSeverity),
			slog.Float64("penalty", e.cfg.FilterPenalty))
		for _, r := range results {
			r.Score *= e.cfg.FilterPenalty
		}
		return results
	}
	return filtered
}

// boostBySeverity lifts high-severity entries multiplicatively.
func (e *Engine) boostBySeverity(results []*RetrievalResult) {
	for _, r := range results {
		r.Score *= 1 + r.Metadata.SeverityScore*e.cfg.SeverityBoostFactor
	}
}
