package search

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logerrors "github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/logging"
	"github.com/logscout/logscout/internal/store"
)

// fakeDense returns canned results, optionally failing.
type fakeDense struct {
	results []DenseResult
	err     error
}

func (f *fakeDense) Retrieve(ctx context.Context, query string, topK int) ([]DenseResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	if len(f.results) > topK {
		return f.results[:topK], nil
	}
	return f.results, nil
}

func docsFromTexts(texts ...string) []store.Document {
	docs := make([]store.Document, len(texts))
	for i, text := range texts {
		docs[i] = store.NewDocument(text)
	}
	return docs
}

func quietEngine(t *testing.T, dense DenseRetriever, docs []store.Document, alpha float64) *Engine {
	t.Helper()
	e, err := NewEngine(dense, docs, alpha, WithEngineLogger(logging.Discard()))
	require.NoError(t, err)
	return e
}

func TestNewEngine(t *testing.T) {
	docs := docsFromTexts("database error", "all good")

	t.Run("empty corpus rejected", func(t *testing.T) {
		_, err := NewEngine(&fakeDense{}, nil, 0.5)
		assert.True(t, logerrors.IsCode(err, logerrors.ErrCodeInvalidArgument))
	})

	t.Run("nil dense retriever rejected", func(t *testing.T) {
		_, err := NewEngine(nil, docs, 0.5)
		assert.True(t, logerrors.IsCode(err, logerrors.ErrCodeInvalidArgument))
	})

	t.Run("alpha out of range rejected", func(t *testing.T) {
		_, err := NewEngine(&fakeDense{}, docs, 1.5)
		assert.True(t, logerrors.IsCode(err, logerrors.ErrCodeInvalidWeight))
		_, err = NewEngine(&fakeDense{}, docs, -0.1)
		assert.True(t, logerrors.IsCode(err, logerrors.ErrCodeInvalidWeight))
	})

	t.Run("untokenizable corpus degrades to dense only", func(t *testing.T) {
		e := quietEngine(t, &fakeDense{}, docsFromTexts("!!!", "..."), 0.5)
		assert.False(t, e.Statistics().BM25Enabled)
	})
}

func TestEngineRetrieve(t *testing.T) {
	ctx := context.Background()
	corpus := []string{
		"connection pool exhausted, error code 500",
		"service started normally",
		"connection timeout after 30s",
	}
	docs := docsFromTexts(corpus...)
	dense := &fakeDense{results: []DenseResult{
		{ID: docs[0].ID, Text: corpus[0], Score: 0.9},
		{ID: docs[1].ID, Text: corpus[1], Score: 0.3},
		{ID: docs[2].ID, Text: corpus[2], Score: 0.7},
	}}

	t.Run("connection errors outrank normal startup", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)
		results, err := e.Retrieve(ctx, "connection error", 2, nil)
		require.NoError(t, err)
		require.Len(t, results, 2)

		for _, r := range results {
			assert.NotEqual(t, "service started normally", r.Content)
			assert.Equal(t, SourceHybrid, r.Source)
		}
	})

	t.Run("empty query returns empty without error", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)
		results, err := e.Retrieve(ctx, "", 5, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("non positive top_k rejected", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)
		_, err := e.Retrieve(ctx, "error", 0, nil)
		assert.True(t, logerrors.IsCode(err, logerrors.ErrCodeInvalidTopK))
	})

	t.Run("dense failure degrades to sparse only", func(t *testing.T) {
		e := quietEngine(t, &fakeDense{err: errors.New("embedder down")}, docs, 0.5)
		results, err := e.Retrieve(ctx, "connection timeout", 3, nil)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Contains(t, results[0].Content, "connection")
	})

	t.Run("both branches empty returns empty", func(t *testing.T) {
		e := quietEngine(t, &fakeDense{err: errors.New("down")}, docs, 0.5)
		results, err := e.Retrieve(ctx, "zzzz qqqq", 3, nil)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("results truncated to top_k", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)
		results, err := e.Retrieve(ctx, "connection", 1, nil)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})
}

func TestEngineFilters(t *testing.T) {
	ctx := context.Background()
	corpus := []string{
		"AuthService,ERROR,TokenExpired,token check failed,AuthModule,expiry",
		"PayService,INFO,None,payment ok,PayModule,none",
		"AuthService,WARN,SlowAuth,auth latency high,AuthModule,load",
	}
	docs := docsFromTexts(corpus...)
	dense := &fakeDense{results: []DenseResult{
		{ID: docs[0].ID, Text: corpus[0], Score: 0.8},
		{ID: docs[1].ID, Text: corpus[1], Score: 0.7},
		{ID: docs[2].ID, Text: corpus[2], Score: 0.6},
	}}

	t.Run("level filter keeps matching results", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)
		results, err := e.Retrieve(ctx, "auth", 5, &Filters{Level: "ERROR"})
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, "ERROR", results[0].Metadata.Level)
	})

	t.Run("min severity filter", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)
		minSev := 0.6
		results, err := e.Retrieve(ctx, "auth payment", 5, &Filters{MinSeverity: &minSev})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, r := range results {
			assert.GreaterOrEqual(t, r.Metadata.SeverityScore, minSev)
		}
	})

	t.Run("over-strict filter falls back with penalty", func(t *testing.T) {
		e := quietEngine(t, dense, docs, 0.5)

		unfiltered, err := e.Retrieve(ctx, "auth", 5, &Filters{})
		require.NoError(t, err)
		require.NotEmpty(t, unfiltered)

		penalized, err := e.Retrieve(ctx, "auth", 5, &Filters{Level: "NOSUCH"})
		require.NoError(t, err)
		require.Len(t, penalized, len(unfiltered))
		for i := range penalized {
			assert.InDelta(t, unfiltered[i].Score*0.9, penalized[i].Score, 1e-9)
		}
	})
}

func TestEngineSeverityBoost(t *testing.T) {
	ctx := context.Background()
	// Same dense score; the ERROR doc should be boosted above the INFO doc.
	corpus := []string{
		"PayService,INFO,None,checkout completed,PayModule,none",
		"PayService,ERROR,Timeout,checkout failed,PayModule,upstream",
	}
	docs := docsFromTexts(corpus...)
	dense := &fakeDense{results: []DenseResult{
		{ID: docs[0].ID, Text: corpus[0], Score: 0.5},
		{ID: docs[1].ID, Text: corpus[1], Score: 0.5},
	}}

	e := quietEngine(t, dense, docs, 1.0) // dense only, equal scores
	results, err := e.Retrieve(ctx, "checkout", 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "ERROR", results[0].Metadata.Level)
}

func TestEngineDeterminism(t *testing.T) {
	// The same retrieval run twice yields identical ordering and scores.
	ctx := context.Background()
	corpus := []string{"database timeout error", "cache refresh completed"}
	docs := docsFromTexts(corpus...)
	dense := &fakeDense{results: []DenseResult{
		{ID: docs[0].ID, Text: corpus[0], Score: 0.9},
		{ID: docs[1].ID, Text: corpus[1], Score: 0.2},
	}}

	e := quietEngine(t, dense, docs, 0.5)
	a, err := e.Retrieve(ctx, "database timeout", 2, nil)
	require.NoError(t, err)
	b, err := e.Retrieve(ctx, "database timeout", 2, nil)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Content, b[i].Content)
		assert.InDelta(t, a[i].Score, b[i].Score, 1e-12)
	}
}

func TestFusionCommutativity(t *testing.T) {
	// Fusing with (alpha, beta) and fusing with (beta, alpha) after
	// swapping which branch is which gives identical per-document
	// scores: alpha*d + beta*s == beta*s + alpha*d.
	branchA := func() []*RetrievalResult {
		return []*RetrievalResult{
			{Content: "shared timeout entry", Score: 0.9},
			{Content: "only in branch a", Score: 0.4},
			{Content: "weak hit", Score: 0.1},
		}
	}
	branchB := func() []*RetrievalResult {
		return []*RetrievalResult{
			{Content: "shared timeout entry", Score: 3.0},
			{Content: "only in branch b", Score: 1.5},
			{Content: "weak hit", Score: 0.5},
		}
	}

	const alpha = 0.7
	docs := docsFromTexts("seed corpus entry")

	forward := quietEngine(t, &fakeDense{}, docs, alpha)
	mergedForward := forward.mergeResults(branchA(), branchB())

	swapped := quietEngine(t, &fakeDense{}, docs, 1-alpha)
	mergedSwapped := swapped.mergeResults(branchB(), branchA())

	require.Equal(t, len(mergedForward), len(mergedSwapped))

	scoresBy := func(results []*RetrievalResult) map[string]float64 {
		scores := make(map[string]float64, len(results))
		for _, r := range results {
			scores[r.Content] = r.Score
		}
		return scores
	}
	forwardScores := scoresBy(mergedForward)
	for content, score := range scoresBy(mergedSwapped) {
		assert.InDelta(t, forwardScores[content], score, 1e-12, "content %q", content)
	}
}

func TestEngineStatistics(t *testing.T) {
	docs := docsFromTexts(
		"AuthService,ERROR,TokenExpired,msg,AuthModule,cause",
		"AuthService,WARN,Slow,msg,AuthModule,cause",
		"plain line with no structure",
	)
	e := quietEngine(t, &fakeDense{}, docs, 0.7)

	stats := e.Statistics()
	assert.Equal(t, 3, stats.TotalDocuments)
	assert.Equal(t, 1, stats.LevelDistribution["ERROR"])
	assert.Equal(t, 1, stats.LevelDistribution["WARN"])
	assert.Equal(t, 2, stats.ServiceDistribution["AuthService"])
	assert.InDelta(t, 0.7, stats.Alpha, 1e-12)
	assert.InDelta(t, 0.3, stats.Beta, 1e-12)
	assert.True(t, stats.BM25Enabled)
}

func TestEngineRetrieveAssignsRanks(t *testing.T) {
	ctx := context.Background()
	docs := docsFromTexts(
		"database timeout error",
		"cache refresh completed",
		"network unreachable error",
	)
	e := quietEngine(t, &fakeDense{}, docs, 0.0) // sparse only

	results, err := e.Retrieve(ctx, "error", 3, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for i, r := range results {
		assert.Equal(t, i+1, r.Rank)
	}
}

func TestDenseHitOutsideCorpusGetsParsedMetadata(t *testing.T) {
	// A dense hit whose text is not in the corpus snapshot still carries
	// extracted metadata, not zero values.
	ctx := context.Background()
	docs := docsFromTexts("seed corpus entry")
	stray := "PayService,FATAL,OOM,worker killed,PayModule,pressure"
	dense := &fakeDense{results: []DenseResult{
		{ID: "stray", Text: stray, Score: 0.9},
	}}
	e := quietEngine(t, dense, docs, 1.0)

	results, err := e.Retrieve(ctx, "worker killed", 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "FATAL", results[0].Metadata.Level)
	assert.Equal(t, "PayService", results[0].Metadata.Service)
	assert.InDelta(t, 1.0, results[0].Metadata.SeverityScore, 1e-12)
}

func TestOverStrictFilterLogsWarning(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	docs := docsFromTexts("AuthService,ERROR,TokenExpired,msg,AuthModule,cause")
	e, err := NewEngine(&fakeDense{}, docs, 0.0, WithEngineLogger(logger))
	require.NoError(t, err)

	results, err := e.Retrieve(ctx, "msg", 1, &Filters{Level: "FATAL"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Contains(t, buf.String(), "penalty")
	assert.Contains(t, buf.String(), "FATAL")
}
