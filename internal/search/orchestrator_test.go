package search

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logscout/logscout/internal/logging"
)

func testRetriever(t *testing.T, opts ...RetrieverOption) *Retriever {
	t.Helper()
	corpus := []string{
		"AuthService,ERROR,TokenExpired,authentication failed for token,AuthModule,expiry",
		"PayService,INFO,None,payment completed,PayModule,none",
		"DBService,ERROR,PoolExhausted,connection timeout from pool,DBModule,load",
		"DBService,FATAL,OOM,out of memory killing worker,DBModule,pressure",
	}
	docs := docsFromTexts(corpus...)
	dense := &fakeDense{results: []DenseResult{
		{ID: docs[0].ID, Text: corpus[0], Score: 0.7},
		{ID: docs[1].ID, Text: corpus[1], Score: 0.4},
		{ID: docs[2].ID, Text: corpus[2], Score: 0.8},
		{ID: docs[3].ID, Text: corpus[3], Score: 0.6},
	}}
	engine := quietEngine(t, dense, docs, 0.5)

	opts = append(opts, WithRetrieverLogger(logging.Discard()))
	r, err := NewRetriever(engine, NewOptimizer(), opts...)
	require.NoError(t, err)
	return r
}

func TestNewRetriever(t *testing.T) {
	t.Run("nil engine rejected", func(t *testing.T) {
		_, err := NewRetriever(nil, NewOptimizer())
		assert.Error(t, err)
	})

	t.Run("nil optimizer gets a default", func(t *testing.T) {
		engine := quietEngine(t, &fakeDense{}, docsFromTexts("a b c"), 0.5)
		r, err := NewRetriever(engine, nil)
		require.NoError(t, err)
		assert.NotNil(t, r.optimizer)
	})
}

func TestRetrieverRetrieve(t *testing.T) {
	ctx := context.Background()

	t.Run("end to end pipeline returns relevant first", func(t *testing.T) {
		r := testRetriever(t)
		results, err := r.Retrieve(ctx, "connection timeout", 2, &Filters{})
		require.NoError(t, err)
		require.NotEmpty(t, results)
		assert.Contains(t, results[0].Content, "connection timeout")
		// Ranks follow the post-rerank order.
		for i, result := range results {
			assert.Equal(t, i+1, result.Rank)
		}
	})

	t.Run("empty query returns empty without error", func(t *testing.T) {
		r := testRetriever(t)
		results, err := r.Retrieve(ctx, "", 5, &Filters{})
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("nil filters uses suggested filters", func(t *testing.T) {
		r := testRetriever(t)
		// "critical" wording suggests a FATAL level and a min-severity floor.
		results, err := r.Retrieve(ctx, "critical failure", 4, nil)
		require.NoError(t, err)
		require.NotEmpty(t, results)
		for _, result := range results {
			assert.GreaterOrEqual(t, result.Metadata.SeverityScore, 0.7)
		}
	})

	t.Run("top_k zero is invalid", func(t *testing.T) {
		r := testRetriever(t)
		_, err := r.Retrieve(ctx, "error", 0, &Filters{})
		assert.Error(t, err)
	})
}

func TestRetrieveWithContext(t *testing.T) {
	ctx := context.Background()
	r := testRetriever(t)

	results, err := r.RetrieveWithContext(ctx, "error timeout", 4, &Filters{})
	require.NoError(t, err)

	seen := make(map[string]bool)
	for _, result := range results {
		assert.False(t, seen[result.Content], "duplicate content %q", result.Content)
		seen[result.Content] = true
	}
}

func TestBuildLogContext(t *testing.T) {
	results := []*RetrievalResult{
		{Content: "first entry"},
		{Content: "second entry"},
	}
	context := BuildLogContext(results)
	assert.Equal(t, "log 1: first entry\n\nlog 2: second entry\n\n", context)
	assert.Empty(t, BuildLogContext(nil))
}

func TestRetrieverAsk(t *testing.T) {
	ctx := context.Background()

	t.Run("no completer is a config error", func(t *testing.T) {
		r := testRetriever(t)
		_, err := r.Ask(ctx, "why did checkout fail", 3)
		assert.Error(t, err)
	})

	t.Run("generates from retrieved context", func(t *testing.T) {
		completer := &fakeCompleter{response: "The pool was exhausted."}
		r := testRetriever(t, WithRetrieverCompleter(completer))

		answer, err := r.Ask(ctx, "connection timeout", 2)
		require.NoError(t, err)
		assert.Equal(t, "The pool was exhausted.", answer.Response)
		assert.NotEmpty(t, answer.Results)

		require.NotEmpty(t, completer.prompts)
		assert.Contains(t, completer.prompts[0], "log 1:")
		assert.Contains(t, completer.prompts[0], "connection timeout")
	})

	t.Run("generation failure keeps the retrieved results", func(t *testing.T) {
		completer := &fakeCompleter{err: errors.New("rate limited")}
		r := testRetriever(t, WithRetrieverCompleter(completer))

		answer, err := r.Ask(ctx, "connection timeout", 2)
		require.NoError(t, err)
		assert.Contains(t, answer.Response, "生成回答时出现错误")
		assert.NotEmpty(t, answer.Results)
	})
}

func TestAnalyzeErrorPatterns(t *testing.T) {
	ctx := context.Background()
	r := testRetriever(t)

	patterns, err := r.AnalyzeErrorPatterns(ctx, "error timeout memory", 4)
	require.NoError(t, err)
	require.NotEmpty(t, patterns)

	categories := make(map[string]bool)
	total := 0.0
	for _, p := range patterns {
		categories[p.Category] = true
		assert.Greater(t, p.Count, 0)
		total += p.Share
	}
	assert.True(t, categories["超时错误"] || categories["内存错误"] || categories["认证错误"],
		"expected a known category, got %v", patterns)
	assert.LessOrEqual(t, total, 1.0+1e-9)

	// Counts are sorted descending.
	for i := 1; i < len(patterns); i++ {
		assert.GreaterOrEqual(t, patterns[i-1].Count, patterns[i].Count)
	}
}

func TestRetrieverStatistics(t *testing.T) {
	r := testRetriever(t)
	stats := r.Statistics()
	assert.Equal(t, 4, stats.TotalDocuments)
	assert.Equal(t, 2, stats.LevelDistribution["ERROR"])
	assert.Equal(t, 1, stats.LevelDistribution["FATAL"])
	assert.Equal(t, 2, stats.ServiceDistribution["DBService"])
}
