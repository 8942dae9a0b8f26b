package cmd

import (
	"context"
	"log/slog"

	"github.com/logscout/logscout/internal/config"
	"github.com/logscout/logscout/internal/embed"
	"github.com/logscout/logscout/internal/errors"
	"github.com/logscout/logscout/internal/llm"
	"github.com/logscout/logscout/internal/logging"
	"github.com/logscout/logscout/internal/search"
	"github.com/logscout/logscout/internal/store"
)

// app bundles the wired components a subcommand needs, with a single
// cleanup for everything that was opened.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	corpus    *store.CorpusStore
	retriever *search.Retriever
	closers   []func() error
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// setupLogging installs the configured logger. Errors fall back to a
// discard logger so commands keep working without a writable data dir.
func setupLogging(cfg *config.Config) (*slog.Logger, func() error) {
	logger, closer, err := logging.Setup(logging.Config{
		Level:      cfg.Logging.Level,
		Dir:        cfg.LogDir(),
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Verbose:    verbose,
	})
	if err != nil {
		return logging.Discard(), func() error { return nil }
	}
	return logger, closer
}

// buildEmbedder constructs the configured embedder wrapped in an LRU
// cache.
func buildEmbedder(cfg *config.Config) (embed.Embedder, error) {
	var (
		inner embed.Embedder
		err   error
	)
	switch cfg.Embedding.Provider {
	case "openai":
		inner, err = embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			APIKey:     cfg.Embedding.APIKey,
			BaseURL:    cfg.Embedding.BaseURL,
			Model:      cfg.Embedding.Model,
			Dimensions: cfg.Embedding.Dimensions,
		})
	default:
		inner = embed.NewStaticEmbedder()
	}
	if err != nil {
		return nil, err
	}
	if cfg.Embedding.CacheSize <= 0 {
		return inner, nil
	}
	return embed.NewCachedEmbedder(inner, cfg.Embedding.CacheSize)
}

// buildCompleter returns the configured LLM completer, or nil when no
// API key is set.
func buildCompleter(cfg *config.Config) (llm.Completer, error) {
	if cfg.LLM.APIKey == "" {
		return nil, nil
	}
	return llm.NewOpenAICompleter(llm.Config{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
	})
}

// buildReranker selects the reranker named in the config.
func buildReranker(cfg *config.Config, completer llm.Completer) search.Reranker {
	var scorer search.CrossScorer
	if completer != nil {
		scorer = search.NewLLMCrossScorer(completer)
	}
	switch cfg.Search.Reranker {
	case "none":
		return search.NoopReranker{}
	case "cross":
		return search.NewCrossEncoderReranker(scorer)
	case "hybrid":
		return search.NewHybridReranker(scorer, cfg.Search.RuleWeight)
	case "diversity":
		return search.NewDiversityReranker(nil, cfg.Search.DiversityWeight)
	default:
		return search.NewRuleReranker()
	}
}

// openApp wires the full retrieval stack from the persisted index.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg}
	logger, logCloser := setupLogging(cfg)
	a.logger = logger
	a.closers = append(a.closers, logCloser)

	corpus, err := store.OpenCorpusStore(cfg.CorpusPath())
	if err != nil {
		a.close()
		return nil, err
	}
	a.corpus = corpus
	a.closers = append(a.closers, corpus.Close)

	docs, err := corpus.LoadDocuments(ctx)
	if err != nil {
		a.close()
		return nil, err
	}
	if len(docs) == 0 {
		a.close()
		return nil, errors.New(errors.ErrCodeFileNotFound,
			"no indexed documents found, run 'logscout index <dir>' first")
	}

	vectors, err := store.LoadHNSWStore(cfg.VectorPath())
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, vectors.Close)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append(a.closers, embedder.Close)

	completer, err := buildCompleter(cfg)
	if err != nil {
		a.close()
		return nil, err
	}
	if completer != nil {
		a.closers = append(a.closers, completer.Close)
	}

	dense := search.NewVectorIndexRetriever(embedder, vectors, docs)
	engineCfg := search.DefaultEngineConfig(cfg.Search.Alpha)
	if cfg.Search.BoostSeverity != nil {
		engineCfg.BoostSeverity = *cfg.Search.BoostSeverity
	}
	engine, err := search.NewEngine(dense, docs, cfg.Search.Alpha,
		search.WithEngineConfig(engineCfg),
		search.WithEngineLogger(logger),
	)
	if err != nil {
		a.close()
		return nil, err
	}

	optOpts := []search.OptimizerOption{search.WithOptimizerLogger(logger)}
	if completer != nil {
		optOpts = append(optOpts, search.WithCompleter(completer))
	}
	optimizer := search.NewOptimizer(optOpts...)

	retrOpts := []search.RetrieverOption{
		search.WithRetrieverLogger(logger),
		search.WithReranker(buildReranker(cfg, completer)),
	}
	if completer != nil {
		retrOpts = append(retrOpts, search.WithRetrieverCompleter(completer))
	}
	retriever, err := search.NewRetriever(engine, optimizer, retrOpts...)
	if err != nil {
		a.close()
		return nil, err
	}
	a.retriever = retriever

	return a, nil
}
