package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/logscout/logscout/internal/embed"
	"github.com/logscout/logscout/internal/loader"
	"github.com/logscout/logscout/internal/output"
	"github.com/logscout/logscout/internal/store"
)

// embedBatchSize bounds memory and keeps API batches within provider
// limits.
const embedBatchSize = 64

func newIndexCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Index a directory of log files",
		Long: `Index loads every supported log file under <dir> (.txt, .md, .json,
.jsonl, .csv), extracts metadata, embeds the documents, and writes the
corpus database and vector index to the data directory.

Re-running index replaces documents with matching content and adds new
ones.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd.Context(), cmd, args[0])
		},
	}
	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, dir string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	logger, logCloser := setupLogging(cfg)
	defer func() { _ = logCloser() }()

	lock, err := store.AcquireIndexLock(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	start := time.Now()
	docs, err := loader.LoadDirectory(dir, logger)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		return fmt.Errorf("no supported log files found under %s", dir)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Loaded %d documents from %s\n", len(docs), dir)

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = embedder.Close() }()

	vectors, err := store.NewHNSWStore(store.VectorStoreConfig{
		Dimensions: embedder.Dimensions(),
	})
	if err != nil {
		return err
	}
	defer func() { _ = vectors.Close() }()

	out := output.New(cmd.OutOrStdout())
	if err := embedAll(ctx, embedder, vectors, docs, out); err != nil {
		return err
	}

	corpus, err := store.OpenCorpusStore(cfg.CorpusPath())
	if err != nil {
		return err
	}
	defer func() { _ = corpus.Close() }()

	if err := corpus.SaveDocuments(ctx, docs); err != nil {
		return err
	}
	if err := corpus.SetState(ctx, "embedder_model", embedder.ModelName()); err != nil {
		return err
	}
	if err := vectors.Save(cfg.VectorPath()); err != nil {
		return err
	}

	logger.Info("index_complete",
		"documents", len(docs),
		"embedder", embedder.ModelName(),
		"duration", time.Since(start).String())
	fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d documents in %s (embedder: %s)\n",
		len(docs), time.Since(start).Round(time.Millisecond), embedder.ModelName())
	return nil
}

// embedAll embeds documents in batches and inserts them into the
// vector store.
func embedAll(ctx context.Context, embedder embed.Embedder, vectors *store.HNSWStore, docs []store.Document, out *output.Writer) error {
	for low := 0; low < len(docs); low += embedBatchSize {
		high := low + embedBatchSize
		if high > len(docs) {
			high = len(docs)
		}
		batch := docs[low:high]

		texts := make([]string, len(batch))
		ids := make([]string, len(batch))
		for i, doc := range batch {
			texts[i] = doc.Text
			ids[i] = doc.ID
		}

		embeddings, err := embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return err
		}
		if err := vectors.Add(ctx, ids, embeddings); err != nil {
			return err
		}
		out.Progress(high, len(docs), "embedding")
	}
	return nil
}
