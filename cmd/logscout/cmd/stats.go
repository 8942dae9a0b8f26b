package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/logscout/logscout/internal/output"
)

func newStatsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show corpus and index statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runStats(cmd.Context(), cmd, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runStats(ctx context.Context, cmd *cobra.Command, format string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	stats := a.retriever.Statistics()
	model, _ := a.corpus.GetState(ctx, "embedder_model")

	if format == "json" {
		payload := struct {
			TotalDocuments      int            `json:"total_documents"`
			LevelDistribution   map[string]int `json:"level_distribution"`
			ServiceDistribution map[string]int `json:"service_distribution"`
			Alpha               float64        `json:"alpha"`
			Beta                float64        `json:"beta"`
			BM25Enabled         bool           `json:"bm25_enabled"`
			EmbedderModel       string         `json:"embedder_model,omitempty"`
		}{
			TotalDocuments:      stats.TotalDocuments,
			LevelDistribution:   stats.LevelDistribution,
			ServiceDistribution: stats.ServiceDistribution,
			Alpha:               stats.Alpha,
			Beta:                stats.Beta,
			BM25Enabled:         stats.BM25Enabled,
			EmbedderModel:       model,
		}
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(payload)
	}

	out := output.New(cmd.OutOrStdout())
	out.Linef("Documents:    %d", stats.TotalDocuments)
	out.Linef("Fusion:       alpha=%.2f beta=%.2f", stats.Alpha, stats.Beta)
	out.Linef("BM25:         %v", stats.BM25Enabled)
	if model != "" {
		out.Linef("Embedder:     %s", model)
	}
	out.Distribution("Levels", stats.LevelDistribution)
	out.Distribution("Services", stats.ServiceDistribution)
	return nil
}
