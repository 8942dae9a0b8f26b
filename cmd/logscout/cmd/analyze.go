package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logscout/logscout/internal/output"
)

func newAnalyzeCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "analyze <query>",
		Short: "Summarize error categories for matching logs",
		Long: `Analyze retrieves logs matching the query and buckets them by error
category (connection, authentication, database, timeout, memory,
network, permission), reporting counts and shares.

Examples:
  logscout analyze "连接失败"
  logscout analyze "payment errors" -n 50`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd.Context(), cmd, strings.Join(args, " "), limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of logs to analyze")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runAnalyze(ctx context.Context, cmd *cobra.Command, query string, limit int, format string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	patterns, err := a.retriever.AnalyzeErrorPatterns(ctx, query, limit)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(patterns)
	}

	output.New(cmd.OutOrStdout()).Patterns(patterns)
	return nil
}
