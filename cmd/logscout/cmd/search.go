package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logscout/logscout/internal/output"
	"github.com/logscout/logscout/internal/search"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	level       string
	service     string
	component   string
	minSeverity float64
	noFilter    bool
	dedup       bool
	format      string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed logs",
		Long: `Search the indexed logs using hybrid retrieval.

Semantic vector search and BM25 keyword search run in parallel, their
scores are fused, and the fused set is reranked. Without explicit
filter flags, filters are inferred from the query.

Examples:
  logscout search "数据库连接超时"
  logscout search "payment timeout" --level ERROR -n 5
  logscout search "oom" --min-severity 0.7 --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringVar(&opts.level, "level", "", "Filter by log level (e.g. ERROR, WARN)")
	cmd.Flags().StringVar(&opts.service, "service", "", "Filter by service name")
	cmd.Flags().StringVar(&opts.component, "component", "", "Filter by component name")
	cmd.Flags().Float64Var(&opts.minSeverity, "min-severity", 0, "Filter by minimum severity score in [0, 1]")
	cmd.Flags().BoolVar(&opts.noFilter, "no-filter", false, "Disable filtering, including query-inferred filters")
	cmd.Flags().BoolVar(&opts.dedup, "dedup", false, "Deduplicate identical log entries")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

// filtersFromFlags translates flags into engine filters. Nil means
// infer from the query.
func filtersFromFlags(opts searchOptions) *search.Filters {
	if opts.noFilter {
		return &search.Filters{}
	}
	f := search.Filters{
		Level:     strings.ToUpper(opts.level),
		Service:   opts.service,
		Component: opts.component,
	}
	if opts.minSeverity > 0 {
		f.MinSeverity = &opts.minSeverity
	}
	if f.Empty() {
		return nil
	}
	return &f
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	retrieve := a.retriever.Retrieve
	if opts.dedup {
		retrieve = a.retriever.RetrieveWithContext
	}
	results, err := retrieve(ctx, query, opts.limit, filtersFromFlags(opts))
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	output.New(cmd.OutOrStdout()).Results(results)
	return nil
}
