package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/logscout/logscout/internal/output"
)

func newAskCmd() *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about the indexed logs",
		Long: `Ask retrieves the most relevant log entries for the question and has
the configured LLM produce an analysis grounded in them.

Requires llm.api_key in the config (or LOGSCOUT_LLM_API_KEY).

Examples:
  logscout ask "为什么支付服务昨晚崩溃了？"
  logscout ask "what is causing the token expiry errors?" -n 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(cmd.Context(), cmd, strings.Join(args, " "), limit, format)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "Number of log entries to ground the answer on")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runAsk(ctx context.Context, cmd *cobra.Command, question string, limit int, format string) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	answer, err := a.retriever.Ask(ctx, question, limit)
	if err != nil {
		return err
	}

	if format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(answer)
	}

	out := output.New(cmd.OutOrStdout())
	out.Line(answer.Response)
	if len(answer.Results) > 0 {
		out.Linef("\nBased on %d log entries:", len(answer.Results))
		out.Results(answer.Results)
	}
	return nil
}
