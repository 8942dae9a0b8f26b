// Package cmd provides the CLI commands for logscout.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/logscout/logscout/internal/config"
	"github.com/logscout/logscout/pkg/version"
)

// Global flags shared by all subcommands.
var (
	configPath string
	dataDir    string
	verbose    bool
)

// NewRootCmd creates the root command for the logscout CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logscout",
		Short: "Hybrid retrieval over log corpora",
		Long: `Logscout indexes log files and answers questions about them using
hybrid retrieval: semantic vector search fused with BM25 keyword
search, followed by reranking.

Typical workflow:
  logscout index ./logs
  logscout search "数据库连接超时"
  logscout ask "why did the payment service crash last night?"`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	cmd.SetVersionTemplate("logscout version {{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.logscout/logscout.yaml)")
	cmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Override the data directory")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Mirror logs to stderr")

	cmd.AddCommand(newIndexCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newAnalyzeCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

// loadConfig resolves the effective configuration from the config file
// and global flags.
func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, ".logscout", "logscout.yaml")
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	return cfg, nil
}
