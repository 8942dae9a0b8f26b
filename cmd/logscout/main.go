// Package main provides the entry point for the logscout CLI.
package main

import (
	"os"

	"github.com/logscout/logscout/cmd/logscout/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
