package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Courier - OpenAI-compatible relay over a web chat service",
	Long: `Courier exposes an OpenAI-compatible chat completion API backed by a
bot-defended web chat service.

It provides:
  - Credential pool rotation with failure-aware cooldowns
  - Retries with exponential backoff and failure-specific recovery
  - Upstream stream translation into OpenAI chat.completion.chunk events
  - Per-conversation context window accounting and live status`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
}
