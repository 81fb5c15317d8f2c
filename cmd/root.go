// Package cmd implements the devflow command line.
package cmd

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ziadkadry99/devflow/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "devflow",
	Short: "Ask questions about your documents",
	Long: `devflow keeps a semantic index of a directory of PDF, Markdown and text
documents in sync, retrieves the passages most relevant to a question and
answers it with a language model. It runs as a CLI, an HTTP/WebSocket
server or an MCP server for AI agents.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// API keys usually live in .env; a missing file is fine.
		_ = godotenv.Load()
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
