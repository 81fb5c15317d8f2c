package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/ziadkadry99/devflow/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing document search, answers and sync as tools.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Stdout carries protocol messages; logs go to stderr.
		a, err := openApp(context.Background(), appOptions{logOutput: os.Stderr})
		if err != nil {
			return err
		}
		defer a.close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "devflow MCP server started on stdio (docs=%s, chunks=%d)\n", a.cfg.DocsDir, a.store.Count())

		return mcpserver.NewServer(a.svc).Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
