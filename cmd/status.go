package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what the next sync would do without changing anything",
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonOutput, _ := cmd.Flags().GetBool("json")
		ctx := context.Background()

		a, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		st, err := a.svc.Status(ctx)
		if err != nil {
			return fmt.Errorf("status failed: %w", err)
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(st)
		}

		for _, d := range st.Documents {
			fmt.Printf("%-10s %4d  %s\n", d.State, d.Chunks, filepath.Base(d.Path))
		}
		fmt.Printf("\n%d document(s), %d chunk(s), %d pending\n", len(st.Documents), st.Chunks, st.Pending)
		return nil
	},
}

func init() {
	statusCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(statusCmd)
}
