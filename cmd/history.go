package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent questions and answers",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		limit, _ := cmd.Flags().GetInt("limit")
		jsonOutput, _ := cmd.Flags().GetBool("json")

		a, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		entries, err := a.svc.History(ctx, limit)
		if err != nil {
			return err
		}

		if jsonOutput {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}

		if len(entries) == 0 {
			fmt.Println("No questions asked yet.")
			return nil
		}
		for _, e := range entries {
			fmt.Printf("[%s] Q: %s\n", e.CreatedAt.Format("2006-01-02 15:04"), e.Question)
			fmt.Printf("A: %s\n", e.Answer)
			if len(e.Sources) > 0 {
				fmt.Printf("Sources: %s\n", strings.Join(e.Sources, ", "))
			}
			fmt.Println()
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().Int("limit", 20, "maximum number of entries")
	historyCmd.Flags().Bool("json", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}
