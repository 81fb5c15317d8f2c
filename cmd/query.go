package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query [question]",
	Short: "Retrieve the passages most relevant to a question",
	Long:  `Embeds the question, recalls the nearest chunks from the index and reranks them. No answer is generated.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

func init() {
	queryCmd.Flags().Int("top-k", 0, "number of passages to return (default from config)")
	queryCmd.Flags().Bool("json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	topK, _ := cmd.Flags().GetInt("top-k")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if a.store.Count() == 0 {
		fmt.Println("The index is empty. Run `devflow sync` first.")
		return nil
	}

	results, err := a.svc.Search(ctx, args[0], topK)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}
	for i, r := range results {
		fmt.Printf("--- [%d] %s (chunk %d, score %.3f) ---\n", i+1, filepath.Base(r.Source), r.Ordinal, r.Score)
		fmt.Printf("%s\n\n", r.Text)
	}
	return nil
}
