package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/devflow/internal/assistant"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the indexed documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		topK, _ := cmd.Flags().GetInt("top-k")
		cached, _ := cmd.Flags().GetBool("cached")
		session, _ := cmd.Flags().GetString("session")

		a, err := openApp(ctx, appOptions{requireLLM: true})
		if err != nil {
			return err
		}
		defer a.close()

		ans, err := a.svc.Ask(ctx, assistant.AskRequest{
			Query:     strings.Join(args, " "),
			TopK:      topK,
			SessionID: session,
			UseCache:  cached,
		})
		if err != nil {
			return err
		}

		fmt.Println(ans.Answer)
		if len(ans.Sources) > 0 {
			fmt.Printf("\nSources: %s\n", strings.Join(ans.Sources, ", "))
		}
		if ans.Cached {
			fmt.Println("(answer served from history)")
		}
		return nil
	},
}

func init() {
	askCmd.Flags().Int("top-k", 0, "number of passages to ground the answer on (default from config)")
	askCmd.Flags().Bool("cached", false, "reuse a previous answer to the same question")
	askCmd.Flags().String("session", "", "session id to record the exchange under")
	rootCmd.AddCommand(askCmd)
}
