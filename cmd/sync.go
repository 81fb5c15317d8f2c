package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/devflow/internal/indexer"
	"github.com/ziadkadry99/devflow/internal/progress"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Bring the index up to date with the documents directory",
	Long: `Indexes new documents, re-indexes modified ones, completes documents left
partially indexed by an interrupted pass and removes documents that no
longer exist. Running it twice in a row writes nothing the second time.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().Bool("json", false, "output the result as JSON")
	syncCmd.Flags().Bool("quiet", false, "do not show progress")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")
	quiet, _ := cmd.Flags().GetBool("quiet")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	if !quiet && !jsonOutput {
		a.sync.SetProgressFunc(progress.Func(progress.NewReporter()))
	}

	result, err := a.svc.Sync(ctx)
	if indexer.IsBusy(err) {
		return fmt.Errorf("another sync is running against %s", a.cfg.StoreDir)
	}
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			*indexer.SyncResult
			Errors []string `json:"errors,omitempty"`
		}{result, result.ErrorStrings()})
	}

	printSyncResult(result)
	return nil
}

func printSyncResult(r *indexer.SyncResult) {
	fmt.Printf("Sync finished in %s\n", r.Duration.Round(time.Millisecond))
	fmt.Printf("  Added:     %d\n", r.Added)
	fmt.Printf("  Modified:  %d\n", r.Modified)
	fmt.Printf("  Resumed:   %d\n", r.Resumed)
	fmt.Printf("  Removed:   %d\n", r.Removed)
	fmt.Printf("  Unchanged: %d\n", r.Unchanged)
	if r.Empty > 0 {
		fmt.Printf("  Empty:     %d\n", r.Empty)
	}
	fmt.Printf("  Chunks written %d, skipped %d, deleted %d\n", r.ChunksWritten, r.ChunksSkipped, r.ChunksDeleted)
	for _, e := range r.ErrorStrings() {
		fmt.Fprintf(os.Stderr, "  error: %s\n", e)
	}
	if r.ChunksSkipped > 0 {
		fmt.Println("Some chunks could not be embedded; the next sync will retry them.")
	}
}
