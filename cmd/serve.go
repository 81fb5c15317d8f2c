package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ziadkadry99/devflow/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP and WebSocket server",
	Long: `Synchronizes the index once, then serves search, answers, sync, status and
history over a JSON API plus a WebSocket chat endpoint at /ws/chat.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr, _ := cmd.Flags().GetString("addr")
		skipSync, _ := cmd.Flags().GetBool("no-sync")

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := openApp(ctx, appOptions{})
		if err != nil {
			return err
		}
		defer a.close()

		if !skipSync {
			result, err := a.svc.Sync(ctx)
			if err != nil {
				a.logger.Warn("startup_sync_failed", slog.String("error", err.Error()))
			} else {
				a.logger.Info("startup_sync_done",
					slog.Int("added", result.Added),
					slog.Int("modified", result.Modified),
					slog.Int("removed", result.Removed),
					slog.Int("chunks", a.store.Count()))
			}
		}

		// Interrupted during the startup sync.
		if err := ctx.Err(); err != nil {
			return err
		}

		if addr == "" {
			addr = a.cfg.Server.Addr
		}
		srv := server.New(server.Config{
			Addr:     addr,
			AllowAll: a.cfg.Server.AllowAllOrigins,
		}, a.svc, a.logger)

		go func() {
			<-ctx.Done()
			fmt.Fprintln(os.Stderr, "\nShutting down server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx)
		}()

		fmt.Fprintf(os.Stderr, "devflow server %s listening on %s\n", Version, addr)
		fmt.Fprintf(os.Stderr, "  Documents: %s\n", a.cfg.DocsDir)
		fmt.Fprintf(os.Stderr, "  Chunks indexed: %d\n", a.store.Count())

		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().Bool("no-sync", false, "skip the startup sync")
	rootCmd.AddCommand(serveCmd)
}
