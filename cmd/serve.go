package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/api"
	"github.com/Ell-716/starting-ragchatbot-codebase/internal/rag"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the chatbot's HTTP API. On startup every document in the
documents folder is ingested; while running, new or changed documents are
picked up automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	logger := slog.Default()

	if _, err := os.Stat(a.cfg.DocsDir); err == nil {
		stats, err := a.system.IngestFolder(ctx, a.cfg.DocsDir)
		if err != nil {
			logger.Warn("startup ingestion failed", "error", err)
		} else {
			logger.Info("startup ingestion complete",
				"courses", stats.Courses, "chunks", stats.Chunks)
		}

		if a.cfg.WatchDocs {
			watcher, err := rag.NewWatcher(a.system, logger)
			if err != nil {
				logger.Warn("document watcher unavailable", "error", err)
			} else {
				defer watcher.Close()
				go func() {
					if err := watcher.Watch(ctx, a.cfg.DocsDir); err != nil {
						logger.Warn("document watcher stopped", "error", err)
					}
				}()
			}
		}
	} else {
		logger.Warn("documents folder not found, starting with empty corpus", "dir", a.cfg.DocsDir)
	}

	return api.NewServer(a.system, logger).Run(ctx, a.cfg.HTTPAddr)
}
