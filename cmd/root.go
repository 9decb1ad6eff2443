// Package cmd implements the ragchat command-line interface.
package cmd

import (
	"log/slog"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/Ell-716/starting-ragchatbot-codebase/internal/log"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "ragchat",
	Short: "RAG chatbot over course materials",
	Long: `ragchat answers questions about a corpus of course documents by
combining semantic search over indexed lesson content with Gemini
generation. Run 'ragchat serve' to start the HTTP API, 'ragchat ingest'
to index documents, or 'ragchat ask' for a one-off question.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// .env is optional; real deployments set env vars directly.
		_ = godotenv.Load()

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(log.New(log.Config{Level: level}))
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
