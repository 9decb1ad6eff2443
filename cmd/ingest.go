package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index course documents from a folder",
	Long: `Parse, chunk, and index every course document in the given folder
(default: the configured documents folder). Courses already in the index
are skipped; malformed files are logged and skipped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := ""
		if len(args) == 1 {
			dir = args[0]
		}
		return runIngest(dir)
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(dir string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	if dir == "" {
		dir = a.cfg.DocsDir
	}
	stats, err := a.system.IngestFolder(ctx, dir)
	if err != nil {
		return err
	}
	fmt.Printf("Indexed %d course(s), %d chunk(s) from %s\n", stats.Courses, stats.Chunks, dir)

	analytics, err := a.system.Analytics(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Corpus now holds %d course(s)\n", analytics.TotalCourses)
	return nil
}
