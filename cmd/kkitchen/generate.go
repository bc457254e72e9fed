package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/tbourn/k-kitchen/internal/observability"
)

var generateCount int

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate posts from the terminal",
	Long: `Runs --count generation ticks against the configured database and prints
the title of every emitted post. Posts emitted before a failing tick are
kept.`,
	Example: "  kkitchen generate --count 3",
	Args:    cobra.NoArgs,
	RunE:    runGenerate,
}

func init() {
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", 1, "number of generation ticks")
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupOTel(ctx, cfg.OTEL, version())
	if err != nil {
		return err
	}
	defer flush(shutdownTracing)

	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	posts, err := a.feed.GenerateBatch(ctx, generateCount)
	out := cmd.OutOrStdout()
	for _, p := range posts {
		fmt.Fprintf(out, "%s\t%s\t%s\n", p.ID, p.Author.Name, p.Title)
	}
	if err != nil {
		return fmt.Errorf("generated %d of %d post(s): %w", len(posts), generateCount, err)
	}
	return nil
}
