package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/me/stride/internal/benchstore"
)

func newHistoryCmd() *cobra.Command {
	var dbPath string
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded benchmark runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := benchstore.Open(dbPath, logger)
			if err != nil {
				return fmt.Errorf("open bench db: %w", err)
			}
			defer store.Close()

			ctx := context.Background()
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate bench db: %w", err)
			}
			runs, err := store.ListRuns(ctx, limit)
			if err != nil {
				return fmt.Errorf("list runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Println("no recorded runs")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSCENARIO\tWORKERS\tJOBS\tSTEALS\tDURATION\tWHEN")
			for _, r := range runs {
				fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
					r.ID, r.Scenario, r.Workers,
					humanize.Comma(r.Jobs), humanize.Comma(r.Steals),
					r.Duration.Round(time.Millisecond),
					humanize.Time(r.CreatedAt))
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "stride.db", "Benchmark database path")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum runs to list")

	return cmd
}
