package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"readlog/internal/reading"
)

type StatsOptions struct {
	*RootOptions
	Year string
}

// NewStatsCommand creates the stats command: compute the report offline over
// the local store.
func NewStatsCommand(root *RootOptions) *cobra.Command {
	opts := &StatsOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Compute reading stats from the local store",
		Long: `Stats computes the full report (yearly totals, per-type averages,
complete-day streak) from the local store, no server round trip. Pass
--year to scope everything except the available-years list.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(opts.RootOptions)
			if err != nil {
				return err
			}
			defer e.close()

			entries, err := e.local.ReadAllEntries()
			if err != nil {
				return err
			}

			today, err := reading.Today(e.cfg.Timezone)
			if err != nil {
				return err
			}

			report, err := reading.ComputeStats(entries, opts.Year, today)
			if err != nil {
				return err
			}

			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.Year, "year", "", "scope the report to one year (YYYY)")

	return cmd
}
