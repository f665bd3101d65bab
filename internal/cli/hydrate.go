package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

type HydrateOptions struct {
	*RootOptions
	Yes bool
}

// NewHydrateCommand creates the hydrate command: pull full server state and
// overwrite the local store.
func NewHydrateCommand(root *RootOptions) *cobra.Command {
	opts := &HydrateOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "hydrate",
		Short: "Replace the local store with the server's state",
		Long: `Hydrate pulls every entry and topic from the server and overwrites
the local store with them. Local-only data is lost; pass --yes to confirm.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !opts.Yes {
				return errors.New("hydrate overwrites local data; re-run with --yes to confirm")
			}

			e, err := openEnv(opts.RootOptions)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signalContext()
			defer stop()

			res, err := e.engine.Hydrate(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "hydrated %d entries, %d topics", res.Entries, res.Topics)
			if res.DroppedEntries > 0 || res.DroppedTopics > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), " (dropped %d entries, %d topics)", res.DroppedEntries, res.DroppedTopics)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.Yes, "yes", false, "confirm overwriting local data")

	return cmd
}
