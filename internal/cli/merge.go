package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewMergeCommand creates the merge command: non-destructive pull that folds
// server records into the local store by last-writer-wins.
func NewMergeCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge server records into the local store",
		Long: `Merge pulls the server's entries and topics and folds them into the
local store without dropping local-only records. When both sides hold the
same record, the strictly newer updated_at wins; on a tie the local copy
is kept. Running merge twice with no intervening edits changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signalContext()
			defer stop()

			res, err := e.engine.MergePull(ctx)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(),
				"entries: +%d new, %d updated\ntopics: +%d new, %d updated\nitems: +%d new, %d updated\n",
				res.EntriesAdded, res.EntriesUpdated,
				res.TopicsAdded, res.TopicsUpdated,
				res.ItemsAdded, res.ItemsUpdated)
			return nil
		},
	}

	return cmd
}
