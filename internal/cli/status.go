package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatusCommand creates the status command: a quick look at what the
// local store holds.
func NewStatusCommand(root *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the local store holds",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(root)
			if err != nil {
				return err
			}
			defer e.close()

			entries, err := e.local.ReadAllEntries()
			if err != nil {
				return err
			}
			cur, err := e.local.ReadCurriculum()
			if err != nil {
				return err
			}

			items := 0
			for _, t := range cur.Topics {
				items += len(t.Items)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "store:   %s\n", e.cfg.DBPath)
			fmt.Fprintf(out, "server:  %s\n", e.cfg.ServerURL)
			fmt.Fprintf(out, "entries: %d\n", len(entries))
			fmt.Fprintf(out, "topics:  %d (%d items)\n", len(cur.Topics), items)
			return nil
		},
	}

	return cmd
}
