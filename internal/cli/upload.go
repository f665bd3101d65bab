package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	syncengine "readlog/internal/sync"
)

type UploadOptions struct {
	*RootOptions
	EntriesOnly    bool
	CurriculumOnly bool
}

// NewUploadCommand creates the upload command: push local entries and
// curriculum to the server's idempotent upsert endpoints.
func NewUploadCommand(root *RootOptions) *cobra.Command {
	opts := &UploadOptions{RootOptions: root}

	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Push local entries and curriculum to the server",
		Long: `Upload pushes every local entry and topic through the server's
idempotent upserts. Re-running after a partial failure is safe: already
uploaded records simply upsert again. One bad record never aborts the
batch.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.EntriesOnly && opts.CurriculumOnly {
				return errors.New("--entries-only and --curriculum-only are mutually exclusive")
			}

			e, err := openEnv(opts.RootOptions)
			if err != nil {
				return err
			}
			defer e.close()

			ctx, stop := signalContext()
			defer stop()

			out := cmd.OutOrStdout()

			if !opts.CurriculumOnly {
				res, err := e.engine.UploadEntries(ctx, func(p syncengine.EntryUploadResult) {
					fmt.Fprintf(out, "\rentries: %d/%d uploaded, %d skipped, %d failed",
						p.Uploaded, p.Total, p.Skipped, p.Failed)
				})
				if res != nil && res.Total > 0 {
					fmt.Fprintln(out)
				}
				if err != nil {
					return err
				}
				if res.FirstError != "" {
					fmt.Fprintf(out, "first error: %s\n", res.FirstError)
				}
			}

			if !opts.EntriesOnly {
				res, err := e.engine.UploadCurriculum(ctx, func(p syncengine.CurriculumUploadResult) {
					fmt.Fprintf(out, "\rcurriculum: %d/%d topics, %d items, %d skipped, %d failed",
						p.TopicsUpserted, p.TotalTopics, p.ItemsUpserted, p.Skipped, p.Failed)
				})
				if res != nil && res.TotalTopics > 0 {
					fmt.Fprintln(out)
				}
				if err != nil {
					return err
				}
				if res.FirstError != "" {
					fmt.Fprintf(out, "first error: %s\n", res.FirstError)
				}
			}

			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.EntriesOnly, "entries-only", false, "upload entries only")
	cmd.Flags().BoolVar(&opts.CurriculumOnly, "curriculum-only", false, "upload curriculum only")

	return cmd
}
