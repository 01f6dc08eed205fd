package commands

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/filetree"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
)

// ErrMissingFrom indicates diff was run without --from.
var ErrMissingFrom = errors.New("--from is required")

func newDiffCommand(global *GlobalOptions) *cobra.Command {
	var (
		from, to    string
		withContext bool
		totals      bool
		authors     []string
		collapsed   []string
	)

	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare the file trees at two instants",
		Long: `Render the trees as of --from and --to and print the lines that differ.
A file whose change count moved shows up as a removed and an added line.`,
		Example: `  histree diff --from 2024-01-01 --to 2024-02-01
  histree diff --from 2024-01-01 --totals --authors alice --context`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if from == "" {
				return ErrMissingFrom
			}

			fromAt, err := snapshot.ParseInstant(from)
			if err != nil {
				return err
			}

			toAt, err := snapshot.ParseInstant(to)
			if err != nil {
				return err
			}

			sess, err := global.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer sess.close()

			svc, err := sess.service(cmd.Context())
			if err != nil {
				return err
			}

			var agg *filetree.AggregateOptions

			if totals || len(authors) > 0 || len(collapsed) > 0 {
				agg = &filetree.AggregateOptions{
					Contributors: filetree.NewContributorFilter(authors...),
					Collapsed:    filetree.CollapsedPaths(collapsed...),
				}
			}

			diff, err := svc.Diff(cmd.Context(), fromAt, toAt, agg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()

			if !diff.Changed() {
				sess.logger.Info("trees are identical", "from", fromAt, "to", toAt)

				return nil
			}

			return diff.Format(out, withContext, global.useColor(out))
		},
	}

	cmd.Flags().StringVar(&from, "from", "", "earlier instant")
	cmd.Flags().StringVar(&to, "to", "", "later instant (default: now)")
	cmd.Flags().BoolVar(&withContext, "context", false, "also print unchanged lines")
	cmd.Flags().BoolVar(&totals, "totals", false, "compare aggregate totals too")
	cmd.Flags().StringSliceVar(&authors, "authors", nil, "restrict totals to these authors")
	cmd.Flags().StringSliceVar(&collapsed, "collapsed", nil, "directory paths excluded from their parent's total")

	return cmd
}
