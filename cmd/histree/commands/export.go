package commands

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
)

func newExportCommand(global *GlobalOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the history as a CSV change log",
		Long: `Write the loaded history (usually a git repository) as a CSV change log with
the columns commitId, authorName, authorEmail, commitTimeUnix, commitMessage,
filesModified and summary, newest first. The file can be read back with
--source csv.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := global.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer sess.close()

			commits, err := sess.history(cmd.Context())
			if err != nil {
				return err
			}

			write := func(w io.Writer) error { return changelog.WriteCSV(w, commits) }

			if output == "" {
				err = write(cmd.OutOrStdout())
			} else {
				err = writeFile(output, write)
			}

			if err != nil {
				return err
			}

			sess.logger.Debug("change log exported", "commits", len(commits), "path", output)

			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "write to this file instead of stdout")

	return cmd
}
