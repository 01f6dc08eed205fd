package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/filetree"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/persist"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
)

// formatText selects the indented text tree.
const formatText = "text"

// SnapshotOptions holds the snapshot command flags.
type SnapshotOptions struct {
	At           string
	Authors      []string
	Collapsed    []string
	Include      []string
	Format       string
	Output       string
	WithCommits  bool
	SkipVendored bool
	Totals       bool
	Depth        int
}

func newSnapshotCommand(global *GlobalOptions) *cobra.Command {
	opts := &SnapshotOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print or save the file tree as it stood just before an instant",
		Long: `Replay every commit strictly before --at and print the resulting tree.

The text format prints one line per node with its own change count; --totals
adds the aggregate of the subtree, restricted to --authors when given and
skipping --collapsed directories. Structured formats (json, yaml, gob) emit a
snapshot document that "histree validate" can check.`,
		Example: `  histree snapshot --at 2024-01-01
  histree snapshot -i log.csv --at 1700000000 --authors alice,bob --totals
  histree snapshot --format json --include 'src/**' --output snap.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSnapshot(cmd, global, opts)
		},
	}

	cmd.Flags().StringVar(&opts.At, "at", "", "cutoff instant: RFC 3339, YYYY-MM-DD or unix seconds (default: now)")
	cmd.Flags().StringSliceVar(&opts.Authors, "authors", nil, "count only changes by these authors")
	cmd.Flags().StringSliceVar(&opts.Collapsed, "collapsed", nil, "directory paths excluded from their parent's total")
	cmd.Flags().StringSliceVar(&opts.Include, "include", nil, "doublestar globs of files to keep (structured formats)")
	cmd.Flags().StringVarP(&opts.Format, "format", "f", formatText, "output format: text, json, yaml or gob")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write to this file instead of stdout")
	cmd.Flags().BoolVar(&opts.WithCommits, "with-commits", false, "include commit ids per node")
	cmd.Flags().BoolVar(&opts.SkipVendored, "skip-vendored", false, "drop vendored files and directories")
	cmd.Flags().BoolVar(&opts.Totals, "totals", false, "text format: print aggregate totals")
	cmd.Flags().IntVar(&opts.Depth, "depth", 0, "text format: maximum depth to print (0 = all)")

	return cmd
}

func runSnapshot(cmd *cobra.Command, global *GlobalOptions, opts *SnapshotOptions) error {
	at, err := snapshot.ParseInstant(opts.At)
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

	req := snapshot.Request{
		At:           at,
		Contributors: opts.Authors,
		Collapsed:    opts.Collapsed,
		Include:      opts.Include,
		WithCommits:  opts.WithCommits,
		SkipVendored: opts.SkipVendored || sess.cfg.Snapshot.SkipVendored,
	}

	if strings.EqualFold(opts.Format, formatText) {
		return writeTextSnapshot(cmd, global, svc, req, opts)
	}

	codec, err := persist.CodecFor(opts.Format)
	if err != nil {
		return err
	}

	doc, err := svc.Build(cmd.Context(), req)
	if err != nil {
		return err
	}

	if opts.Output != "" {
		saveErr := persist.NewPersister[snapshot.Document](codec).Save(opts.Output, doc)
		if saveErr != nil {
			return saveErr
		}

		sess.logger.Info("snapshot written", "path", opts.Output, "commits", doc.Commits)

		return nil
	}

	encodeErr := codec.Encode(cmd.OutOrStdout(), doc)
	if encodeErr != nil {
		return fmt.Errorf("encode snapshot: %w", encodeErr)
	}

	return nil
}

func writeTextSnapshot(cmd *cobra.Command, global *GlobalOptions, svc *snapshot.Service, req snapshot.Request, opts *SnapshotOptions) error {
	root, err := svc.Tree(cmd.Context(), req.At)
	if err != nil {
		return err
	}

	renderOpts := filetree.RenderOptions{MaxDepth: opts.Depth}

	if opts.Totals || len(req.Contributors) > 0 || len(req.Collapsed) > 0 {
		renderOpts.Aggregate = &filetree.AggregateOptions{
			Contributors: filetree.NewContributorFilter(req.Contributors...),
			Collapsed:    filetree.CollapsedPaths(req.Collapsed...),
		}
	}

	if opts.Output == "" {
		out := cmd.OutOrStdout()
		renderOpts.Color = global.useColor(out)

		return filetree.Render(out, root, renderOpts)
	}

	return writeFile(opts.Output, func(w io.Writer) error {
		return filetree.Render(w, root, renderOpts)
	})
}

// writeFile creates path, including parent directories, and hands it to fn.
// The close error is reported when fn succeeds.
func writeFile(path string, fn func(io.Writer) error) error {
	mkdirErr := os.MkdirAll(filepath.Dir(path), 0o750)
	if mkdirErr != nil {
		return fmt.Errorf("create output dir: %w", mkdirErr)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}

	writeErr := fn(f)
	if writeErr != nil {
		f.Close()

		return writeErr
	}

	closeErr := f.Close()
	if closeErr != nil {
		return fmt.Errorf("close %s: %w", path, closeErr)
	}

	return nil
}
