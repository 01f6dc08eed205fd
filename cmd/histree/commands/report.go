package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
)

// Report formats shared by contributors and periods.
const (
	formatTable = "table"
	formatJSON  = "json"
)

// ErrUnknownReportFormat indicates a --format other than table or json.
var ErrUnknownReportFormat = errors.New("unknown report format (want table or json)")

func newContributorsCommand(global *GlobalOptions) *cobra.Command {
	var (
		limit  int
		format string
	)

	cmd := &cobra.Command{
		Use:   "contributors",
		Short: "List contributors with commit, insertion and deletion totals",
		Args:  cobra.NoArgs,
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

			contributors := changelog.Contributors(commits)
			if limit > 0 && len(contributors) > limit {
				contributors = contributors[:limit]
			}

			switch strings.ToLower(format) {
			case formatTable:
				return writeContributorsTable(cmd.OutOrStdout(), contributors, len(commits))
			case formatJSON:
				return writeJSON(cmd.OutOrStdout(), contributors)
			default:
				return fmt.Errorf("%w: %q", ErrUnknownReportFormat, format)
			}
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most this many contributors (0 = all)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")

	return cmd
}

func newPeriodsCommand(global *GlobalOptions) *cobra.Command {
	var (
		unit   string
		tz     string
		format string
	)

	cmd := &cobra.Command{
		Use:   "periods",
		Short: "Count commits per day, week or month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := changelog.ParsePeriod(unit)
			if err != nil {
				return err
			}

			loc := time.Local

			if tz != "" {
				loc, err = time.LoadLocation(tz)
				if err != nil {
					return fmt.Errorf("load timezone: %w", err)
				}
			}

			sess, err := global.open(cmd, observability.ModeCLI)
			if err != nil {
				return err
			}
			defer sess.close()

			commits, err := sess.history(cmd.Context())
			if err != nil {
				return err
			}

			groups := changelog.GroupByPeriod(commits, period, loc)

			switch strings.ToLower(format) {
			case formatTable:
				return writePeriodsTable(cmd.OutOrStdout(), groups, period)
			case formatJSON:
				return writeJSON(cmd.OutOrStdout(), periodRows(groups))
			default:
				return fmt.Errorf("%w: %q", ErrUnknownReportFormat, format)
			}
		},
	}

	cmd.Flags().StringVarP(&unit, "unit", "u", string(changelog.Week), "period: day, week or month")
	cmd.Flags().StringVar(&tz, "tz", "", "IANA time zone for period boundaries (default: local)")
	cmd.Flags().StringVarP(&format, "format", "f", formatTable, "output format: table or json")

	return cmd
}

func newTable(w io.Writer) table.Writer {
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false
	tbl.Style().Options.DrawBorder = false

	return tbl
}

func writeContributorsTable(w io.Writer, contributors []changelog.Contributor, total int) error {
	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Author", "Emails", "Commits", "Share", "Insertions", "Deletions"})
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})

	for _, c := range contributors {
		share := 0.0
		if total > 0 {
			share = float64(c.Commits) / float64(total)
		}

		tbl.AppendRow(table.Row{
			c.Name,
			strings.Join(c.Emails, ", "),
			humanize.Comma(int64(c.Commits)),
			humanize.FormatFloat("#.#", share*100) + "%",
			"+" + humanize.Comma(int64(c.Insertions)),
			"-" + humanize.Comma(int64(c.Deletions)),
		})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d contributors", len(contributors)), "", humanize.Comma(int64(total))})
	tbl.Render()

	return nil
}

// periodRow is the JSON form of one period.
type periodRow struct {
	Start   time.Time `json:"start"`
	Commits int       `json:"commits"`
	Authors int       `json:"authors"`
}

func periodRows(groups []changelog.Group) []periodRow {
	rows := make([]periodRow, 0, len(groups))

	for _, g := range groups {
		authors := make(map[string]struct{}, len(g.Commits))
		for _, c := range g.Commits {
			authors[c.AuthorName] = struct{}{}
		}

		rows = append(rows, periodRow{Start: g.Start, Commits: len(g.Commits), Authors: len(authors)})
	}

	return rows
}

func writePeriodsTable(w io.Writer, groups []changelog.Group, period changelog.Period) error {
	layout := time.DateOnly
	if period == changelog.Month {
		layout = "2006-01"
	}

	tbl := newTable(w)
	tbl.AppendHeader(table.Row{"Period", "Commits", "Authors", "Age"})

	total := 0

	for _, row := range periodRows(groups) {
		total += row.Commits

		tbl.AppendRow(table.Row{row.Start.Format(layout), row.Commits, row.Authors, humanize.Time(row.Start)})
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("%d periods", len(groups)), total})
	tbl.Render()

	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")

	err := enc.Encode(v)
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}

	return nil
}
