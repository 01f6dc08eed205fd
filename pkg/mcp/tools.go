package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/filetree"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
)

// Tool name constants.
const (
	ToolNameSnapshot     = "histree_snapshot"
	ToolNameContributors = "histree_contributors"
	ToolNamePeriods      = "histree_periods"
	ToolNameDiff         = "histree_diff"
)

// MaxDiffLines caps the diff lines returned by histree_diff.
const MaxDiffLines = 2000

// Sentinel errors for tool input validation.
var (
	// ErrNoService indicates the server was built without a snapshot service.
	ErrNoService = errors.New("no history loaded")
	// ErrEmptyInstant indicates a required instant parameter is empty.
	ErrEmptyInstant = errors.New("instant parameter is required and must not be empty")
	// ErrNegativeLimit indicates a negative limit parameter.
	ErrNegativeLimit = errors.New("limit must not be negative")
)

// Input types (auto-generate JSON schemas via struct tags).

// SnapshotInput is the input schema for the histree_snapshot tool.
type SnapshotInput struct {
	At           string   `json:"at,omitempty"            jsonschema:"cutoff instant: RFC 3339, YYYY-MM-DD or unix seconds (default: now)"`
	Authors      []string `json:"authors,omitempty"       jsonschema:"count only changes by these author names"`
	Collapsed    []string `json:"collapsed,omitempty"     jsonschema:"directory paths excluded from their parent's total"`
	Include      []string `json:"include,omitempty"       jsonschema:"doublestar globs of files to keep (e.g. src/**/*.go)"`
	WithCommits  bool     `json:"with_commits,omitempty"  jsonschema:"include commit ids per node"`
	SkipVendored bool     `json:"skip_vendored,omitempty" jsonschema:"drop vendored files and directories"`
}

// ContributorsInput is the input schema for the histree_contributors tool.
type ContributorsInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of contributors to return (default: all)"`
}

// PeriodsInput is the input schema for the histree_periods tool.
type PeriodsInput struct {
	Unit     string `json:"unit,omitempty"     jsonschema:"day, week or month (default: week)"`
	Timezone string `json:"timezone,omitempty" jsonschema:"IANA time zone for period boundaries (default: UTC)"`
}

// DiffInput is the input schema for the histree_diff tool.
type DiffInput struct {
	From   string `json:"from" jsonschema:"earlier instant"`
	To     string `json:"to"   jsonschema:"later instant"`
	Totals bool   `json:"totals,omitempty" jsonschema:"also compare aggregate totals per directory"`
}

// Output type (used as structured output for generic AddTool).

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

// PeriodCount is one row of histree_periods.
type PeriodCount struct {
	Start   time.Time `json:"start"`
	Commits int       `json:"commits"`
}

type toolset struct {
	svc *snapshot.Service
}

func (ts *toolset) handleSnapshot(ctx context.Context, _ *mcpsdk.CallToolRequest, input SnapshotInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if ts.svc == nil {
		return errorResult(ErrNoService)
	}

	at, err := snapshot.ParseInstant(input.At)
	if err != nil {
		return errorResult(err)
	}

	doc, err := ts.svc.Build(ctx, snapshot.Request{
		At:           at,
		Contributors: input.Authors,
		Collapsed:    input.Collapsed,
		Include:      input.Include,
		WithCommits:  input.WithCommits,
		SkipVendored: input.SkipVendored,
	})
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(doc)
}

func (ts *toolset) handleContributors(_ context.Context, _ *mcpsdk.CallToolRequest, input ContributorsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if ts.svc == nil {
		return errorResult(ErrNoService)
	}

	if input.Limit < 0 {
		return errorResult(fmt.Errorf("%w: %d", ErrNegativeLimit, input.Limit))
	}

	contributors := ts.svc.Contributors()
	if input.Limit > 0 && len(contributors) > input.Limit {
		contributors = contributors[:input.Limit]
	}

	return jsonResult(contributors)
}

func (ts *toolset) handlePeriods(_ context.Context, _ *mcpsdk.CallToolRequest, input PeriodsInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if ts.svc == nil {
		return errorResult(ErrNoService)
	}

	unit := input.Unit
	if unit == "" {
		unit = string(changelog.Week)
	}

	period, err := changelog.ParsePeriod(unit)
	if err != nil {
		return errorResult(err)
	}

	loc := time.UTC

	if input.Timezone != "" {
		loc, err = time.LoadLocation(input.Timezone)
		if err != nil {
			return errorResult(fmt.Errorf("load timezone: %w", err))
		}
	}

	groups := ts.svc.Periods(period, loc)
	out := make([]PeriodCount, 0, len(groups))

	for _, group := range groups {
		out = append(out, PeriodCount{Start: group.Start, Commits: len(group.Commits)})
	}

	return jsonResult(out)
}

func (ts *toolset) handleDiff(ctx context.Context, _ *mcpsdk.CallToolRequest, input DiffInput) (*mcpsdk.CallToolResult, ToolOutput, error) {
	if ts.svc == nil {
		return errorResult(ErrNoService)
	}

	if input.From == "" || input.To == "" {
		return errorResult(ErrEmptyInstant)
	}

	from, err := snapshot.ParseInstant(input.From)
	if err != nil {
		return errorResult(err)
	}

	to, err := snapshot.ParseInstant(input.To)
	if err != nil {
		return errorResult(err)
	}

	var agg *filetree.AggregateOptions
	if input.Totals {
		agg = &filetree.AggregateOptions{}
	}

	diff, err := ts.svc.Diff(ctx, from, to, agg)
	if err != nil {
		return errorResult(err)
	}

	var sb strings.Builder

	formatErr := diff.Format(&sb, false, false)
	if formatErr != nil {
		return errorResult(formatErr)
	}

	text := sb.String()
	if !diff.Changed() {
		text = "no changes\n"
	}

	lines := strings.SplitAfter(text, "\n")
	if len(lines) > MaxDiffLines {
		text = strings.Join(lines[:MaxDiffLines], "") + fmt.Sprintf("... %d more lines\n", len(lines)-MaxDiffLines)
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: text},
		},
	}, ToolOutput{Data: map[string]int{"added": diff.Added, "removed": diff.Removed}}, nil
}

// Result helpers.

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}
