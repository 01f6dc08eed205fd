package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/Sumatoshi-tech/histree/pkg/filetree"
)

// DiffOp classifies a line of a TreeDiff.
type DiffOp int

// Diff line operations.
const (
	DiffEqual DiffOp = iota
	DiffInsert
	DiffDelete
)

var diffPrefix = map[DiffOp]string{DiffEqual: " ", DiffInsert: "+", DiffDelete: "-"}

// DiffLine is one rendered tree line with its operation.
type DiffLine struct {
	Op   DiffOp
	Text string
}

// TreeDiff is a line diff between the rendered trees at two instants.
type TreeDiff struct {
	From    time.Time
	To      time.Time
	Lines   []DiffLine
	Added   int
	Removed int
}

// Diff renders the trees as of from and to and diffs them line by line.
// A node whose count changed shows up as a removed and an added line.
func (s *Service) Diff(ctx context.Context, from, to time.Time, agg *filetree.AggregateOptions) (*TreeDiff, error) {
	before, err := s.renderAt(ctx, from, agg)
	if err != nil {
		return nil, err
	}

	after, err := s.renderAt(ctx, to, agg)
	if err != nil {
		return nil, err
	}

	dmp := diffmatchpatch.New()
	chars1, chars2, lines := dmp.DiffLinesToChars(before, after)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(chars1, chars2, false), lines)

	result := &TreeDiff{From: from, To: to}

	for _, d := range diffs {
		op := DiffEqual

		switch d.Type {
		case diffmatchpatch.DiffInsert:
			op = DiffInsert
		case diffmatchpatch.DiffDelete:
			op = DiffDelete
		case diffmatchpatch.DiffEqual:
		}

		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			result.Lines = append(result.Lines, DiffLine{Op: op, Text: strings.TrimSuffix(line, "\n")})

			switch op {
			case DiffInsert:
				result.Added++
			case DiffDelete:
				result.Removed++
			case DiffEqual:
			}
		}
	}

	return result, nil
}

// Changed reports whether the two trees differ.
func (d *TreeDiff) Changed() bool {
	return d.Added > 0 || d.Removed > 0
}

// Format writes the diff with +/-/space prefixes. Unchanged lines are
// omitted unless withContext is set.
func (d *TreeDiff) Format(w io.Writer, withContext, colored bool) error {
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)

	if colored {
		added.EnableColor()
		removed.EnableColor()
	} else {
		added.DisableColor()
		removed.DisableColor()
	}

	for _, line := range d.Lines {
		text := diffPrefix[line.Op] + line.Text

		switch line.Op {
		case DiffInsert:
			text = added.Sprint(text)
		case DiffDelete:
			text = removed.Sprint(text)
		case DiffEqual:
			if !withContext {
				continue
			}
		}

		_, err := fmt.Fprintln(w, text)
		if err != nil {
			return fmt.Errorf("format diff: %w", err)
		}
	}

	return nil
}

func (s *Service) renderAt(ctx context.Context, at time.Time, agg *filetree.AggregateOptions) (string, error) {
	root, err := s.Tree(ctx, at)
	if err != nil {
		return "", err
	}

	var sb strings.Builder

	renderErr := filetree.Render(&sb, root, filetree.RenderOptions{Aggregate: agg})
	if renderErr != nil {
		return "", fmt.Errorf("render %s: %w", at.Format(time.RFC3339), renderErr)
	}

	return sb.String(), nil
}
