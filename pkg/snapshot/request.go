package snapshot

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/Sumatoshi-tech/histree/pkg/filetree"
)

// ErrInvalidInstant is returned by ParseInstant for unparseable times.
var ErrInvalidInstant = errors.New("invalid instant")

// Accepted instant layouts besides unix seconds.
var instantLayouts = []string{time.RFC3339Nano, time.DateTime, time.DateOnly}

// ParseInstant accepts RFC 3339, "2006-01-02 15:04:05", "2006-01-02" (UTC)
// or integer unix seconds. An empty string means now.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Now(), nil
	}

	secs, intErr := strconv.ParseInt(s, 10, 64)
	if intErr == nil {
		return time.Unix(secs, 0), nil
	}

	for _, layout := range instantLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidInstant, s)
}

// SplitList splits a comma separated flag or query value, dropping blanks.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}

	var out []string

	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}

	return out
}

// Request describes one snapshot.
type Request struct {
	// At is the exclusive cutoff: commits strictly before At are replayed.
	At time.Time
	// Contributors restricts aggregate counts to these author names. Empty counts everyone.
	Contributors []string
	// Collapsed lists node paths excluded from their parent's aggregate.
	Collapsed []string
	// Include keeps only files matching these doublestar globs.
	Include      []string
	WithCommits  bool
	SkipVendored bool
}

func (r Request) normalized() Request {
	r.At = r.At.UTC()
	r.Contributors = sortedSet(r.Contributors)
	r.Collapsed = sortedSet(r.Collapsed)
	r.Include = sortedSet(r.Include)

	return r
}

// key identifies the encoded output of a normalized request.
func (r Request) key(format string) string {
	var sb strings.Builder

	sb.WriteString(format)
	sb.WriteByte('|')
	sb.WriteString(strconv.FormatInt(r.At.UnixNano(), 10))

	for _, list := range [][]string{r.Contributors, r.Collapsed, r.Include} {
		sb.WriteByte('|')
		sb.WriteString(strings.Join(list, "\x00"))
	}

	sb.WriteString(fmt.Sprintf("|%t|%t", r.WithCommits, r.SkipVendored))

	return sb.String()
}

func (r Request) viewOptions() filetree.ViewOptions {
	return filetree.ViewOptions{
		Aggregate:    r.aggregateOptions(),
		Include:      r.Include,
		WithCommits:  r.WithCommits,
		SkipVendored: r.SkipVendored,
	}
}

func (r Request) aggregateOptions() filetree.AggregateOptions {
	return filetree.AggregateOptions{
		Contributors: filetree.NewContributorFilter(r.Contributors...),
		Collapsed:    filetree.CollapsedPaths(r.Collapsed...),
	}
}

func sortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	out := slices.Clone(values)
	slices.Sort(out)

	return slices.Compact(out)
}
