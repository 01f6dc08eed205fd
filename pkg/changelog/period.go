package changelog

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Period is the bucket size used by GroupByPeriod.
type Period string

const (
	// Day buckets commits by calendar day.
	Day Period = "day"
	// Week buckets commits by week, weeks starting on Sunday.
	Week Period = "week"
	// Month buckets commits by calendar month.
	Month Period = "month"
)

// ErrUnknownPeriod is returned by ParsePeriod for unsupported names.
var ErrUnknownPeriod = errors.New("unknown period")

// ParsePeriod converts a case-insensitive period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(s))); p {
	case Day, Week, Month:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownPeriod, s)
	}
}

// Start truncates t to the beginning of its bucket in loc.
func (p Period) Start(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	y, m, d := t.Date()

	switch p {
	case Week:
		return time.Date(y, m, d-int(t.Weekday()), 0, 0, 0, 0, loc)
	case Month:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	default:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	}
}

// Group is a run of commits that fall into the same bucket.
type Group struct {
	Start   time.Time `json:"start" yaml:"start"`
	Commits []Commit  `json:"commits" yaml:"commits"`
}

// GroupByPeriod buckets commits by period in loc. Groups appear in the order
// their first commit appears in the input. A nil loc means time.Local.
func GroupByPeriod(commits []Commit, period Period, loc *time.Location) []Group {
	if loc == nil {
		loc = time.Local
	}

	var groups []Group

	index := make(map[int64]int)

	for _, c := range commits {
		start := period.Start(c.When(), loc)
		key := start.Unix()

		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Start: start})
		}

		groups[i].Commits = append(groups[i].Commits, c)
	}

	return groups
}

// Between returns the commits with since <= When() < until, keeping order.
// A nil bound is open.
func Between(commits []Commit, since, until *time.Time) []Commit {
	if since == nil && until == nil {
		return commits
	}

	out := make([]Commit, 0, len(commits))

	for _, c := range commits {
		when := c.When()

		if since != nil && when.Before(*since) {
			continue
		}

		if until != nil && !when.Before(*until) {
			continue
		}

		out = append(out, c)
	}

	return out
}
