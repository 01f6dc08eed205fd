package changelog_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
)

func TestContributors(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{
		{AuthorName: "Bob", AuthorEmail: "bob@x", Insertions: 1},
		{AuthorName: "Alice", AuthorEmail: "alice@work", Insertions: 5, Deletions: 2},
		{AuthorName: "Alice", AuthorEmail: "alice@home", Insertions: 1},
		{AuthorName: "Alice", AuthorEmail: "alice@work"},
		{AuthorName: "Carol", AuthorEmail: "carol@x"},
	}

	got := changelog.Contributors(commits)
	require.Len(t, got, 3)

	assert.Equal(t, changelog.Contributor{
		Name: "Alice", Emails: []string{"alice@work", "alice@home"}, Commits: 3, Insertions: 6, Deletions: 2,
	}, got[0])
	assert.Equal(t, "Bob", got[1].Name)
	assert.Equal(t, "Carol", got[2].Name)
}

func TestParsePeriod(t *testing.T) {
	t.Parallel()

	p, err := changelog.ParsePeriod(" Week ")
	require.NoError(t, err)
	assert.Equal(t, changelog.Week, p)

	_, err = changelog.ParsePeriod("year")
	require.ErrorIs(t, err, changelog.ErrUnknownPeriod)
}

func TestGroupByPeriod(t *testing.T) {
	t.Parallel()

	at := func(s string) int64 {
		ts, err := time.Parse(time.RFC3339, s)
		require.NoError(t, err)

		return ts.Unix()
	}

	// 2024-03-06 is a Wednesday, 2024-03-10 a Sunday.
	commits := []changelog.Commit{
		{ID: "a", Timestamp: at("2024-03-06T09:00:00Z")},
		{ID: "b", Timestamp: at("2024-03-06T18:00:00Z")},
		{ID: "c", Timestamp: at("2024-03-09T12:00:00Z")},
		{ID: "d", Timestamp: at("2024-03-10T01:00:00Z")},
		{ID: "e", Timestamp: at("2024-04-01T00:00:00Z")},
	}

	days := changelog.GroupByPeriod(commits, changelog.Day, time.UTC)
	require.Len(t, days, 4)
	assert.Len(t, days[0].Commits, 2)
	assert.Equal(t, time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), days[0].Start)

	weeks := changelog.GroupByPeriod(commits, changelog.Week, time.UTC)
	require.Len(t, weeks, 3)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC), weeks[0].Start)
	assert.Len(t, weeks[0].Commits, 3)
	assert.Equal(t, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC), weeks[1].Start)

	months := changelog.GroupByPeriod(commits, changelog.Month, time.UTC)
	require.Len(t, months, 2)
	assert.Len(t, months[0].Commits, 4)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), months[1].Start)
}

func TestBetween(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{{ID: "a", Timestamp: 10}, {ID: "b", Timestamp: 20}, {ID: "c", Timestamp: 30}}

	since := time.Unix(20, 0)
	until := time.Unix(30, 0)

	ids := func(cs []changelog.Commit) []string {
		out := make([]string, 0, len(cs))
		for _, c := range cs {
			out = append(out, c.ID)
		}

		return out
	}

	assert.Equal(t, []string{"b"}, ids(changelog.Between(commits, &since, &until)))
	assert.Equal(t, []string{"b", "c"}, ids(changelog.Between(commits, &since, nil)))
	assert.Equal(t, []string{"a", "b"}, ids(changelog.Between(commits, nil, &until)))
	assert.Len(t, changelog.Between(commits, nil, nil), 3)
}
