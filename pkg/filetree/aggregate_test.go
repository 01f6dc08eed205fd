package filetree_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/filetree"
)

func sampleTree(t *testing.T) *filetree.Node {
	t.Helper()

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "src/a.go"), ev(changelog.Add, "README.md")),
		commit("c2", "bob", 200, ev(changelog.Modify, "src/a.go"), ev(changelog.Add, "src/util/b.go")),
		commit("c3", "alice", 300, ev(changelog.Modify, "src/util/b.go")),
		commit("c4", "carol", 400, ev(changelog.Modify, "src/a.go")),
	}

	return filetree.BuildTreeAsOf(commits, time.Unix(1000, 0), quietLogger())
}

func TestAggregateChanges_Unfiltered(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	assert.Equal(t, 6, root.AggregateChanges(filetree.AggregateOptions{}))
	assert.Equal(t, 5, root.Child("src").AggregateChanges(filetree.AggregateOptions{}))
	assert.Equal(t, 3, root.Find("src/a.go").AggregateChanges(filetree.AggregateOptions{}))
}

func TestAggregateChanges_ContributorFilter(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	alice := filetree.AggregateOptions{Contributors: filetree.NewContributorFilter("alice")}
	assert.Equal(t, 3, root.AggregateChanges(alice))
	assert.Equal(t, 1, root.Find("src/a.go").AggregateChanges(alice))

	bobCarol := filetree.AggregateOptions{Contributors: filetree.NewContributorFilter("bob", "carol", "")}
	assert.Equal(t, 3, root.AggregateChanges(bobCarol))

	nobody := filetree.AggregateOptions{Contributors: filetree.NewContributorFilter("dave")}
	assert.Zero(t, root.AggregateChanges(nobody))
}

func TestAggregateChanges_CollapsedChildrenExcluded(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	opts := filetree.AggregateOptions{Collapsed: filetree.CollapsedPaths("src/util")}
	assert.Equal(t, 4, root.AggregateChanges(opts))

	// A collapsed node still reports its own aggregate when queried directly.
	assert.Equal(t, 2, root.Find("src/util").AggregateChanges(opts))
}

func TestCollapsedPaths_EmptyIsNil(t *testing.T) {
	t.Parallel()

	assert.Nil(t, filetree.CollapsedPaths())
}

func TestNewView(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	view, err := filetree.NewView(root, filetree.ViewOptions{WithCommits: true})
	require.NoError(t, err)

	assert.Equal(t, ".", view.Path)
	assert.Equal(t, 6, view.Aggregate)
	require.Len(t, view.Children, 2)

	src := view.Children[0]
	assert.Equal(t, "src", src.Name)
	assert.Empty(t, src.Language)

	a := src.Children[0]
	assert.Equal(t, "src/a.go", a.Path)
	assert.Equal(t, "Go", a.Language)
	assert.Equal(t, []string{"c1", "c2", "c4"}, a.Commits)

	assert.Equal(t, "Markdown", view.Children[1].Language)
}

func TestNewView_Include(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	view, err := filetree.NewView(root, filetree.ViewOptions{Include: []string{"src/**/b.go"}})
	require.NoError(t, err)

	require.Len(t, view.Children, 1)
	src := view.Children[0]
	require.Len(t, src.Children, 1)
	assert.Equal(t, "src/util", src.Children[0].Path)
	assert.Equal(t, 5, src.Aggregate, "aggregates ignore include filtering")
}

func TestNewView_Collapsed(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	view, err := filetree.NewView(root, filetree.ViewOptions{
		Aggregate: filetree.AggregateOptions{Collapsed: filetree.CollapsedPaths("src")},
	})
	require.NoError(t, err)

	src := view.Children[0]
	assert.True(t, src.Collapsed)
	assert.Empty(t, src.Children)
	assert.Equal(t, 1, view.Aggregate)
}

func TestNewView_BadPattern(t *testing.T) {
	t.Parallel()

	_, err := filetree.NewView(sampleTree(t), filetree.ViewOptions{Include: []string{"src/[a"}})
	require.ErrorIs(t, err, filetree.ErrBadPattern)
}

func TestNewView_SkipVendored(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "vendor/lib/x.go"), ev(changelog.Add, "main.go")),
	}
	root := filetree.BuildTreeAsOf(commits, time.Unix(1000, 0), quietLogger())

	view, err := filetree.NewView(root, filetree.ViewOptions{SkipVendored: true})
	require.NoError(t, err)

	require.Len(t, view.Children, 1)
	assert.Equal(t, "main.go", view.Children[0].Name)
}

func TestRender(t *testing.T) {
	t.Parallel()

	root := sampleTree(t)

	var buf bytes.Buffer

	require.NoError(t, filetree.Render(&buf, root, filetree.RenderOptions{Aggregate: &filetree.AggregateOptions{}}))

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	require.Len(t, lines, 6)
	assert.Equal(t, " - . mods: 0 total: 6", lines[0])
	assert.Equal(t, "   - src mods: 0 total: 5", lines[1])
	assert.Equal(t, "     - a.go mods: 3 total: 3", lines[2])
	assert.Equal(t, "     - util mods: 0 total: 2", lines[3])
	assert.Equal(t, "       - b.go mods: 2 total: 2", lines[4])
	assert.Equal(t, "   - README.md mods: 1 total: 1", lines[5])
}

func TestRender_MaxDepth(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	require.NoError(t, filetree.Render(&buf, sampleTree(t), filetree.RenderOptions{MaxDepth: 1}))

	assert.Equal(t, " - . mods: 0\n   - src mods: 0\n   - README.md mods: 1\n", buf.String())
}
