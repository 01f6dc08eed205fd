package filetree_test

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/filetree"
)

func commit(id, author string, ts int64, events ...changelog.Event) changelog.Commit {
	return changelog.Commit{ID: id, AuthorName: author, Timestamp: ts, Files: events}
}

func ev(kind changelog.Kind, path string) changelog.Event {
	return changelog.Event{Kind: kind, Path: path}
}

func rename(from, to string) changelog.Event {
	return changelog.Event{Kind: changelog.Rename, OldPath: from, Path: to}
}

func TestBuildTreeAsOf_Scenario(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "src/a.js")),
		commit("c2", "alice", 200, ev(changelog.Add, "src/b.js")),
		commit("c3", "bob", 300, rename("src/a.js", "src/lib/a.js")),
		commit("c4", "bob", 400, ev(changelog.Delete, "src/b.js")),
	}

	root := filetree.BuildTreeAsOf(commits, time.Unix(1000, 0), quietLogger())

	require.Len(t, root.Children(), 1)
	src := root.Child("src")
	require.NotNil(t, src)
	require.Len(t, src.Children(), 1)

	lib := src.Child("lib")
	require.NotNil(t, lib)

	a := lib.Child("a.js")
	require.NotNil(t, a)
	assert.Equal(t, 2, a.ChangesCount())
	assert.Equal(t, "src/lib/a.js", a.Path())

	root.Walk(func(n *filetree.Node) bool {
		assert.NotEqual(t, "b.js", n.Name())

		return true
	})
	requireWellFormed(t, root)
}

func TestBuildTreeAsOf_Cutoff(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "one")),
		commit("c2", "alice", 200, ev(changelog.Add, "two")),
		commit("c3", "alice", 300, ev(changelog.Add, "three")),
	}

	root, stats := filetree.Replay(commits, time.Unix(200, 0), quietLogger())

	require.Len(t, root.Children(), 1)
	assert.Equal(t, "one", root.Children()[0].Name())
	assert.Equal(t, 1, stats.Commits)

	before := filetree.BuildTreeAsOf(commits, time.Unix(100, 0), quietLogger())
	assert.Empty(t, before.Children())

	all := filetree.BuildTreeAsOf(commits, time.Unix(301, 0), quietLogger())
	assert.Len(t, all.Children(), 3)
}

func TestBuildTreeAsOf_FreshTreeEachCall(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{commit("c1", "alice", 100, ev(changelog.Add, "f"))}

	first := filetree.BuildTreeAsOf(commits, time.Unix(200, 0), quietLogger())
	first.ApplyChange(ev(changelog.Add, "extra"), filetree.CommitRef{ID: "x"})

	second := filetree.BuildTreeAsOf(commits, time.Unix(200, 0), quietLogger())

	assert.NotSame(t, first, second)
	assert.Nil(t, second.Child("extra"))
	assert.Equal(t, 1, second.Child("f").ChangesCount())
}

func TestBuildTreeAsOf_MalformedRenameSkipped(t *testing.T) {
	t.Parallel()

	parser := changelog.NewParser(quietLogger())
	files := parser.ParseFiles("c2", "R100\tbroken|\nM\tsrc/a.js|\nA\tsrc/new.js|")

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "src/a.js")),
		commit("c2", "alice", 200, files...),
	}

	root := filetree.BuildTreeAsOf(commits, time.Unix(300, 0), quietLogger())

	assert.Equal(t, 2, root.Find("src/a.js").ChangesCount())
	assert.Equal(t, 1, root.Find("src/new.js").ChangesCount())
	assert.Nil(t, root.Find("broken"))
	assert.Len(t, root.Child("src").Children(), 2)
}

func TestReplay_CoercesUnknownKinds(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "f")),
		commit("c2", "alice", 200, ev("X", "f")),
	}

	root, stats := filetree.Replay(commits, time.Unix(300, 0), slog.New(slog.NewTextHandler(&logs, nil)))

	assert.Equal(t, 2, root.Child("f").ChangesCount())
	assert.Equal(t, 1, stats.Coerced)
	assert.Equal(t, 2, stats.Changes)
	assert.Contains(t, logs.String(), "unrecognized change kind")
}

func TestReplay_RecordsAuthors(t *testing.T) {
	t.Parallel()

	commits := []changelog.Commit{
		commit("c1", "alice", 100, ev(changelog.Add, "f")),
		commit("c2", "bob", 200, ev(changelog.Modify, "f")),
	}

	root := filetree.BuildTreeAsOf(commits, time.Unix(300, 0), quietLogger())
	f := root.Child("f")

	author, ok := f.Author("c2")
	require.True(t, ok)
	assert.Equal(t, "bob", author)
	assert.Equal(t, []string{"c1", "c2"}, f.Commits())
}
