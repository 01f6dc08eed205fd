package gitlib_test

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	git2go "github.com/libgit2/git2go/v34"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/gitlib"
)

// testRepo wraps a test repository for integration testing.
type testRepo struct {
	t      *testing.T
	path   string
	native *git2go.Repository
	clock  time.Time
}

// newTestRepo creates a new test repository.
func newTestRepo(t *testing.T) *testRepo {
	t.Helper()

	dir := t.TempDir()

	repo, err := git2go.InitRepository(dir, false)
	require.NoError(t, err)

	t.Cleanup(repo.Free)

	return &testRepo{
		t:      t,
		path:   dir,
		native: repo,
		clock:  time.Unix(1_700_000_000, 0),
	}
}

// writeFile creates or overwrites a file in the working directory.
func (tr *testRepo) writeFile(name, content string) {
	tr.t.Helper()

	path := filepath.Join(tr.path, name)

	err := os.MkdirAll(filepath.Dir(path), 0o755)
	require.NoError(tr.t, err)

	err = os.WriteFile(path, []byte(content), 0o644)
	require.NoError(tr.t, err)
}

// moveFile renames a file in the working directory.
func (tr *testRepo) moveFile(from, to string) {
	tr.t.Helper()

	dst := filepath.Join(tr.path, to)

	err := os.MkdirAll(filepath.Dir(dst), 0o755)
	require.NoError(tr.t, err)

	err = os.Rename(filepath.Join(tr.path, from), dst)
	require.NoError(tr.t, err)
}

// deleteFile removes a file from the working directory.
func (tr *testRepo) deleteFile(name string) {
	tr.t.Helper()

	err := os.Remove(filepath.Join(tr.path, name))
	require.NoError(tr.t, err)
}

// commit stages the working directory and creates a commit one hour after the previous one.
func (tr *testRepo) commit(author, message string) string {
	tr.t.Helper()

	index, err := tr.native.Index()
	require.NoError(tr.t, err)

	defer index.Free()

	err = index.AddAll([]string{"*"}, git2go.IndexAddDefault, nil)
	require.NoError(tr.t, err)

	err = index.UpdateAll([]string{"*"}, nil)
	require.NoError(tr.t, err)

	err = index.Write()
	require.NoError(tr.t, err)

	treeID, err := index.WriteTree()
	require.NoError(tr.t, err)

	tree, err := tr.native.LookupTree(treeID)
	require.NoError(tr.t, err)

	defer tree.Free()

	tr.clock = tr.clock.Add(time.Hour)

	sig := &git2go.Signature{
		Name:  author,
		Email: strings.ToLower(author) + "@example.com",
		When:  tr.clock,
	}

	var parents []*git2go.Commit

	head, err := tr.native.Head()
	if err == nil {
		headCommit, lookupErr := tr.native.LookupCommit(head.Target())
		require.NoError(tr.t, lookupErr)

		parents = append(parents, headCommit)

		head.Free()
	}

	oid, err := tr.native.CreateCommit("HEAD", sig, sig, message, tree, parents...)
	require.NoError(tr.t, err)

	for _, parent := range parents {
		parent.Free()
	}

	return oid.String()
}

func TestOpenRepository(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("test.txt", "content")
	tr.commit("Alice", "initial")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	assert.Equal(t, tr.path, repo.Path())
	assert.NotNil(t, repo.Native())
}

func TestOpenRepositoryNotFound(t *testing.T) {
	t.Parallel()

	_, err := gitlib.OpenRepository(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
}

func TestLog_OldestFirst(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)

	tr.writeFile("a.txt", "1")
	first := tr.commit("Alice", "first")
	tr.writeFile("a.txt", "2")
	second := tr.commit("Bob", "second")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	iter, err := repo.Log(nil)
	require.NoError(t, err)

	var ids []string

	require.NoError(t, iter.ForEach(func(c *gitlib.Commit) error {
		ids = append(ids, c.ID())

		return nil
	}))

	assert.Equal(t, []string{first, second}, ids)

	_, err = iter.Next()
	assert.True(t, errors.Is(err, io.EOF))
}

func TestLog_Window(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)

	for i, name := range []string{"a", "b", "c"} {
		tr.writeFile(name, strings.Repeat("x", i+1))
		tr.commit("Alice", name)
	}

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	since := time.Unix(1_700_000_000, 0).Add(2 * time.Hour)
	until := since.Add(time.Hour)

	iter, err := repo.Log(&gitlib.LogOptions{Since: &since, Until: &until})
	require.NoError(t, err)

	var messages []string

	require.NoError(t, iter.ForEach(func(c *gitlib.Commit) error {
		messages = append(messages, c.Summary())

		return nil
	}))

	assert.Equal(t, []string{"b"}, messages)
}

func TestReadHistory(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)

	tr.writeFile("src/a.js", "line one\nline two\nline three\n")
	tr.writeFile("src/b.js", "b\n")
	c1 := tr.commit("Alice", "add files")

	tr.writeFile("src/b.js", "b\nmore\n")
	tr.commit("Bob", "edit b")

	tr.moveFile("src/a.js", "src/lib/a.js")
	tr.commit("Bob", "move a")

	tr.deleteFile("src/b.js")
	tr.commit("Alice", "drop b")

	commits, err := gitlib.ReadHistory(context.Background(), tr.path, gitlib.HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, commits, 4)

	assert.Equal(t, c1, commits[0].ID)
	assert.Equal(t, "Alice", commits[0].AuthorName)
	assert.Equal(t, "alice@example.com", commits[0].AuthorEmail)
	assert.Equal(t, "add files", commits[0].Message)
	assert.ElementsMatch(t, []changelog.Event{
		{Kind: changelog.Add, Path: "src/a.js"},
		{Kind: changelog.Add, Path: "src/b.js"},
	}, commits[0].Files)
	assert.Equal(t, 4, commits[0].Insertions)

	assert.Equal(t, []changelog.Event{{Kind: changelog.Modify, Path: "src/b.js"}}, commits[1].Files)
	assert.Equal(t, 1, commits[1].Insertions)

	assert.Equal(t, []changelog.Event{
		{Kind: changelog.Rename, OldPath: "src/a.js", Path: "src/lib/a.js"},
	}, commits[2].Files)

	assert.Equal(t, []changelog.Event{{Kind: changelog.Delete, Path: "src/b.js"}}, commits[3].Files)
	assert.Equal(t, 2, commits[3].Deletions)

	for i := 1; i < len(commits); i++ {
		assert.Less(t, commits[i-1].Timestamp, commits[i].Timestamp)
	}
}

func TestReadHistory_Cancelled(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a", "1")
	tr.commit("Alice", "one")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := gitlib.ReadHistory(ctx, tr.path, gitlib.HistoryOptions{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestParent(t *testing.T) {
	t.Parallel()

	tr := newTestRepo(t)
	tr.writeFile("a", "1")
	tr.commit("Alice", "root")

	repo, err := gitlib.OpenRepository(tr.path)
	require.NoError(t, err)

	defer repo.Free()

	iter, err := repo.Log(nil)
	require.NoError(t, err)

	defer iter.Close()

	c, err := iter.Next()
	require.NoError(t, err)

	defer c.Free()

	assert.Equal(t, 0, c.NumParents())

	_, err = c.Parent(0)
	require.ErrorIs(t, err, gitlib.ErrParentNotFound)
}
