package gitlib

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
)

// HistoryOptions configures ReadHistory.
type HistoryOptions struct {
	LogOptions

	Logger *slog.Logger
}

// ReadHistory opens the repository at path and returns its history as change
// log commits, oldest first. Each commit is diffed against its first parent,
// so merge commits carry the changes brought in by the merged branch.
func ReadHistory(ctx context.Context, path string, opts HistoryOptions) ([]changelog.Commit, error) {
	repo, err := OpenRepository(path)
	if err != nil {
		return nil, err
	}
	defer repo.Free()

	return repo.History(ctx, opts)
}

// History converts the commit log into change log commits, oldest first.
func (r *Repository) History(ctx context.Context, opts HistoryOptions) ([]changelog.Commit, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	iter, err := r.Log(&opts.LogOptions)
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var commits []changelog.Commit

	started := time.Now()

	err = iter.ForEach(func(c *Commit) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		entry, convErr := r.changelogCommit(c)
		if convErr != nil {
			return fmt.Errorf("commit %s: %w", c.ID(), convErr)
		}

		commits = append(commits, entry)

		return nil
	})
	if err != nil {
		return nil, err
	}

	changelog.SortByTime(commits)

	logger.DebugContext(ctx, "read git history",
		"path", r.path, "commits", len(commits), "elapsed", time.Since(started))

	return commits, nil
}

func (r *Repository) changelogCommit(c *Commit) (changelog.Commit, error) {
	author := c.Author()

	entry := changelog.Commit{
		ID:          c.ID(),
		AuthorName:  author.Name,
		AuthorEmail: author.Email,
		Timestamp:   author.When.Unix(),
		Message:     c.Summary(),
	}

	newTree, err := c.Tree()
	if err != nil {
		return entry, err
	}
	defer newTree.Free()

	var oldTree *git2go.Tree

	if c.NumParents() > 0 {
		parent, parentErr := c.Parent(0)
		if parentErr != nil {
			return entry, parentErr
		}

		oldTree, err = parent.Tree()
		parent.Free()

		if err != nil {
			return entry, err
		}
		defer oldTree.Free()
	}

	diff, err := r.DiffTreeToTree(oldTree, newTree)
	if err != nil {
		return entry, err
	}
	defer diff.Free()

	entry.Files, err = diff.Events()
	if err != nil {
		return entry, err
	}

	entry.Insertions, entry.Deletions, err = diff.Stats()
	if err != nil {
		return entry, err
	}

	return entry, nil
}
