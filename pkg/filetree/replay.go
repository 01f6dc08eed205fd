package filetree

import (
	"log/slog"
	"time"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
)

// ReplayStats describes what a replay applied.
type ReplayStats struct {
	Commits int
	Changes int
	Renames int
	// Coerced counts events with an unrecognized kind that were applied as modifications.
	Coerced int
}

// Replay builds a fresh tree from every commit strictly before instant.
// Commits must be ordered oldest-first; replay stops at the first commit
// at or after instant.
func Replay(commits []changelog.Commit, instant time.Time, logger *slog.Logger) (*Node, ReplayStats) {
	root := NewRoot(logger)

	var stats ReplayStats

	for _, c := range commits {
		if !c.When().Before(instant) {
			break
		}

		ref := CommitRef{ID: c.ID, Author: c.AuthorName}

		for _, ev := range c.Files {
			switch {
			case ev.Kind == changelog.Rename:
				root.ApplyRename(ev.OldPath, ev.Path, ref)
				stats.Renames++
			case ev.Kind.Valid():
				root.ApplyChange(ev, ref)
				stats.Changes++
			default:
				root.logger.Warn("unrecognized change kind, treating as modify",
					"kind", string(ev.Kind), "path", ev.Path, "commit", c.ID)

				root.ApplyChange(changelog.Event{Kind: changelog.Modify, Path: ev.Path}, ref)
				stats.Changes++
				stats.Coerced++
			}
		}

		stats.Commits++
	}

	return root, stats
}

// BuildTreeAsOf returns the tree as it stood just before instant.
func BuildTreeAsOf(commits []changelog.Commit, instant time.Time, logger *slog.Logger) *Node {
	root, _ := Replay(commits, instant, logger)

	return root
}
