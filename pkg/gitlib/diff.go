package gitlib

import (
	"fmt"

	git2go "github.com/libgit2/git2go/v34"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
)

// Diff wraps a libgit2 diff.
type Diff struct {
	diff *git2go.Diff
}

// Events maps the deltas of the diff to change events. Copies become adds
// and type changes become modifications; other statuses are skipped.
func (d *Diff) Events() ([]changelog.Event, error) {
	numDeltas, err := d.diff.NumDeltas()
	if err != nil {
		return nil, fmt.Errorf("get num deltas: %w", err)
	}

	events := make([]changelog.Event, 0, numDeltas)

	for i := range numDeltas {
		delta, deltaErr := d.diff.Delta(i)
		if deltaErr != nil {
			return nil, fmt.Errorf("get delta %d: %w", i, deltaErr)
		}

		ev, ok := eventFromDelta(delta)
		if ok {
			events = append(events, ev)
		}
	}

	return events, nil
}

func eventFromDelta(delta git2go.DiffDelta) (changelog.Event, bool) {
	switch delta.Status {
	case git2go.DeltaAdded, git2go.DeltaCopied:
		return changelog.Event{Kind: changelog.Add, Path: delta.NewFile.Path}, true
	case git2go.DeltaDeleted:
		return changelog.Event{Kind: changelog.Delete, Path: delta.OldFile.Path}, true
	case git2go.DeltaModified, git2go.DeltaTypeChange:
		return changelog.Event{Kind: changelog.Modify, Path: delta.NewFile.Path}, true
	case git2go.DeltaRenamed:
		return changelog.Event{Kind: changelog.Rename, OldPath: delta.OldFile.Path, Path: delta.NewFile.Path}, true
	case git2go.DeltaUnmodified, git2go.DeltaIgnored, git2go.DeltaUntracked,
		git2go.DeltaUnreadable, git2go.DeltaConflicted:
		return changelog.Event{}, false
	default:
		return changelog.Event{}, false
	}
}

// Stats returns insertion and deletion totals of the diff.
func (d *Diff) Stats() (insertions, deletions int, err error) {
	stats, err := d.diff.Stats()
	if err != nil {
		return 0, 0, fmt.Errorf("get diff stats: %w", err)
	}

	insertions, deletions = stats.Insertions(), stats.Deletions()

	freeErr := stats.Free()
	if freeErr != nil {
		return 0, 0, fmt.Errorf("free diff stats: %w", freeErr)
	}

	return insertions, deletions, nil
}

// Free releases the diff resources.
func (d *Diff) Free() {
	if d.diff != nil {
		freeDiff(d.diff)
		d.diff = nil
	}
}

func freeDiff(diff *git2go.Diff) {
	//nolint:errcheck // Free only fails on an already freed diff.
	diff.Free()
}
