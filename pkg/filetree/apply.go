package filetree

import (
	"maps"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
)

// ApplyChange applies a non-rename event whose path is relative to n and
// returns the affected node. For a terminal delete that is the detached node.
// Missing intermediate nodes are created on demand.
func (n *Node) ApplyChange(ev changelog.Event, commit CommitRef) *Node {
	return n.apply(SplitPath(ev.Path), ev.Kind, commit)
}

func (n *Node) apply(segments []string, kind changelog.Kind, commit CommitRef) *Node {
	if len(segments) == 0 {
		n.record(commit)

		return n
	}

	name, rest := segments[0], segments[1:]
	child := n.findOrCreateChild(name, kind, commit)

	if kind == changelog.Delete && len(rest) == 0 {
		n.removeChild(child)

		return child
	}

	result := child.apply(rest, kind, commit)
	n.removeIfZombie(child)

	return result
}

func (n *Node) findOrCreateChild(name string, kind changelog.Kind, commit CommitRef) *Node {
	if child := n.Child(name); child != nil {
		return child
	}

	child := n.newChild(name)

	if kind != changelog.Add {
		n.logger.Warn("creating node for non-add change",
			"path", child.Path(), "kind", kind.String(), "commit", commit.ID)
	}

	n.addChild(child)

	return child
}

// ApplyRename moves the subtree at oldPath to newPath. The moved node keeps
// its change count, children and commits; the rename adds one change to it
// and to every descendant. A missing source is treated as a plain add.
// Both paths are relative to n, which is expected to be the root.
func (n *Node) ApplyRename(oldPath, newPath string, commit CommitRef) *Node {
	moved := n.findAndPrune(SplitPath(oldPath))
	if moved == nil {
		n.logger.Warn("rename source not found, treating as add",
			"from", oldPath, "to", newPath, "commit", commit.ID)
	}

	dest := n.ApplyChange(changelog.Event{Kind: changelog.Add, Path: newPath}, commit)

	if moved != nil {
		dest.changes = moved.changes
		dest.children = moved.children
		dest.index = moved.index
		dest.commits = maps.Clone(moved.commits)
	} else {
		dest.changes = 0
		dest.children = nil
		dest.index = nil
		dest.commits = nil
	}

	dest.reparent(dest.parentPath, commit)

	return dest
}

func (n *Node) findAndPrune(segments []string) *Node {
	name, rest := segments[0], segments[1:]

	child := n.Child(name)
	if child == nil {
		return nil
	}

	if len(rest) == 0 {
		n.removeChild(child)

		return child
	}

	found := child.findAndPrune(rest)
	n.removeIfZombie(child)

	return found
}

func (n *Node) reparent(parentPath string, commit CommitRef) {
	n.parentPath = parentPath
	n.record(commit)

	path := n.Path()
	for _, child := range n.children {
		child.reparent(path, commit)
	}
}
