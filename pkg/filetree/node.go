// Package filetree reconstructs the file tree of a repository at a point in
// time by replaying change log events against a fresh root.
package filetree

import (
	"log/slog"
	"slices"
	"strings"
)

// RootName is the name of every root node.
const RootName = "."

// Separator delimits path segments.
const Separator = "/"

// CommitRef attributes a change to a commit.
type CommitRef struct {
	ID     string
	Author string
}

// Node is one path component of the reconstructed tree. A node owns its
// children exclusively; it is not safe for concurrent use.
type Node struct {
	name       string
	parentPath string
	root       bool

	children []*Node
	index    map[string]*Node

	changes int
	// commit id -> author name
	commits map[string]string

	logger *slog.Logger
}

// NewRoot creates an empty root node. Warnings about inconsistent change
// logs are written to logger, or to slog.Default() when logger is nil.
func NewRoot(logger *slog.Logger) *Node {
	if logger == nil {
		logger = slog.Default()
	}

	return &Node{name: RootName, root: true, logger: logger}
}

func (n *Node) newChild(name string) *Node {
	parentPath := ""
	if !n.root {
		parentPath = n.Path()
	}

	return &Node{name: name, parentPath: parentPath, logger: n.logger}
}

// Name returns the final path segment.
func (n *Node) Name() string { return n.name }

// ParentPath returns the path of the parent, empty for the root and its children.
func (n *Node) ParentPath() string { return n.parentPath }

// IsRoot reports whether n is a root node.
func (n *Node) IsRoot() bool { return n.root }

// Path returns the fully-qualified path of n.
func (n *Node) Path() string {
	if n.parentPath == "" {
		return n.name
	}

	return n.parentPath + Separator + n.name
}

// ChangesCount returns the number of changes that resolved exactly to n.
func (n *Node) ChangesCount() int { return n.changes }

// IsLeaf reports whether n has no children.
func (n *Node) IsLeaf() bool { return len(n.children) == 0 }

// Children returns the direct children in insertion order.
func (n *Node) Children() []*Node {
	return slices.Clone(n.children)
}

// Child returns the direct child with the given name, or nil.
func (n *Node) Child(name string) *Node {
	return n.index[name]
}

// Commits returns the sorted ids of commits that changed n.
func (n *Node) Commits() []string {
	ids := make([]string, 0, len(n.commits))
	for id := range n.commits {
		ids = append(ids, id)
	}

	slices.Sort(ids)

	return ids
}

// HasCommit reports whether commit id changed n.
func (n *Node) HasCommit(id string) bool {
	_, ok := n.commits[id]

	return ok
}

// Author returns the author recorded for commit id at n.
func (n *Node) Author(id string) (string, bool) {
	author, ok := n.commits[id]

	return author, ok
}

// Find resolves a path relative to n. It returns nil when any segment is missing.
func (n *Node) Find(path string) *Node {
	cur := n
	for _, segment := range SplitPath(path) {
		cur = cur.Child(segment)
		if cur == nil {
			return nil
		}
	}

	return cur
}

// Walk visits n and its descendants depth-first, parents before children.
// Returning false from fn skips the node's subtree.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}

	for _, child := range n.children {
		child.Walk(fn)
	}
}

// SplitPath tokenizes a slash-delimited path. A single trailing separator is
// ignored; every other empty segment is kept as a name.
func SplitPath(p string) []string {
	segments := strings.Split(p, Separator)
	if last := len(segments) - 1; last > 0 && segments[last] == "" {
		segments = segments[:last]
	}

	return segments
}

func (n *Node) record(commit CommitRef) {
	n.changes++

	if commit.ID == "" {
		return
	}

	if n.commits == nil {
		n.commits = make(map[string]string)
	}

	n.commits[commit.ID] = commit.Author
}

func (n *Node) isZombie() bool {
	return n.changes == 0 && len(n.children) == 0
}

func (n *Node) addChild(child *Node) {
	if n.index == nil {
		n.index = make(map[string]*Node)
	}

	n.children = append(n.children, child)
	n.index[child.name] = child
}

func (n *Node) removeChild(child *Node) {
	i := slices.Index(n.children, child)
	if i < 0 {
		return
	}

	n.children = slices.Delete(n.children, i, i+1)
	delete(n.index, child.name)
}

func (n *Node) removeIfZombie(child *Node) {
	if child.isZombie() {
		n.removeChild(child)
	}
}
