package filetree

import (
	"errors"
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/src-d/enry/v2"
)

// ErrBadPattern is returned by NewView when an include glob is malformed.
var ErrBadPattern = errors.New("bad include pattern")

// View is a serializable projection of a tree with aggregate counts resolved.
type View struct {
	Name      string   `json:"name" yaml:"name"`
	Path      string   `json:"path" yaml:"path"`
	Changes   int      `json:"changes" yaml:"changes"`
	Aggregate int      `json:"aggregate" yaml:"aggregate"`
	Commits   []string `json:"commits,omitempty" yaml:"commits,omitempty"`
	Language  string   `json:"language,omitempty" yaml:"language,omitempty"`
	Vendored  bool     `json:"vendored,omitempty" yaml:"vendored,omitempty"`
	Collapsed bool     `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Children  []*View  `json:"children,omitempty" yaml:"children,omitempty"`
}

// ViewOptions controls NewView.
type ViewOptions struct {
	Aggregate AggregateOptions
	// Include keeps only files whose path matches one of these doublestar
	// globs, plus the directories leading to them. Empty keeps everything.
	Include      []string
	WithCommits  bool
	SkipVendored bool
}

// NewView projects root. Collapsed nodes are emitted without children.
func NewView(root *Node, opts ViewOptions) (*View, error) {
	for _, pattern := range opts.Include {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("%w: %q", ErrBadPattern, pattern)
		}
	}

	v, _ := project(root, &opts)

	return v, nil
}

func project(n *Node, opts *ViewOptions) (*View, bool) {
	v := &View{
		Name:      n.Name(),
		Path:      n.Path(),
		Changes:   n.ChangesCount(),
		Aggregate: n.AggregateChanges(opts.Aggregate),
	}

	if opts.WithCommits {
		v.Commits = n.Commits()
	}

	if !n.IsRoot() {
		vendorPath := v.Path
		if !n.IsLeaf() {
			vendorPath += Separator
		}

		v.Vendored = enry.IsVendor(vendorPath)
		if v.Vendored && opts.SkipVendored {
			return nil, false
		}
	}

	if n.IsLeaf() && !n.IsRoot() {
		v.Language = enry.GetLanguage(n.Name(), nil)

		return v, included(v.Path, opts.Include)
	}

	if !n.IsRoot() && opts.Aggregate.Collapsed != nil && opts.Aggregate.Collapsed(n) {
		v.Collapsed = true

		return v, included(v.Path, opts.Include) || anyIncluded(n, opts.Include)
	}

	keep := !n.IsRoot() && len(opts.Include) > 0 && included(v.Path, opts.Include)

	for _, child := range n.children {
		cv, ok := project(child, opts)
		if !ok {
			continue
		}

		v.Children = append(v.Children, cv)
		keep = true
	}

	return v, keep || len(opts.Include) == 0
}

func included(path string, patterns []string) bool {
	if len(patterns) == 0 {
		return true
	}

	for _, pattern := range patterns {
		if matched, _ := doublestar.Match(pattern, path); matched {
			return true
		}
	}

	return false
}

func anyIncluded(n *Node, patterns []string) bool {
	found := false

	n.Walk(func(d *Node) bool {
		if found {
			return false
		}

		if d.IsLeaf() && included(d.Path(), patterns) {
			found = true
		}

		return !found
	})

	return found
}
