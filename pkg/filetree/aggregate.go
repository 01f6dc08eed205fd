package filetree

// ContributorFilter is a set of author names. An empty filter matches every change.
type ContributorFilter map[string]struct{}

// NewContributorFilter builds a filter from author names, ignoring blanks.
func NewContributorFilter(names ...string) ContributorFilter {
	filter := make(ContributorFilter, len(names))

	for _, name := range names {
		if name != "" {
			filter[name] = struct{}{}
		}
	}

	return filter
}

// Contains reports whether name is in the filter.
func (f ContributorFilter) Contains(name string) bool {
	_, ok := f[name]

	return ok
}

// CollapsePredicate reports whether a node is collapsed in the consuming view.
type CollapsePredicate func(*Node) bool

// CollapsedPaths returns a predicate matching nodes whose path is listed.
func CollapsedPaths(paths ...string) CollapsePredicate {
	if len(paths) == 0 {
		return nil
	}

	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}

	return func(n *Node) bool {
		_, ok := set[n.Path()]

		return ok
	}
}

// AggregateOptions parameterizes AggregateChanges.
type AggregateOptions struct {
	Contributors ContributorFilter
	Collapsed    CollapsePredicate
}

// AggregateChanges returns the own count of n plus the aggregate of every
// child that is not collapsed. With a non-empty contributor filter the own
// count is the number of n's commits authored by a filtered contributor.
func (n *Node) AggregateChanges(opts AggregateOptions) int {
	total := n.ownChanges(opts.Contributors)

	for _, child := range n.children {
		if opts.Collapsed != nil && opts.Collapsed(child) {
			continue
		}

		total += child.AggregateChanges(opts)
	}

	return total
}

func (n *Node) ownChanges(filter ContributorFilter) int {
	if len(filter) == 0 {
		return n.changes
	}

	count := 0

	for _, author := range n.commits {
		if filter.Contains(author) {
			count++
		}
	}

	return count
}
