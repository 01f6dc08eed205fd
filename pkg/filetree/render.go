package filetree

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
)

const renderIndent = "  "

// RenderOptions controls Render.
type RenderOptions struct {
	// Aggregate, when set, appends the aggregate count to each line.
	Aggregate *AggregateOptions
	Color     bool
	// MaxDepth stops descending below this depth; the root is depth 0. Zero renders everything.
	MaxDepth int
}

// Render writes one line per node, indented by depth:
//
//	 - . mods: 0
//	   - src mods: 0
//	     - a.js mods: 2
func Render(w io.Writer, root *Node, opts RenderOptions) error {
	dir := color.New(color.FgBlue, color.Bold)
	count := color.New(color.FgYellow)

	if opts.Color {
		dir.EnableColor()
		count.EnableColor()
	} else {
		dir.DisableColor()
		count.DisableColor()
	}

	return render(w, root, 0, &opts, dir, count)
}

func render(w io.Writer, n *Node, depth int, opts *RenderOptions, dir, count *color.Color) error {
	name := n.Name()
	if !n.IsLeaf() {
		name = dir.Sprint(name)
	}

	line := fmt.Sprintf("%s - %s mods: %s", strings.Repeat(renderIndent, depth), name, count.Sprint(n.ChangesCount()))
	if opts.Aggregate != nil {
		line += " total: " + count.Sprint(n.AggregateChanges(*opts.Aggregate))
	}

	_, err := fmt.Fprintln(w, line)
	if err != nil {
		return fmt.Errorf("render %s: %w", n.Path(), err)
	}

	if opts.MaxDepth > 0 && depth >= opts.MaxDepth {
		return nil
	}

	for _, child := range n.children {
		childErr := render(w, child, depth+1, opts, dir, count)
		if childErr != nil {
			return childErr
		}
	}

	return nil
}
