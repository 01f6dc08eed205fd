// Package changelog models per-commit file change records and parses them
// from the textual change log format produced by `git log --name-status`.
package changelog

import (
	"time"
)

// Kind is the status letter of a single file change.
type Kind string

const (
	// Add indicates a file was created.
	Add Kind = "A"
	// Modify indicates a file was changed in place.
	Modify Kind = "M"
	// Delete indicates a file was removed.
	Delete Kind = "D"
	// Rename indicates a file was moved from OldPath to Path.
	Rename Kind = "R"
)

// Valid reports whether k is one of the four recognized kinds.
func (k Kind) Valid() bool {
	switch k {
	case Add, Modify, Delete, Rename:
		return true
	default:
		return false
	}
}

// String returns a lowercase human-readable name.
func (k Kind) String() string {
	switch k {
	case Add:
		return "add"
	case Modify:
		return "modify"
	case Delete:
		return "delete"
	case Rename:
		return "rename"
	default:
		return "unknown(" + string(k) + ")"
	}
}

// Event is a single file change inside a commit.
type Event struct {
	Kind Kind `json:"kind" yaml:"kind"`
	// Path is the target path. For renames it is the destination.
	Path string `json:"path" yaml:"path"`
	// OldPath is set only for renames.
	OldPath string `json:"old_path,omitempty" yaml:"old_path,omitempty"`
}

// Commit is one entry of the change log.
type Commit struct {
	ID          string  `json:"id" yaml:"id"`
	AuthorName  string  `json:"author_name" yaml:"author_name"`
	AuthorEmail string  `json:"author_email" yaml:"author_email"`
	Timestamp   int64   `json:"timestamp" yaml:"timestamp"`
	Message     string  `json:"message" yaml:"message"`
	Files       []Event `json:"files" yaml:"files"`
	Insertions  int     `json:"insertions" yaml:"insertions"`
	Deletions   int     `json:"deletions" yaml:"deletions"`
}

// When returns the commit time.
func (c Commit) When() time.Time {
	return time.Unix(c.Timestamp, 0)
}
