package changelog

import (
	"cmp"
	"slices"
)

// Contributor summarizes the commits of one author name.
type Contributor struct {
	Name       string   `json:"name" yaml:"name"`
	Emails     []string `json:"emails" yaml:"emails"`
	Commits    int      `json:"commits" yaml:"commits"`
	Insertions int      `json:"insertions" yaml:"insertions"`
	Deletions  int      `json:"deletions" yaml:"deletions"`
}

// Contributors groups commits by author name. Emails keep first-seen order.
// The result is ordered by commit count descending, then by name.
func Contributors(commits []Commit) []Contributor {
	byName := make(map[string]*Contributor)
	seenEmail := make(map[string]map[string]struct{})

	for _, c := range commits {
		entry, ok := byName[c.AuthorName]
		if !ok {
			entry = &Contributor{Name: c.AuthorName}
			byName[c.AuthorName] = entry
			seenEmail[c.AuthorName] = make(map[string]struct{})
		}

		entry.Commits++
		entry.Insertions += c.Insertions
		entry.Deletions += c.Deletions

		if _, dup := seenEmail[c.AuthorName][c.AuthorEmail]; !dup {
			seenEmail[c.AuthorName][c.AuthorEmail] = struct{}{}
			entry.Emails = append(entry.Emails, c.AuthorEmail)
		}
	}

	result := make([]Contributor, 0, len(byName))
	for _, entry := range byName {
		result = append(result, *entry)
	}

	slices.SortFunc(result, func(a, b Contributor) int {
		if a.Commits != b.Commits {
			return cmp.Compare(b.Commits, a.Commits)
		}

		return cmp.Compare(a.Name, b.Name)
	})

	return result
}
