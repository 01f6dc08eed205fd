package changelog

import (
	"log/slog"
	"regexp"
	"strconv"
	"strings"
)

// Each record in a files field looks like "<letter><score?>\t<path>[\t<path>]|<stat>".
var filesPattern = regexp.MustCompile(`(?m)\s*(\S)\d*\t([^|]+)\|`)

var (
	insertionsPattern = regexp.MustCompile(`(\d+) insertion`)
	deletionsPattern  = regexp.MustCompile(`(\d+) deletion`)
)

const (
	pathFieldSeparator = "\t"
	renameFieldCount   = 2
	summaryFileMarker  = "file"
)

// Parser turns raw change log fields into typed events.
// Malformed records are logged and skipped; parsing never fails.
type Parser struct {
	logger *slog.Logger
}

// NewParser creates a parser that reports malformed records to logger.
// A nil logger falls back to slog.Default().
func NewParser(logger *slog.Logger) *Parser {
	if logger == nil {
		logger = slog.Default()
	}

	return &Parser{logger: logger}
}

// ParseFiles extracts the ordered list of change events from a files field.
func (p *Parser) ParseFiles(commitID, raw string) []Event {
	matches := filesPattern.FindAllStringSubmatch(raw, -1)
	events := make([]Event, 0, len(matches))

	for _, m := range matches {
		kind := Kind(m[1])
		paths := strings.Split(m[2], pathFieldSeparator)

		if kind == Rename {
			if len(paths) != renameFieldCount {
				p.logger.Warn("skipping malformed rename record",
					"commit", commitID, "record", m[2])

				continue
			}

			events = append(events, Event{Kind: Rename, OldPath: paths[0], Path: paths[1]})

			continue
		}

		if !kind.Valid() {
			p.logger.Warn("unrecognized change status, treating as modify",
				"commit", commitID, "status", string(kind))

			kind = Modify
		}

		// Copy records carry "<src>\t<dst>"; the destination is the touched file.
		events = append(events, Event{Kind: kind, Path: paths[len(paths)-1]})
	}

	return events
}

// ParseSummary extracts insertion and deletion counts from a shortstat line
// such as " 2 files changed, 10 insertions(+), 3 deletions(-)".
func (p *Parser) ParseSummary(commitID, summary string) (insertions, deletions int) {
	if summary != "" && !strings.Contains(summary, summaryFileMarker) {
		p.logger.Warn("summary does not mention changed files",
			"commit", commitID, "summary", summary)
	}

	return firstInt(insertionsPattern, summary), firstInt(deletionsPattern, summary)
}

func firstInt(re *regexp.Regexp, s string) int {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return 0
	}

	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0
	}

	return n
}
