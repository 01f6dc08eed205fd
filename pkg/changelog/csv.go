package changelog

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Column names of the change log CSV, in the order WriteCSV emits them.
const (
	ColumnCommitID      = "commitId"
	ColumnAuthorName    = "authorName"
	ColumnAuthorEmail   = "authorEmail"
	ColumnCommitTime    = "commitTimeUnix"
	ColumnCommitMessage = "commitMessage"
	ColumnFilesModified = "filesModified"
	ColumnSummary       = "summary"
)

var columns = []string{
	ColumnCommitID, ColumnAuthorName, ColumnAuthorEmail, ColumnCommitTime,
	ColumnCommitMessage, ColumnFilesModified, ColumnSummary,
}

var (
	// ErrMissingColumn is returned when the CSV header lacks a required column.
	ErrMissingColumn = errors.New("missing column")
	// ErrShortRecord is returned when a row has fewer fields than the header.
	ErrShortRecord = errors.New("short record")
	// ErrInvalidTimestamp is returned when commitTimeUnix is not an integer.
	ErrInvalidTimestamp = errors.New("invalid commit timestamp")
)

// ReadCSV reads a change log in CSV form. Rows are expected newest-first, as
// `git log` prints them; the result is ordered oldest-first by commit time.
func ReadCSV(r io.Reader, parser *Parser) ([]Commit, error) {
	if parser == nil {
		parser = NewParser(nil)
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	index, indexErr := columnIndex(header)
	if indexErr != nil {
		return nil, indexErr
	}

	var commits []Commit

	for {
		record, readErr := reader.Read()
		if errors.Is(readErr, io.EOF) {
			break
		}

		if readErr != nil {
			return nil, fmt.Errorf("read record: %w", readErr)
		}

		commit, rowErr := parseRecord(parser, index, record)
		if rowErr != nil {
			line, _ := reader.FieldPos(0)

			return nil, fmt.Errorf("line %d: %w", line, rowErr)
		}

		commits = append(commits, commit)
	}

	slices.Reverse(commits)
	SortByTime(commits)

	return commits, nil
}

// SortByTime orders commits oldest-first, keeping the relative order of
// commits that share a timestamp.
func SortByTime(commits []Commit) {
	slices.SortStableFunc(commits, func(a, b Commit) int {
		switch {
		case a.Timestamp < b.Timestamp:
			return -1
		case a.Timestamp > b.Timestamp:
			return 1
		default:
			return 0
		}
	})
}

func columnIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))

	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}

	for _, name := range columns {
		if _, ok := index[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	return index, nil
}

func parseRecord(parser *Parser, index map[string]int, record []string) (Commit, error) {
	field := func(name string) (string, error) {
		i := index[name]
		if i >= len(record) {
			return "", fmt.Errorf("%w: no %s field", ErrShortRecord, name)
		}

		return record[i], nil
	}

	values := make(map[string]string, len(columns))

	for _, name := range columns {
		v, err := field(name)
		if err != nil {
			return Commit{}, err
		}

		values[name] = v
	}

	ts, tsErr := strconv.ParseInt(strings.TrimSpace(values[ColumnCommitTime]), 10, 64)
	if tsErr != nil {
		return Commit{}, fmt.Errorf("%w: %q", ErrInvalidTimestamp, values[ColumnCommitTime])
	}

	id := values[ColumnCommitID]
	insertions, deletions := parser.ParseSummary(id, values[ColumnSummary])

	return Commit{
		ID:          id,
		AuthorName:  values[ColumnAuthorName],
		AuthorEmail: values[ColumnAuthorEmail],
		Timestamp:   ts,
		Message:     values[ColumnCommitMessage],
		Files:       parser.ParseFiles(id, values[ColumnFilesModified]),
		Insertions:  insertions,
		Deletions:   deletions,
	}, nil
}

// WriteCSV writes commits newest-first in the format ReadCSV accepts.
func WriteCSV(w io.Writer, commits []Commit) error {
	writer := csv.NewWriter(w)

	err := writer.Write(columns)
	if err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i := len(commits) - 1; i >= 0; i-- {
		c := commits[i]

		record := []string{
			c.ID,
			c.AuthorName,
			c.AuthorEmail,
			strconv.FormatInt(c.Timestamp, 10),
			c.Message,
			FormatFiles(c.Files),
			FormatSummary(len(c.Files), c.Insertions, c.Deletions),
		}

		writeErr := writer.Write(record)
		if writeErr != nil {
			return fmt.Errorf("write commit %s: %w", c.ID, writeErr)
		}
	}

	writer.Flush()

	flushErr := writer.Error()
	if flushErr != nil {
		return fmt.Errorf("flush csv: %w", flushErr)
	}

	return nil
}

// FormatFiles renders events as a files field, one status line per event.
func FormatFiles(events []Event) string {
	var sb strings.Builder

	for i, ev := range events {
		if i > 0 {
			sb.WriteByte('\n')
		}

		sb.WriteString(string(ev.Kind))

		if ev.Kind == Rename {
			sb.WriteString(pathFieldSeparator)
			sb.WriteString(ev.OldPath)
		}

		sb.WriteString(pathFieldSeparator)
		sb.WriteString(ev.Path)
		sb.WriteByte('|')
	}

	return sb.String()
}

// FormatSummary renders a shortstat line in git's wording.
func FormatSummary(files, insertions, deletions int) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, " %d %s changed", files, plural(files, "file", "files"))

	if insertions > 0 {
		fmt.Fprintf(&sb, ", %d %s(+)", insertions, plural(insertions, "insertion", "insertions"))
	}

	if deletions > 0 {
		fmt.Fprintf(&sb, ", %d %s(-)", deletions, plural(deletions, "deletion", "deletions"))
	}

	return sb.String()
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}

	return many
}
