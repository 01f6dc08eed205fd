package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/filetree"
	"github.com/Sumatoshi-tech/histree/pkg/persist"
	"github.com/Sumatoshi-tech/histree/pkg/snapshot"
	"github.com/Sumatoshi-tech/histree/pkg/version"
)

// errorResponse is the body of every non-2xx API answer.
type errorResponse struct {
	Error string `json:"error"`
}

// PeriodSummary is one bucket of /api/v1/periods.
type PeriodSummary struct {
	Start      time.Time `json:"start"`
	Commits    int       `json:"commits"`
	Authors    int       `json:"authors"`
	Insertions int       `json:"insertions"`
	Deletions  int       `json:"deletions"`
}

// DiffLine is one line of /api/v1/diff.
type DiffLine struct {
	Op   string `json:"op"`
	Text string `json:"text"`
}

// DiffResponse is the body of /api/v1/diff.
type DiffResponse struct {
	From    time.Time  `json:"from"`
	To      time.Time  `json:"to"`
	Added   int        `json:"added"`
	Removed int        `json:"removed"`
	Lines   []DiffLine `json:"lines"`
}

// InfoResponse is the body of /api/v1/info.
type InfoResponse struct {
	Version string     `json:"version"`
	Commits int        `json:"commits"`
	First   *time.Time `json:"first,omitempty"`
	Last    *time.Time `json:"last,omitempty"`
}

var diffOps = map[snapshot.DiffOp]string{
	snapshot.DiffEqual:  "=",
	snapshot.DiffInsert: "+",
	snapshot.DiffDelete: "-",
}

func (s *Server) handleSnapshot(rw http.ResponseWriter, hr *http.Request) {
	query := hr.URL.Query()

	at, err := snapshot.ParseInstant(query.Get("at"))
	if err != nil {
		s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

		return
	}

	codec, err := persist.CodecFor(query.Get("format"))
	if err != nil {
		s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

		return
	}

	req := snapshot.Request{
		At:           at,
		Contributors: snapshot.SplitList(query.Get("authors")),
		Collapsed:    snapshot.SplitList(query.Get("collapsed")),
		Include:      snapshot.SplitList(query.Get("include")),
		WithCommits:  queryBool(query.Get("commits")),
		SkipVendored: queryBool(query.Get("skip_vendored")),
	}

	data, err := s.svc.Encoded(hr.Context(), req, codec)
	if err != nil {
		s.writeError(hr.Context(), rw, statusFor(err), err)

		return
	}

	rw.Header().Set("Content-Type", codec.ContentType())

	_, writeErr := rw.Write(data)
	if writeErr != nil {
		s.logger.WarnContext(hr.Context(), "write snapshot response", "error", writeErr)
	}
}

func (s *Server) handleContributors(rw http.ResponseWriter, hr *http.Request) {
	s.writeJSON(hr.Context(), rw, http.StatusOK, s.svc.Contributors())
}

func (s *Server) handlePeriods(rw http.ResponseWriter, hr *http.Request) {
	query := hr.URL.Query()

	unit := query.Get("unit")
	if unit == "" {
		unit = string(changelog.Week)
	}

	period, err := changelog.ParsePeriod(unit)
	if err != nil {
		s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

		return
	}

	loc := s.opts.Location

	if tz := query.Get("tz"); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

			return
		}
	}

	groups := s.svc.Periods(period, loc)
	out := make([]PeriodSummary, 0, len(groups))

	for _, group := range groups {
		out = append(out, summarizePeriod(group))
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, out)
}

func (s *Server) handleDiff(rw http.ResponseWriter, hr *http.Request) {
	query := hr.URL.Query()

	from, err := snapshot.ParseInstant(query.Get("from"))
	if err != nil {
		s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

		return
	}

	to, err := snapshot.ParseInstant(query.Get("to"))
	if err != nil {
		s.writeError(hr.Context(), rw, http.StatusBadRequest, err)

		return
	}

	var agg *filetree.AggregateOptions

	if queryBool(query.Get("totals")) {
		agg = &filetree.AggregateOptions{
			Contributors: filetree.NewContributorFilter(snapshot.SplitList(query.Get("authors"))...),
			Collapsed:    filetree.CollapsedPaths(snapshot.SplitList(query.Get("collapsed"))...),
		}
	}

	diff, err := s.svc.Diff(hr.Context(), from, to, agg)
	if err != nil {
		s.writeError(hr.Context(), rw, statusFor(err), err)

		return
	}

	withContext := queryBool(query.Get("context"))
	resp := DiffResponse{From: diff.From, To: diff.To, Added: diff.Added, Removed: diff.Removed, Lines: []DiffLine{}}

	for _, line := range diff.Lines {
		if line.Op == snapshot.DiffEqual && !withContext {
			continue
		}

		resp.Lines = append(resp.Lines, DiffLine{Op: diffOps[line.Op], Text: line.Text})
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, resp)
}

func (s *Server) handleInfo(rw http.ResponseWriter, hr *http.Request) {
	resp := InfoResponse{Version: version.Version, Commits: s.svc.Len()}

	first, last, ok := s.svc.Range()
	if ok {
		resp.First = &first
		resp.Last = &last
	}

	s.writeJSON(hr.Context(), rw, http.StatusOK, resp)
}

func summarizePeriod(group changelog.Group) PeriodSummary {
	summary := PeriodSummary{Start: group.Start, Commits: len(group.Commits)}
	authors := make(map[string]struct{})

	for _, c := range group.Commits {
		authors[c.AuthorName] = struct{}{}
		summary.Insertions += c.Insertions
		summary.Deletions += c.Deletions
	}

	summary.Authors = len(authors)

	return summary
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, filetree.ErrBadPattern), errors.Is(err, snapshot.ErrInvalidInstant):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func queryBool(v string) bool {
	b, err := strconv.ParseBool(v)

	return err == nil && b
}

func (s *Server) writeJSON(ctx context.Context, rw http.ResponseWriter, code int, value any) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	encodeErr := json.NewEncoder(rw).Encode(value)
	if encodeErr != nil {
		s.logger.ErrorContext(ctx, "failed to encode JSON response", "error", encodeErr)
	}
}

func (s *Server) writeError(ctx context.Context, rw http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		s.logger.ErrorContext(ctx, "request failed", "error", err)
	}

	s.writeJSON(ctx, rw, code, errorResponse{Error: err.Error()})
}
