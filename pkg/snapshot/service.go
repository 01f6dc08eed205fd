// Package snapshot serves reconstructed file trees over an immutable commit history.
package snapshot

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/histree/pkg/cache"
	"github.com/Sumatoshi-tech/histree/pkg/changelog"
	"github.com/Sumatoshi-tech/histree/pkg/filetree"
	"github.com/Sumatoshi-tech/histree/pkg/observability"
	"github.com/Sumatoshi-tech/histree/pkg/persist"
	"github.com/Sumatoshi-tech/histree/pkg/version"
)

// ErrNoHistory is reported by Ready when the service holds no commits.
var ErrNoHistory = errors.New("no history loaded")

// Document is the persisted and served form of a snapshot.
type Document struct {
	Generator    string         `json:"generator" yaml:"generator"`
	At           time.Time      `json:"at" yaml:"at"`
	Commits      int            `json:"commits" yaml:"commits"`
	Contributors []string       `json:"contributors,omitempty" yaml:"contributors,omitempty"`
	Collapsed    []string       `json:"collapsed,omitempty" yaml:"collapsed,omitempty"`
	Include      []string       `json:"include,omitempty" yaml:"include,omitempty"`
	Root         *filetree.View `json:"root" yaml:"root"`
}

// Options configures a Service. Zero values are usable.
type Options struct {
	Logger  *slog.Logger
	Tracer  trace.Tracer
	Metrics *observability.SnapshotMetrics
	// CacheSize bounds the encoded snapshot cache in bytes. Negative disables caching.
	CacheSize int64
	// Compress stores cached snapshots LZ4-compressed.
	Compress bool
}

// Service builds snapshots. It is safe for concurrent use: every Build replays
// into a tree of its own and only the encoded-output cache is shared.
type Service struct {
	commits []changelog.Commit
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.SnapshotMetrics
	cache   *cache.LRU
}

// NewService takes a copy of commits and orders it oldest-first.
func NewService(commits []changelog.Commit, opts Options) *Service {
	owned := slices.Clone(commits)
	changelog.SortByTime(owned)

	svc := &Service{
		commits: owned,
		logger:  opts.Logger,
		tracer:  opts.Tracer,
		metrics: opts.Metrics,
	}

	if svc.logger == nil {
		svc.logger = slog.Default()
	}

	if svc.tracer == nil {
		svc.tracer = noop.NewTracerProvider().Tracer("histree")
	}

	if opts.CacheSize >= 0 {
		svc.cache = cache.NewLRU(opts.CacheSize, opts.Compress)
	}

	return svc
}

// Len returns the number of commits held.
func (s *Service) Len() int { return len(s.commits) }

// Range returns the timestamps of the oldest and newest commit.
func (s *Service) Range() (first, last time.Time, ok bool) {
	if len(s.commits) == 0 {
		return time.Time{}, time.Time{}, false
	}

	return s.commits[0].When(), s.commits[len(s.commits)-1].When(), true
}

// Ready fails with ErrNoHistory until there is something to replay.
func (s *Service) Ready(context.Context) error {
	if len(s.commits) == 0 {
		return ErrNoHistory
	}

	return nil
}

// Contributors returns the per-author rollup of the whole history.
func (s *Service) Contributors() []changelog.Contributor {
	return changelog.Contributors(s.commits)
}

// Periods groups the history by period in loc.
func (s *Service) Periods(period changelog.Period, loc *time.Location) []changelog.Group {
	return changelog.GroupByPeriod(s.commits, period, loc)
}

// CacheStats reports the encoded snapshot cache; zero when caching is disabled.
func (s *Service) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}

	return s.cache.Stats()
}

// effectiveInstant clamps at to one second past the newest commit. Every
// later instant replays the same tree, so they share one cache entry.
func (s *Service) effectiveInstant(at time.Time) time.Time {
	if len(s.commits) == 0 {
		return at
	}

	limit := s.commits[len(s.commits)-1].When().Add(time.Second).UTC()
	if at.After(limit) {
		return limit
	}

	return at
}

// Tree replays the history into a fresh tree as of at.
func (s *Service) Tree(ctx context.Context, at time.Time) (*filetree.Node, error) {
	root, _, err := s.replay(ctx, at)

	return root, err
}

// Build replays the history and projects it according to req.
func (s *Service) Build(ctx context.Context, req Request) (*Document, error) {
	req = req.normalized()

	root, stats, err := s.replay(ctx, req.At)
	if err != nil {
		return nil, err
	}

	view, err := filetree.NewView(root, req.viewOptions())
	if err != nil {
		return nil, fmt.Errorf("build snapshot: %w", err)
	}

	return &Document{
		Generator:    version.Generator(),
		At:           req.At,
		Commits:      stats.Commits,
		Contributors: req.Contributors,
		Collapsed:    req.Collapsed,
		Include:      req.Include,
		Root:         view,
	}, nil
}

// Encoded returns the document for req serialized with codec, served from
// the cache when the same request was encoded before. Instants after the
// newest commit are reported as one second past it.
func (s *Service) Encoded(ctx context.Context, req Request, codec persist.Codec) ([]byte, error) {
	req = req.normalized()
	req.At = s.effectiveInstant(req.At)
	key := req.key(codec.Extension())

	if s.cache != nil {
		data, hit := s.cache.Get(key)

		if s.metrics != nil {
			s.metrics.RecordCacheLookup(ctx, hit)
		}

		if hit {
			return data, nil
		}
	}

	doc, err := s.Build(ctx, req)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer

	encodeErr := codec.Encode(&buf, doc)
	if encodeErr != nil {
		return nil, fmt.Errorf("encode snapshot: %w", encodeErr)
	}

	if s.cache != nil {
		s.cache.Put(key, buf.Bytes())
	}

	return buf.Bytes(), nil
}

func (s *Service) replay(ctx context.Context, at time.Time) (*filetree.Node, filetree.ReplayStats, error) {
	err := ctx.Err()
	if err != nil {
		return nil, filetree.ReplayStats{}, fmt.Errorf("replay: %w", err)
	}

	ctx, span := s.tracer.Start(ctx, "snapshot.replay",
		trace.WithAttributes(attribute.String("histree.at", at.UTC().Format(time.RFC3339))))
	defer span.End()

	started := time.Now()
	root, stats := filetree.Replay(s.commits, at, s.logger)
	elapsed := time.Since(started)

	span.SetAttributes(
		attribute.Int("histree.commits", stats.Commits),
		attribute.Int("histree.changes", stats.Changes),
		attribute.Int("histree.renames", stats.Renames),
		attribute.Int("histree.coerced", stats.Coerced),
	)

	if s.metrics != nil {
		s.metrics.RecordReplay(ctx, stats.Commits, elapsed)
	}

	s.logger.DebugContext(ctx, "replayed history",
		"at", at, "commits", stats.Commits, "changes", stats.Changes, "renames", stats.Renames,
		"coerced", stats.Coerced, "elapsed", elapsed)

	return root, stats, nil
}
