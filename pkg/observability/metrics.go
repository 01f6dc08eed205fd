package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "histree.requests.total"
	metricRequestDuration  = "histree.request.duration.seconds"
	metricErrorsTotal      = "histree.errors.total"
	metricInflightRequests = "histree.inflight.requests"

	metricSnapshotsBuilt   = "histree.snapshots.built"
	metricReplayDuration   = "histree.replay.duration.seconds"
	metricReplayedCommits  = "histree.replay.commits"
	metricSnapshotCacheOps = "histree.snapshot.cache.lookups"

	attrOp     = "op"
	attrStatus = "status"
	attrResult = "result"

	// StatusOK marks a successful request.
	StatusOK = "ok"
	// StatusError marks a failed request.
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 60s; replays of large histories
// take seconds, cached reads take milliseconds.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}

// REDMetrics holds the instruments for Rate, Error, Duration metrics.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED metric instruments from the given meter.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	reqTotal, err := mt.Int64Counter(metricRequestsTotal,
		metric.WithDescription("Total number of requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestsTotal, err)
	}

	reqDuration, err := mt.Float64Histogram(metricRequestDuration,
		metric.WithDescription("Request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricRequestDuration, err)
	}

	errTotal, err := mt.Int64Counter(metricErrorsTotal,
		metric.WithDescription("Total number of errors"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricErrorsTotal, err)
	}

	inflight, err := mt.Int64UpDownCounter(metricInflightRequests,
		metric.WithDescription("Number of in-flight requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightRequests, err)
	}

	return &REDMetrics{
		requestsTotal:    reqTotal,
		requestDuration:  reqDuration,
		errorsTotal:      errTotal,
		inflightRequests: inflight,
	}, nil
}

// RecordRequest records a completed request.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}

// SnapshotMetrics instruments tree reconstruction.
type SnapshotMetrics struct {
	built          metric.Int64Counter
	replayDuration metric.Float64Histogram
	commits        metric.Int64Histogram
	cacheLookups   metric.Int64Counter
}

// NewSnapshotMetrics creates snapshot instruments from the given meter.
func NewSnapshotMetrics(mt metric.Meter) (*SnapshotMetrics, error) {
	built, err := mt.Int64Counter(metricSnapshotsBuilt,
		metric.WithDescription("Snapshots reconstructed by replay"),
		metric.WithUnit("{snapshot}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSnapshotsBuilt, err)
	}

	replayDuration, err := mt.Float64Histogram(metricReplayDuration,
		metric.WithDescription("Time spent replaying history"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReplayDuration, err)
	}

	commits, err := mt.Int64Histogram(metricReplayedCommits,
		metric.WithDescription("Commits applied per replay"),
		metric.WithUnit("{commit}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricReplayedCommits, err)
	}

	lookups, err := mt.Int64Counter(metricSnapshotCacheOps,
		metric.WithDescription("Snapshot cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSnapshotCacheOps, err)
	}

	return &SnapshotMetrics{
		built:          built,
		replayDuration: replayDuration,
		commits:        commits,
		cacheLookups:   lookups,
	}, nil
}

// RecordReplay records one replay and the number of commits it applied.
func (sm *SnapshotMetrics) RecordReplay(ctx context.Context, commits int, duration time.Duration) {
	sm.built.Add(ctx, 1)
	sm.replayDuration.Record(ctx, duration.Seconds())
	sm.commits.Record(ctx, int64(commits))
}

// RecordCacheLookup records a cache hit or miss.
func (sm *SnapshotMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}

	sm.cacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}
