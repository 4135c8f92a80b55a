// Package observe provides application-wide observability primitives for
// Fableturn: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Fableturn metrics.
const meterName = "github.com/MrWong99/fableturn"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// TurnDuration tracks end-to-end turn processing latency, from raw
	// player input to final narration.
	TurnDuration metric.Float64Histogram

	// CollaboratorDuration tracks language-model collaborator latency.
	// Use with attributes:
	//   attribute.String("role", ...), attribute.String("status", ...)
	CollaboratorDuration metric.Float64Histogram

	// --- Counters ---

	// TurnsCompleted counts fully resolved turns. Use with attribute:
	//   attribute.String("outcome", ...)
	TurnsCompleted metric.Int64Counter

	// PrecheckLabels counts precheck classifications by label.
	PrecheckLabels metric.Int64Counter

	// ActionsExecuted counts world actions by kind and result. Use with
	// attributes:
	//   attribute.String("action", ...), attribute.String("status", ...)
	ActionsExecuted metric.Int64Counter

	// NarrationRejections counts validator rejections by mode.
	NarrationRejections metric.Int64Counter

	// UndoOperations counts applied undo rewinds.
	UndoOperations metric.Int64Counter

	// --- Error counters ---

	// CollaboratorErrors counts collaborator failures by role. Every
	// increment corresponds to one fail-open fallback.
	CollaboratorErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live game sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// LLM-backed turn latencies.
var latencyBuckets = []float64{
	0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.TurnDuration, err = m.Float64Histogram("fableturn.turn.duration",
		metric.WithDescription("End-to-end turn processing latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CollaboratorDuration, err = m.Float64Histogram("fableturn.collaborator.duration",
		metric.WithDescription("Language-model collaborator latency by role and status."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.TurnsCompleted, err = m.Int64Counter("fableturn.turns.completed",
		metric.WithDescription("Total fully resolved turns by outcome."),
	); err != nil {
		return nil, err
	}
	if met.PrecheckLabels, err = m.Int64Counter("fableturn.precheck.labels",
		metric.WithDescription("Total precheck classifications by label."),
	); err != nil {
		return nil, err
	}
	if met.ActionsExecuted, err = m.Int64Counter("fableturn.actions.executed",
		metric.WithDescription("Total world actions by kind and status."),
	); err != nil {
		return nil, err
	}
	if met.NarrationRejections, err = m.Int64Counter("fableturn.narration.rejections",
		metric.WithDescription("Total validator rejections by mode."),
	); err != nil {
		return nil, err
	}
	if met.UndoOperations, err = m.Int64Counter("fableturn.undo.operations",
		metric.WithDescription("Total applied undo rewinds."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.CollaboratorErrors, err = m.Int64Counter("fableturn.collaborator.errors",
		metric.WithDescription("Total collaborator failures by role."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("fableturn.active_sessions",
		metric.WithDescription("Number of live game sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("fableturn.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordTurn records a completed turn with its end-to-end latency.
func (m *Metrics) RecordTurn(ctx context.Context, outcome string, seconds float64) {
	m.TurnsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
	m.TurnDuration.Record(ctx, seconds)
}

// RecordPrecheck records one precheck classification.
func (m *Metrics) RecordPrecheck(ctx context.Context, label string) {
	m.PrecheckLabels.Add(ctx, 1,
		metric.WithAttributes(attribute.String("label", label)),
	)
}

// RecordAction records one executed world action.
func (m *Metrics) RecordAction(ctx context.Context, action, status string) {
	m.ActionsExecuted.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("action", action),
			attribute.String("status", status),
		),
	)
}

// RecordCollaborator records one collaborator call with its latency.
func (m *Metrics) RecordCollaborator(ctx context.Context, role, status string, seconds float64) {
	m.CollaboratorDuration.Record(ctx, seconds,
		metric.WithAttributes(
			attribute.String("role", role),
			attribute.String("status", status),
		),
	)
	if status != "ok" {
		m.CollaboratorErrors.Add(ctx, 1,
			metric.WithAttributes(attribute.String("role", role)),
		)
	}
}

// RecordNarrationRejection records one validator rejection.
func (m *Metrics) RecordNarrationRejection(ctx context.Context, mode string) {
	m.NarrationRejections.Add(ctx, 1,
		metric.WithAttributes(attribute.String("mode", mode)),
	)
}
