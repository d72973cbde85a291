// Package telemetry wires the pipeline's otel spans and prometheus
// counters. Neither backend is required to be configured — an
// unconfigured otel SDK falls back to its no-op tracer, and the
// prometheus registry's /metrics endpoint is wired up by cmd/argus
// only when asked for.
package telemetry

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/argusverify/argus/internal/model"
)

var tracer = otel.Tracer("argus/pipeline")

// ConfigureTracing installs an OTLP/gRPC exporter as the process-wide
// tracer provider when endpoint is non-empty. The pipeline's own spans
// (StartFileSpan/StartStageSpan) are emitted through the global
// otel.Tracer either way; with no endpoint configured that tracer falls
// back to the SDK's no-op implementation, matching spec §5's "absence
// is an acceptable non-error condition" posture for optional backends.
// The returned shutdown func flushes and closes the exporter; callers
// must invoke it before process exit.
func ConfigureTracing(ctx context.Context, endpoint string) (shutdown func(context.Context) error, err error) {
	if endpoint == "" {
		return func(context.Context) error { return nil }, nil
	}

	conn, err := grpc.NewClient(endpoint, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	exporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(attribute.String("service.name", "argus")))
	if err != nil {
		res = resource.Default()
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	return tp.Shutdown, nil
}

// StartFileSpan starts a span covering one file's run through the
// pipeline, tagged with its filename.
func StartFileSpan(ctx context.Context, filename string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "argus.pipeline.run_file", trace.WithAttributes(attribute.String("argus.filename", filename)))
}

// StartStageSpan starts a span for one pipeline stage (the pipeline
// opens "guard" and "verify" stage spans) nested under a file span.
func StartStageSpan(ctx context.Context, stage string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "argus.pipeline."+stage)
}

// EndWithVerdict records the final verdict on span and closes it,
// marking the span as errored when the verdict is ERROR.
func EndWithVerdict(span trace.Span, verdict model.Verdict) {
	span.SetAttributes(attribute.String("argus.verdict", string(verdict)))
	if verdict == model.VerdictError {
		span.SetStatus(codes.Error, "verification runtime error")
	}
	span.End()
}

// Metrics collects the prometheus series the pipeline emits, each
// bound to its own registry so a process (or test) can construct more
// than one Metrics without tripping promauto's duplicate-registration
// panic — the donor's classifier package registers straight onto the
// default registry because it only ever constructs its collectors
// once per process; the pipeline's Metrics is built per-Orchestrator
// instead, so it needs its own registry.
type Metrics struct {
	Registry       *prometheus.Registry
	runsTotal      *prometheus.CounterVec
	runDuration    *prometheus.HistogramVec
	repairAttempts prometheus.Counter
	cacheHitsTotal prometheus.Counter
	cacheMissTotal prometheus.Counter
}

// NewMetrics registers and returns the pipeline's metric collectors
// against a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		Registry: reg,
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "argus_pipeline_runs_total",
			Help: "Total pipeline file runs by verdict",
		}, []string{"verdict", "engine"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "argus_pipeline_run_duration_seconds",
			Help:    "Wall-clock duration of one file's pipeline run",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120},
		}, []string{"verdict"}),
		repairAttempts: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_repair_attempts_total",
			Help: "Total repair attempts made across all files",
		}),
		cacheHitsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_verify_cache_hits_total",
			Help: "Total verification cache hits",
		}),
		cacheMissTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "argus_verify_cache_misses_total",
			Help: "Total verification cache misses",
		}),
	}
}

// RecordRun records one completed file run.
func (m *Metrics) RecordRun(verdict model.Verdict, engine string, duration time.Duration) {
	m.runsTotal.WithLabelValues(string(verdict), engine).Inc()
	m.runDuration.WithLabelValues(string(verdict)).Observe(duration.Seconds())
}

// RecordRepairAttempt increments the repair-attempt counter.
func (m *Metrics) RecordRepairAttempt() { m.repairAttempts.Inc() }

// RecordCacheHit increments the verify-cache hit counter.
func (m *Metrics) RecordCacheHit() { m.cacheHitsTotal.Inc() }

// RecordCacheMiss increments the verify-cache miss counter.
func (m *Metrics) RecordCacheMiss() { m.cacheMissTotal.Inc() }
