// Package tracing provides OpenTelemetry-based distributed tracing infrastructure.
// It supports multiple exporters (stdout, OTLP) and provides domain-specific
// span helpers for pack runs, token metrics, and remote job polling.
package tracing

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	// TracerName is the name used for the repopack tracer.
	TracerName = "github.com/codetide/repopack"

	// Version is the semantic version of the tracer.
	Version = "1.0.0"
)

// ExporterType defines the type of trace exporter.
type ExporterType string

const (
	ExporterNone   ExporterType = "none"
	ExporterStdout ExporterType = "stdout"
	ExporterOTLP   ExporterType = "otlp"
)

// Config holds tracing configuration.
type Config struct {
	Enabled      bool         // Whether tracing is enabled
	ExporterType ExporterType // Type of exporter to use
	OTLPEndpoint string       // OTLP collector endpoint (for OTLP exporter)
	ServiceName  string       // Service name for traces
	Environment  string       // Deployment environment (development, production)
	SampleRate   float64      // Sampling rate (0.0 to 1.0)
	Output       io.Writer    // Output for stdout exporter (defaults to os.Stdout)
}

// DefaultConfig returns sensible default tracing configuration.
func DefaultConfig() Config {
	return Config{
		Enabled:      false,
		ExporterType: ExporterNone,
		ServiceName:  "repopack",
		Environment:  "development",
		SampleRate:   1.0,
	}
}

// Tracer wraps an OpenTelemetry tracer with domain-specific functionality.
type Tracer struct {
	tracer   trace.Tracer
	provider *sdktrace.TracerProvider
	config   Config
}

// global is the package-level default tracer.
var (
	global     *Tracer
	globalOnce sync.Once
)

// Init initializes the global tracer with the provided configuration.
func Init(ctx context.Context, cfg Config) (*Tracer, error) {
	var err error
	globalOnce.Do(func() {
		global, err = New(ctx, cfg)
	})
	return global, err
}

// Default returns the global tracer, or a no-op tracer if not initialized.
func Default() *Tracer {
	if global == nil {
		return &Tracer{
			tracer: otel.Tracer(TracerName),
			config: DefaultConfig(),
		}
	}
	return global
}

// New creates a new Tracer with the provided configuration.
func New(ctx context.Context, cfg Config) (*Tracer, error) {
	if !cfg.Enabled || cfg.ExporterType == ExporterNone {
		return &Tracer{
			tracer: noop.NewTracerProvider().Tracer(TracerName),
			config: cfg,
		}, nil
	}

	exporter, err := createExporter(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create exporter: %w", err)
	}

	// Create resource without merging with Default() to avoid schema URL conflicts.
	// The default resource's schema URL may conflict with our semconv version.
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(Version),
			attribute.String("deployment.environment", cfg.Environment),
		),
		resource.WithHost(),
		resource.WithTelemetrySDK(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	if cfg.SampleRate >= 1.0 {
		sampler = sdktrace.AlwaysSample()
	} else if cfg.SampleRate <= 0.0 {
		sampler = sdktrace.NeverSample()
	} else {
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	otel.SetTracerProvider(provider)

	return &Tracer{
		tracer:   provider.Tracer(TracerName, trace.WithInstrumentationVersion(Version)),
		provider: provider,
		config:   cfg,
	}, nil
}

// createExporter creates the appropriate exporter based on configuration.
func createExporter(ctx context.Context, cfg Config) (sdktrace.SpanExporter, error) {
	switch cfg.ExporterType {
	case ExporterStdout:
		opts := []stdouttrace.Option{
			stdouttrace.WithPrettyPrint(),
		}
		if cfg.Output != nil {
			opts = append(opts, stdouttrace.WithWriter(cfg.Output))
		}
		return stdouttrace.New(opts...)

	case ExporterOTLP:
		opts := []otlptracehttp.Option{
			otlptracehttp.WithInsecure(),
		}
		if cfg.OTLPEndpoint != "" {
			opts = append(opts, otlptracehttp.WithEndpoint(cfg.OTLPEndpoint))
		}
		return otlptracehttp.New(ctx, opts...)

	default:
		return nil, fmt.Errorf("unsupported exporter type: %s", cfg.ExporterType)
	}
}

// Shutdown gracefully shuts down the tracer provider.
func (t *Tracer) Shutdown(ctx context.Context) error {
	if t.provider != nil {
		return t.provider.Shutdown(ctx)
	}
	return nil
}

// Start starts a new span with the given name.
func (t *Tracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, name, opts...)
}

// SpanFromContext returns the current span from context.
func SpanFromContext(ctx context.Context) trace.Span {
	return trace.SpanFromContext(ctx)
}

// --- Domain-specific span helpers ---

// PackSpan represents a pack run span.
type PackSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartPackSpan starts a span for a full pack run.
func (t *Tracer) StartPackSpan(ctx context.Context, rootDir, style string) (context.Context, *PackSpan) {
	ctx, span := t.tracer.Start(ctx, "pack.run",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("pack.root_dir", rootDir),
			attribute.String("pack.style", style),
		),
	)

	return ctx, &PackSpan{span: span, ctx: ctx}
}

// SetFileCount sets the number of collected files.
func (ps *PackSpan) SetFileCount(count int) {
	ps.span.SetAttributes(attribute.Int("pack.file_count", count))
}

// SetOutputSize sets the rendered output size in bytes.
func (ps *PackSpan) SetOutputSize(size int) {
	ps.span.SetAttributes(attribute.Int("pack.output_bytes", size))
}

// SetTotalTokens sets the total output token count.
func (ps *PackSpan) SetTotalTokens(tokens int) {
	ps.span.SetAttributes(attribute.Int("pack.tokens.total", tokens))
}

// End ends the pack span with success status.
func (ps *PackSpan) End() {
	ps.span.SetStatus(codes.Ok, "pack completed successfully")
	ps.span.End()
}

// EndWithError ends the pack span with error status.
func (ps *PackSpan) EndWithError(err error) {
	ps.span.RecordError(err)
	ps.span.SetStatus(codes.Error, err.Error())
	ps.span.End()
}

// MetricsSpan represents a token metrics computation span.
type MetricsSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartMetricsSpan starts a span for token metrics computation.
func (t *Tracer) StartMetricsSpan(ctx context.Context, encoding string, outputBytes int) (context.Context, *MetricsSpan) {
	ctx, span := t.tracer.Start(ctx, "metrics.compute",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("metrics.encoding", encoding),
			attribute.Int("metrics.output_bytes", outputBytes),
		),
	)

	return ctx, &MetricsSpan{span: span, ctx: ctx}
}

// SetParallel marks whether the output count took the parallel path.
func (ms *MetricsSpan) SetParallel(parallel bool, chunks int) {
	ms.span.SetAttributes(
		attribute.Bool("metrics.parallel", parallel),
		attribute.Int("metrics.chunks", chunks),
	)
}

// SetTokens sets the computed token counts.
func (ms *MetricsSpan) SetTokens(total int) {
	ms.span.SetAttributes(attribute.Int("metrics.tokens.total", total))
}

// End ends the metrics span with success status.
func (ms *MetricsSpan) End() {
	ms.span.SetStatus(codes.Ok, "metrics computed successfully")
	ms.span.End()
}

// EndWithError ends the metrics span with error status.
func (ms *MetricsSpan) EndWithError(err error) {
	ms.span.RecordError(err)
	ms.span.SetStatus(codes.Error, err.Error())
	ms.span.End()
}

// JobSpan represents a remote generation job span.
type JobSpan struct {
	span trace.Span
	ctx  context.Context
}

// StartJobSpan starts a span for a remote generation job.
func (t *Tracer) StartJobSpan(ctx context.Context, targetURL string) (context.Context, *JobSpan) {
	ctx, span := t.tracer.Start(ctx, "job.generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("job.target_url", targetURL),
		),
	)

	return ctx, &JobSpan{span: span, ctx: ctx}
}

// SetJobID sets the server-assigned job identifier.
func (js *JobSpan) SetJobID(id string) {
	js.span.SetAttributes(attribute.String("job.id", id))
}

// SetPollCount sets the number of status polls performed.
func (js *JobSpan) SetPollCount(count int) {
	js.span.SetAttributes(attribute.Int("job.poll_count", count))
}

// SetFinalStatus sets the terminal job status.
func (js *JobSpan) SetFinalStatus(status string) {
	js.span.SetAttributes(attribute.String("job.final_status", status))
}

// End ends the job span with success status.
func (js *JobSpan) End() {
	js.span.SetStatus(codes.Ok, "job completed successfully")
	js.span.End()
}

// EndWithError ends the job span with error status.
func (js *JobSpan) EndWithError(err error) {
	js.span.RecordError(err)
	js.span.SetStatus(codes.Error, err.Error())
	js.span.End()
}

// AddEvent adds an event to the current span.
func AddEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	span.RecordError(err)
}

// SetAttribute sets an attribute on the current span.
func SetAttribute(ctx context.Context, key string, value any) {
	span := trace.SpanFromContext(ctx)
	switch v := value.(type) {
	case string:
		span.SetAttributes(attribute.String(key, v))
	case int:
		span.SetAttributes(attribute.Int(key, v))
	case int64:
		span.SetAttributes(attribute.Int64(key, v))
	case float64:
		span.SetAttributes(attribute.Float64(key, v))
	case bool:
		span.SetAttributes(attribute.Bool(key, v))
	}
}
