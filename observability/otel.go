package observability

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// maxRecordedText caps how much prompt/response text is attached to a span.
const maxRecordedText = 2000

// Shutdown flushes and stops the tracing pipeline.
type Shutdown func(ctx context.Context) error

// Init configures the global OpenTelemetry tracer provider with an OTLP
// HTTP exporter. If endpoint is empty, tracing is disabled and the returned
// shutdown is a no-op. Returns a shutdown function that must be called
// during graceful shutdown.
func Init(ctx context.Context, endpoint, serviceName, version string, insecure bool) (Shutdown, error) {
	if endpoint == "" {
		return func(ctx context.Context) error { return nil }, nil
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String(serviceName),
			semconv.ServiceVersionKey.String(version),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("observability: create resource: %w", err)
	}

	traceOpts := []otlptracehttp.Option{
		otlptracehttp.WithEndpoint(endpoint),
	}
	if insecure {
		traceOpts = append(traceOpts, otlptracehttp.WithInsecure())
	}
	traceExp, err := otlptracehttp.New(ctx, traceOpts...)
	if err != nil {
		return nil, fmt.Errorf("observability: create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp,
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	return tp.Shutdown, nil
}

// OTelTracker implements Tracker on OpenTelemetry spans: one root span per
// session, one child span per recorded step.
type OTelTracker struct {
	tracer trace.Tracer
	logger *zap.Logger
}

// NewOTelTracker creates a tracker using the global tracer provider.
// A nil logger is replaced with a no-op logger.
func NewOTelTracker(logger *zap.Logger) *OTelTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OTelTracker{
		tracer: otel.Tracer("invoicecopilot/agent"),
		logger: logger,
	}
}

// BeginSession starts the root span for one agent run.
func (t *OTelTracker) BeginSession(ctx context.Context, agentName string) Session {
	id := uuid.NewString()
	spanCtx, span := t.tracer.Start(ctx, "agent.run",
		trace.WithAttributes(
			attribute.String("agent.name", agentName),
			attribute.String("agent.execution_id", id),
		),
	)
	return Session{
		ID:  id,
		ctx: spanCtx,
		end: func() { span.End() },
	}
}

// EndSession closes the session's root span.
func (t *OTelTracker) EndSession(session Session) {
	if session.end != nil {
		session.end()
	}
}

// RecordStep emits a child span for one step of the run.
func (t *OTelTracker) RecordStep(session Session, stepName, stepKind, input, output string) {
	if session.ctx == nil {
		t.logger.Debug("step recorded without session", zap.String("step", stepName))
		return
	}
	_, span := t.tracer.Start(session.ctx, stepName,
		trace.WithAttributes(
			attribute.String("step.kind", stepKind),
			attribute.String("step.input", truncate(input, maxRecordedText)),
			attribute.String("step.output", truncate(output, maxRecordedText)),
		),
	)
	span.End()
}

// truncate cuts at a rune boundary so span attributes stay valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
