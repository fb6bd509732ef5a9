// Package tracing exports per-turn preflight stage timings as
// OpenTelemetry spans over OTLP. Export is optional (no endpoint, no
// tracing) and always best-effort.
package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// Config configures the OTLP exporter.
type Config struct {
	Endpoint    string // e.g. "localhost:4317"; "" disables tracing
	Protocol    string // "grpc" (default) or "http"
	Insecure    bool   // skip TLS for local collectors
	ServiceName string // default "preflight"
}

// Stage is one timed step of a turn.
type Stage struct {
	Name  string // "normalize", "extract", "keyword", "semantic"
	Start time.Time
	Dur   time.Duration
	Error string // "" = ok
	Attrs map[string]string
}

// TurnTrace is the full stage breakdown of one preflight run.
type TurnTrace struct {
	ID        uuid.UUID
	SessionID string
	Start     time.Time
	Dur       time.Duration
	Outcome   string // "hint", "none", "skipped", "disabled"
	Stages    []Stage
}

// Exporter sends turn traces to an OTLP collector. A nil *Exporter is a
// valid no-op, so callers never branch on tracing being configured.
type Exporter struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

// New creates an exporter, or (nil, nil) when no endpoint is configured.
func New(ctx context.Context, cfg Config) (*Exporter, error) {
	if cfg.Endpoint == "" {
		return nil, nil
	}

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "preflight"
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("otel resource: %w", err)
	}

	var exporter sdktrace.SpanExporter
	switch cfg.Protocol {
	case "http":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		exporter, err = otlptracehttp.New(ctx, opts...)
	default: // "grpc"
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		exporter, err = otlptracegrpc.New(ctx, opts...)
	}
	if err != nil {
		return nil, fmt.Errorf("otel exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter,
			sdktrace.WithMaxExportBatchSize(100),
			sdktrace.WithBatchTimeout(5*time.Second),
		),
		sdktrace.WithResource(res),
	)

	return &Exporter{
		provider: tp,
		tracer:   tp.Tracer("preflight"),
	}, nil
}

// Export emits one root span per turn with a child span per stage.
func (e *Exporter) Export(ctx context.Context, t TurnTrace) {
	if e == nil {
		return
	}

	// Correlate the OTel trace with the audit record via the turn ID.
	rootCtx := trace.ContextWithSpanContext(ctx, trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID(t.ID),
		SpanID:     spanIDFrom(t.ID),
		TraceFlags: trace.FlagsSampled,
	}))

	spanCtx, root := e.tracer.Start(rootCtx, "preflight.turn",
		trace.WithTimestamp(t.Start),
		trace.WithAttributes(
			attribute.String("preflight.turn_id", t.ID.String()),
			attribute.String("preflight.session_id", t.SessionID),
			attribute.String("preflight.outcome", t.Outcome),
		),
	)

	for _, s := range t.Stages {
		attrs := make([]attribute.KeyValue, 0, len(s.Attrs))
		for k, v := range s.Attrs {
			attrs = append(attrs, attribute.String("preflight."+k, v))
		}
		_, span := e.tracer.Start(spanCtx, "preflight."+s.Name,
			trace.WithTimestamp(s.Start),
			trace.WithAttributes(attrs...),
		)
		if s.Error != "" {
			span.SetStatus(codes.Error, s.Error)
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End(trace.WithTimestamp(s.Start.Add(s.Dur)))
	}

	root.End(trace.WithTimestamp(t.Start.Add(t.Dur)))
}

// Shutdown flushes buffered spans.
func (e *Exporter) Shutdown(ctx context.Context) error {
	if e == nil {
		return nil
	}
	slog.Info("tracing exporter shutting down")
	return e.provider.Shutdown(ctx)
}

// spanIDFrom derives a span ID from the last 8 bytes of a UUID.
func spanIDFrom(id uuid.UUID) trace.SpanID {
	var sid trace.SpanID
	copy(sid[:], id[8:16])
	return sid
}
