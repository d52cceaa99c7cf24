package logging

import (
	"context"
	"log/slog"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// SpanExporter writes finished spans to a logger at debug level. It lets
// a server without a collector still see per-command timings.
type SpanExporter struct {
	logger *slog.Logger
}

// NewSpanExporter creates an exporter writing to logger.
func NewSpanExporter(logger *slog.Logger) *SpanExporter {
	return &SpanExporter{logger: logger}
}

// ExportSpans implements sdktrace.SpanExporter.
func (e *SpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	for _, span := range spans {
		attrs := []any{
			"trace_id", span.SpanContext().TraceID().String(),
			"span_id", span.SpanContext().SpanID().String(),
			"duration", span.EndTime().Sub(span.StartTime()),
		}
		if span.Parent().IsValid() {
			attrs = append(attrs, "parent_id", span.Parent().SpanID().String())
		}
		for _, kv := range span.Attributes() {
			attrs = append(attrs, string(kv.Key), kv.Value.Emit())
		}
		if st := span.Status(); st.Description != "" {
			attrs = append(attrs, "status", st.Description)
		}
		e.logger.DebugContext(ctx, span.Name(), attrs...)
	}
	return nil
}

// Shutdown implements sdktrace.SpanExporter.
func (e *SpanExporter) Shutdown(context.Context) error {
	return nil
}

// NewTracerProvider returns a provider exporting every span through a
// SpanExporter synchronously. Callers shut it down on exit.
func NewTracerProvider(logger *slog.Logger) *sdktrace.TracerProvider {
	return sdktrace.NewTracerProvider(
		sdktrace.WithSpanProcessor(sdktrace.NewSimpleSpanProcessor(NewSpanExporter(logger))),
	)
}
