package slogx

import (
	"context"
	"log/slog"
	"time"

	slogctx "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel/trace"
)

const (
	TraceIDKey = "trace_id"
	SpanIDKey  = "span_id"
)

// ExtractSpanContext adds the trace and span ids of the span carried by ctx, if any.
func ExtractSpanContext(ctx context.Context, _ time.Time, _ slog.Level, _ string) []slog.Attr {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []slog.Attr{
		slog.String(TraceIDKey, sc.TraceID().String()),
		slog.String(SpanIDKey, sc.SpanID().String()),
	}
}

// NewContextValueExtractor logs the value stored in the context under key as field.
func NewContextValueExtractor(key any, field string) slogctx.AttrExtractor {
	return func(ctx context.Context, _ time.Time, _ slog.Level, _ string) []slog.Attr {
		v := ctx.Value(key)
		if v == nil {
			return nil
		}
		return []slog.Attr{slog.Any(field, v)}
	}
}
