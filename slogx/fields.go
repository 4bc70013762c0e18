package slogx

import (
	"log/slog"

	"github.com/gridsearch/x/errorx"
	"go.opentelemetry.io/otel/attribute"
)

// Attrs converts OpenTelemetry attributes into slog attributes so that the same key/value
// pairs can be recorded on spans and in logs.
func Attrs(kvs ...attribute.KeyValue) []slog.Attr {
	attrs := make([]slog.Attr, 0, len(kvs))
	for _, kv := range kvs {
		attrs = append(attrs, slog.Attr{Key: string(kv.Key), Value: Value(kv.Value)})
	}
	return attrs
}

func Value(v attribute.Value) slog.Value {
	switch v.Type() {
	case attribute.BOOL:
		return slog.BoolValue(v.AsBool())
	case attribute.INT64:
		return slog.Int64Value(v.AsInt64())
	case attribute.FLOAT64:
		return slog.Float64Value(v.AsFloat64())
	case attribute.STRING:
		return slog.StringValue(v.AsString())
	default:
		return slog.AnyValue(v.AsInterface())
	}
}

// ErrorAttrs describes err. Typed errors also carry their type under error_type.
func ErrorAttrs(err error) []slog.Attr {
	attrs := []slog.Attr{slog.Any("error", err)}
	if e, ok := errorx.IsError(err); ok {
		attrs = append(attrs, slog.String("error_type", e.Type.String()))
	}
	return attrs
}
