package tracex

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	internaltracex "github.com/gridsearch/x/internal/tracex"
	"github.com/gridsearch/x/loggerx"
)

// RecoverWithStackTrace recovers from a panic and logs msg with the stack trace.
// It must be deferred directly: defer tracex.RecoverWithStackTrace(ctx, l, "panic while loading")
func RecoverWithStackTrace(ctx context.Context, l *loggerx.Logger, msg string) {
	defer func() {
		_ = recover()
	}()

	if r := recover(); r != nil && l != nil {
		l.Error(ctx, msg, StackTraceAttrs(r)...)
	}
}

// StackTraceAttrs describes a recovered panic value and the stack of the caller.
func StackTraceAttrs(recovered any) []attribute.KeyValue {
	if recovered == nil {
		return nil
	}

	out := []attribute.KeyValue{semconv.ExceptionStacktrace(internaltracex.GetStackTrace(3))}
	switch v := recovered.(type) {
	case string:
		out = append(out, semconv.ExceptionMessage(v))
	case error:
		out = append(out, semconv.ExceptionMessage(v.Error()))
	default:
		out = append(out, semconv.ExceptionMessage("unknown panic"))
	}
	return out
}
