package tracex

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridsearch/x/loggerx"
)

const ComponentNameSeparator = "."

func ComponentName(packageName, name string) string {
	return packageName + ComponentNameSeparator + name
}

// Instrument starts a span named after the component and returns a logger tagged with it.
// The caller must end the span.
//
//	ctx, span, l := tracex.Instrument(ctx, tp, l, "gridindex", "bulk-load")
//	defer span.End()
func Instrument(ctx context.Context, tp trace.TracerProvider, l *loggerx.Logger, componentName, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span, *loggerx.Logger) {
	fullName := ComponentName(componentName, name)
	ctx, span := tp.Tracer(componentName).Start(ctx, fullName, opts...)
	return ctx, span, l.WithFields(attribute.String("component", fullName))
}
