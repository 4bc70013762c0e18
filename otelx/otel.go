// Package otelx builds the OpenTelemetry tracer and meter providers of a process from
// configuration. Both default to no-op providers.
package otelx

import (
	"context"
	"io"
	"os"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridsearch/x/loggerx"
)

type Otel struct {
	tp        trace.TracerProvider
	mp        metric.MeterProvider
	shutdowns []func(ctx context.Context) error
}

type options struct {
	w io.Writer
}

type Option func(*options)

// WithWriter sets where the stdout exporters write. Defaults to os.Stdout.
func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.w = w
	}
}

// New sets up the providers selected by c. Call Shutdown to flush them.
func New(ctx context.Context, l *loggerx.Logger, c Config, opts ...Option) (*Otel, error) {
	o := &options{w: os.Stdout}
	for _, opt := range opts {
		opt(o)
	}

	res := resource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceNameKey.String(c.ServiceName))

	tp, tpShutdown, err := newTracerProvider(ctx, c.Tracing, res, o.w)
	if err != nil {
		return nil, err
	}
	l.Info(ctx, "tracer provider configured", attribute.String("provider", providerName(c.Tracing.Provider)))

	mp, mpShutdown, err := newMeterProvider(ctx, c.Metrics, res, o.w)
	if err != nil {
		_ = tpShutdown(ctx)
		return nil, err
	}
	l.Info(ctx, "meter provider configured", attribute.String("provider", providerName(c.Metrics.Provider)))

	return &Otel{
		tp:        tp,
		mp:        mp,
		shutdowns: []func(context.Context) error{mpShutdown, tpShutdown},
	}, nil
}

// NewNoop returns providers that record nothing.
func NewNoop() *Otel {
	o, _ := New(context.Background(), loggerx.New(loggerx.WithWriter(io.Discard)), Config{})
	return o
}

func (o *Otel) TracerProvider() trace.TracerProvider {
	return o.tp
}

func (o *Otel) MeterProvider() metric.MeterProvider {
	return o.mp
}

// Shutdown flushes pending spans and measurements. The first error is returned, but every
// provider is shut down.
func (o *Otel) Shutdown(ctx context.Context) error {
	var first error
	for _, fn := range o.shutdowns {
		if err := fn(ctx); err != nil && first == nil {
			first = errors.WithStack(err)
		}
	}
	return first
}

func providerName(p string) string {
	if p == ProviderNone {
		return "noop"
	}
	return p
}

func noShutdown(context.Context) error { return nil }
