package otelx

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/gridsearch/x/errorx"
)

func newTracerProvider(ctx context.Context, c TracerConfig, res *resource.Resource, w io.Writer) (trace.TracerProvider, func(context.Context) error, error) {
	var exp sdktrace.SpanExporter
	switch c.Provider {
	case ProviderNone:
		return tracenoop.NewTracerProvider(), noShutdown, nil
	case ProviderStdout:
		opts := []stdouttrace.Option{stdouttrace.WithWriter(w)}
		if c.StdoutPretty {
			opts = append(opts, stdouttrace.WithPrettyPrint())
		}
		e, err := stdouttrace.New(opts...)
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		exp = e
	case ProviderOTLP:
		e, err := otlpTraceExporter(ctx, c.OTLP)
		if err != nil {
			return nil, nil, err
		}
		exp = e
	default:
		return nil, nil, errorx.InvalidArgumentErrorf("unknown tracing provider %q", c.Provider)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(c.SamplingRatio))),
	)
	return tp, tp.Shutdown, nil
}

func otlpTraceExporter(ctx context.Context, c OTLPConfig) (*otlptrace.Exporter, error) {
	var client otlptrace.Client
	switch c.Protocol {
	case ProtocolHTTP, "":
		opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		client = otlptracehttp.NewClient(opts...)
	case ProtocolGRPC:
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		client = otlptracegrpc.NewClient(opts...)
	default:
		return nil, errorx.InvalidArgumentErrorf("unknown otlp protocol %q", c.Protocol)
	}

	exp, err := otlptrace.New(ctx, client)
	return exp, errors.WithStack(err)
}
