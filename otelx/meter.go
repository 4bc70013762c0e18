package otelx

import (
	"context"
	"io"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"

	"github.com/gridsearch/x/errorx"
)

func newMeterProvider(ctx context.Context, c MeterConfig, res *resource.Resource, w io.Writer) (metric.MeterProvider, func(context.Context) error, error) {
	switch c.Provider {
	case ProviderNone:
		return metricnoop.NewMeterProvider(), noShutdown, nil
	case ProviderStdout:
		exp, err := stdoutmetric.New(stdoutmetric.WithWriter(w))
		if err != nil {
			return nil, nil, errors.WithStack(err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		return mp, mp.Shutdown, nil
	case ProviderOTLP:
		exp, err := otlpMetricExporter(ctx, c.OTLP)
		if err != nil {
			return nil, nil, err
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp)),
			sdkmetric.WithResource(res),
		)
		return mp, mp.Shutdown, nil
	case ProviderPrometheus:
		return newPrometheusMeterProvider(c, res)
	default:
		return nil, nil, errorx.InvalidArgumentErrorf("unknown metrics provider %q", c.Provider)
	}
}

func otlpMetricExporter(ctx context.Context, c OTLPConfig) (sdkmetric.Exporter, error) {
	switch c.Protocol {
	case ProtocolHTTP, "":
		opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlpmetrichttp.WithInsecure())
		}
		exp, err := otlpmetrichttp.New(ctx, opts...)
		return exp, errors.WithStack(err)
	case ProtocolGRPC:
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(c.ServerURL)}
		if c.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		exp, err := otlpmetricgrpc.New(ctx, opts...)
		return exp, errors.WithStack(err)
	default:
		return nil, errorx.InvalidArgumentErrorf("unknown otlp protocol %q", c.Protocol)
	}
}

// newPrometheusMeterProvider registers the measurements on a dedicated registry. When a
// textfile is configured, the registry is written to it on shutdown.
func newPrometheusMeterProvider(c MeterConfig, res *resource.Resource) (metric.MeterProvider, func(context.Context) error, error) {
	reg := prometheus.NewRegistry()
	exp, err := otelprom.New(otelprom.WithRegisterer(reg))
	if err != nil {
		return nil, nil, errors.WithStack(err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exp),
		sdkmetric.WithResource(res),
	)

	shutdown := func(ctx context.Context) error {
		var err error
		if c.PrometheusTextfile != "" {
			err = errors.WithStack(prometheus.WriteToTextfile(c.PrometheusTextfile, reg))
		}
		if serr := mp.Shutdown(ctx); err == nil {
			err = serr
		}
		return err
	}
	return mp, shutdown, nil
}
