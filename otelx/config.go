package otelx

import (
	_ "embed"

	"github.com/gridsearch/x/configx"
)

//go:embed config.schema.json
var ConfigSchema []byte

const ConfigSchemaID = "https://gridsearch.dev/schemas/otelx/config.schema.json"

const (
	ProviderNone       = ""
	ProviderStdout     = "stdout"
	ProviderOTLP       = "otlp"
	ProviderPrometheus = "prometheus"

	ProtocolHTTP = "http"
	ProtocolGRPC = "grpc"
)

type OTLPConfig struct {
	Protocol  string
	ServerURL string
	Insecure  bool
}

type TracerConfig struct {
	Provider      string
	SamplingRatio float64
	OTLP          OTLPConfig
	StdoutPretty  bool
}

type MeterConfig struct {
	Provider string
	OTLP     OTLPConfig
	// PrometheusTextfile receives the prometheus exposition on Shutdown, for batch jobs
	// scraped through a textfile collector.
	PrometheusTextfile string
}

type Config struct {
	ServiceName string
	Tracing     TracerConfig
	Metrics     MeterConfig
}

// ConfigFromProvider reads the section of p found under prefix, e.g. "otel".
func ConfigFromProvider(p *configx.Provider, prefix string) Config {
	key := func(k string) string { return prefix + configx.Delimiter + k }
	otlp := func(k string) OTLPConfig {
		return OTLPConfig{
			Protocol:  p.StringF(key(k+".otlp.protocol"), ProtocolHTTP),
			ServerURL: p.String(key(k + ".otlp.server_url")),
			Insecure:  p.BoolF(key(k+".otlp.insecure"), false),
		}
	}

	return Config{
		ServiceName: p.String(key("service_name")),
		Tracing: TracerConfig{
			Provider:      p.String(key("tracing.provider")),
			SamplingRatio: p.Float64F(key("tracing.sampling_ratio"), 1),
			OTLP:          otlp("tracing"),
			StdoutPretty:  p.BoolF(key("tracing.stdout.pretty"), false),
		},
		Metrics: MeterConfig{
			Provider:           p.String(key("metrics.provider")),
			OTLP:               otlp("metrics"),
			PrometheusTextfile: p.String(key("metrics.prometheus.textfile")),
		},
	}
}
