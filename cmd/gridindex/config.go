package main

import (
	"context"
	_ "embed"
	"io"
	"log/slog"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/gridsearch/x/configx"
	"github.com/gridsearch/x/elasticx"
	"github.com/gridsearch/x/loggerx"
	"github.com/gridsearch/x/otelx"
	"github.com/gridsearch/x/slogx"
)

//go:embed config.schema.json
var configSchema []byte

const envPrefix = "GRIDINDEX_"

// runIDKey carries the id of one invocation; every log line of the run is tagged with it.
type runIDKey struct{}

func withRunID(ctx context.Context) context.Context {
	return context.WithValue(ctx, runIDKey{}, uuid.NewString())
}

// configFlags are the flags that feed the configuration, as opposed to command arguments.
func configFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("config", pflag.ContinueOnError)
	fs.StringSlice("config", nil, "config files (yaml, json or toml), later files win")
	fs.StringSlice("elastic.addresses", nil, "elastic addresses, host:port or scheme://host:port")
	fs.String("elastic.cluster_name", "", "expected cluster name")
	fs.String("log.level", "info", "log level: debug, info, warn or error")
	fs.String("log.format", "json", "log format: json or text")
	return fs
}

type settings struct {
	elastic elasticx.Config
	otel    otelx.Config
	logger  *loggerx.Logger
}

func loadSettings(ctx context.Context, fs *pflag.FlagSet, stderr io.Writer) (*settings, error) {
	files, err := fs.GetStringSlice("config")
	if err != nil {
		return nil, err
	}

	p, err := configx.New(ctx, configSchema,
		configx.WithLogger(loggerx.New(loggerx.WithWriter(stderr), loggerx.WithLevel(slog.LevelWarn))),
		configx.WithSchemaResource(elasticx.ConfigSchemaID, elasticx.ConfigSchema),
		configx.WithSchemaResource(otelx.ConfigSchemaID, otelx.ConfigSchema),
		configx.WithBaseValues(map[string]interface{}{"otel.service_name": "gridindex"}),
		configx.WithConfigFiles(files...),
		configx.WithEnvPrefix(envPrefix),
		configx.WithFlags(withoutFlag(fs, "config")),
		configx.WithStandardValidationReporter(stderr),
	)
	if err != nil {
		return nil, err
	}

	return &settings{
		elastic: elasticx.ConfigFromProvider(p),
		otel:    otelx.ConfigFromProvider(p, "otel"),
		logger: loggerx.New(
			loggerx.WithWriter(stderr),
			loggerx.WithLevel(loggerx.ParseLevel(p.StringF("log.level", "info"))),
			loggerx.WithFormat(loggerx.Format(p.StringF("log.format", string(loggerx.FormatJSON)))),
			loggerx.WithExtractors(slogx.NewContextValueExtractor(runIDKey{}, "run_id")),
		),
	}, nil
}

// withoutFlag returns a copy of fs without the named flag, sharing the parsed state of the others.
func withoutFlag(fs *pflag.FlagSet, name string) *pflag.FlagSet {
	out := pflag.NewFlagSet(fs.Name(), pflag.ContinueOnError)
	fs.VisitAll(func(f *pflag.Flag) {
		if f.Name != name {
			out.AddFlag(f)
		}
	})
	return out
}
