// Command gridindex runs operator tasks against an Elastic cluster: readiness checks,
// counts, query-driven deletes and NDJSON bulk loads.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/codes"

	"github.com/gridsearch/x/elasticx"
	"github.com/gridsearch/x/errorx"
	"github.com/gridsearch/x/loggerx"
	"github.com/gridsearch/x/otelx"
	"github.com/gridsearch/x/tracex"
)

type command struct {
	name  string
	usage string
	flags func(fs *pflag.FlagSet)
	run   func(ctx context.Context, c elasticx.Client, fs *pflag.FlagSet, stdout io.Writer) error
}

var commands = []command{
	{name: "ready", usage: "check once whether the cluster is reachable", flags: readyFlags, run: runReady},
	{name: "wait", usage: "wait until the cluster reports a health status", flags: waitFlags, run: runWait},
	{name: "count", usage: "count the documents of an index", flags: countFlags, run: runCount},
	{name: "delete-by-query", usage: "delete every document matching a query", flags: deleteByQueryFlags, run: runDeleteByQuery},
	{name: "bulk-load", usage: "write NDJSON documents with bulk requests", flags: bulkLoadFlags, run: runBulkLoad},
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}

	cmd, ok := lookup(args[0])
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}

	cfgFlags := configFlags()
	fs := pflag.NewFlagSet(cmd.name, pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.AddFlagSet(cfgFlags)
	cmd.flags(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if err == pflag.ErrHelp {
			return 0
		}
		return 2
	}

	ctx = withRunID(ctx)
	s, err := loadSettings(ctx, cfgFlags, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "invalid configuration: %v\n", err)
		return 1
	}

	o, err := otelx.New(ctx, s.logger, s.otel, otelx.WithWriter(stderr))
	if err != nil {
		s.logger.WithError(err).Error(ctx, "unable to set up telemetry")
		return 1
	}
	defer func() {
		if err := o.Shutdown(context.WithoutCancel(ctx)); err != nil {
			s.logger.WithError(err).Warn(ctx, "unable to flush telemetry")
		}
	}()

	c, err := elasticx.NewClient(s.elastic,
		elasticx.WithLogger(s.logger),
		elasticx.WithMeterProvider(o.MeterProvider()),
		elasticx.WithTracerProvider(o.TracerProvider()),
	)
	if err != nil {
		s.logger.WithError(err).Error(ctx, "unable to create elastic client")
		return 1
	}
	defer c.Close()

	ctx, span, l := tracex.Instrument(ctx, o.TracerProvider(), s.logger, "gridindex", cmd.name)
	defer span.End()

	if err := execute(ctx, l, cmd, c, fs, stdout); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		l.WithError(err).Error(ctx, "command failed")
		return 1
	}
	return 0
}

// execute runs cmd, turning a panic into an error.
func execute(ctx context.Context, l *loggerx.Logger, cmd command, c elasticx.Client, fs *pflag.FlagSet, stdout io.Writer) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.Error(ctx, "command panicked", tracex.StackTraceAttrs(r)...)
			err = errorx.InternalErrorf("%s panicked: %v", cmd.name, r)
		}
	}()
	return cmd.run(ctx, c, fs, stdout)
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

func usage(w io.Writer) {
	fmt.Fprintln(w, "usage: gridindex <command> [flags]")
	fmt.Fprintln(w)
	for _, c := range commands {
		fmt.Fprintf(w, "  %-16s %s\n", c.name, c.usage)
	}
}
