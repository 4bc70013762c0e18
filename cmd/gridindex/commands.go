package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/gridsearch/x/elasticx"
	"github.com/gridsearch/x/errorx"
)

func readyFlags(*pflag.FlagSet) {}

func runReady(ctx context.Context, c elasticx.Client, _ *pflag.FlagSet, stdout io.Writer) error {
	if !c.Ready(ctx) {
		return errorx.UnavailableErrorf("elastic cluster is not ready")
	}
	fmt.Fprintln(stdout, "ready")
	return nil
}

func waitFlags(fs *pflag.FlagSet) {
	fs.Duration("timeout", time.Minute, "maximum time to wait")
	fs.String("status", string(elasticx.HealthYellow), "minimum health status: green, yellow or red")
}

func runWait(ctx context.Context, c elasticx.Client, fs *pflag.FlagSet, stdout io.Writer) error {
	timeout, _ := fs.GetDuration("timeout")
	status, _ := fs.GetString("status")

	st, err := parseStatus(status)
	if err != nil {
		return err
	}
	if !c.WaitReady(ctx, timeout, st) {
		return errorx.UnavailableErrorf("elastic cluster did not reach %s within %s", st, timeout)
	}
	fmt.Fprintln(stdout, "ready")
	return nil
}

func parseStatus(s string) (elasticx.HealthStatus, error) {
	switch st := elasticx.HealthStatus(s); st {
	case elasticx.HealthGreen, elasticx.HealthYellow, elasticx.HealthRed:
		return st, nil
	default:
		return "", errorx.InvalidArgumentErrorf("unknown health status %q", s)
	}
}

func countFlags(fs *pflag.FlagSet) {
	fs.String("index", "", "index to count")
	fs.String("query", "", "JSON query, all documents when empty")
	fs.String("since-field", "", "date field to restrict the count to recent documents")
	fs.Duration("window", 0, "with --since-field, only count documents newer than this")
}

type counter interface {
	Count(ctx context.Context, index string, predicate json.RawMessage) (int64, error)
	CountSince(ctx context.Context, index, timeField string, window time.Duration) (int64, error)
}

func runCount(ctx context.Context, c elasticx.Client, fs *pflag.FlagSet, stdout io.Writer) error {
	index, _ := fs.GetString("index")
	query, _ := fs.GetString("query")
	field, _ := fs.GetString("since-field")
	window, _ := fs.GetDuration("window")

	n, err := count(ctx, c, index, query, field, window)
	if err != nil {
		return err
	}
	fmt.Fprintln(stdout, n)
	return nil
}

func count(ctx context.Context, c counter, index, query, field string, window time.Duration) (int64, error) {
	if index == "" {
		return 0, errorx.InvalidArgumentErrorf("--index is required")
	}
	if field != "" {
		if query != "" {
			return 0, errorx.InvalidArgumentErrorf("--query and --since-field are mutually exclusive")
		}
		return c.CountSince(ctx, index, field, window)
	}
	return c.Count(ctx, index, rawQuery(query))
}

func deleteByQueryFlags(fs *pflag.FlagSet) {
	fs.String("index", "", "index to delete from")
	fs.String("query", "", "JSON query selecting the documents to delete")
}

type queryDeleter interface {
	DeleteByQuery(ctx context.Context, index string, predicate json.RawMessage) (int, error)
}

func runDeleteByQuery(ctx context.Context, c elasticx.Client, fs *pflag.FlagSet, stdout io.Writer) error {
	index, _ := fs.GetString("index")
	query, _ := fs.GetString("query")

	n, err := deleteByQuery(ctx, c, index, query)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%d documents submitted for deletion\n", n)
	return nil
}

func deleteByQuery(ctx context.Context, c queryDeleter, index, query string) (int, error) {
	if index == "" {
		return 0, errorx.InvalidArgumentErrorf("--index is required")
	}
	if query == "" {
		return 0, errorx.InvalidArgumentErrorf("--query is required, use {\"match_all\":{}} to empty the index")
	}
	return c.DeleteByQuery(ctx, index, rawQuery(query))
}

func rawQuery(q string) json.RawMessage {
	if q == "" {
		return nil
	}
	return json.RawMessage(q)
}
