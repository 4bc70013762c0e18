package loggerx

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/gridsearch/x/slogx"
	slogctx "github.com/veqryn/slog-context"
	"go.opentelemetry.io/otel/attribute"
)

type Logger struct {
	*slog.Logger
}

type Format string

const (
	FormatJSON Format = "json"
	FormatText Format = "text"
)

type options struct {
	w          io.Writer
	level      slog.Leveler
	format     Format
	extractors []slogctx.AttrExtractor
}

type Option func(*options)

func WithWriter(w io.Writer) Option {
	return func(o *options) {
		o.w = w
	}
}

func WithLevel(level slog.Leveler) Option {
	return func(o *options) {
		o.level = level
	}
}

func WithFormat(f Format) Option {
	return func(o *options) {
		o.format = f
	}
}

// WithExtractors appends attribute extractors that run on every record, e.g. slogx.NewContextValueExtractor.
func WithExtractors(extractors ...slogctx.AttrExtractor) Option {
	return func(o *options) {
		o.extractors = append(o.extractors, extractors...)
	}
}

// New builds a Logger writing JSON to stderr at info level unless configured otherwise.
// Attributes stored in the context with slogctx.Append/Prepend are added to every record,
// as are the ids of the active span.
func New(opts ...Option) *Logger {
	o := &options{
		w:      os.Stderr,
		level:  slog.LevelInfo,
		format: FormatJSON,
	}
	for _, opt := range opts {
		opt(o)
	}

	hOpts := &slog.HandlerOptions{Level: o.level}
	var h slog.Handler
	switch o.format {
	case FormatText:
		h = slog.NewTextHandler(o.w, hOpts)
	default:
		h = slog.NewJSONHandler(o.w, hOpts)
	}

	h = slogctx.NewHandler(h, &slogctx.HandlerOptions{
		Prependers: []slogctx.AttrExtractor{slogctx.ExtractPrepended},
		Appenders:  append([]slogctx.AttrExtractor{slogctx.ExtractAppended, slogx.ExtractSpanContext}, o.extractors...),
	})

	return &Logger{slog.New(h)}
}

// ParseLevel maps a textual level ("debug", "info", "warn", "error") to a slog.Level.
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return l
}

func (l *Logger) WithError(err error) *Logger {
	return l.with(slogx.ErrorAttrs(err))
}

func (l *Logger) Error(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelError, msg, slogx.Attrs(kvs...)...)
}

func (l *Logger) Warn(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelWarn, msg, slogx.Attrs(kvs...)...)
}

func (l *Logger) Info(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelInfo, msg, slogx.Attrs(kvs...)...)
}

func (l *Logger) Debug(ctx context.Context, msg string, kvs ...attribute.KeyValue) {
	l.Logger.LogAttrs(ctx, slog.LevelDebug, msg, slogx.Attrs(kvs...)...)
}

func (l *Logger) WithFields(kvs ...attribute.KeyValue) *Logger {
	return l.with(slogx.Attrs(kvs...))
}

func (l *Logger) with(attrs []slog.Attr) *Logger {
	args := make([]any, 0, len(attrs))
	for _, a := range attrs {
		args = append(args, a)
	}
	return &Logger{l.Logger.With(args...)}
}
