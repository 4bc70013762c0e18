package loggerxtest

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/gridsearch/x/loggerx"
)

// NewTestLogger discards everything.
func NewTestLogger(t testing.TB) *loggerx.Logger {
	t.Helper()
	return &loggerx.Logger{Logger: slog.New(slog.DiscardHandler)}
}

// NewTestLoggerWithJSONBuffer logs every level as JSON lines into the returned buffer,
// through the same handler chain as loggerx.New.
func NewTestLoggerWithJSONBuffer(t testing.TB) (*loggerx.Logger, *bytes.Buffer) {
	t.Helper()
	buf := new(bytes.Buffer)
	return loggerx.New(loggerx.WithWriter(buf), loggerx.WithLevel(slog.LevelDebug)), buf
}

// Lines returns the non-empty lines written so far.
func Lines(buf *bytes.Buffer) []string {
	var lines []string
	for _, l := range bytes.Split(buf.Bytes(), []byte("\n")) {
		if len(l) > 0 {
			lines = append(lines, string(l))
		}
	}
	return lines
}
