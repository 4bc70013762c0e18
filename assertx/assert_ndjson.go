package assertx

import (
	"bytes"
	"fmt"

	"github.com/stretchr/testify/assert"
)

// EqualNDJSON asserts that actual holds one JSON document per line, each semantically equal to
// the expected line at the same position. A trailing newline is ignored.
//
// assertx.EqualNDJSON(t, []string{`{"index":{"_id":"a"}}`, `{"title":"A"}`}, body)
func EqualNDJSON(t assert.TestingT, expected []string, actual []byte, msgAndArgs ...interface{}) bool {
	if h, ok := t.(tHelper); ok {
		h.Helper()
	}

	lines := splitLines(actual)
	if len(lines) != len(expected) {
		return assert.Fail(t, fmt.Sprintf("expected %d lines, got %d:\n%s", len(expected), len(lines), actual), msgAndArgs...)
	}

	ok := true
	for i, want := range expected {
		if !assert.JSONEq(t, want, string(lines[i]), append([]interface{}{"line %d", i + 1}, msgAndArgs...)...) {
			ok = false
		}
	}
	return ok
}

func splitLines(b []byte) [][]byte {
	b = bytes.TrimSuffix(b, []byte("\n"))
	if len(b) == 0 {
		return nil
	}
	return bytes.Split(b, []byte("\n"))
}
