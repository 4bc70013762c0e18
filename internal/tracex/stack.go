package internaltracex

import (
	"fmt"
	"runtime"
	"strings"
)

const (
	maxStackFrames = 16
	maxStackBytes  = 2048
)

// GetStackTrace renders the current goroutine stack, skipping skipLevels frames.
// GetStackTrace(2) starts at the caller of the function calling GetStackTrace.
func GetStackTrace(skipLevels int) string {
	pc := make([]uintptr, maxStackFrames)
	n := runtime.Callers(skipLevels, pc)
	frames := runtime.CallersFrames(pc[:n])

	var b strings.Builder
	for {
		frame, more := frames.Next()
		fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more || b.Len() > maxStackBytes {
			break
		}
	}
	return b.String()
}
