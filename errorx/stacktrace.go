package errorx

import (
	"fmt"
	"io"
	"runtime"
	"strings"
)

const stackTraceDepth = 32

type Frame struct {
	File     string
	Line     int
	Function string
}

func (f Frame) String() string {
	return fmt.Sprintf("%s\n\t%s:%d", f.Function, f.File, f.Line)
}

// Callers holds the program counters of a captured stack.
type Callers []uintptr

func callers(skip int) Callers {
	pc := make([]uintptr, stackTraceDepth)
	n := runtime.Callers(skip+2, pc)
	return pc[:n]
}

// Frames resolves the program counters, innermost call first.
func (c Callers) Frames() []Frame {
	if len(c) == 0 {
		return nil
	}

	frames := make([]Frame, 0, len(c))
	it := runtime.CallersFrames(c)
	for {
		f, more := it.Next()
		frames = append(frames, Frame{File: f.File, Line: f.Line, Function: f.Function})
		if !more {
			return frames
		}
	}
}

func (c Callers) String() string {
	var b strings.Builder
	c.writeTo(&b)
	return b.String()
}

func (c Callers) writeTo(w io.Writer) {
	for _, f := range c.Frames() {
		fmt.Fprintln(w, f.String())
	}
}

// Format prints the message for %s and %v, and appends the stack for %+v.
func (e *Error) Format(s fmt.State, verb rune) {
	switch verb {
	case 'v':
		io.WriteString(s, e.Error())
		if s.Flag('+') && len(e.stack) > 0 {
			io.WriteString(s, "\n")
			e.stack.writeTo(s)
		}
	case 's':
		io.WriteString(s, e.Error())
	case 'q':
		fmt.Fprintf(s, "%q", e.Error())
	}
}
