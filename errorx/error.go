package errorx

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
)

type Error struct {
	Type    ErrorType `json:"type"`
	Message string    `json:"message"`

	OriginalError error // Not returned to clients

	stack Callers
}

var _ error = (*Error)(nil)

var messageRegexp = regexp.MustCompile(`\[(.*?)\] (.*)`)

func newWithStack(t ErrorType, msg string) *Error {
	return &Error{
		Type:    t,
		Message: msg,
		stack:   callers(2),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.OriginalError
}

// WithOriginalError attaches the error that caused this one. The original error is never
// rendered in Error() but stays reachable through errors.Is / errors.As.
func (e *Error) WithOriginalError(err error) *Error {
	e.OriginalError = err
	return e
}

// StackTrace returns the call stack captured when the error was created.
func (e *Error) StackTrace() Callers {
	return e.stack
}

func NewErrorFromMessage(msg string) (*Error, error) {
	m := messageRegexp.FindStringSubmatch(msg)
	if m == nil || len(m) < 2 {
		return nil, fmt.Errorf("%q is not a valid error type", msg)
	}

	eT, err := ParseErrorType(m[1])
	if err != nil {
		return nil, err
	}

	if len(m) >= 3 {
		msg = m[2]
	}

	return &Error{
		Type:    eT,
		Message: msg,
	}, nil
}

// IsError returns the first Error found in the error chain.
func IsError(e error) (*Error, bool) {
	var mE *Error
	if !errors.As(e, &mE) || mE == nil {
		return nil, false
	}

	if mE.Type == ErrorTypeUnspecified {
		return nil, false
	}

	return mE, true
}
