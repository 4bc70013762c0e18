package errorx

import "fmt"

// AbortedErrorf reports a concurrency conflict such as a rejected optimistic write.
func AbortedErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeAborted, fmt.Sprintf(format, args...))
}

func AlreadyExistsErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeAlreadyExists, fmt.Sprintf(format, args...))
}

func FailedPreconditionErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeFailedPrecondition, fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeInternal, fmt.Sprintf(format, args...))
}

func InvalidArgumentErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeInvalidArgument, fmt.Sprintf(format, args...))
}

func NotFoundErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeNotFound, fmt.Sprintf(format, args...))
}

// UnavailableErrorf reports a transient failure; the call may succeed if retried.
func UnavailableErrorf(format string, args ...any) *Error {
	return newWithStack(ErrorTypeUnavailable, fmt.Sprintf(format, args...))
}

// TypeOf returns the type of the first typed error in the chain of e, or
// ErrorTypeUnspecified when there is none.
func TypeOf(e error) ErrorType {
	if mE, ok := IsError(e); ok {
		return mE.Type
	}
	return ErrorTypeUnspecified
}

func IsAbortedError(e error) bool            { return TypeOf(e) == ErrorTypeAborted }
func IsAlreadyExistsError(e error) bool      { return TypeOf(e) == ErrorTypeAlreadyExists }
func IsFailedPreconditionError(e error) bool { return TypeOf(e) == ErrorTypeFailedPrecondition }
func IsInternalError(e error) bool           { return TypeOf(e) == ErrorTypeInternal }
func IsInvalidArgumentError(e error) bool    { return TypeOf(e) == ErrorTypeInvalidArgument }
func IsNotFoundError(e error) bool           { return TypeOf(e) == ErrorTypeNotFound }
func IsUnavailableError(e error) bool        { return TypeOf(e) == ErrorTypeUnavailable }
