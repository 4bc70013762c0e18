package errorx

type ErrorType string

// Error types follow the gRPC status codes.
const (
	// ErrorTypeUnspecified marks an error that is not typed.
	ErrorTypeUnspecified        = ErrorType("")
	ErrorTypeAborted            = ErrorType("ABORTED")
	ErrorTypeAlreadyExists      = ErrorType("ALREADY_EXISTS")
	ErrorTypeFailedPrecondition = ErrorType("FAILED_PRECONDITION")
	ErrorTypeInternal           = ErrorType("INTERNAL")
	ErrorTypeInvalidArgument    = ErrorType("INVALID_ARGUMENT")
	ErrorTypeNotFound           = ErrorType("NOT_FOUND")
	ErrorTypeUnavailable        = ErrorType("UNAVAILABLE")
)

func ParseErrorType(s string) (ErrorType, error) {
	e := ErrorType(s)
	if err := e.Validate(); err != nil {
		return ErrorTypeUnspecified, err
	}

	return e, nil
}

func (e ErrorType) String() string {
	return string(e)
}

func (e ErrorType) Validate() error {
	switch e {
	case ErrorTypeAborted,
		ErrorTypeAlreadyExists,
		ErrorTypeFailedPrecondition,
		ErrorTypeInternal,
		ErrorTypeInvalidArgument,
		ErrorTypeNotFound,
		ErrorTypeUnavailable:
		return nil
	default:
		return InvalidArgumentErrorf("invalid error type: %s", e)
	}
}
