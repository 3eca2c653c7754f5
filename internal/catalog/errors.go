package catalog

// ErrorCode categorizes catalog loading failures.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ConversionError ErrorCode = "ConversionError"
)

// Error is a structured catalog error. Location is the file path or URL the
// catalog was read from; Pointer locates the offending entry when known.
type Error struct {
	Code     ErrorCode
	Message  string
	Location string
	Pointer  string // e.g. "#/endpoints/3/method"
	Cause    error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }
