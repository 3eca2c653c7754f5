package config

// ErrorCode categorizes load errors.
type ErrorCode string

const (
	InputError        ErrorCode = "InputError"
	NetworkError      ErrorCode = "NetworkError"
	ParseError        ErrorCode = "ParseError"
	DecodeError       ErrorCode = "DecodeError"
	MissingField      ErrorCode = "MissingField"
	DuplicateGroup    ErrorCode = "DuplicateGroup"
	ReservedGroupName ErrorCode = "ReservedGroupName"
)

// Error is a structured load error with the location of the offending
// document and, where known, the configuration field.
type Error struct {
	Code     ErrorCode
	Message  string
	Location string // file path, consul key or "<bytes>"
	Field    string // e.g. "swagger.docket.public.global-operation-parameters[1].name"
	Cause    error
}

func (e *Error) Error() string { return e.Message }
func (e *Error) Unwrap() error { return e.Cause }
