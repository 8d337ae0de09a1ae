package resolve

import "fmt"

// ErrorCode classifies resolution failures. Callers match on the code,
// not the concrete error type.
type ErrorCode string

const (
	CodeResolutionFailed  ErrorCode = "RESOLUTION_FAILED"
	CodeInvalidEntityType ErrorCode = "INVALID_ENTITY_TYPE"
	CodeSearchError       ErrorCode = "SEARCH_ERROR"
	CodeDatabaseError     ErrorCode = "DATABASE_ERROR"
)

// Error is the typed failure a resolution call returns; it wraps the
// underlying cause so nothing escapes the resolver untagged.
type Error struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(code ErrorCode, message string, err error) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// CodeOf extracts the resolution error code, or RESOLUTION_FAILED for an
// untyped error.
func CodeOf(err error) ErrorCode {
	if re, ok := err.(*Error); ok {
		return re.Code
	}
	return CodeResolutionFailed
}
