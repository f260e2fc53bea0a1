package camera

import "fmt"

// Error codes for capture pipeline operations.
const (
	ErrCodeNoCamera     = "NO_CAMERA_AVAILABLE"
	ErrCodePlatformCall = "PLATFORM_CALL_FAILED"
	ErrCodeInvalidState = "INVALID_STATE"
)

// Error represents a capture pipeline error with a code.
type Error struct {
	Code    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}
