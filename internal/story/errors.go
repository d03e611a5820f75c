package story

import (
	"errors"
	"fmt"
)

// Sentinel errors, one per failure class. Error values match them with
// errors.Is.
var (
	// ErrAnalysis means the story could not be split into segments.
	ErrAnalysis = errors.New("story analysis failed")

	// ErrSynthesis means a segment's audio could not be obtained.
	ErrSynthesis = errors.New("speech synthesis failed")

	// ErrDecode means synthesized audio had a malformed byte layout.
	ErrDecode = errors.New("audio decode failed")

	// ErrDevice means the audio output device could not be created or used.
	ErrDevice = errors.New("audio device unavailable")

	// ErrInvalidInput means the caller passed something unusable.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownSegment is returned for ids that are not in the script.
	ErrUnknownSegment = errors.New("unknown segment")
)

// ErrorCode identifies a failure class.
type ErrorCode string

const (
	CodeAnalysisFailure  ErrorCode = "ANALYSIS_FAILURE"
	CodeSynthesisFailure ErrorCode = "SYNTHESIS_FAILURE"
	CodeDecodeError      ErrorCode = "DECODE_ERROR"
	CodeDeviceError      ErrorCode = "DEVICE_ERROR"
	CodeInvalidInput     ErrorCode = "INVALID_INPUT"
)

// Error is a pipeline error with a failure class and optional context.
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
	Context map[string]interface{}
}

// NewError creates an Error.
func NewError(code ErrorCode, message string, cause error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   cause,
		Context: make(map[string]interface{}),
	}
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is matches the sentinel of the error's class.
func (e *Error) Is(target error) bool {
	return target == e.sentinel()
}

// WithContext attaches a key/value to the error.
func (e *Error) WithContext(key string, value interface{}) *Error {
	e.Context[key] = value
	return e
}

// IsFatal reports whether the error ends a playback session.
func (e *Error) IsFatal() bool {
	return e.Code == CodeDeviceError
}

func (e *Error) sentinel() error {
	switch e.Code {
	case CodeAnalysisFailure:
		return ErrAnalysis
	case CodeSynthesisFailure:
		return ErrSynthesis
	case CodeDecodeError:
		return ErrDecode
	case CodeDeviceError:
		return ErrDevice
	case CodeInvalidInput:
		return ErrInvalidInput
	default:
		return nil
	}
}

// IsFatal reports whether err carries a fatal pipeline error.
func IsFatal(err error) bool {
	var se *Error
	return errors.As(err, &se) && se.IsFatal()
}
