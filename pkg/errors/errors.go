package errors

import (
	"errors"
	"fmt"
)

// Basic error check functions from standard library
var (
	Is     = errors.Is
	As     = errors.As
	Join   = errors.Join
	Unwrap = errors.Unwrap
)

// ErrorCode represents a unique identifier for each error type
type ErrorCode string

const (
	ErrInvalidConfig ErrorCode = "invalid_configuration"
	ErrReadConfig    ErrorCode = "read_config_failed"
	ErrInitHardware  ErrorCode = "init_hardware_failed"
	ErrInitSensor    ErrorCode = "init_sensor_failed"
	ErrInitOutput    ErrorCode = "init_output_failed"
	ErrInitStorage   ErrorCode = "init_storage_failed"
	ErrConnect       ErrorCode = "connect_failed"
	ErrAssociate     ErrorCode = "associate_failed"
	ErrClose         ErrorCode = "close_failed"
)

var errorMessages = map[ErrorCode]string{
	ErrInvalidConfig: "Invalid configuration",
	ErrReadConfig:    "Failed to read configuration",
	ErrInitHardware:  "Failed to initialize hardware",
	ErrInitSensor:    "Failed to initialize sensor",
	ErrInitOutput:    "Failed to initialize output",
	ErrInitStorage:   "Failed to initialize storage",
	ErrConnect:       "Connection failed",
	ErrAssociate:     "Network association failed",
	ErrClose:         "Close failed",
}

// GetErrorMessage returns the default message for code.
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return string(code)
}

// AppError is an error carrying a code, an optional message and a cause.
type AppError struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = GetErrorMessage(e.Code)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *AppError with the same code.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	return ok && t.Code == e.Code && t.Message == "" && t.Err == nil
}

// New creates an error with the default message for code.
func New(code ErrorCode) *AppError {
	return &AppError{Code: code}
}

// Newf creates an error with a formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches code to err. A nil err yields nil.
func Wrap(code ErrorCode, err error) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Err: err}
}

// Wrapf attaches code and a formatted message to err.
func Wrapf(code ErrorCode, err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Err: err}
}

// CodeOf returns the code of the first *AppError in err's chain.
func CodeOf(err error) (ErrorCode, bool) {
	var ae *AppError
	if errors.As(err, &ae) {
		return ae.Code, true
	}
	return "", false
}
