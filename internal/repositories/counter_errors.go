package repositories

import "errors"

// CounterErrorCode classifies counter failures for callers that need to
// branch without matching on message text.
type CounterErrorCode string

const (
	CounterErrorUnknown      CounterErrorCode = "counter_unknown"
	CounterErrorInvalidInput CounterErrorCode = "counter_invalid_input"
	// CounterErrorExhausted means the counter hit its configured maximum.
	CounterErrorExhausted CounterErrorCode = "counter_exhausted"
)

// CounterError is the error type returned by counter operations.
type CounterError struct {
	Op      string
	Code    CounterErrorCode
	Message string
	Err     error
}

func (e *CounterError) Error() string {
	if e == nil {
		return ""
	}
	if e.Op != "" {
		return e.Op + ": " + e.Message
	}
	return e.Message
}

func (e *CounterError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewCounterError builds a CounterError. An empty message defaults to
// the code itself.
func NewCounterError(code CounterErrorCode, message string, err error) *CounterError {
	if message == "" {
		message = string(code)
	}
	return &CounterError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// CounterErrorCodeOf extracts the code from err, or CounterErrorUnknown
// when err is not a CounterError.
func CounterErrorCodeOf(err error) CounterErrorCode {
	var counterErr *CounterError
	if errors.As(err, &counterErr) && counterErr != nil {
		return counterErr.Code
	}
	return CounterErrorUnknown
}
