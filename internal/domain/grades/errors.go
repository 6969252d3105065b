package grades

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorCode classifies failures of the scoring pipeline.
type ErrorCode string

const (
	CodeDataLoad         ErrorCode = "data_load"
	CodeUnknownStudent   ErrorCode = "unknown_student"
	CodeUnknownModule    ErrorCode = "unknown_module"
	CodeModelUnavailable ErrorCode = "model_unavailable"
	CodeFeatureShape     ErrorCode = "feature_shape"
	CodeStaleAggregates  ErrorCode = "stale_aggregates"
	CodeInvalidInput     ErrorCode = "invalid_input"
	CodeInternal         ErrorCode = "internal"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrDataLoad         = &Error{Code: CodeDataLoad}
	ErrUnknownStudent   = &Error{Code: CodeUnknownStudent}
	ErrUnknownModule    = &Error{Code: CodeUnknownModule}
	ErrModelUnavailable = &Error{Code: CodeModelUnavailable}
	ErrFeatureShape     = &Error{Code: CodeFeatureShape}
	ErrStaleAggregates  = &Error{Code: CodeStaleAggregates}
	ErrInvalidInput     = &Error{Code: CodeInvalidInput}
)

// Error is the canonical pipeline error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return t.Code == e.Code
}

// NewError builds a pipeline error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code. Returns nil for nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode reports whether any error in err's chain carries code.
func IsCode(err error, code ErrorCode) bool {
	return errors.Is(err, &Error{Code: code})
}

// CodeOf extracts the outermost code, or CodeInternal when err is not coded.
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return CodeInternal
	}
	return e.Code
}
